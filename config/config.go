// Package config loads settings from the environment, an optional .env file
// and an optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig
	DNS     DNSConfig
	Cache   CacheConfig
	Intel   IntelConfig
	Catalog string
	Whois   WhoisConfig
}

type AppConfig struct {
	Port      int
	LogLevel  string
	LogPretty bool
}

// Resolver backends selectable with DNS_RESOLVER.
const (
	ResolverMiekg  = "miekg"
	ResolverSystem = "system"
)

type DNSConfig struct {
	// Resolver is ResolverMiekg or ResolverSystem.
	Resolver         string
	Servers          []string
	Concurrency      int
	ProbeTimeout     time.Duration
	BatchTimeout     time.Duration
	AggregateTimeout time.Duration
	LookupTimeout    time.Duration
}

type CacheConfig struct {
	ReputationTTL time.Duration
	ExternalTTL   time.Duration
	ErrorTTL      time.Duration
}

type IntelConfig struct {
	AbuseIPDBKey         string
	AbuseIPDBRatePerMin  int
	VirusTotalKey        string
	VirusTotalRatePerMin int
}

type WhoisConfig struct {
	Enabled bool
	Timeout time.Duration
}

var defaults = map[string]any{
	"PORT":                    8080,
	"LOG_LEVEL":               "info",
	"LOG_PRETTY":              false,
	"DNS_RESOLVER":            ResolverMiekg,
	"DNS_SERVERS":             "",
	"PROBE_CONCURRENCY":       10,
	"PROBE_TIMEOUT":           3 * time.Second,
	"BATCH_TIMEOUT":           30 * time.Second,
	"AGGREGATE_TIMEOUT":       45 * time.Second,
	"LOOKUP_TIMEOUT":          5 * time.Second,
	"REPUTATION_CACHE_TTL":    5 * time.Minute,
	"EXTERNAL_CACHE_TTL":      15 * time.Minute,
	"ERROR_CACHE_TTL":         60 * time.Second,
	"ABUSEIPDB_API_KEY":       "",
	"ABUSEIPDB_RATE_PER_MIN":  30,
	"VIRUSTOTAL_API_KEY":      "",
	"VIRUSTOTAL_RATE_PER_MIN": 4,
	"BLACKLIST_CATALOG":       "",
	"WHOIS_ENABLED":           true,
	"WHOIS_TIMEOUT":           10 * time.Second,
}

// Load reads .env (if present) into the process environment, then resolves
// every key from the environment, config.yaml or the built-in default, in
// that order.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Port:      v.GetInt("PORT"),
			LogLevel:  v.GetString("LOG_LEVEL"),
			LogPretty: v.GetBool("LOG_PRETTY"),
		},
		DNS: DNSConfig{
			Resolver:         strings.ToLower(strings.TrimSpace(v.GetString("DNS_RESOLVER"))),
			Servers:          splitList(v.GetString("DNS_SERVERS")),
			Concurrency:      v.GetInt("PROBE_CONCURRENCY"),
			ProbeTimeout:     v.GetDuration("PROBE_TIMEOUT"),
			BatchTimeout:     v.GetDuration("BATCH_TIMEOUT"),
			AggregateTimeout: v.GetDuration("AGGREGATE_TIMEOUT"),
			LookupTimeout:    v.GetDuration("LOOKUP_TIMEOUT"),
		},
		Cache: CacheConfig{
			ReputationTTL: v.GetDuration("REPUTATION_CACHE_TTL"),
			ExternalTTL:   v.GetDuration("EXTERNAL_CACHE_TTL"),
			ErrorTTL:      v.GetDuration("ERROR_CACHE_TTL"),
		},
		Intel: IntelConfig{
			AbuseIPDBKey:         v.GetString("ABUSEIPDB_API_KEY"),
			AbuseIPDBRatePerMin:  v.GetInt("ABUSEIPDB_RATE_PER_MIN"),
			VirusTotalKey:        v.GetString("VIRUSTOTAL_API_KEY"),
			VirusTotalRatePerMin: v.GetInt("VIRUSTOTAL_RATE_PER_MIN"),
		},
		Catalog: v.GetString("BLACKLIST_CATALOG"),
		Whois: WhoisConfig{
			Enabled: v.GetBool("WHOIS_ENABLED"),
			Timeout: v.GetDuration("WHOIS_TIMEOUT"),
		},
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.App.Port)
	}
	switch c.DNS.Resolver {
	case ResolverMiekg, ResolverSystem:
	default:
		return fmt.Errorf("DNS_RESOLVER must be %q or %q, got %q", ResolverMiekg, ResolverSystem, c.DNS.Resolver)
	}
	if c.DNS.Concurrency <= 0 {
		return fmt.Errorf("PROBE_CONCURRENCY must be positive, got %d", c.DNS.Concurrency)
	}
	for name, d := range map[string]time.Duration{
		"PROBE_TIMEOUT":        c.DNS.ProbeTimeout,
		"BATCH_TIMEOUT":        c.DNS.BatchTimeout,
		"AGGREGATE_TIMEOUT":    c.DNS.AggregateTimeout,
		"LOOKUP_TIMEOUT":       c.DNS.LookupTimeout,
		"REPUTATION_CACHE_TTL": c.Cache.ReputationTTL,
		"EXTERNAL_CACHE_TTL":   c.Cache.ExternalTTL,
		"ERROR_CACHE_TTL":      c.Cache.ErrorTTL,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration", name)
		}
	}
	return nil
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}
