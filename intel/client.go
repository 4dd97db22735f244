package intel

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"domain-reputation/cache"
)

// Config holds the settings shared by the HTTP-backed sources.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// RatePerMinute caps upstream calls. Zero means unlimited.
	RatePerMinute int
	// CacheTTL applies to successful answers, ErrorTTL to failures.
	CacheTTL time.Duration
	ErrorTTL time.Duration
	// HTTPClient overrides the default client built from Timeout.
	HTTPClient *http.Client
}

type fetchFunc func(ctx context.Context, ip string) (Signal, time.Duration, error)

// client carries the plumbing common to every HTTP source: credential
// gating, a token-bucket limiter and a result cache.
type client struct {
	name       string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *cache.Cache[string, Signal]
	errorTTL   time.Duration
	log        zerolog.Logger
}

func newClient(name, defaultURL string, defaultTimeout time.Duration, cfg Config, log zerolog.Logger) client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultURL
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	if cfg.ErrorTTL <= 0 {
		cfg.ErrorTTL = time.Minute
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60.0), cfg.RatePerMinute)
	}

	return client{
		name:       name,
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: hc,
		limiter:    limiter,
		cache:      cache.New[string, Signal](cfg.CacheTTL),
		errorTTL:   cfg.ErrorTTL,
		log:        log.With().Str("component", "intel").Str("source", name).Logger(),
	}
}

func (c *client) Name() string { return c.name }

func (c *client) Configured() bool { return c.apiKey != "" }

// CacheStats reports the source's cache population.
func (c *client) CacheStats() cache.Stats { return c.cache.Stats() }

func (c *client) ClearCache() { c.cache.Clear() }

func (c *client) lookup(ctx context.Context, ip string, fetch fetchFunc) Signal {
	if !c.Configured() {
		return Signal{Source: c.name, Status: StatusNotConfigured}
	}
	if ip == "" {
		return Signal{Source: c.name, Status: StatusError, Error: errNoAddress.Error()}
	}

	if sig, ok := c.cache.Get(ip); ok {
		sig.Cached = true
		return sig
	}

	if !c.limiter.Allow() {
		c.log.Warn().Str("ip", ip).Msg("local rate limit reached")
		return Signal{Source: c.name, Status: StatusRateLimited, Error: errRateLimited.Error()}
	}

	sig, ttl, err := fetch(ctx, ip)
	switch {
	case errors.Is(err, errRateLimited):
		c.log.Warn().Str("ip", ip).Msg("upstream rate limit")
		return Signal{Source: c.name, Status: StatusRateLimited, Error: err.Error()}
	case err != nil:
		c.log.Error().Err(err).Str("ip", ip).Msg("lookup failed")
		sig = Signal{Source: c.name, Status: StatusError, Error: err.Error()}
		// A failure caused by the caller giving up says nothing about upstream.
		if ctx.Err() == nil {
			c.cache.SetTTL(ip, sig, c.errorTTL)
		}
		return sig
	}

	sig.Source = c.name
	sig.Status = StatusOK
	c.cache.SetTTL(ip, sig, ttl)
	return sig
}
