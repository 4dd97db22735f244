package main

import (
	"fmt"
	"io"
	"net"
	"strings"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"domain-reputation/blacklist"
	"domain-reputation/config"
	"domain-reputation/intel"
	"domain-reputation/probe"
	"domain-reputation/reputation"
	"domain-reputation/resolver"
)

// engine is the wired aggregator plus what the commands report about it.
type engine struct {
	aggregator *reputation.Aggregator
	resolver   resolver.Resolver
	metrics    *prometheus.Registry
	dnsServers []string
}

func loadRegistry(cfg *config.Config, log zerolog.Logger) (*blacklist.Registry, error) {
	reg, err := blacklist.LoadFile(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	src := cfg.Catalog
	if src == "" {
		src = "built-in"
	}
	log.Debug().Str("catalog", src).Int("blacklists", reg.Len()).Msg("catalog loaded")
	return reg, nil
}

func newEngine(cfg *config.Config, log zerolog.Logger) (*engine, error) {
	reg, err := loadRegistry(cfg, log)
	if err != nil {
		return nil, err
	}

	dns, dnsServers := newResolver(cfg.DNS)
	prober := probe.New(dns, probe.Options{
		Concurrency:  cfg.DNS.Concurrency,
		ProbeTimeout: cfg.DNS.ProbeTimeout,
		BatchTimeout: cfg.DNS.BatchTimeout,
	}, log)

	intelCfg := func(key string, perMin int) intel.Config {
		return intel.Config{
			APIKey:        key,
			RatePerMinute: perMin,
			CacheTTL:      cfg.Cache.ExternalTTL,
			ErrorTTL:      cfg.Cache.ErrorTTL,
		}
	}
	collector := intel.NewCollector(log,
		intel.NewAbuseIPDB(intelCfg(cfg.Intel.AbuseIPDBKey, cfg.Intel.AbuseIPDBRatePerMin), log),
		intel.NewVirusTotal(intelCfg(cfg.Intel.VirusTotalKey, cfg.Intel.VirusTotalRatePerMin), log),
	)
	for _, s := range collector.Sources() {
		if !s.Configured() {
			log.Warn().Str("source", s.Name()).Msg("API key not set, source disabled")
		}
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := reputation.Deps{
		Registry:  reg,
		Resolver:  dns,
		Prober:    prober,
		Collector: collector,
		Metrics:   reputation.NewMetrics(promReg),
		Logger:    log,
	}
	if cfg.Whois.Enabled {
		deps.Whois = intel.NewWhoisAge(cfg.Whois.Timeout, nil, log)
	}

	opts := reputation.DefaultOptions()
	opts.AggregateTimeout = cfg.DNS.AggregateTimeout
	opts.LookupTimeout = cfg.DNS.LookupTimeout
	opts.CacheTTL = cfg.Cache.ReputationTTL

	return &engine{
		aggregator: reputation.New(deps, opts),
		resolver:   dns,
		metrics:    promReg,
		dnsServers: dnsServers,
	}, nil
}

// newResolver builds the DNS_RESOLVER backend and names the servers it
// queries. The system backend dials the first configured server, or follows
// the host's resolver configuration when none is set.
func newResolver(cfg config.DNSConfig) (resolver.Resolver, []string) {
	if cfg.Resolver == config.ResolverSystem {
		if len(cfg.Servers) == 0 {
			return resolver.NewNet(nil, ""), []string{"system"}
		}
		server := cfg.Servers[0]
		if _, _, err := net.SplitHostPort(server); err != nil {
			server = net.JoinHostPort(server, "53")
		}
		return resolver.NewNet(nil, server), []string{server}
	}
	c := resolver.NewClient(cfg.Servers, cfg.ProbeTimeout)
	return c, c.Servers()
}

func printReport(w io.Writer, r *reputation.Report) {
	fmt.Fprintf(w, "%s (%s)\n", r.Subject, r.Kind)
	if len(r.ResolvedIPs) > 0 {
		fmt.Fprintf(w, "  addresses: %s\n", strings.Join(r.ResolvedIPs, ", "))
	}
	fmt.Fprintf(w, "  score:     %d/100, %s risk\n", r.Score, r.RiskLevel)
	fmt.Fprintf(w, "  listed:    %d of %d services\n", r.ListedCount, r.TotalServices)
	if r.DomainAgeDays != nil {
		fmt.Fprintf(w, "  age:       %d days\n", *r.DomainAgeDays)
	}
	for _, s := range r.Signals {
		fmt.Fprintf(w, "  %-10s %s", s.Source+":", s.Status)
		if s.Penalty > 0 {
			fmt.Fprintf(w, " (-%.1f)", s.Penalty)
		}
		fmt.Fprintln(w)
	}
	if r.Partial {
		fmt.Fprintln(w, "  warning:   some checks timed out, results are incomplete")
	}
	if r.IPLookupError {
		fmt.Fprintln(w, "  warning:   no A/AAAA records, IP lists were skipped")
	}
	if len(r.Listings) > 0 {
		fmt.Fprintln(w, "\nListings:")
		for _, l := range r.Listings {
			fmt.Fprintf(w, "  - %s\n", l)
		}
	}
	if len(r.Recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(w, "  [%s] %s: %s\n", rec.Priority, rec.Title, rec.Description)
		}
	}
}

func printCatalog(w io.Writer, reg *blacklist.Registry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tHOST\tSCOPE\tWEIGHT\tIPV6")
	for _, e := range reg.Entries() {
		v6 := "yes"
		if e.Scope == blacklist.ScopeDomain {
			v6 = "-"
		} else if e.IPv6Unsupported {
			v6 = "no"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Name, e.Host, e.Scope, e.Weight, v6)
	}
	tw.Flush()
}
