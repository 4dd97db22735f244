// Package reputation combines DNSBL probing and external intelligence into a
// scored report for a domain or IP address.
package reputation

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"domain-reputation/blacklist"
	"domain-reputation/cache"
	"domain-reputation/intel"
	"domain-reputation/probe"
	"domain-reputation/resolver"
)

// AgeLookup reports the registration age of a domain.
type AgeLookup interface {
	AgeDays(ctx context.Context, domain string) (int, bool)
}

// Options tune an Aggregator.
type Options struct {
	// AggregateTimeout bounds a whole check. When it expires the report is
	// built from whatever finished and marked partial.
	AggregateTimeout time.Duration
	// LookupTimeout bounds each A/AAAA query for a domain subject.
	LookupTimeout time.Duration
	// CacheTTL is how long the evidence of a complete check is reused.
	CacheTTL   time.Duration
	Weights    Weights
	Thresholds RiskThresholds
}

func DefaultOptions() Options {
	return Options{
		AggregateTimeout: 45 * time.Second,
		LookupTimeout:    5 * time.Second,
		CacheTTL:         5 * time.Minute,
		Weights:          DefaultWeights(),
		Thresholds:       DefaultRiskThresholds(),
	}
}

// Deps are the collaborators of an Aggregator. Collector, Whois and Metrics
// are optional.
type Deps struct {
	Registry  *blacklist.Registry
	Resolver  resolver.Resolver
	Prober    *probe.Prober
	Collector *intel.Collector
	Whois     AgeLookup
	Metrics   *Metrics
	Logger    zerolog.Logger
}

// evidence is everything gathered from the network for one subject.
type evidence struct {
	IPs           []string
	Probes        []probe.Result
	Signals       []intel.Signal
	AgeDays       *int
	Partial       bool
	IPLookupError bool
}

// Aggregator runs reputation checks. It is safe for concurrent use.
type Aggregator struct {
	registry  *blacklist.Registry
	resolver  resolver.Resolver
	prober    *probe.Prober
	collector *intel.Collector
	whois     AgeLookup
	metrics   *Metrics
	cache     *cache.Cache[string, evidence]
	opts      Options
	log       zerolog.Logger
}

func New(d Deps, opts Options) *Aggregator {
	def := DefaultOptions()
	if opts.AggregateTimeout <= 0 {
		opts.AggregateTimeout = def.AggregateTimeout
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = def.LookupTimeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = def.CacheTTL
	}
	if opts.Weights == (Weights{}) {
		opts.Weights = def.Weights
	}
	if opts.Thresholds == (RiskThresholds{}) {
		opts.Thresholds = def.Thresholds
	}
	p := d.Prober
	if p == nil {
		p = probe.New(d.Resolver, probe.DefaultOptions(), d.Logger)
	}
	return &Aggregator{
		registry:  d.Registry,
		resolver:  d.Resolver,
		prober:    p,
		collector: d.Collector,
		whois:     d.Whois,
		metrics:   d.Metrics,
		cache:     cache.New[string, evidence](opts.CacheTTL),
		opts:      opts,
		log:       d.Logger.With().Str("component", "aggregator").Logger(),
	}
}

func (a *Aggregator) Registry() *blacklist.Registry { return a.registry }

// Check validates req.Target and produces its report. The only error it
// returns is *InputError; network trouble shows up inside the report.
func (a *Aggregator) Check(ctx context.Context, req Request) (*Report, error) {
	subject, kind, err := Normalize(req.Target)
	if err != nil {
		return nil, err
	}

	ev, cached := evidence{}, false
	if !req.SkipCache {
		ev, cached = a.cache.Get(cacheKey(kind, subject))
	}
	if cached {
		a.metrics.observeCacheHit()
		a.log.Debug().Str("subject", subject).Msg("evidence cache hit")
	} else {
		ev = a.gather(ctx, subject, kind)
		if !ev.Partial {
			a.cache.Set(cacheKey(kind, subject), ev)
		}
	}

	report := a.build(subject, kind, ev, Context{Auth: req.Auth})
	report.Cached = cached
	a.metrics.observeReport(report)

	a.log.Info().
		Str("subject", subject).
		Str("kind", string(kind)).
		Int("score", report.Score).
		Str("risk", string(report.RiskLevel)).
		Int("listed", report.ListedCount).
		Bool("partial", report.Partial).
		Bool("cached", cached).
		Msg("reputation check finished")
	return report, nil
}

func cacheKey(kind Kind, subject string) string {
	return string(kind) + ":" + subject
}

func (a *Aggregator) gather(parent context.Context, subject string, kind Kind) evidence {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, a.opts.AggregateTimeout)
	defer cancel()

	var ev evidence
	if kind == KindIP {
		ev.IPs = []string{subject}
	} else {
		ev.IPs = a.resolve(ctx, subject)
		ev.IPLookupError = len(ev.IPs) == 0
		if ev.IPLookupError {
			a.log.Warn().Str("domain", subject).Msg("could not resolve addresses, checking domain lists only")
		}
	}

	type job struct {
		target  string
		entries []blacklist.Entry
	}
	var jobs []job
	if kind == KindDomain {
		jobs = append(jobs, job{subject, a.registry.ForScope(blacklist.ScopeDomain)})
	}
	ipEntries := a.registry.ForScope(blacklist.ScopeIP)
	for _, ip := range ev.IPs {
		jobs = append(jobs, job{ip, ipEntries})
	}

	var (
		g       errgroup.Group
		batches = make([]probe.Batch, len(jobs))
		mu      sync.Mutex
	)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			b := a.prober.Run(ctx, j.target, j.entries)
			mu.Lock()
			batches[i] = b
			mu.Unlock()
			return nil
		})
	}
	if a.collector != nil {
		g.Go(func() error {
			signals := a.collector.Collect(ctx, primaryIP(ev.IPs))
			mu.Lock()
			ev.Signals = signals
			mu.Unlock()
			return nil
		})
	}
	if a.whois != nil && kind == KindDomain {
		g.Go(func() error {
			if days, ok := a.whois.AgeDays(ctx, subject); ok {
				mu.Lock()
				ev.AgeDays = &days
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, b := range batches {
		ev.Probes = append(ev.Probes, b.Results...)
		if b.Partial {
			ev.Partial = true
		}
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		ev.Partial = true
	}

	a.metrics.observeEvidence(time.Since(start).Seconds(), ev.Probes, ev.Signals, ev.Partial)
	return ev
}

// resolve looks up A and AAAA records concurrently. A missing record type
// is not an error; the result is empty only when neither type produced an
// address.
func (a *Aggregator) resolve(ctx context.Context, domain string) []string {
	var (
		g      errgroup.Group
		v4, v6 []net.IP
	)
	lookup := func(fn func(context.Context, string) ([]net.IP, error), out *[]net.IP, qtype string) func() error {
		return func() error {
			lctx, cancel := context.WithTimeout(ctx, a.opts.LookupTimeout)
			defer cancel()
			ips, err := fn(lctx, domain)
			if err != nil && !errors.Is(err, resolver.ErrNotFound) {
				a.log.Warn().Err(err).Str("domain", domain).Str("type", qtype).Msg("address lookup failed")
			}
			*out = ips
			return nil
		}
	}
	g.Go(lookup(a.resolver.LookupA, &v4, "A"))
	g.Go(lookup(a.resolver.LookupAAAA, &v6, "AAAA"))
	_ = g.Wait()

	seen := make(map[string]struct{})
	var out []string
	for _, ip := range append(v4, v6...) {
		s := ip.String()
		if _, ok := seen[s]; ok || ip == nil {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// primaryIP is the address external sources are asked about: the first
// IPv4 address, or the first address of any family.
func primaryIP(ips []string) string {
	for _, ip := range ips {
		if parsed := net.ParseIP(ip); parsed != nil && parsed.To4() != nil {
			return ip
		}
	}
	if len(ips) > 0 {
		return ips[0]
	}
	return ""
}

func (a *Aggregator) build(subject string, kind Kind, ev evidence, c Context) *Report {
	signals := append([]intel.Signal(nil), ev.Signals...)
	listed := dedupeListed(ev.Probes)
	breakdown := Score(listed, signals, a.opts.Weights)

	r := &Report{
		Subject:       subject,
		Kind:          kind,
		ResolvedIPs:   append([]string{}, ev.IPs...),
		Probes:        append([]probe.Result{}, ev.Probes...),
		Signals:       signals,
		Listings:      listingDetails(listed),
		ListedCount:   len(listed),
		TotalServices: a.totalServices(kind),
		Blacklisted:   len(listed) > 0,
		Score:         breakdown.Score,
		Breakdown:     breakdown,
		Partial:       ev.Partial,
		IPLookupError: ev.IPLookupError,
	}
	if ev.AgeDays != nil {
		days := *ev.AgeDays
		r.DomainAgeDays = &days
	}
	if r.Signals == nil {
		r.Signals = []intel.Signal{}
	}
	r.RiskLevel = a.opts.Thresholds.Level(r.Score)
	r.RiskDescription = riskDescriptions[r.RiskLevel]
	r.Recommendations = Recommend(r, c)
	return r
}

func (a *Aggregator) totalServices(kind Kind) int {
	n := len(a.registry.ForScope(blacklist.ScopeIP))
	if kind == KindDomain {
		n += len(a.registry.ForScope(blacklist.ScopeDomain))
	}
	return n
}

// CacheStats reports the evidence cache and every external source cache.
func (a *Aggregator) CacheStats() map[string]cache.Stats {
	out := map[string]cache.Stats{"reputation": a.cache.Stats()}
	if a.collector != nil {
		for name, s := range a.collector.CacheStats() {
			out[name] = s
		}
	}
	return out
}

// ClearCache drops all cached evidence and external answers.
func (a *Aggregator) ClearCache() {
	a.cache.Clear()
	if a.collector != nil {
		a.collector.ClearCache()
	}
	a.log.Info().Msg("caches cleared")
}
