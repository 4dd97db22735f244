// Package probe fans DNSBL queries for one target out over a set of lists.
package probe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"domain-reputation/blacklist"
	"domain-reputation/resolver"
)

// Options bounds a batch.
type Options struct {
	// Concurrency caps simultaneous queries within one batch.
	Concurrency int
	// ProbeTimeout bounds a single query.
	ProbeTimeout time.Duration
	// BatchTimeout bounds the whole batch. Probes still running when it
	// expires are recorded as timeouts.
	BatchTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		Concurrency:  10,
		ProbeTimeout: 3 * time.Second,
		BatchTimeout: 30 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Concurrency <= 0 {
		o.Concurrency = d.Concurrency
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = d.ProbeTimeout
	}
	if o.BatchTimeout <= 0 {
		o.BatchTimeout = d.BatchTimeout
	}
	return o
}

// Batch holds the results of one Run, in the order of the entries given.
type Batch struct {
	Target  string        `json:"target"`
	Results []Result      `json:"results"`
	Partial bool          `json:"partial"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Listed returns the listed results of the batch.
func (b Batch) Listed() []Result {
	var out []Result
	for _, r := range b.Results {
		if r.Outcome.IsListed() {
			out = append(out, r)
		}
	}
	return out
}

// Prober runs DNSBL batches against a resolver.
type Prober struct {
	resolver resolver.Resolver
	opts     Options
	log      zerolog.Logger
}

func New(r resolver.Resolver, opts Options, log zerolog.Logger) *Prober {
	return &Prober{
		resolver: r,
		opts:     opts.withDefaults(),
		log:      log.With().Str("component", "rbl").Logger(),
	}
}

func (p *Prober) Options() Options { return p.opts }

// Run queries target against every entry. It never fails: each entry gets
// exactly one result, and a deadline turns unfinished entries into timeouts
// with Partial set.
func (p *Prober) Run(ctx context.Context, target string, entries []blacklist.Entry) Batch {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.opts.BatchTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		sealed  bool
		results = make([]Result, len(entries))
		done    = make([]bool, len(entries))
	)
	record := func(i int, r Result) {
		mu.Lock()
		defer mu.Unlock()
		if sealed {
			return
		}
		results[i] = r
		done[i] = true
	}

	sem := semaphore.NewWeighted(int64(p.opts.Concurrency))
	var g errgroup.Group

	for i, e := range entries {
		rev := blacklist.QueryName(target, e)
		switch rev.Kind {
		case blacklist.ReversalUnsupported:
			record(i, Result{List: e, Target: target, Outcome: Unsupported()})
			continue
		case blacklist.ReversalInvalid:
			record(i, Result{List: e, Target: target, Outcome: Errored("target is not valid for this list")})
			continue
		}

		i, e, name := i, e, rev.Name
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)
			record(i, p.probe(ctx, target, name, e))
			return nil
		})
	}

	finished := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
	}

	mu.Lock()
	sealed = true
	batch := Batch{Target: target, Results: make([]Result, len(entries))}
	for i, e := range entries {
		if done[i] {
			batch.Results[i] = results[i]
			continue
		}
		batch.Results[i] = Result{List: e, Target: target, Outcome: Timeout()}
		batch.Partial = true
	}
	mu.Unlock()

	if ctx.Err() != nil && !batch.Partial {
		// Probes cut short by the batch deadline report their own timeout.
		for _, r := range batch.Results {
			if r.Outcome.Status == StatusTimeout {
				batch.Partial = true
				break
			}
		}
	}
	batch.Elapsed = time.Since(start)

	listed := len(batch.Listed())
	ev := p.log.Info()
	if batch.Partial {
		ev = p.log.Warn()
	}
	ev.Str("target", target).
		Int("lists", len(entries)).
		Int("listed", listed).
		Bool("partial", batch.Partial).
		Dur("elapsed", batch.Elapsed).
		Msg("batch finished")

	return batch
}

func (p *Prober) probe(ctx context.Context, target, name string, e blacklist.Entry) (res Result) {
	start := time.Now()
	res = Result{List: e, Target: target}
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error().Str("list", e.Name).Interface("panic", rec).Msg("probe panicked")
			res.Outcome = Errored(fmt.Sprintf("probe panic: %v", rec))
		}
		res.Latency = time.Since(start)
	}()

	pctx, cancel := context.WithTimeout(ctx, p.opts.ProbeTimeout)
	defer cancel()

	ips, err := p.resolver.LookupA(pctx, name)
	res.Outcome = classify(ips, err)

	switch res.Outcome.Status {
	case StatusListed:
		p.log.Warn().Str("list", e.Name).Str("query", name).Int("code", res.Outcome.Code).Msg("listed")
	case StatusClean:
		p.log.Debug().Str("list", e.Name).Str("query", name).Msg("clean")
	default:
		p.log.Debug().Str("list", e.Name).Str("query", name).Str("status", string(res.Outcome.Status)).Str("error", res.Outcome.Message).Msg("probe failed")
	}
	return res
}
