package intel

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"domain-reputation/cache"
)

type cacheHolder interface {
	CacheStats() cache.Stats
	ClearCache()
}

// Collector queries every source concurrently.
type Collector struct {
	sources []Source
	log     zerolog.Logger
}

func NewCollector(log zerolog.Logger, sources ...Source) *Collector {
	return &Collector{
		sources: sources,
		log:     log.With().Str("component", "intel").Logger(),
	}
}

func (c *Collector) Sources() []Source {
	return append([]Source(nil), c.sources...)
}

// Collect returns one Signal per source, in source order. A slow or failing
// source never affects the others.
func (c *Collector) Collect(ctx context.Context, ip string) []Signal {
	signals := make([]Signal, len(c.sources))

	var g errgroup.Group
	for i, src := range c.sources {
		i, src := i, src
		g.Go(func() error {
			signals[i] = src.Lookup(ctx, ip)
			return nil
		})
	}
	_ = g.Wait()

	for _, s := range signals {
		c.log.Debug().Str("source", s.Source).Str("status", string(s.Status)).Bool("cached", s.Cached).Str("ip", ip).Msg("signal")
	}
	return signals
}

// CacheStats reports each source's cache keyed by source name.
func (c *Collector) CacheStats() map[string]cache.Stats {
	out := make(map[string]cache.Stats)
	for _, src := range c.sources {
		if h, ok := src.(cacheHolder); ok {
			out[src.Name()] = h.CacheStats()
		}
	}
	return out
}

func (c *Collector) ClearCache() {
	for _, src := range c.sources {
		if h, ok := src.(cacheHolder); ok {
			h.ClearCache()
		}
	}
}
