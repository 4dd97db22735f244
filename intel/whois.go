package intel

import (
	"context"
	"fmt"
	"strings"
	"time"

	whois "github.com/likexian/whois"
	parser "github.com/likexian/whois-parser"
	"github.com/rs/zerolog"
	"github.com/weppos/publicsuffix-go/publicsuffix"

	"domain-reputation/cache"
)

var whoisDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

// WhoisQueryFunc fetches the raw WHOIS text for a registrable domain.
type WhoisQueryFunc func(ctx context.Context, domain string) (string, error)

// WhoisAge estimates how long a domain has been registered.
type WhoisAge struct {
	query WhoisQueryFunc
	cache *cache.Cache[string, time.Time]
	now   func() time.Time
	log   zerolog.Logger
}

// NewWhoisAge uses the public WHOIS servers with the given timeout when query
// is nil. Creation dates are cached for a day.
func NewWhoisAge(timeout time.Duration, query WhoisQueryFunc, log zerolog.Logger) *WhoisAge {
	if query == nil {
		query = defaultWhoisQuery(timeout)
	}
	return &WhoisAge{
		query: query,
		cache: cache.New[string, time.Time](24 * time.Hour),
		now:   time.Now,
		log:   log.With().Str("component", "whois").Logger(),
	}
}

func defaultWhoisQuery(timeout time.Duration) WhoisQueryFunc {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := whois.NewClient().SetTimeout(timeout)
	return func(ctx context.Context, domain string) (string, error) {
		type reply struct {
			raw string
			err error
		}
		ch := make(chan reply, 1)
		go func() {
			raw, err := c.Whois(domain)
			ch <- reply{raw, err}
		}()
		select {
		case r := <-ch:
			return r.raw, r.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// AgeDays returns the age of the registrable part of domain in whole days.
// ok is false when the registry gives no usable creation date.
func (w *WhoisAge) AgeDays(ctx context.Context, domain string) (int, bool) {
	apex, err := publicsuffix.Domain(strings.TrimSuffix(strings.ToLower(domain), "."))
	if err != nil {
		w.log.Debug().Err(err).Str("domain", domain).Msg("no registrable domain")
		return 0, false
	}

	created, ok := w.cache.Get(apex)
	if !ok {
		created, err = w.created(ctx, apex)
		if err != nil {
			w.log.Warn().Err(err).Str("domain", apex).Msg("whois lookup failed")
			return 0, false
		}
		w.cache.Set(apex, created)
	}

	days := int(w.now().Sub(created).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return days, true
}

func (w *WhoisAge) created(ctx context.Context, domain string) (time.Time, error) {
	raw, err := w.query(ctx, domain)
	if err != nil {
		return time.Time{}, err
	}
	return parseCreated(raw)
}

func parseCreated(raw string) (time.Time, error) {
	info, err := parser.Parse(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse whois: %w", err)
	}
	if info.Domain == nil {
		return time.Time{}, fmt.Errorf("parse whois: no domain section")
	}
	s := strings.TrimSpace(info.Domain.CreatedDate)
	for _, layout := range whoisDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse whois: unrecognised creation date %q", s)
}
