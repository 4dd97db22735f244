package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// IPLookuper is the subset of *net.Resolver used by Net. go-mockdns's
// Resolver satisfies it too.
type IPLookuper interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

// Net adapts a net.Resolver-shaped lookuper to Resolver.
type Net struct {
	r IPLookuper
}

// NewNet wraps r. A nil r uses a pure-Go net.Resolver that dials server over
// UDP, or the system configuration when server is empty.
func NewNet(r IPLookuper, server string) *Net {
	if r == nil {
		nr := &net.Resolver{PreferGo: true}
		if server != "" {
			nr.Dial = func(ctx context.Context, network, address string) (net.Conn, error) {
				d := net.Dialer{Timeout: 2 * time.Second}
				return d.DialContext(ctx, "udp", server)
			}
		}
		r = nr
	}
	return &Net{r: r}
}

func (n *Net) LookupA(ctx context.Context, name string) ([]net.IP, error) {
	return n.lookup(ctx, "ip4", name)
}

func (n *Net) LookupAAAA(ctx context.Context, name string) ([]net.IP, error) {
	return n.lookup(ctx, "ip6", name)
}

func (n *Net) lookup(ctx context.Context, network, name string) ([]net.IP, error) {
	ips, err := n.r.LookupIP(ctx, network, name)
	if err == nil {
		return ips, nil
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsNotFound:
			return nil, ErrNotFound
		case dnsErr.IsTimeout:
			return nil, ErrTimeout
		case dnsErr.IsTemporary:
			return nil, fmt.Errorf("%w: %s", ErrServerFailure, dnsErr.Err)
		}
	}
	if terr := timeoutErr(ctx, err); terr != nil {
		return nil, terr
	}
	return nil, fmt.Errorf("lookup %s %s: %w", network, name, err)
}
