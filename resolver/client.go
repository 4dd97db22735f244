package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	defaultNameserver = "8.8.8.8:53"
	resolvConf        = "/etc/resolv.conf"
)

// Client queries nameservers directly over UDP with miekg/dns, falling back
// to TCP when the answer is truncated. Nameservers are tried in order until
// one gives an authoritative outcome.
type Client struct {
	servers []string
	udp     *dns.Client
	tcp     *dns.Client
}

// NewClient builds a Client for the given "host:port" nameservers. With no
// servers it reads /etc/resolv.conf and falls back to 8.8.8.8:53.
func NewClient(servers []string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if len(servers) == 0 {
		servers = SystemServers()
	}
	normalized := make([]string, 0, len(servers))
	for _, s := range servers {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		normalized = append(normalized, s)
	}
	if len(normalized) == 0 {
		normalized = []string{defaultNameserver}
	}
	return &Client{
		servers: normalized,
		udp:     &dns.Client{Net: "udp", Timeout: timeout},
		tcp:     &dns.Client{Net: "tcp", Timeout: timeout},
	}
}

// SystemServers returns the nameservers from /etc/resolv.conf, or the public
// fallback when the file is missing or empty.
func SystemServers() []string {
	conf, err := dns.ClientConfigFromFile(resolvConf)
	if err != nil || len(conf.Servers) == 0 {
		return []string{defaultNameserver}
	}
	out := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		out = append(out, net.JoinHostPort(s, conf.Port))
	}
	return out
}

// Servers returns the nameservers the client queries.
func (c *Client) Servers() []string {
	return append([]string(nil), c.servers...)
}

func (c *Client) LookupA(ctx context.Context, name string) ([]net.IP, error) {
	return c.lookup(ctx, name, dns.TypeA)
}

func (c *Client) LookupAAAA(ctx context.Context, name string) ([]net.IP, error) {
	return c.lookup(ctx, name, dns.TypeAAAA)
}

func (c *Client) lookup(ctx context.Context, name string, qtype uint16) ([]net.IP, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	m.RecursionDesired = true

	// The first server that answers decides the outcome, whatever the
	// rcode. Later servers are only tried when no answer came back at all.
	var lastErr error
	for _, server := range c.servers {
		ips, err := c.exchange(ctx, m, server, qtype)
		if err == nil || answered(err) {
			return ips, err
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func answered(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrRefused) || errors.Is(err, ErrServerFailure)
}

func (c *Client) exchange(ctx context.Context, m *dns.Msg, server string, qtype uint16) ([]net.IP, error) {
	resp, _, err := c.udp.ExchangeContext(ctx, m, server)
	if err == nil && resp.Truncated {
		resp, _, err = c.tcp.ExchangeContext(ctx, m, server)
	}
	if err != nil {
		if terr := timeoutErr(ctx, err); terr != nil {
			return nil, terr
		}
		return nil, fmt.Errorf("query %s via %s: %w", m.Question[0].Name, server, err)
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, ErrNotFound
	case dns.RcodeRefused:
		return nil, ErrRefused
	case dns.RcodeServerFailure:
		return nil, ErrServerFailure
	default:
		return nil, fmt.Errorf("%w: rcode %s", ErrServerFailure, dns.RcodeToString[resp.Rcode])
	}

	var ips []net.IP
	for _, rr := range resp.Answer {
		switch rec := rr.(type) {
		case *dns.A:
			if qtype == dns.TypeA {
				ips = append(ips, rec.A)
			}
		case *dns.AAAA:
			if qtype == dns.TypeAAAA {
				ips = append(ips, rec.AAAA)
			}
		}
	}
	return ips, nil
}
