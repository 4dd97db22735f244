package reputation

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/weppos/publicsuffix-go/publicsuffix"
	"golang.org/x/net/idna"
)

// Kind tells whether a subject is a domain or a literal IP address.
type Kind string

const (
	KindDomain Kind = "domain"
	KindIP     Kind = "ip"
)

// InputError reports a missing or malformed target. It is the only error
// Check returns, and it is returned before any network I/O.
type InputError struct {
	Input  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Input == "" {
		return "invalid target: " + e.Reason
	}
	return fmt.Sprintf("invalid target %q: %s", e.Input, e.Reason)
}

// Normalize turns user input into a canonical subject. It accepts bare
// domains, URLs, IPv4 and IPv6 literals. Domains are lowercased, converted to
// their ASCII form and stripped of a leading "www.".
func Normalize(raw string) (string, Kind, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", "", &InputError{Reason: "target is required"}
	}

	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}

	if strings.HasPrefix(s, "[") {
		end := strings.Index(s, "]")
		if end < 0 {
			return "", "", &InputError{Input: raw, Reason: "unterminated IPv6 literal"}
		}
		s = s[1:end]
	}

	if addr, err := netip.ParseAddr(s); err == nil {
		if addr.Zone() != "" {
			return "", "", &InputError{Input: raw, Reason: "zoned addresses cannot be checked"}
		}
		return addr.Unmap().String(), KindIP, nil
	}
	if strings.Contains(s, ":") {
		host, port, ok := strings.Cut(s, ":")
		if !ok || strings.Contains(port, ":") {
			return "", "", &InputError{Input: raw, Reason: "not a valid IP address"}
		}
		s = host
		if addr, err := netip.ParseAddr(s); err == nil && addr.Is4() {
			return addr.String(), KindIP, nil
		}
	}

	domain, err := normalizeDomain(s)
	if err != nil {
		return "", "", &InputError{Input: raw, Reason: err.Error()}
	}
	return domain, KindDomain, nil
}

func normalizeDomain(s string) (string, error) {
	s = strings.TrimSuffix(strings.ToLower(s), ".")
	s = strings.TrimPrefix(s, "www.")

	ascii, err := idna.Lookup.ToASCII(s)
	if err != nil {
		return "", fmt.Errorf("not a valid domain name: %v", err)
	}
	if len(ascii) > 253 {
		return "", fmt.Errorf("domain name is longer than 253 characters")
	}
	labels := strings.Split(ascii, ".")
	if len(labels) < 2 {
		return "", fmt.Errorf("domain name needs at least two labels")
	}
	// No TLD is numeric, so an all-digit last label is a broken address.
	if strings.Trim(labels[len(labels)-1], "0123456789") == "" {
		return "", fmt.Errorf("not a valid IP address")
	}
	for _, l := range labels {
		if l == "" || len(l) > 63 {
			return "", fmt.Errorf("label %q has invalid length", l)
		}
		if l[0] == '-' || l[len(l)-1] == '-' {
			return "", fmt.Errorf("label %q starts or ends with a hyphen", l)
		}
		for _, c := range l {
			if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-' || c == '_') {
				return "", fmt.Errorf("label %q contains %q", l, c)
			}
		}
	}
	if _, err := publicsuffix.Domain(ascii); err != nil {
		return "", fmt.Errorf("%s is a public suffix", ascii)
	}
	return ascii, nil
}
