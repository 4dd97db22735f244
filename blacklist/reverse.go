package blacklist

import (
	"net/netip"
	"strconv"
	"strings"
)

// ReversalKind tells whether QueryName produced a usable name.
type ReversalKind int

const (
	ReversalOK ReversalKind = iota
	// ReversalUnsupported means the list has no zone for the target's address family.
	ReversalUnsupported
	// ReversalInvalid means the target could not be parsed for the list's scope.
	ReversalInvalid
)

// Reversal is the result of building a DNSBL query name.
type Reversal struct {
	Name string
	Kind ReversalKind
}

const hexDigits = "0123456789abcdef"

// QueryName builds the DNS name to query for target on list e.
//
// Domain lists get "<domain>.<host>". IP lists get the reversed IPv4 octets or
// the reversed 32 IPv6 nibbles followed by the host. Lists flagged as not
// supporting IPv6 yield ReversalUnsupported for IPv6 targets without building
// a name.
func QueryName(target string, e Entry) Reversal {
	target = strings.TrimSpace(target)
	if e.Scope == ScopeDomain {
		d := strings.Trim(target, ".")
		if d == "" || strings.ContainsAny(d, " /:") {
			return Reversal{Kind: ReversalInvalid}
		}
		return Reversal{Name: d + "." + e.Host}
	}

	if strings.Contains(target, ":") {
		if e.IPv6Unsupported {
			return Reversal{Kind: ReversalUnsupported}
		}
		rev, ok := ReverseIPv6(target)
		if !ok {
			return Reversal{Kind: ReversalInvalid}
		}
		return Reversal{Name: rev + "." + e.Host}
	}

	rev, ok := ReverseIPv4(target)
	if !ok {
		return Reversal{Kind: ReversalInvalid}
	}
	return Reversal{Name: rev + "." + e.Host}
}

// ReverseIPv4 turns "1.2.3.4" into "4.3.2.1". It accepts exactly four
// dot-separated decimal octets in 0..255.
func ReverseIPv4(ip string) (string, bool) {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return "", false
	}
	octets := make([]string, 4)
	for i, p := range parts {
		if p == "" || len(p) > 3 {
			return "", false
		}
		for _, c := range p {
			if c < '0' || c > '9' {
				return "", false
			}
		}
		n, err := strconv.Atoi(p)
		if err != nil || n > 255 {
			return "", false
		}
		octets[3-i] = strconv.Itoa(n)
	}
	return strings.Join(octets, "."), true
}

// ReverseIPv6 expands an IPv6 address to its 32 nibbles and reverses them,
// the same way ip6.arpa names are built.
func ReverseIPv6(ip string) (string, bool) {
	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Is6() || addr.Zone() != "" {
		return "", false
	}
	raw := addr.As16()
	var b strings.Builder
	b.Grow(63)
	for i := len(raw) - 1; i >= 0; i-- {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteByte(hexDigits[raw[i]&0x0f])
		b.WriteByte('.')
		b.WriteByte(hexDigits[raw[i]>>4])
	}
	return b.String(), true
}
