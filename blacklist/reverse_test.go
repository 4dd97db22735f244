package blacklist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	ipList       = Entry{Name: "ZEN", Host: "zen.example.org", Scope: ScopeIP, Weight: WeightHigh}
	ipv4OnlyList = Entry{Name: "SPAMCOP", Host: "bl.example.net", Scope: ScopeIP, Weight: WeightHigh, IPv6Unsupported: true}
	domainList   = Entry{Name: "SURBL", Host: "multi.example.org", Scope: ScopeDomain, Weight: WeightMedium}
)

func TestQueryName(t *testing.T) {
	tests := []struct {
		name   string
		target string
		entry  Entry
		want   Reversal
	}{
		{"domain", "example.com", domainList, Reversal{Name: "example.com.multi.example.org"}},
		{"domain trailing dot", "example.com.", domainList, Reversal{Name: "example.com.multi.example.org"}},
		{"domain empty", "", domainList, Reversal{Kind: ReversalInvalid}},
		{"ipv4", "1.2.3.4", ipList, Reversal{Name: "4.3.2.1.zen.example.org"}},
		{"ipv4 bounds", "255.0.0.255", ipList, Reversal{Name: "255.0.0.255.zen.example.org"}},
		{"ipv4 three octets", "1.2.3", ipList, Reversal{Kind: ReversalInvalid}},
		{"ipv4 five octets", "1.2.3.4.5", ipList, Reversal{Kind: ReversalInvalid}},
		{"ipv4 out of range", "1.2.3.256", ipList, Reversal{Kind: ReversalInvalid}},
		{"ipv4 negative", "1.2.-3.4", ipList, Reversal{Kind: ReversalInvalid}},
		{"ipv4 empty octet", "1..3.4", ipList, Reversal{Kind: ReversalInvalid}},
		{"ipv4 on v4-only list", "1.2.3.4", ipv4OnlyList, Reversal{Name: "4.3.2.1.bl.example.net"}},
		{
			"ipv6",
			"2001:db8::1",
			ipList,
			Reversal{Name: "1.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.8.b.d.0.1.0.0.2.zen.example.org"},
		},
		{"ipv6 unsupported", "2001:db8::1", ipv4OnlyList, Reversal{Kind: ReversalUnsupported}},
		{"ipv6 garbage", "2001:zz8::1", ipList, Reversal{Kind: ReversalInvalid}},
		{"ipv6 zone", "fe80::1%eth0", ipList, Reversal{Kind: ReversalInvalid}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QueryName(tt.target, tt.entry))
		})
	}
}

func TestReverseIPv4RoundTrip(t *testing.T) {
	for _, ip := range []string{"1.2.3.4", "10.0.0.1", "192.168.254.7", "0.0.0.0"} {
		rev, ok := ReverseIPv4(ip)
		assert.True(t, ok, ip)
		back, ok := ReverseIPv4(rev)
		assert.True(t, ok, rev)
		assert.Equal(t, ip, back)
	}

	rev, _ := ReverseIPv4("1.2.3.4")
	assert.Equal(t, "4.3.2.1", rev)
}

func TestReverseIPv6Length(t *testing.T) {
	rev, ok := ReverseIPv6("::1")
	assert.True(t, ok)
	// 32 nibbles joined by 31 dots
	assert.Len(t, rev, 63)
	assert.Equal(t, "1.0.0.0", rev[:7])
}
