package blacklist

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	require.Greater(t, reg.Len(), 50)

	zen, ok := reg.ByHost("zen.spamhaus.org")
	require.True(t, ok)
	assert.Equal(t, ScopeIP, zen.Scope)
	assert.Equal(t, WeightHigh, zen.Weight)

	spamcop, ok := reg.ByHost("BL.SPAMCOP.NET.")
	require.True(t, ok)
	assert.True(t, spamcop.IPv6Unsupported)

	domains := reg.ForScope(ScopeDomain)
	ips := reg.ForScope(ScopeIP)
	assert.NotEmpty(t, domains)
	assert.Equal(t, reg.Len(), len(domains)+len(ips))
	for _, e := range domains {
		assert.Equal(t, ScopeDomain, e.Scope, e.Name)
	}
}

func TestRegistryIsImmutable(t *testing.T) {
	reg, err := NewRegistry([]Entry{
		{Name: "A", Host: "a.example", Scope: ScopeIP, Weight: WeightLow},
	})
	require.NoError(t, err)

	entries := reg.Entries()
	entries[0].Host = "mutated.example"

	again := reg.Entries()
	assert.Equal(t, "a.example", again[0].Host)
}

func TestLoad(t *testing.T) {
	const catalog = `
blacklists:
  - name: Local
    host: BL.Local.Test.
    scope: IP
  - name: Local RHS
    host: rhs.local.test
    scope: domain
    weight: high
`
	reg, err := Load(strings.NewReader(catalog))
	require.NoError(t, err)
	require.Equal(t, 2, reg.Len())

	e := reg.Entries()[0]
	assert.Equal(t, "bl.local.test", e.Host)
	assert.Equal(t, ScopeIP, e.Scope)
	assert.Equal(t, WeightLow, e.Weight)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		catalog string
	}{
		{"empty", "blacklists: []"},
		{"unknown field", "blacklists:\n  - {name: A, host: a.test, scope: ip, colour: red}"},
		{"bad scope", "blacklists:\n  - {name: A, host: a.test, scope: asn}"},
		{"bad weight", "blacklists:\n  - {name: A, host: a.test, scope: ip, weight: huge}"},
		{"no host", "blacklists:\n  - {name: A, scope: ip}"},
		{"duplicate name", "blacklists:\n  - {name: A, host: a.test, scope: ip}\n  - {name: A, host: b.test, scope: ip}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.catalog))
			assert.Error(t, err)
		})
	}
}
