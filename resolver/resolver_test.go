package resolver

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/foxcpp/go-mockdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testZones = map[string]mockdns.Zone{
	"example.org.": {
		A:    []string{"192.0.2.10"},
		AAAA: []string{"2001:db8::10"},
	},
	"v6only.example.org.": {
		AAAA: []string{"2001:db8::20"},
	},
	"2.0.0.127.zen.test.": {
		A: []string{"127.0.0.2", "127.0.0.4"},
	},
	"broken.example.org.": {
		Err: errors.New("upstream exploded"),
	},
}

func TestClient(t *testing.T) {
	srv, err := mockdns.NewServer(testZones, false)
	require.NoError(t, err)
	defer srv.Close()

	c := NewClient([]string{srv.LocalAddr().String()}, time.Second)
	ctx := context.Background()

	ips, err := c.LookupA(ctx, "example.org")
	require.NoError(t, err)
	require.Len(t, ips, 1)
	assert.Equal(t, "192.0.2.10", ips[0].String())

	ips, err = c.LookupAAAA(ctx, "example.org")
	require.NoError(t, err)
	require.Len(t, ips, 1)
	assert.Equal(t, "2001:db8::10", ips[0].String())

	ips, err = c.LookupA(ctx, "v6only.example.org")
	assert.NoError(t, err)
	assert.Empty(t, ips)

	ips, err = c.LookupA(ctx, "2.0.0.127.zen.test")
	require.NoError(t, err)
	require.Len(t, ips, 2)
	assert.Equal(t, "127.0.0.2", ips[0].String())

	_, err = c.LookupA(ctx, "missing.example.org")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.LookupA(ctx, "broken.example.org")
	assert.ErrorIs(t, err, ErrServerFailure)
}

func TestClientTimeout(t *testing.T) {
	// A socket that never answers.
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	c := NewClient([]string{pc.LocalAddr().String()}, 100*time.Millisecond)
	_, err = c.LookupA(context.Background(), "example.org")
	assert.ErrorIs(t, err, ErrTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	c = NewClient([]string{pc.LocalAddr().String()}, 5*time.Second)
	_, err = c.LookupA(ctx, "example.org")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestClientFirstAnswerWins(t *testing.T) {
	failing, err := mockdns.NewServer(testZones, false)
	require.NoError(t, err)
	defer failing.Close()
	healthy, err := mockdns.NewServer(map[string]mockdns.Zone{
		"broken.example.org.": {A: []string{"192.0.2.99"}},
	}, false)
	require.NoError(t, err)
	defer healthy.Close()

	c := NewClient([]string{failing.LocalAddr().String(), healthy.LocalAddr().String()}, time.Second)
	ips, err := c.LookupA(context.Background(), "broken.example.org")
	assert.ErrorIs(t, err, ErrServerFailure)
	assert.Empty(t, ips)
}

func TestClientFailsOverWhenServerIsSilent(t *testing.T) {
	silent, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer silent.Close()
	srv, err := mockdns.NewServer(testZones, false)
	require.NoError(t, err)
	defer srv.Close()

	c := NewClient([]string{silent.LocalAddr().String(), srv.LocalAddr().String()}, 100*time.Millisecond)
	ips, err := c.LookupA(context.Background(), "example.org")
	require.NoError(t, err)
	require.Len(t, ips, 1)
	assert.Equal(t, "192.0.2.10", ips[0].String())
}

func TestNewClientNormalizesServers(t *testing.T) {
	c := NewClient([]string{" 192.0.2.1 ", "", "[2001:db8::1]:5353"}, 0)
	assert.Equal(t, []string{"192.0.2.1:53", "[2001:db8::1]:5353"}, c.Servers())
}

func TestNet(t *testing.T) {
	n := NewNet(&mockdns.Resolver{Zones: testZones}, "")
	ctx := context.Background()

	ips, err := n.LookupA(ctx, "example.org")
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.10", ips[0].String())

	ips, err = n.LookupAAAA(ctx, "v6only.example.org")
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::20", ips[0].String())

	_, err = n.LookupA(ctx, "missing.example.org")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = n.LookupA(ctx, "broken.example.org")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream exploded")
}

type timeoutLookuper struct{}

func (timeoutLookuper) LookupIP(ctx context.Context, network, host string) ([]net.IP, error) {
	return nil, &net.DNSError{Err: "i/o timeout", Name: host, IsTimeout: true}
}

func TestNetTimeout(t *testing.T) {
	_, err := NewNet(timeoutLookuper{}, "").LookupA(context.Background(), "example.org")
	assert.ErrorIs(t, err, ErrTimeout)
}
