package vetting

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domain-reputation/blacklist"
	"domain-reputation/reputation"
	"domain-reputation/resolver"
)

// zoneResolver answers A queries from a map and NXDOMAIN otherwise.
type zoneResolver map[string]string

func (z zoneResolver) LookupA(ctx context.Context, name string) ([]net.IP, error) {
	if ip, ok := z[name]; ok {
		return []net.IP{net.ParseIP(ip)}, nil
	}
	return nil, resolver.ErrNotFound
}

func (z zoneResolver) LookupAAAA(ctx context.Context, name string) ([]net.IP, error) {
	return nil, resolver.ErrNotFound
}

func newTestRouter(t *testing.T, zones zoneResolver) (http.Handler, *prometheus.Registry) {
	t.Helper()
	reg, err := blacklist.NewRegistry([]blacklist.Entry{
		{Name: "DBL One", Host: "dbl.test", Scope: blacklist.ScopeDomain, Weight: blacklist.WeightMedium},
		{Name: "HIGH A", Host: "ha.test", Scope: blacklist.ScopeIP, Weight: blacklist.WeightHigh},
	})
	require.NoError(t, err)

	promReg := prometheus.NewRegistry()
	agg := reputation.New(reputation.Deps{
		Registry: reg,
		Resolver: zones,
		Metrics:  reputation.NewMetrics(promReg),
		Logger:   zerolog.Nop(),
	}, reputation.DefaultOptions())
	return NewRouter(NewHandler(agg, zerolog.Nop()), RouterOptions{Gatherer: promReg}, zerolog.Nop()), promReg
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestLookupHandler(t *testing.T) {
	h, _ := newTestRouter(t, zoneResolver{
		"example.com":       "192.0.2.1",
		"1.2.0.192.ha.test": "127.0.0.2",
	})

	rec, body := do(t, h, http.MethodGet, "/reputation/www.Example.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "example.com", body["subject"])
	assert.Equal(t, float64(80), body["score"])
	assert.Equal(t, "low", body["risk_level"])
	assert.Equal(t, true, body["blacklisted"])
	assert.Equal(t, []any{"HIGH A for IP 192.0.2.1 (code: 2)"}, body["blacklist_details"])
	assert.Equal(t, false, body["cached"])

	_, body = do(t, h, http.MethodGet, "/reputation/example.com", "")
	assert.Equal(t, true, body["cached"])

	_, body = do(t, h, http.MethodGet, "/reputation/example.com?skip_cache=true", "")
	assert.Equal(t, false, body["cached"])
}

func TestLookupHandlerIPv6(t *testing.T) {
	h, _ := newTestRouter(t, zoneResolver{})
	rec, body := do(t, h, http.MethodGet, "/reputation/2001:db8::1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ip", body["kind"])
	assert.Equal(t, float64(100), body["score"])
}

func TestVetHandler(t *testing.T) {
	h, _ := newTestRouter(t, zoneResolver{"example.com": "192.0.2.1"})

	rec, body := do(t, h, http.MethodPost, "/reputation",
		`{"domain":"https://example.com/","auth":{"spf":{"found":true},"dmarc":{"found":true}}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "example.com", body["subject"])

	recs := body["recommendations"].([]any)
	var titles []string
	for _, r := range recs {
		titles = append(titles, r.(map[string]any)["title"].(string))
	}
	assert.Equal(t, []string{"Configure DKIM", "Maintain Good Sending Practices"}, titles)
}

func TestBadRequests(t *testing.T) {
	h, _ := newTestRouter(t, zoneResolver{})
	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"missing target", http.MethodPost, "/reputation", `{}`},
		{"malformed body", http.MethodPost, "/reputation", `{"target":`},
		{"public suffix", http.MethodPost, "/reputation", `{"target":"co.uk"}`},
		{"single label", http.MethodGet, "/reputation/localhost", ""},
		{"percent in target", http.MethodGet, "/reputation/%25zz", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["details"])
		})
	}
}

func TestCacheEndpoints(t *testing.T) {
	h, _ := newTestRouter(t, zoneResolver{})
	do(t, h, http.MethodGet, "/reputation/192.0.2.1", "")

	rec, body := do(t, h, http.MethodGet, "/cache/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := body["reputation"].(map[string]any)
	assert.Equal(t, float64(1), stats["active_items"])

	rec, body = do(t, h, http.MethodPost, "/cache/clear", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])

	_, body = do(t, h, http.MethodGet, "/cache/stats", "")
	assert.Equal(t, float64(0), body["reputation"].(map[string]any)["total_items"])
}

func TestCatalogAndHealth(t *testing.T) {
	h, _ := newTestRouter(t, zoneResolver{})

	rec, body := do(t, h, http.MethodGet, "/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, float64(1), body["domain_lists"])
	assert.Equal(t, float64(1), body["ip_lists"])

	rec, body = do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, zoneResolver{})
	do(t, h, http.MethodGet, "/reputation/192.0.2.1", "")

	rec, _ := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `reputation_checks_total{kind="ip",risk_level="low"} 1`)
}

func TestNormalizeTarget(t *testing.T) {
	got, err := NormalizeTarget("WWW.Example.COM")
	require.NoError(t, err)
	assert.Equal(t, "example.com", got)

	got, err = NormalizeTarget("%5B2001:db8::1%5D")
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::1", got)

	_, err = NormalizeTarget("")
	var inputErr *reputation.InputError
	assert.ErrorAs(t, err, &inputErr)
}
