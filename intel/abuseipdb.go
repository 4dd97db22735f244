package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const SourceAbuseIPDB = "AbuseIPDB"

// AbuseIPDB queries the AbuseIPDB v2 check endpoint.
type AbuseIPDB struct {
	client
}

func NewAbuseIPDB(cfg Config, log zerolog.Logger) *AbuseIPDB {
	return &AbuseIPDB{client: newClient(SourceAbuseIPDB, "https://api.abuseipdb.com", 10*time.Second, cfg, log)}
}

type abuseIPDBResponse struct {
	Data struct {
		IPAddress            string `json:"ipAddress"`
		IsWhitelisted        bool   `json:"isWhitelisted"`
		AbuseConfidenceScore int    `json:"abuseConfidenceScore"`
		CountryCode          string `json:"countryCode"`
		UsageType            string `json:"usageType"`
		ISP                  string `json:"isp"`
		TotalReports         int    `json:"totalReports"`
		IsTor                bool   `json:"isTor"`
	} `json:"data"`
}

func (a *AbuseIPDB) Lookup(ctx context.Context, ip string) Signal {
	return a.lookup(ctx, ip, a.fetch)
}

func (a *AbuseIPDB) fetch(ctx context.Context, ip string) (Signal, time.Duration, error) {
	reqURL := fmt.Sprintf("%s/api/v2/check?ipAddress=%s&maxAgeInDays=90", a.baseURL, url.QueryEscape(ip))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Signal{}, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Key", a.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Signal{}, 0, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return Signal{}, 0, errRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return Signal{}, 0, fmt.Errorf("API error: status %d", resp.StatusCode)
	}

	var body abuseIPDBResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Signal{}, 0, fmt.Errorf("decode response: %w", err)
	}

	a.log.Debug().Str("ip", ip).Int("confidence", body.Data.AbuseConfidenceScore).Msg("checked")
	return Signal{AbuseIPDB: &AbuseIPDBMetrics{
		AbuseConfidence: body.Data.AbuseConfidenceScore,
		TotalReports:    body.Data.TotalReports,
		CountryCode:     body.Data.CountryCode,
		ISP:             body.Data.ISP,
		UsageType:       body.Data.UsageType,
		IsTor:           body.Data.IsTor,
		IsWhitelisted:   body.Data.IsWhitelisted,
	}}, 0, nil
}
