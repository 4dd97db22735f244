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

const SourceVirusTotal = "VirusTotal"

// unknownTTL is how long a "never seen" answer from VirusTotal is kept.
const unknownTTL = 5 * time.Minute

// VirusTotal queries the VirusTotal v3 IP address report.
type VirusTotal struct {
	client
}

func NewVirusTotal(cfg Config, log zerolog.Logger) *VirusTotal {
	return &VirusTotal{client: newClient(SourceVirusTotal, "https://www.virustotal.com", 15*time.Second, cfg, log)}
}

type virusTotalResponse struct {
	Data struct {
		Attributes struct {
			ASOwner           string `json:"as_owner"`
			Country           string `json:"country"`
			Reputation        int    `json:"reputation"`
			LastAnalysisStats struct {
				Harmless   int `json:"harmless"`
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
				Undetected int `json:"undetected"`
			} `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

func (v *VirusTotal) Lookup(ctx context.Context, ip string) Signal {
	return v.lookup(ctx, ip, v.fetch)
}

func (v *VirusTotal) fetch(ctx context.Context, ip string) (Signal, time.Duration, error) {
	reqURL := fmt.Sprintf("%s/api/v3/ip_addresses/%s", v.baseURL, url.PathEscape(ip))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Signal{}, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-apikey", v.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return Signal{}, 0, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Signal{VirusTotal: &VirusTotalMetrics{Unknown: true}}, unknownTTL, nil
	case http.StatusTooManyRequests:
		return Signal{}, 0, errRateLimited
	default:
		return Signal{}, 0, fmt.Errorf("API error: status %d", resp.StatusCode)
	}

	var body virusTotalResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Signal{}, 0, fmt.Errorf("decode response: %w", err)
	}

	attrs := body.Data.Attributes
	v.log.Debug().Str("ip", ip).Int("malicious", attrs.LastAnalysisStats.Malicious).Msg("checked")
	return Signal{VirusTotal: &VirusTotalMetrics{
		Malicious:  attrs.LastAnalysisStats.Malicious,
		Suspicious: attrs.LastAnalysisStats.Suspicious,
		Harmless:   attrs.LastAnalysisStats.Harmless,
		Undetected: attrs.LastAnalysisStats.Undetected,
		Reputation: attrs.Reputation,
		ASOwner:    attrs.ASOwner,
		Country:    attrs.Country,
	}}, 0, nil
}
