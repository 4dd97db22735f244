// Package intel queries external threat-intelligence APIs about an IP
// address. Every source degrades to a status instead of failing the caller.
package intel

import (
	"context"
	"errors"
)

// Status describes how a source answered.
type Status string

const (
	StatusOK            Status = "ok"
	StatusNotConfigured Status = "not_configured"
	StatusRateLimited   Status = "rate_limited"
	StatusError         Status = "error"
)

// AbuseIPDBMetrics is the subset of an AbuseIPDB check used for scoring.
type AbuseIPDBMetrics struct {
	AbuseConfidence int    `json:"abuse_confidence"`
	TotalReports    int    `json:"total_reports"`
	CountryCode     string `json:"country_code,omitempty"`
	ISP             string `json:"isp,omitempty"`
	UsageType       string `json:"usage_type,omitempty"`
	IsTor           bool   `json:"is_tor"`
	IsWhitelisted   bool   `json:"is_whitelisted"`
}

// VirusTotalMetrics is the subset of a VirusTotal IP report used for scoring.
type VirusTotalMetrics struct {
	Malicious  int    `json:"malicious"`
	Suspicious int    `json:"suspicious"`
	Harmless   int    `json:"harmless"`
	Undetected int    `json:"undetected"`
	Reputation int    `json:"reputation"`
	ASOwner    string `json:"as_owner,omitempty"`
	Country    string `json:"country,omitempty"`
	// Unknown is set when VirusTotal has no record of the address.
	Unknown bool `json:"unknown,omitempty"`
}

// Signal is one source's verdict on an address. Exactly one of the metric
// fields is set when Status is ok.
type Signal struct {
	Source     string             `json:"source"`
	Status     Status             `json:"status"`
	AbuseIPDB  *AbuseIPDBMetrics  `json:"abuseipdb,omitempty"`
	VirusTotal *VirusTotalMetrics `json:"virustotal,omitempty"`
	Penalty    float64            `json:"penalty"`
	Error      string             `json:"error,omitempty"`
	Cached     bool               `json:"cached"`
}

// Source is an external reputation provider.
type Source interface {
	Name() string
	Configured() bool
	// Lookup never returns an error; failures are reported in the Signal.
	Lookup(ctx context.Context, ip string) Signal
}

var (
	errRateLimited = errors.New("rate limit exceeded")
	errNoAddress   = errors.New("no address to query")
)
