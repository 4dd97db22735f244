package reputation

import (
	"fmt"
	"math"
	"strings"

	"domain-reputation/blacklist"
	"domain-reputation/intel"
	"domain-reputation/probe"
)

// Weights are the penalties applied by Score. They are configuration, not
// constants: callers may tune them per deployment.
type Weights struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`

	// Per-class caps on the cumulative listing penalty.
	HighCap   int `json:"high_cap"`
	MediumCap int `json:"medium_cap"`
	LowCap    int `json:"low_cap"`

	// AbuseIPDBFactor scales the abuse confidence percentage.
	AbuseIPDBFactor float64 `json:"abuseipdb_factor"`
	// VirusTotalPerDetection is charged per malicious vendor verdict, up to VirusTotalCap.
	VirusTotalPerDetection float64 `json:"virustotal_per_detection"`
	VirusTotalCap          float64 `json:"virustotal_cap"`
}

func DefaultWeights() Weights {
	return Weights{
		High:                   20,
		Medium:                 10,
		Low:                    5,
		HighCap:                60,
		MediumCap:              30,
		LowCap:                 20,
		AbuseIPDBFactor:        0.8,
		VirusTotalPerDetection: 15,
		VirusTotalCap:          60,
	}
}

// RiskLevel is the band a score falls into.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskThresholds are the minimum scores of each band.
type RiskThresholds struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{Low: 80, Medium: 60, High: 40}
}

func (t RiskThresholds) Level(score int) RiskLevel {
	switch {
	case score >= t.Low:
		return RiskLow
	case score >= t.Medium:
		return RiskMedium
	case score >= t.High:
		return RiskHigh
	default:
		return RiskCritical
	}
}

var riskDescriptions = map[RiskLevel]string{
	RiskLow:      "Low risk - appears clean across multiple sources",
	RiskMedium:   "Medium risk - some reputation concerns detected",
	RiskHigh:     "High risk - multiple reputation issues found",
	RiskCritical: "Critical risk - significant reputation problems detected",
}

// Breakdown shows which penalties were applied and their values.
type Breakdown struct {
	StartingScore int `json:"starting_score"`

	HighListings   int `json:"high_listings"`
	MediumListings int `json:"medium_listings"`
	LowListings    int `json:"low_listings"`

	HighPenalty   int `json:"high_penalty"`
	MediumPenalty int `json:"medium_penalty"`
	LowPenalty    int `json:"low_penalty"`

	AbuseIPDBPenalty  float64 `json:"abuseipdb_penalty"`
	VirusTotalPenalty float64 `json:"virustotal_penalty"`

	TotalPenalty float64 `json:"total_penalty"`
	Score        int     `json:"score"`
	Reason       string  `json:"reason"`
}

// Score computes the 0-100 reputation score from deduplicated listed results
// and external signals. It fills the Penalty of each signal in place.
func Score(listed []probe.Result, signals []intel.Signal, w Weights) Breakdown {
	b := Breakdown{StartingScore: 100}

	for _, r := range listed {
		if !r.Outcome.IsListed() {
			continue
		}
		switch r.List.Weight {
		case blacklist.WeightHigh:
			b.HighListings++
		case blacklist.WeightMedium:
			b.MediumListings++
		default:
			b.LowListings++
		}
	}
	b.HighPenalty = capped(b.HighListings*w.High, w.HighCap)
	b.MediumPenalty = capped(b.MediumListings*w.Medium, w.MediumCap)
	b.LowPenalty = capped(b.LowListings*w.Low, w.LowCap)

	for i := range signals {
		s := &signals[i]
		s.Penalty = 0
		if s.Status != intel.StatusOK {
			continue
		}
		switch {
		case s.AbuseIPDB != nil:
			s.Penalty = float64(s.AbuseIPDB.AbuseConfidence) * w.AbuseIPDBFactor
			b.AbuseIPDBPenalty += s.Penalty
		case s.VirusTotal != nil:
			s.Penalty = math.Min(float64(s.VirusTotal.Malicious)*w.VirusTotalPerDetection, w.VirusTotalCap)
			b.VirusTotalPenalty += s.Penalty
		}
	}

	b.TotalPenalty = float64(b.HighPenalty+b.MediumPenalty+b.LowPenalty) + b.AbuseIPDBPenalty + b.VirusTotalPenalty
	score := math.Round(float64(b.StartingScore) - b.TotalPenalty)
	b.Score = int(math.Max(0, math.Min(100, score)))
	b.Reason = buildReason(b)
	return b
}

func capped(v, limit int) int {
	if v > limit {
		return limit
	}
	return v
}

func buildReason(b Breakdown) string {
	var reasons []string
	if n := b.HighListings + b.MediumListings + b.LowListings; n > 0 {
		reasons = append(reasons, fmt.Sprintf("%d blacklist hits", n))
	}
	if b.AbuseIPDBPenalty > 0 {
		reasons = append(reasons, "reported on AbuseIPDB")
	}
	if b.VirusTotalPenalty > 0 {
		reasons = append(reasons, "flagged by VirusTotal vendors")
	}
	if len(reasons) == 0 {
		return "All checks passed"
	}
	return fmt.Sprintf("Score: %d. Issues: %s", b.Score, strings.Join(reasons, ", "))
}
