package reputation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"domain-reputation/blacklist"
	"domain-reputation/intel"
	"domain-reputation/probe"
)

func listedOn(weights ...blacklist.Weight) []probe.Result {
	out := make([]probe.Result, len(weights))
	for i, w := range weights {
		out[i] = probe.Result{
			List:    blacklist.Entry{Name: string(w), Host: string(w) + ".test", Scope: blacklist.ScopeIP, Weight: w},
			Target:  "192.0.2.1",
			Outcome: probe.Listed(2),
		}
	}
	return out
}

func TestScoreListingCaps(t *testing.T) {
	h, m, l := blacklist.WeightHigh, blacklist.WeightMedium, blacklist.WeightLow
	tests := []struct {
		name  string
		hits  []blacklist.Weight
		score int
		level RiskLevel
	}{
		{"clean", nil, 100, RiskLow},
		{"one low", []blacklist.Weight{l}, 95, RiskLow},
		{"one high", []blacklist.Weight{h}, 80, RiskLow},
		{"two high", []blacklist.Weight{h, h}, 60, RiskMedium},
		{"three high", []blacklist.Weight{h, h, h}, 40, RiskHigh},
		{"four high clamps", []blacklist.Weight{h, h, h, h}, 40, RiskHigh},
		{"four medium clamps", []blacklist.Weight{m, m, m, m}, 70, RiskMedium},
		{"five low clamps", []blacklist.Weight{l, l, l, l, l}, 80, RiskLow},
		{"all classes saturated", []blacklist.Weight{h, h, h, h, m, m, m, m, l, l, l, l, l}, 0, RiskCritical},
		{"mixed", []blacklist.Weight{h, m, l}, 65, RiskMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Score(listedOn(tt.hits...), nil, DefaultWeights())
			assert.Equal(t, tt.score, b.Score)
			assert.Equal(t, tt.level, DefaultRiskThresholds().Level(b.Score))
		})
	}
}

func TestScoreIgnoresNonListed(t *testing.T) {
	results := listedOn(blacklist.WeightHigh)
	results[0].Outcome = probe.Timeout()
	assert.Equal(t, 100, Score(results, nil, DefaultWeights()).Score)
}

func TestScoreExternalSignals(t *testing.T) {
	signals := []intel.Signal{
		{Source: intel.SourceAbuseIPDB, Status: intel.StatusOK, AbuseIPDB: &intel.AbuseIPDBMetrics{AbuseConfidence: 25}},
		{Source: intel.SourceVirusTotal, Status: intel.StatusOK, VirusTotal: &intel.VirusTotalMetrics{Malicious: 6}},
	}
	b := Score(nil, signals, DefaultWeights())

	assert.InDelta(t, 20.0, b.AbuseIPDBPenalty, 1e-9)
	assert.InDelta(t, 60.0, b.VirusTotalPenalty, 1e-9)
	assert.Equal(t, 20, b.Score)
	assert.InDelta(t, 20.0, signals[0].Penalty, 1e-9)
	assert.InDelta(t, 60.0, signals[1].Penalty, 1e-9)
	assert.Contains(t, b.Reason, "AbuseIPDB")
}

func TestScoreNotConfiguredContributesNothing(t *testing.T) {
	signals := []intel.Signal{
		{Source: intel.SourceAbuseIPDB, Status: intel.StatusNotConfigured, Penalty: 99},
		{Source: intel.SourceVirusTotal, Status: intel.StatusError},
	}
	b := Score(nil, signals, DefaultWeights())
	assert.Equal(t, 100, b.Score)
	assert.Zero(t, signals[0].Penalty)
	assert.Equal(t, "All checks passed", b.Reason)
}

func TestScoreFloorsAndRounds(t *testing.T) {
	signals := []intel.Signal{
		{Status: intel.StatusOK, AbuseIPDB: &intel.AbuseIPDBMetrics{AbuseConfidence: 100}},
		{Status: intel.StatusOK, VirusTotal: &intel.VirusTotalMetrics{Malicious: 1}},
	}
	b := Score(listedOn(blacklist.WeightHigh), signals, DefaultWeights())
	assert.Equal(t, 0, b.Score)

	signals = []intel.Signal{{Status: intel.StatusOK, AbuseIPDB: &intel.AbuseIPDBMetrics{AbuseConfidence: 3}}}
	// 100 - 2.4 rounds to 98
	assert.Equal(t, 98, Score(nil, signals, DefaultWeights()).Score)
}

func TestScoreCustomWeights(t *testing.T) {
	w := DefaultWeights()
	w.High = 50
	w.HighCap = 100
	assert.Equal(t, 0, Score(listedOn(blacklist.WeightHigh, blacklist.WeightHigh), nil, w).Score)
}

func TestRiskThresholdBoundaries(t *testing.T) {
	th := DefaultRiskThresholds()
	assert.Equal(t, RiskLow, th.Level(80))
	assert.Equal(t, RiskMedium, th.Level(79))
	assert.Equal(t, RiskMedium, th.Level(60))
	assert.Equal(t, RiskHigh, th.Level(59))
	assert.Equal(t, RiskHigh, th.Level(40))
	assert.Equal(t, RiskCritical, th.Level(39))
	assert.Equal(t, RiskCritical, th.Level(0))
}
