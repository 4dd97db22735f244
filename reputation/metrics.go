package reputation

import (
	"github.com/prometheus/client_golang/prometheus"

	"domain-reputation/intel"
	"domain-reputation/probe"
)

// Metrics counts aggregator activity. A nil *Metrics records nothing.
type Metrics struct {
	checks   *prometheus.CounterVec
	probes   *prometheus.CounterVec
	signals  *prometheus.CounterVec
	partial  prometheus.Counter
	cacheHit prometheus.Counter
	scores   prometheus.Histogram
	duration prometheus.Histogram
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reputation",
			Name:      "checks_total",
			Help:      "Reputation checks by subject kind and risk level.",
		}, []string{"kind", "risk_level"}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reputation",
			Name:      "dnsbl_probes_total",
			Help:      "DNSBL probe outcomes by status.",
		}, []string{"status"}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reputation",
			Name:      "external_signals_total",
			Help:      "External intelligence answers by source and status.",
		}, []string{"source", "status"}),
		partial: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reputation",
			Name:      "partial_reports_total",
			Help:      "Reports cut short by a deadline.",
		}),
		cacheHit: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reputation",
			Name:      "evidence_cache_hits_total",
			Help:      "Checks answered from cached evidence.",
		}),
		scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reputation",
			Name:      "score",
			Help:      "Distribution of reputation scores.",
			Buckets:   []float64{20, 40, 60, 80, 100},
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reputation",
			Name:      "evidence_seconds",
			Help:      "Time spent gathering evidence for one subject.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 11),
		}),
	}
	reg.MustRegister(m.checks, m.probes, m.signals, m.partial, m.cacheHit, m.scores, m.duration)
	return m
}

func (m *Metrics) observeEvidence(seconds float64, probes []probe.Result, signals []intel.Signal, partial bool) {
	if m == nil {
		return
	}
	m.duration.Observe(seconds)
	for _, p := range probes {
		m.probes.WithLabelValues(string(p.Outcome.Status)).Inc()
	}
	for _, s := range signals {
		m.signals.WithLabelValues(s.Source, string(s.Status)).Inc()
	}
	if partial {
		m.partial.Inc()
	}
}

func (m *Metrics) observeReport(r *Report) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(string(r.Kind), string(r.RiskLevel)).Inc()
	m.scores.Observe(float64(r.Score))
}

func (m *Metrics) observeCacheHit() {
	if m == nil {
		return
	}
	m.cacheHit.Inc()
}
