package runtime

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	calls   *prometheus.CounterVec
	weight  prometheus.Counter
	records prometheus.Gauge
	commit  prometheus.Histogram
}

// NewMetrics registers the executor metrics on reg (nil: not registered).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chunks",
			Name:      "calls_total",
			Help:      "Applied calls by type and result code (OK on success).",
		}, []string{"type", "code"}),
		weight: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chunks",
			Name:      "call_weight_total",
			Help:      "Sum of weights charged for applied calls.",
		}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chunks",
			Name:      "claimed",
			Help:      "Claimed chunk records.",
		}),
		commit: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chunks",
			Name:      "commit_seconds",
			Help:      "Time spent persisting a call's records.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.calls, m.weight, m.records, m.commit)
	}
	return m
}

func (m *Metrics) observeCall(typ, code string, weight uint64) {
	if m == nil {
		return
	}
	if code == "" {
		code = "OK"
	}
	m.calls.WithLabelValues(typ, code).Inc()
	m.weight.Add(float64(weight))
}

func (m *Metrics) setRecords(n int) {
	if m == nil {
		return
	}
	m.records.Set(float64(n))
}

func (m *Metrics) observeCommit(seconds float64) {
	if m == nil {
		return
	}
	m.commit.Observe(seconds)
}
