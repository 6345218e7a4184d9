package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	scans         *prometheus.CounterVec
	scanDuration  prometheus.Histogram
	passesIssued  prometheus.Counter
	passMailFails prometheus.Counter
	alertDispatch *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		scans: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatepass",
			Name:      "scans_total",
			Help:      "Gate scans by decision and failure reason.",
		}, []string{"decision", "reason"}),
		scanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gatepass",
			Name:      "scan_duration_seconds",
			Help:      "Time spent verifying a gate scan.",
			Buckets:   prometheus.DefBuckets,
		}),
		passesIssued: f.NewCounter(prometheus.CounterOpts{
			Namespace: "gatepass",
			Name:      "passes_issued_total",
			Help:      "Gate passes issued.",
		}),
		passMailFails: f.NewCounter(prometheus.CounterOpts{
			Namespace: "gatepass",
			Name:      "pass_mail_failures_total",
			Help:      "Gate pass emails that could not be delivered.",
		}),
		alertDispatch: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatepass",
			Name:      "alert_dispatch_total",
			Help:      "Alert delivery attempts by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveScan(decision, reason string, seconds float64) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(decision, reason).Inc()
	m.scanDuration.Observe(seconds)
}

func (m *Metrics) PassIssued(mailed bool) {
	if m == nil {
		return
	}
	m.passesIssued.Inc()
	if !mailed {
		m.passMailFails.Inc()
	}
}

func (m *Metrics) AlertDispatched(result string) {
	if m == nil {
		return
	}
	m.alertDispatch.WithLabelValues(result).Inc()
}
