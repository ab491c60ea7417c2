package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Metrics holds the orchestrator's Prometheus collectors.
// A nil *Metrics records nothing.
type Metrics struct {
	analyzerDuration *prometheus.HistogramVec
	analyzerResults  *prometheus.CounterVec
	verdicts         *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		// Labels: analyzer
		analyzerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "claimcheck",
			Subsystem: "analyzer",
			Name:      "duration_seconds",
			Help:      "Analyzer call latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"analyzer"}),

		// Labels: analyzer, status (success, failed)
		analyzerResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claimcheck",
			Subsystem: "analyzer",
			Name:      "results_total",
			Help:      "Analyzer results by status",
		}, []string{"analyzer", "status"}),

		// Labels: level
		verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claimcheck",
			Subsystem: "orchestrator",
			Name:      "verdicts_total",
			Help:      "Aggregate verdicts by level",
		}, []string{"level"}),
	}
}

func (m *Metrics) observeAnalyzer(kind model.AnalyzerKind, result model.AnalyzerResult) {
	if m == nil {
		return
	}
	m.analyzerDuration.WithLabelValues(string(kind)).Observe(result.Duration.Seconds())
	m.analyzerResults.WithLabelValues(string(kind), string(result.Status)).Inc()
}

func (m *Metrics) observeVerdict(level model.VerdictLevel) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(string(level)).Inc()
}
