package observer

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsObserver exports verdict events as Prometheus metrics.
type MetricsObserver struct {
	// Verdicts by kind, subject and outcome (passed, rejected, error)
	Verdicts *prometheus.CounterVec

	// Failed verdict checks by kind and check name
	CheckFailures *prometheus.CounterVec

	// Time from request to verdict by kind
	Latency *prometheus.HistogramVec

	// Capture load failures by kind
	LoadFailures *prometheus.CounterVec
}

// NewMetricsObserver registers the verdict metrics with reg.
func NewMetricsObserver(reg prometheus.Registerer) *MetricsObserver {
	factory := promauto.With(reg)
	return &MetricsObserver{
		Verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_inspector_verdicts_total",
			Help: "Total verdicts by kind, subject and outcome",
		}, []string{"kind", "subject", "outcome"}),

		CheckFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_inspector_check_failures_total",
			Help: "Total failed verdict checks by kind and check",
		}, []string{"kind", "check"}),

		Latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "capture_inspector_verdict_duration_seconds",
			Help:    "Duration from request to verdict, including image loading",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"kind"}),

		LoadFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_inspector_image_load_failures_total",
			Help: "Total captures that could not be loaded by kind",
		}, []string{"kind"}),
	}
}

// OnEvent handles verdict events by updating counters
func (o *MetricsObserver) OnEvent(ctx context.Context, event VerdictEvent) {
	kind := string(event.Kind)
	switch event.Type {
	case VerdictCompleted:
		outcome := "rejected"
		if event.Passed {
			outcome = "passed"
		}
		o.Verdicts.WithLabelValues(kind, event.Subject, outcome).Inc()
		o.Latency.WithLabelValues(kind).Observe(event.Duration.Seconds())
		for _, check := range event.FailedChecks {
			o.CheckFailures.WithLabelValues(kind, check).Inc()
		}
	case VerdictFailed:
		o.Verdicts.WithLabelValues(kind, event.Subject, "error").Inc()
	case ImageLoadFailed:
		o.LoadFailures.WithLabelValues(kind).Inc()
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}
