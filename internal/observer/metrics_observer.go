package observer

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "comicgrader"

// MetricsObserver exports grading events as prometheus metrics
type MetricsObserver struct {
	events     *prometheus.CounterVec
	finals     prometheus.Histogram
	confidence prometheus.Histogram
	duration   prometheus.Histogram
}

// NewMetricsObserver creates the collectors and registers them with reg
func NewMetricsObserver(reg prometheus.Registerer) (*MetricsObserver, error) {
	o := &MetricsObserver{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_total",
			Help:      "Grading events by type and provider.",
		}, []string{"event", "provider"}),
		finals: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "final_grade",
			Help:      "Distribution of final grades.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "confidence",
			Help:      "Distribution of grading confidence.",
			Buckets:   prometheus.LinearBuckets(0.3, 0.1, 7),
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "grading_duration_seconds",
			Help:      "Wall time of completed gradings.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}

	for _, c := range []prometheus.Collector{o.events, o.finals, o.confidence, o.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// OnEvent handles grading events by updating the collectors
func (o *MetricsObserver) OnEvent(_ context.Context, event GradingEvent) {
	o.events.WithLabelValues(string(event.EventType), event.Provider).Inc()

	if event.EventType == GradingCompleted {
		o.finals.Observe(event.Final)
		o.confidence.Observe(event.Confidence)
		o.duration.Observe(event.ProcessingTime.Seconds())
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}
