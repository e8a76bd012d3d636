package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Upstream event provider metrics.
	UpstreamRequests  *prometheus.CounterVec // labels: outcome={success,no_content,rate_limited,network_error,http_error}
	UpstreamRetries   *prometheus.CounterVec // labels: reason={rate_limited,network_error,http_error}
	UpstreamExhausted prometheus.Counter
	UpstreamDuration  prometheus.Histogram
	EventsReturned    prometheus.Histogram
	NormalizeErrors   prometheus.Counter

	// Felt report metrics.
	ReportsSubmitted   *prometheus.CounterVec   // labels: strategy={formula,regression}
	ReportErrors       *prometheus.CounterVec   // labels: stage={validate,estimate,store}
	PredictedMagnitude *prometheus.HistogramVec // labels: strategy
	PublishErrors      prometheus.Counter
	ModelReady         prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.UpstreamRequests,
		m.UpstreamRetries,
		m.UpstreamExhausted,
		m.UpstreamDuration,
		m.EventsReturned,
		m.NormalizeErrors,
		m.ReportsSubmitted,
		m.ReportErrors,
		m.PredictedMagnitude,
		m.PublishErrors,
		m.ModelReady,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quakefelt",
			Name:      "upstream_requests_total",
			Help:      "Event provider HTTP attempts by outcome.",
		}, []string{"outcome"}),
		UpstreamRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quakefelt",
			Name:      "upstream_retries_total",
			Help:      "Retries consumed against the event provider by reason.",
		}, []string{"reason"}),
		UpstreamExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quakefelt",
			Name:      "upstream_exhausted_total",
			Help:      "Fetches that failed after using the whole retry budget.",
		}),
		UpstreamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quakefelt",
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of a single event provider attempt.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		EventsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quakefelt",
			Name:      "events_returned",
			Help:      "Number of events returned per successful query.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		NormalizeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quakefelt",
			Name:      "normalize_errors_total",
			Help:      "Provider payloads rejected during normalization.",
		}),
		ReportsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quakefelt",
			Name:      "reports_submitted_total",
			Help:      "Felt reports stored, by estimation strategy.",
		}, []string{"strategy"}),
		ReportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quakefelt",
			Name:      "report_errors_total",
			Help:      "Felt report submissions that failed, by stage.",
		}, []string{"stage"}),
		PredictedMagnitude: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quakefelt",
			Name:      "predicted_magnitude",
			Help:      "Distribution of estimated magnitudes.",
			Buckets:   []float64{2, 2.5, 3, 3.5, 4, 4.5, 5, 5.5, 6, 7, 8, 10},
		}, []string{"strategy"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quakefelt",
			Name:      "report_publish_errors_total",
			Help:      "Felt reports that could not be published to Kafka.",
		}),
		ModelReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quakefelt",
			Name:      "regression_model_ready",
			Help:      "1 once the regression model has been fitted.",
		}),
	}
}
