package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "venue_locator"

// Metrics holds the Prometheus collectors for the locator service and the
// activity venue pipeline.
type Metrics struct {
	// Locator service metrics.
	SearchRequests      *prometheus.CounterVec // labels: outcome={results,empty,short_query,error}
	SearchResults       prometheus.Histogram
	ReverseLookups      *prometheus.CounterVec // labels: outcome={found,not_found,invalid,error}
	PositionResolutions *prometheus.CounterVec // labels: outcome={granted,denied,error,invalid,no_source}

	// Geocoding provider metrics.
	GeocoderRequests *prometheus.CounterVec   // labels: provider, method={search,reverse}, outcome={success,error}
	GeocoderDuration *prometheus.HistogramVec // labels: provider, method
	GeocoderCache    *prometheus.CounterVec   // labels: result={hit,miss}

	// Pipeline metrics.
	MessagesConsumed        prometheus.Counter
	MessagesProduced        prometheus.Counter
	TransformErrors         prometheus.Counter
	PipelineRunning         prometheus.Gauge
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
	VenueEnrichments        *prometheus.CounterVec // labels: geo_source
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates all metrics and registers them with reg.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SearchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Place searches by outcome.",
		}, []string{"outcome"}),
		SearchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of places returned per search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 40},
		}),
		ReverseLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reverse_lookups_total",
			Help:      "Reverse lookups by outcome.",
		}, []string{"outcome"}),
		PositionResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "position_resolutions_total",
			Help:      "Device position resolutions by outcome.",
		}, []string{"outcome"}),
		GeocoderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocoder_requests_total",
			Help:      "Geocoding provider requests by provider, method and outcome.",
		}, []string{"provider", "method", "outcome"}),
		GeocoderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocoder_request_duration_seconds",
			Help:      "Geocoding provider request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider", "method"}),
		GeocoderCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocoder_cache_total",
			Help:      "Reverse geocoding cache lookups by result.",
		}, []string{"result"}),
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total messages read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total messages written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total transformation failures.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		VenueEnrichments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "venue_enrichments_total",
			Help:      "Activity venues enriched, by geo source.",
		}, []string{"geo_source"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.SearchRequests,
		m.SearchResults,
		m.ReverseLookups,
		m.PositionResolutions,
		m.GeocoderRequests,
		m.GeocoderDuration,
		m.GeocoderCache,
		m.MessagesConsumed,
		m.MessagesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.VenueEnrichments,
	}
}
