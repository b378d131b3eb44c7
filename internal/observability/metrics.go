package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for an ingestion run
type Metrics struct {
	// Ingest metrics
	AdvisoriesLoaded     *prometheus.CounterVec
	AdvisoriesNormalized *prometheus.CounterVec
	AdvisoriesCorrupt    *prometheus.CounterVec
	AdvisoriesRejected   *prometheus.CounterVec
	SourcesUnavailable   prometheus.Counter

	// Merge metrics
	AdvisoriesMerged    prometheus.Counter
	DuplicateAdvisories prometheus.Counter

	// Persistence metrics
	AdvisoriesPersisted prometheus.Counter
	PersistDuration     prometheus.Histogram
}

// NewMetrics registers the run metrics against the given registerer. Tests
// pass a private registry so parallel test packages never collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		AdvisoriesLoaded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "erratadb_advisories_loaded_total",
			Help: "Total number of raw advisory records loaded from cache",
		}, []string{"repo"}),
		AdvisoriesNormalized: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "erratadb_advisories_normalized_total",
			Help: "Total number of advisories normalized successfully",
		}, []string{"repo"}),
		AdvisoriesCorrupt: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "erratadb_advisories_corrupt_total",
			Help: "Total number of advisories rejected as corrupt",
		}, []string{"repo"}),
		AdvisoriesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "erratadb_advisories_rejected_total",
			Help: "Total number of advisories rejected by the admission policy",
		}, []string{"repo"}),
		SourcesUnavailable: factory.NewCounter(prometheus.CounterOpts{
			Name: "erratadb_sources_unavailable_total",
			Help: "Total number of repositories whose cached feed was missing",
		}),
		AdvisoriesMerged: factory.NewCounter(prometheus.CounterOpts{
			Name: "erratadb_advisories_merged_total",
			Help: "Number of distinct advisories in the merged set",
		}),
		DuplicateAdvisories: factory.NewCounter(prometheus.CounterOpts{
			Name: "erratadb_advisories_duplicate_total",
			Help: "Total number of advisories seen again from another repository",
		}),
		AdvisoriesPersisted: factory.NewCounter(prometheus.CounterOpts{
			Name: "erratadb_advisories_persisted_total",
			Help: "Total number of advisories written to the relational store",
		}),
		PersistDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "erratadb_persist_duration_seconds",
			Help:    "Duration of the persistence phase",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
