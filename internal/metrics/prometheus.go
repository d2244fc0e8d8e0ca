package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Track sources as reported in the tracks_recommended_total metric.
const (
	SourcePreferred = "preferred"
	SourceFresh     = "fresh"
	SourceSaved     = "saved"
	SourceRecent    = "recent"
)

// Manager holds the engine's Prometheus collectors.
// A nil *Manager is valid and records nothing.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	recommendations   *prometheus.CounterVec
	tracksRecommended *prometheus.CounterVec
	feedback          *prometheus.CounterVec
	replacements      *prometheus.CounterVec
	catalogErrors     *prometheus.CounterVec
	filterDuration    prometheus.Histogram
}

// NewManager creates a Manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "moodsync",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.recommendations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recommendations_total",
		Help:      "Recommendation lists assembled, by mood",
	}, []string{"mood"})

	m.tracksRecommended = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracks_recommended_total",
		Help:      "Tracks placed into recommendation lists, by source",
	}, []string{"source"})

	m.feedback = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feedback_total",
		Help:      "Feedback events received, by kind and mood",
	}, []string{"kind", "mood"})

	m.replacements = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "replacements_total",
		Help:      "Replacement draws, by source (exhausted when none was found)",
	}, []string{"source"})

	m.catalogErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_errors_total",
		Help:      "Catalog calls that failed, by operation",
	}, []string{"operation"})

	m.filterDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "filter_duration_seconds",
		Help:      "Time spent filtering candidates by mood, including the feature fetch",
		Buckets:   m.histogramBuckets,
	})
}

// RecordRecommendation counts one assembled list for mood.
func (m *Manager) RecordRecommendation(mood string) {
	if m == nil {
		return
	}
	m.recommendations.WithLabelValues(mood).Inc()
}

// RecordTracks counts n tracks contributed by source.
func (m *Manager) RecordTracks(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.tracksRecommended.WithLabelValues(source).Add(float64(n))
}

// RecordFeedback counts a like, dislike or skip.
func (m *Manager) RecordFeedback(kind, mood string) {
	if m == nil {
		return
	}
	m.feedback.WithLabelValues(kind, mood).Inc()
}

// RecordReplacement counts a replacement drawn from source.
func (m *Manager) RecordReplacement(source string) {
	if m == nil {
		return
	}
	m.replacements.WithLabelValues(source).Inc()
}

// RecordReplacementExhausted counts a replacement request with no candidates left.
func (m *Manager) RecordReplacementExhausted() {
	m.RecordReplacement("exhausted")
}

// RecordCatalogError counts a failed catalog call.
func (m *Manager) RecordCatalogError(operation string) {
	if m == nil {
		return
	}
	m.catalogErrors.WithLabelValues(operation).Inc()
}

// ObserveFilterDuration records how long one filter pass took.
func (m *Manager) ObserveFilterDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.filterDuration.Observe(d.Seconds())
}
