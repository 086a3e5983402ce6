package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for papernet, grouped by
// subsystem: upstream calls, ingestion, citation edges, journals and
// similarity. All collectors are registered with the default registry via
// promauto.
type Metrics struct {
	// UpstreamRequests counts completed upstream calls by host and status code.
	UpstreamRequests *prometheus.CounterVec

	// UpstreamFailures counts upstream calls that produced no response, by host and reason.
	UpstreamFailures *prometheus.CounterVec

	// UpstreamDuration observes upstream call duration in seconds by host.
	UpstreamDuration *prometheus.HistogramVec

	// CacheLookups counts response cache lookups by result (hit, miss).
	CacheLookups *prometheus.CounterVec

	// LimiterWaits observes time spent in the reactive limiter in seconds.
	LimiterWaits prometheus.Histogram

	// SlowCallAlerts counts slow call alerts raised.
	SlowCallAlerts prometheus.Counter

	// PapersIngested counts papers whose metadata was written.
	PapersIngested prometheus.Counter

	// PapersSkipped counts upserts skipped because the paper was already retrieved.
	PapersSkipped prometheus.Counter

	// PaperStubs counts papers created from a DOI alone.
	PaperStubs prometheus.Counter

	// CitationEdges counts processed reference entries by outcome
	// (added, duplicate, missing_doi).
	CitationEdges *prometheus.CounterVec

	// BackwardInconsistencies counts backward edges created although the
	// citing paper was already known.
	BackwardInconsistencies prometheus.Counter

	// JournalsCreated counts journals created during ingestion.
	JournalsCreated prometheus.Counter

	// JournalsMerged counts journals removed by merges.
	JournalsMerged prometheus.Counter

	// SimilarityQueries counts similarity computations.
	SimilarityQueries prometheus.Counter

	// SimilarityDuration observes similarity computation time in seconds.
	SimilarityDuration prometheus.Histogram

	// WorkflowsStarted counts workflows started, by workflow type.
	WorkflowsStarted *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		UpstreamRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total number of completed upstream requests",
		}, []string{"host", "status"}),
		UpstreamFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "failures_total",
			Help:      "Total number of upstream requests without a response",
		}, []string{"host", "reason"}),
		UpstreamDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Duration of upstream requests in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 30},
		}, []string{"host"}),
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of response cache lookups",
		}, []string{"result"}),
		LimiterWaits: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "limiter",
			Name:      "wait_seconds",
			Help:      "Time spent waiting in the reactive limiter",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		}),
		SlowCallAlerts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "limiter",
			Name:      "slow_call_alerts_total",
			Help:      "Total number of slow call alerts raised",
		}),
		PapersIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_ingested_total",
			Help:      "Total number of papers whose metadata was written",
		}),
		PapersSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_skipped_total",
			Help:      "Total number of upserts skipped for already retrieved papers",
		}),
		PaperStubs: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paper_stubs_total",
			Help:      "Total number of papers created from a bare DOI",
		}),
		CitationEdges: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "citation_edges_total",
			Help:      "Total number of processed reference entries by outcome",
		}, []string{"outcome"}),
		BackwardInconsistencies: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backward_inconsistencies_total",
			Help:      "Backward citations missing from the citing paper's reference list",
		}),
		JournalsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journals_created_total",
			Help:      "Total number of journals created",
		}),
		JournalsMerged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journals_merged_total",
			Help:      "Total number of journals absorbed by merges",
		}),
		SimilarityQueries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "similarity_queries_total",
			Help:      "Total number of similarity computations",
		}),
		SimilarityDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "similarity_duration_seconds",
			Help:      "Duration of similarity computations in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		WorkflowsStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflows_started_total",
			Help:      "Total number of workflows started by type",
		}, []string{"workflow"}),
	}
}

// RecordUpstreamRequest records a completed upstream call.
func (m *Metrics) RecordUpstreamRequest(host string, status int, duration time.Duration) {
	m.UpstreamRequests.WithLabelValues(host, strconv.Itoa(status)).Inc()
	m.UpstreamDuration.WithLabelValues(host).Observe(duration.Seconds())
}

// RecordUpstreamFailure records an upstream call that produced no response.
func (m *Metrics) RecordUpstreamFailure(host, reason string) {
	m.UpstreamFailures.WithLabelValues(host, reason).Inc()
}

// RecordCacheLookup records a response cache lookup.
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// RecordLimiterWait records time spent in the reactive limiter.
func (m *Metrics) RecordLimiterWait(d time.Duration) {
	m.LimiterWaits.Observe(d.Seconds())
}

// RecordSlowCall records a slow call alert.
func (m *Metrics) RecordSlowCall() {
	m.SlowCallAlerts.Inc()
}

// RecordPaperIngested increments the ingested papers counter.
func (m *Metrics) RecordPaperIngested() {
	m.PapersIngested.Inc()
}

// RecordPaperSkipped increments the skipped papers counter.
func (m *Metrics) RecordPaperSkipped() {
	m.PapersSkipped.Inc()
}

// RecordPaperStub increments the stub papers counter.
func (m *Metrics) RecordPaperStub() {
	m.PaperStubs.Inc()
}

// RecordCitationTally records the outcome counts of a reference list.
func (m *Metrics) RecordCitationTally(added, duplicates, missingDOI int) {
	m.CitationEdges.WithLabelValues("added").Add(float64(added))
	m.CitationEdges.WithLabelValues("duplicate").Add(float64(duplicates))
	m.CitationEdges.WithLabelValues("missing_doi").Add(float64(missingDOI))
}

// RecordBackwardInconsistency increments the backward inconsistency counter.
func (m *Metrics) RecordBackwardInconsistency() {
	m.BackwardInconsistencies.Inc()
}

// RecordJournalCreated increments the created journals counter.
func (m *Metrics) RecordJournalCreated() {
	m.JournalsCreated.Inc()
}

// RecordJournalsMerged adds the number of journals absorbed by a merge.
func (m *Metrics) RecordJournalsMerged(count int) {
	m.JournalsMerged.Add(float64(count))
}

// RecordSimilarityQuery records a similarity computation.
func (m *Metrics) RecordSimilarityQuery(d time.Duration) {
	m.SimilarityQueries.Inc()
	m.SimilarityDuration.Observe(d.Seconds())
}

// RecordWorkflowStarted records a started workflow.
func (m *Metrics) RecordWorkflowStarted(workflow string) {
	m.WorkflowsStarted.WithLabelValues(workflow).Inc()
}
