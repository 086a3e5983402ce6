package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: promauto registers metrics globally, so each test uses a unique
// namespace to avoid registration conflicts.

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_papernet_new")

	assert.NotNil(t, m.UpstreamRequests)
	assert.NotNil(t, m.UpstreamFailures)
	assert.NotNil(t, m.UpstreamDuration)
	assert.NotNil(t, m.CacheLookups)
	assert.NotNil(t, m.LimiterWaits)
	assert.NotNil(t, m.PapersIngested)
	assert.NotNil(t, m.CitationEdges)
	assert.NotNil(t, m.JournalsMerged)
	assert.NotNil(t, m.SimilarityQueries)
	assert.NotNil(t, m.WorkflowsStarted)
}

func TestRecordUpstreamRequest(t *testing.T) {
	m := NewMetrics("test_upstream_request")

	m.RecordUpstreamRequest("api.crossref.org", 200, 1500*time.Millisecond)
	m.RecordUpstreamRequest("api.crossref.org", 200, 500*time.Millisecond)
	m.RecordUpstreamFailure("api.crossref.org", "timeout")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("api.crossref.org", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.UpstreamFailures.WithLabelValues("api.crossref.org", "timeout")))

	count, err := getHistogramSampleCount(m.UpstreamDuration.WithLabelValues("api.crossref.org").(prometheus.Histogram))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestRecordCacheLookup(t *testing.T) {
	m := NewMetrics("test_cache_lookup")

	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
}

func TestRecordLimiter(t *testing.T) {
	m := NewMetrics("test_limiter")

	m.RecordLimiterWait(3 * time.Second)
	m.RecordSlowCall()

	count, err := getHistogramSampleCount(m.LimiterWaits)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SlowCallAlerts))
}

func TestRecordIngestion(t *testing.T) {
	m := NewMetrics("test_ingestion")

	m.RecordPaperIngested()
	m.RecordPaperSkipped()
	m.RecordPaperStub()
	m.RecordPaperStub()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.PapersIngested))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PapersSkipped))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.PaperStubs))
}

func TestRecordCitationTally(t *testing.T) {
	m := NewMetrics("test_citation_tally")

	m.RecordCitationTally(5, 2, 1)
	m.RecordBackwardInconsistency()

	assert.Equal(t, float64(5), testutil.ToFloat64(m.CitationEdges.WithLabelValues("added")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CitationEdges.WithLabelValues("duplicate")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CitationEdges.WithLabelValues("missing_doi")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BackwardInconsistencies))
}

func TestRecordJournals(t *testing.T) {
	m := NewMetrics("test_journals")

	m.RecordJournalCreated()
	m.RecordJournalsMerged(2)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.JournalsCreated))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.JournalsMerged))
}

func TestRecordSimilarityAndWorkflows(t *testing.T) {
	m := NewMetrics("test_similarity_workflows")

	m.RecordSimilarityQuery(20 * time.Millisecond)
	m.RecordWorkflowStarted("PaperIngestionWorkflow")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SimilarityQueries))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WorkflowsStarted.WithLabelValues("PaperIngestionWorkflow")))

	count, err := getHistogramSampleCount(m.SimilarityDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var metric = &dto.Metric{}
	if err := m.Write(metric); err != nil {
		return 0, err
	}

	return metric.Histogram.GetSampleCount(), nil
}
