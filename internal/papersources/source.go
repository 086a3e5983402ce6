// Package papersources provides the outbound side of ingestion: a cached,
// ledgered HTTP client shared by every upstream call, and the interfaces
// that the Crossref and OpenCitations clients satisfy.
//
// Example usage:
//
//	store := papersources.NewMemoryStore(0)
//	httpClient := papersources.NewHTTPClient(cfg, papersources.WithLedger(store), papersources.WithCache(store))
//	works := crossref.New(crossref.Config{Mailto: "ops@example.org"}, httpClient)
//	work, err := works.GetWork(ctx, "10.1038/nature12373", papersources.FetchOptions{})
package papersources

import (
	"context"
	"net/http"
	"time"

	"github.com/camrobjones/papernet/internal/domain"
)

// FetchOptions controls how a single upstream call is made.
type FetchOptions struct {
	// Force bypasses the response cache. The fresh response is still cached.
	Force bool

	// NoWait skips the reactive limiter for this call.
	NoWait bool
}

// Response is the outcome of a fetch. Cached responses never reach the
// network and are not recorded in the ledger.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Cached     bool
}

// OK reports whether the response carries a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// CallLedger records outbound calls. The limiter reads the most recent entry
// to decide how long to back off.
type CallLedger interface {
	// LastCall returns the most recent entry, or nil when the ledger is empty.
	LastCall(ctx context.Context) (*domain.RequestLog, error)

	// RecordCall appends an entry.
	RecordCall(ctx context.Context, entry *domain.RequestLog) error
}

// Serializer is implemented by ledgers that can guard the
// read-wait-call-record section across processes.
type Serializer interface {
	Serialize(ctx context.Context, fn func(ctx context.Context) error) error
}

// ResponseCache stores successful response bodies by cache key.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte, ttl time.Duration) error
}

// AlertHook is notified when the previous call took longer than the alert
// threshold. Implementations must not block for long.
type AlertHook interface {
	SlowCall(ctx context.Context, entry *domain.RequestLog)
}

// MetadataSource retrieves bibliographic records.
type MetadataSource interface {
	// GetWork returns the record for a DOI. Returns domain.ErrNotFound if the
	// DOI is unknown upstream.
	GetWork(ctx context.Context, doi string, opts FetchOptions) (*domain.Work, error)

	// GetJournal returns the journal description for an ISSN.
	GetJournal(ctx context.Context, issn string, opts FetchOptions) (*domain.JournalRecord, error)

	// SearchAuthor returns works whose author list matches the queried author.
	SearchAuthor(ctx context.Context, author domain.WorkAuthor, rows int) (*AuthorSearchResult, error)

	// ListWorks pages through works matching params, calling fn for each.
	ListWorks(ctx context.Context, params ListParams, fn func(*domain.Work) error) (int, error)
}

// CitationIndex retrieves citation edges.
type CitationIndex interface {
	// Citations returns the edges whose cited endpoint is doi.
	Citations(ctx context.Context, doi string, opts FetchOptions) ([]domain.CitationRecord, error)

	// References returns the edges whose citing endpoint is doi.
	References(ctx context.Context, doi string, opts FetchOptions) ([]domain.CitationRecord, error)
}

// AuthorSearchResult holds the works accepted by an author search and the
// number of results discarded because no author matched.
type AuthorSearchResult struct {
	Works    []*domain.Work
	Rejected int
}

// ListParams selects works from the metadata source for paged harvesting.
type ListParams struct {
	// ISSN restricts results to a journal.
	ISSN string

	// FromPubDate and UntilPubDate bound the publication date.
	FromPubDate  *time.Time
	UntilPubDate *time.Time

	// HasAbstract restricts results to works with an abstract.
	HasAbstract bool

	// Rows is the page size. Zero uses the source default.
	Rows int

	// Limit caps the number of works visited. Zero means all.
	Limit int

	// Sort and Order are passed through to the source.
	Sort  string
	Order string
}
