// Package activities provides the Temporal activities that drive citation
// graph ingestion.
//
// Activity inputs and outputs cross the Temporal serialization boundary and
// are encoded by the SDK's default JSON data converter, so every field is
// exported.
package activities

import (
	"time"

	"github.com/google/uuid"

	"github.com/camrobjones/papernet/internal/domain"
)

// FetchPaperInput contains the parameters for the FetchPaper activity.
type FetchPaperInput struct {
	// DOI is the DOI to ingest, in any accepted form.
	DOI string

	// Force rewrites a paper whose metadata was already retrieved.
	Force bool

	// WithCitations records the reference list and the citing papers.
	WithCitations bool

	// StubMissing stores a stub paper when the DOI is unknown upstream
	// instead of failing.
	StubMissing bool
}

// FetchPaperOutput describes the paper written by FetchPaper.
type FetchPaperOutput struct {
	PaperID   uuid.UUID
	DOI       string
	Title     string
	Retrieved bool

	// Stub is set when the DOI was unknown upstream and a stub was stored.
	Stub bool
}

// FetchCitedByInput contains the parameters for the FetchCitedBy activity.
type FetchCitedByInput struct {
	DOI string

	// Retrieve fetches citing papers missing from the graph.
	Retrieve bool
}

// FetchCitedByOutput contains the citation records returned by the index.
type FetchCitedByOutput struct {
	Records int
}

// RetrieveReferencesInput contains the parameters for the RetrieveReferences activity.
type RetrieveReferencesInput struct {
	DOI string
}

// RefreshJournalInput contains the parameters for the RefreshJournal activity.
type RefreshJournalInput struct {
	ISSN string
}

// RefreshJournalOutput describes the refreshed journal.
type RefreshJournalOutput struct {
	JournalID uuid.UUID
	Title     string
	TotalDOIs int
}

// HarvestAuthorWorksInput contains the parameters for the HarvestAuthorWorks activity.
type HarvestAuthorWorksInput struct {
	Given  string
	Family string

	// Rows is the number of search results requested.
	Rows int
}

// HarvestJournalWorksInput contains the parameters for the HarvestJournalWorks activity.
type HarvestJournalWorksInput struct {
	ISSN         string
	FromPubDate  *time.Time
	UntilPubDate *time.Time
	HasAbstract  bool

	// Limit caps the number of works visited. Zero means all.
	Limit int
}

// FindMissingReferencesInput contains the parameters for the FindMissingReferences activity.
type FindMissingReferencesInput struct {
	// CitingDOIs restricts the ranking to edges from these papers. Empty
	// ranks the whole graph.
	CitingDOIs []string

	Limit int
}

// FindMissingReferencesOutput lists cited DOIs without a paper, most cited first.
type FindMissingReferencesOutput struct {
	Missing []domain.MissingDOI
}
