package domain

import (
	"time"

	"github.com/google/uuid"
)

// Reference is a directed citation edge keyed by the (citing, cited) DOI
// pair. Either paper handle may be nil when that endpoint has not been
// ingested yet.
type Reference struct {
	ID            uuid.UUID  `json:"id"`
	CitingDOI     string     `json:"citing_doi"`
	CitedDOI      string     `json:"cited_doi"`
	CitingPaperID *uuid.UUID `json:"citing_paper_id,omitempty"`
	CitedPaperID  *uuid.UUID `json:"cited_paper_id,omitempty"`
	OCI           string     `json:"oci,omitempty"`
	Author        string     `json:"author,omitempty"`
	Journal       string     `json:"journal,omitempty"`
	Title         string     `json:"title,omitempty"`
	Year          string     `json:"year,omitempty"`
	Key           string     `json:"key,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CitationRecord is one entry returned by the citation index.
type CitationRecord struct {
	Citing   string `json:"citing"`
	Cited    string `json:"cited"`
	OCI      string `json:"oci"`
	Creation string `json:"creation,omitempty"`
	Timespan string `json:"timespan,omitempty"`
}

// MissingDOI is a cited DOI without a paper, ranked by how often it is cited.
type MissingDOI struct {
	DOI       string `json:"doi"`
	Citations int    `json:"citations"`
}
