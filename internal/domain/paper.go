package domain

import (
	"time"

	"github.com/google/uuid"
)

// Paper is a node of the citation graph identified by its canonical DOI.
// A paper may exist as a bare DOI stub until its metadata is retrieved.
type Paper struct {
	ID                  uuid.UUID  `json:"id"`
	DOI                 string     `json:"doi"`
	Title               string     `json:"title,omitempty"`
	ShortTitle          string     `json:"short_title,omitempty"`
	Subtitle            string     `json:"subtitle,omitempty"`
	ArticleType         string     `json:"article_type,omitempty"`
	Abstract            string     `json:"abstract,omitempty"`
	Keywords            string     `json:"keywords,omitempty"`
	URL                 string     `json:"url,omitempty"`
	ReferencesCount     int        `json:"references_count"`
	IsReferencedByCount int        `json:"is_referenced_by_count"`
	RetrievedAt         *time.Time `json:"retrieved_at,omitempty"`
	UpdatedAt           *time.Time `json:"updated_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// IsRetrieved reports whether metadata has been fetched for the paper.
func (p *Paper) IsRetrieved() bool {
	return p != nil && p.RetrievedAt != nil
}

// PaperUpdate carries the metadata written to a paper on retrieval.
// Every field overwrites the stored value.
type PaperUpdate struct {
	Title               string
	ShortTitle          string
	Subtitle            string
	ArticleType         string
	Abstract            string
	URL                 string
	ReferencesCount     int
	IsReferencedByCount int
	RetrievedAt         time.Time
}

// PaperRef is a lightweight handle on a paper used by graph queries.
type PaperRef struct {
	ID    uuid.UUID `json:"id"`
	DOI   string    `json:"doi"`
	Title string    `json:"title,omitempty"`
}
