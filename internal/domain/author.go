package domain

import (
	"time"

	"github.com/google/uuid"
)

// Author is identified by its (given, family) name pair. Distinct people
// sharing a name resolve to the same Author.
type Author struct {
	ID        uuid.UUID `json:"id"`
	Given     string    `json:"given"`
	Family    string    `json:"family"`
	CreatedAt time.Time `json:"created_at"`
}

// Authorship links an author to a paper.
type Authorship struct {
	ID        uuid.UUID `json:"id"`
	AuthorID  uuid.UUID `json:"author_id"`
	PaperID   uuid.UUID `json:"paper_id"`
	Position  string    `json:"position,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Institution is deduplicated by its raw affiliation string.
type Institution struct {
	ID        uuid.UUID `json:"id"`
	Raw       string    `json:"raw"`
	CreatedAt time.Time `json:"created_at"`
}

// Affiliation joins an authorship to an institution.
type Affiliation struct {
	ID            uuid.UUID `json:"id"`
	AuthorshipID  uuid.UUID `json:"authorship_id"`
	InstitutionID uuid.UUID `json:"institution_id"`
	CreatedAt     time.Time `json:"created_at"`
}
