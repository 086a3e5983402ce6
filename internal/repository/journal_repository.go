package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/camrobjones/papernet/internal/domain"
)

// JournalRepository handles journals and their subject topics.
type JournalRepository interface {
	// GetByISSN retrieves a journal by its canonical ISSN.
	// Returns domain.ErrNotFound if no matching journal exists.
	GetByISSN(ctx context.Context, issn string) (*domain.Journal, error)

	// FindByAnyISSN returns every journal whose canonical, print or
	// electronic ISSN is one of values, oldest first.
	FindByAnyISSN(ctx context.Context, values []string) ([]*domain.Journal, error)

	// Create inserts a journal.
	// Returns domain.ErrAlreadyExists if the canonical ISSN is taken.
	Create(ctx context.Context, journal *domain.Journal) (*domain.Journal, error)

	// SetISSNs overwrites the print and electronic ISSN of a journal.
	SetISSNs(ctx context.Context, id uuid.UUID, print, electronic string) error

	// Update writes refreshed journal details.
	Update(ctx context.Context, id uuid.UUID, update domain.JournalUpdate) (*domain.Journal, error)

	// Delete removes a journal. Its topics go with it.
	Delete(ctx context.Context, id uuid.UUID) error

	// UpsertTopic records a topic, ignoring one already present for the
	// same (code, journal, type).
	UpsertTopic(ctx context.Context, topic *domain.Topic) error

	// ListTopics returns the topics of a journal ordered by code.
	ListTopics(ctx context.Context, journalID uuid.UUID) ([]*domain.Topic, error)
}

// PublicationRepository handles the placement of papers in journals.
type PublicationRepository interface {
	// GetOrCreate returns the publication of paper in journal (nil for an
	// unknown venue), creating it when missing.
	GetOrCreate(ctx context.Context, paperID uuid.UUID, journalID *uuid.UUID) (p *domain.Publication, created bool, err error)

	// Update writes venue details to a publication.
	Update(ctx context.Context, id uuid.UUID, update domain.PublicationUpdate) error

	// ListByPaper returns the publications of a paper.
	ListByPaper(ctx context.Context, paperID uuid.UUID) ([]*domain.Publication, error)

	// ListByJournal returns the publications in a journal.
	ListByJournal(ctx context.Context, journalID uuid.UUID) ([]*domain.Publication, error)

	// Reassign moves a publication to another journal.
	Reassign(ctx context.Context, id, journalID uuid.UUID) error

	// Delete removes a publication.
	Delete(ctx context.Context, id uuid.UUID) error
}
