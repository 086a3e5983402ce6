package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/camrobjones/papernet/internal/domain"
)

// AuthorRepository handles authors and their links to papers and
// institutions.
type AuthorRepository interface {
	// GetOrCreate returns the author with the given name pair, creating it
	// when missing.
	GetOrCreate(ctx context.Context, given, family string) (*domain.Author, error)

	// GetOrCreateAuthorship links author to paper. created reports whether
	// the link is new; an existing link keeps its original position.
	GetOrCreateAuthorship(ctx context.Context, authorID, paperID uuid.UUID, position string) (a *domain.Authorship, created bool, err error)

	// GetOrCreateInstitution returns the institution with the raw name.
	GetOrCreateInstitution(ctx context.Context, raw string) (*domain.Institution, error)

	// AddAffiliation joins an authorship to an institution. Adding an
	// existing pair is a no-op.
	AddAffiliation(ctx context.Context, authorshipID, institutionID uuid.UUID) error

	// ListByPaper returns the authors of a paper ordered by first link.
	ListByPaper(ctx context.Context, paperID uuid.UUID) ([]*domain.Author, error)
}
