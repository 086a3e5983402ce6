package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/camrobjones/papernet/internal/domain"
)

// PaperRepository handles paper persistence. Papers are keyed by their
// canonical DOI and may exist as stubs before metadata is retrieved.
type PaperRepository interface {
	// GetByDOI retrieves a paper by canonical DOI.
	// Returns domain.ErrNotFound if no matching paper exists.
	GetByDOI(ctx context.Context, doi string) (*domain.Paper, error)

	// GetByID retrieves a paper by its internal UUID.
	// Returns domain.ErrNotFound if no matching paper exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error)

	// GetOrCreate returns the paper for doi, inserting a stub when none
	// exists. created reports whether this call inserted it.
	GetOrCreate(ctx context.Context, doi string) (paper *domain.Paper, created bool, err error)

	// Update overwrites the retrieved metadata of a paper and stamps its
	// retrieved and updated times.
	// Returns domain.ErrNotFound if the paper does not exist.
	Update(ctx context.Context, id uuid.UUID, update domain.PaperUpdate) (*domain.Paper, error)

	// ListByDOIs returns the papers among dois that exist, in no particular order.
	ListByDOIs(ctx context.Context, dois []string) ([]*domain.Paper, error)
}
