package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/camrobjones/papernet/internal/domain"
)

// ReferenceRepository handles citation edges. An edge is unique per
// (citing DOI, cited DOI) and may reference papers that do not exist yet.
type ReferenceRepository interface {
	// GetOrCreate returns the edge for ref's DOI pair, inserting ref when
	// missing. created reports whether this call inserted it; an existing
	// edge is returned unchanged.
	GetOrCreate(ctx context.Context, ref *domain.Reference) (edge *domain.Reference, created bool, err error)

	// ListByCiting returns the outgoing edges of a DOI.
	ListByCiting(ctx context.Context, citingDOI string) ([]*domain.Reference, error)

	// ListUnresolvedByCiting returns outgoing edges of a DOI whose cited
	// endpoint has no paper.
	ListUnresolvedByCiting(ctx context.Context, citingDOI string) ([]*domain.Reference, error)

	// LinkPaper fills the paper handle of every edge naming paper's DOI as
	// citing or cited endpoint, returning the number of edges touched.
	LinkPaper(ctx context.Context, paper *domain.Paper) (int64, error)

	// ListCitedPapers returns, once per edge, the papers cited by any of
	// citingIDs.
	ListCitedPapers(ctx context.Context, citingIDs []uuid.UUID) ([]domain.PaperRef, error)

	// ListCitingPapers returns, once per edge, the papers citing any of
	// citedIDs.
	ListCitingPapers(ctx context.Context, citedIDs []uuid.UUID) ([]domain.PaperRef, error)

	// MostCitedMissing ranks cited DOIs without a paper by citation count.
	// A non-empty citingDOIs restricts the count to edges from those DOIs.
	MostCitedMissing(ctx context.Context, citingDOIs []string, n int) ([]domain.MissingDOI, error)
}
