// Package similarity scores papers by shared citation structure.
//
// Two papers are bibliographically coupled when they cite the same
// references, and co-cited when the same papers cite both. Similar combines
// the two: papers citing the references of the input set, plus papers cited
// by the citers of the input set, each counted once per connecting edge.
package similarity

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/camrobjones/papernet/internal/domain"
	"github.com/camrobjones/papernet/internal/identity"
	"github.com/camrobjones/papernet/internal/observability"
	"github.com/camrobjones/papernet/internal/repository"
)

// DefaultResults is the number of papers Similar returns when n <= 0.
const DefaultResults = 5

// Scored is a paper with its similarity score.
type Scored struct {
	Paper domain.PaperRef `json:"paper"`
	Score int             `json:"score"`
}

// Tally is a multiset of papers keyed by ID.
type Tally map[uuid.UUID]*Scored

func (t Tally) add(ref domain.PaperRef, n int) {
	if s, ok := t[ref.ID]; ok {
		s.Score += n
		return
	}
	t[ref.ID] = &Scored{Paper: ref, Score: n}
}

// IDs returns the distinct papers of the tally.
func (t Tally) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	return ids
}

// Merge adds every count of other to t.
func (t Tally) Merge(other Tally) {
	for _, s := range other {
		t.add(s.Paper, s.Score)
	}
}

// Top returns the n highest scores, skipping exclude. Equal scores are
// ordered by DOI.
func (t Tally) Top(n int, exclude []uuid.UUID) []Scored {
	out := make([]Scored, 0, len(t))
	for id, s := range t {
		if slices.Contains(exclude, id) {
			continue
		}
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b Scored) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Paper.DOI, b.Paper.DOI)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Engine computes similarity over the stored citation graph. It only reads.
type Engine struct {
	papers  repository.PaperRepository
	refs    repository.ReferenceRepository
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewEngine creates an Engine. metrics may be nil.
func NewEngine(papers repository.PaperRepository, refs repository.ReferenceRepository, logger zerolog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		papers:  papers,
		refs:    refs,
		metrics: metrics,
		logger:  logger.With().Str("component", "similarity").Logger(),
	}
}

// SharedReferences counts, for every paper cited by any of ids, the number
// of edges from ids to it.
func (e *Engine) SharedReferences(ctx context.Context, ids []uuid.UUID) (Tally, error) {
	cited, err := e.refs.ListCitedPapers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list cited papers: %w", err)
	}
	return tally(cited), nil
}

// SharedCitations counts, for every paper citing any of ids, the number of
// edges from it to ids.
func (e *Engine) SharedCitations(ctx context.Context, ids []uuid.UUID) (Tally, error) {
	citing, err := e.refs.ListCitingPapers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list citing papers: %w", err)
	}
	return tally(citing), nil
}

func tally(refs []domain.PaperRef) Tally {
	t := make(Tally, len(refs))
	for _, r := range refs {
		t.add(r, 1)
	}
	return t
}

// Similar returns the n papers most similar to ids, excluding ids
// themselves. n <= 0 means DefaultResults.
func (e *Engine) Similar(ctx context.Context, ids []uuid.UUID, n int) ([]Scored, error) {
	if n <= 0 {
		n = DefaultResults
	}
	start := time.Now()

	references, err := e.SharedReferences(ctx, ids)
	if err != nil {
		return nil, err
	}
	citations, err := e.SharedCitations(ctx, ids)
	if err != nil {
		return nil, err
	}

	coupled, err := e.SharedCitations(ctx, references.IDs())
	if err != nil {
		return nil, err
	}
	cocited, err := e.SharedReferences(ctx, citations.IDs())
	if err != nil {
		return nil, err
	}
	coupled.Merge(cocited)

	result := coupled.Top(n, ids)

	if e.metrics != nil {
		e.metrics.RecordSimilarityQuery(time.Since(start))
	}
	e.logger.Debug().
		Int("papers", len(ids)).
		Int("references", len(references)).
		Int("citations", len(citations)).
		Int("candidates", len(coupled)).
		Msg("similarity computed")
	return result, nil
}

// SimilarDOIs resolves dois to stored papers and calls Similar. It fails
// with domain.ErrInvalidDOI for an unparseable DOI and domain.ErrNotFound
// when none of them is stored.
func (e *Engine) SimilarDOIs(ctx context.Context, dois []string, n int) ([]Scored, error) {
	if len(dois) == 0 {
		return nil, domain.NewValidationError("dois", "at least one DOI is required")
	}

	cleaned := make([]string, 0, len(dois))
	for _, raw := range dois {
		doi, err := identity.CleanDOI(raw)
		if err != nil {
			return nil, err
		}
		cleaned = append(cleaned, doi)
	}

	papers, err := e.papers.ListByDOIs(ctx, cleaned)
	if err != nil {
		return nil, err
	}
	if len(papers) == 0 {
		return nil, domain.NewNotFoundError("paper", cleaned[0])
	}
	if len(papers) < len(cleaned) {
		e.logger.Warn().Int("requested", len(cleaned)).Int("found", len(papers)).Msg("some papers are not stored")
	}

	ids := make([]uuid.UUID, len(papers))
	for i, p := range papers {
		ids[i] = p.ID
	}
	return e.Similar(ctx, ids, n)
}
