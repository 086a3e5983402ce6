package ingestion

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/camrobjones/papernet/internal/domain"
	"github.com/camrobjones/papernet/internal/identity"
	"github.com/camrobjones/papernet/internal/papersources"
)

// CitationTally counts the outcome of recording a reference list.
type CitationTally struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
	MissingDOI int `json:"missing_doi"`
}

// RetrievalTally counts the outcome of retrieving the cited papers of a paper.
type RetrievalTally struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
	Stubs      int `json:"stubs"`
	Failed     int `json:"failed"`
}

// AddCitations records an edge from paper to every reference of work that
// carries a DOI. Existing edges are left untouched and counted as duplicates.
func (c *Coordinator) AddCitations(ctx context.Context, paper *domain.Paper, work *domain.Work) (CitationTally, error) {
	var tally CitationTally

	for _, ref := range work.Reference {
		if ref.DOI == "" {
			tally.MissingDOI++
			continue
		}
		citedDOI, err := identity.CleanDOI(ref.DOI)
		if err != nil {
			c.logger.Debug().Str("raw", ref.DOI).Msg("skipping reference with invalid doi")
			tally.MissingDOI++
			continue
		}

		cited, err := c.findPaper(ctx, citedDOI)
		if err != nil {
			return tally, err
		}

		title := ref.ArticleTitle
		if title == "" {
			title = ref.VolumeTitle
		}
		edge := &domain.Reference{
			CitingDOI:     paper.DOI,
			CitedDOI:      citedDOI,
			CitingPaperID: &paper.ID,
			CitedPaperID:  paperID(cited),
			Author:        clip(ref.Author, referenceFieldMaxLen),
			Journal:       TruncateTitle(ref.JournalTitle, referenceFieldMaxLen, ShortTitleMinLen),
			Title:         TruncateTitle(title, referenceFieldMaxLen, ShortTitleMinLen),
			Year:          clip(ref.Year, referenceFieldMaxLen),
			Key:           clip(ref.Key, referenceFieldMaxLen),
		}

		_, created, err := c.store.References.GetOrCreate(ctx, edge)
		if err != nil {
			return tally, err
		}
		if created {
			tally.Added++
		} else {
			tally.Duplicates++
		}
	}

	if c.metrics != nil {
		c.metrics.RecordCitationTally(tally.Added, tally.Duplicates, tally.MissingDOI)
	}
	return tally, nil
}

// FetchCitedBy records an edge from every paper the citation index lists as
// citing paper. Citing papers missing from the graph are fetched when
// retrieve is true and otherwise left as dangling DOIs on the edge.
func (c *Coordinator) FetchCitedBy(ctx context.Context, paper *domain.Paper, retrieve bool) ([]domain.CitationRecord, error) {
	records, err := c.index.Citations(ctx, paper.DOI, papersources.FetchOptions{})
	if err != nil {
		return nil, err
	}
	c.logger.Debug().Str("doi", paper.DOI).Int("records", len(records)).Msg("retrieved citing records")

	for _, rec := range records {
		citingDOI, err := identity.CleanDOI(rec.Citing)
		if err != nil {
			c.logger.Error().Err(err).Str("cited", paper.DOI).Msg("skipping citing record")
			continue
		}

		citing, err := c.GetOrFetchPaper(ctx, citingDOI, retrieve)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrNotFound):
			citing = nil
		case errors.Is(err, domain.ErrInvalidDOI), errors.Is(err, domain.ErrUpstreamData):
			c.logger.Error().Err(err).Str("citing", citingDOI).Msg("skipping citing paper")
			continue
		default:
			return records, err
		}

		edge, created, err := c.store.References.GetOrCreate(ctx, &domain.Reference{
			CitingDOI:     citingDOI,
			CitedDOI:      paper.DOI,
			CitingPaperID: paperID(citing),
			CitedPaperID:  &paper.ID,
			OCI:           rec.OCI,
		})
		if err != nil {
			return records, err
		}

		// The citing paper's own reference list should already hold this edge.
		if created && citing != nil {
			c.logger.Error().
				Str("citing", edge.CitingDOI).
				Str("cited", edge.CitedDOI).
				Msg("backward reference not found")
			if c.metrics != nil {
				c.metrics.RecordBackwardInconsistency()
			}
		}
	}
	return records, nil
}

// RetrieveReferences ingests the cited papers of paper that are not yet in
// the graph. Cited papers are ingested without their own citations. A DOI
// unknown upstream is kept as a stub paper so it is no longer reported
// missing.
func (c *Coordinator) RetrieveReferences(ctx context.Context, paper *domain.Paper) (RetrievalTally, error) {
	var tally RetrievalTally
	start := c.now()

	edges, err := c.store.References.ListUnresolvedByCiting(ctx, paper.DOI)
	if err != nil {
		return tally, err
	}
	c.logger.Info().Str("doi", paper.DOI).Int("unresolved", len(edges)).Msg("retrieving references")

	for _, edge := range edges {
		existing, err := c.findPaper(ctx, edge.CitedDOI)
		if err != nil {
			return tally, err
		}
		if existing != nil {
			// Created after the edge, for example earlier in this loop.
			if _, err := c.store.References.LinkPaper(ctx, existing); err != nil {
				return tally, err
			}
			tally.Duplicates++
			continue
		}

		_, err = c.getOrFetch(ctx, edge.CitedDOI, true, UpsertOptions{})
		switch {
		case err == nil:
			tally.Added++
		case ctx.Err() != nil:
			return tally, ctx.Err()
		case errors.Is(err, domain.ErrNotFound):
			if _, err := c.AddStub(ctx, edge.CitedDOI); err != nil {
				return tally, err
			}
			tally.Stubs++
		default:
			c.logger.Error().Err(err).Str("cited", edge.CitedDOI).Msg("failed to retrieve reference")
			tally.Failed++
		}
	}

	c.logger.Info().
		Str("doi", paper.DOI).
		Dur("duration", c.now().Sub(start)).
		Int("added", tally.Added).
		Int("duplicates", tally.Duplicates).
		Int("stubs", tally.Stubs).
		Int("failed", tally.Failed).
		Msg("reference retrieval complete")
	return tally, nil
}

// findPaper returns the paper for doi or nil when it is not in the graph.
func (c *Coordinator) findPaper(ctx context.Context, doi string) (*domain.Paper, error) {
	paper, err := c.store.Papers.GetByDOI(ctx, doi)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return paper, err
}

func paperID(p *domain.Paper) *uuid.UUID {
	if p == nil {
		return nil
	}
	id := p.ID
	return &id
}
