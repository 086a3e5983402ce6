package ingestion

import (
	"context"
	"errors"

	"github.com/camrobjones/papernet/internal/domain"
	"github.com/camrobjones/papernet/internal/papersources"
)

// HarvestTally counts the outcome of a harvest.
type HarvestTally struct {
	Added    int      `json:"added"`
	Rejected int      `json:"rejected"`
	Errors   int      `json:"errors"`
	Messages []string `json:"messages,omitempty"`
}

// maxHarvestMessages bounds the error messages kept on a tally.
const maxHarvestMessages = 20

func (t *HarvestTally) fail(err error) {
	t.Errors++
	if len(t.Messages) < maxHarvestMessages {
		t.Messages = append(t.Messages, err.Error())
	}
}

// HarvestAuthor searches works by author and ingests every work listing a
// matching author. Works rejected by the name match are counted, not
// ingested.
func (c *Coordinator) HarvestAuthor(ctx context.Context, author domain.WorkAuthor, rows int) (HarvestTally, error) {
	var tally HarvestTally

	result, err := c.works.SearchAuthor(ctx, author, rows)
	if err != nil {
		return tally, err
	}
	tally.Rejected = result.Rejected

	for _, w := range result.Works {
		if err := c.harvestWork(ctx, w, &tally); err != nil {
			return tally, err
		}
	}

	c.logger.Info().
		Str("given", author.Given).
		Str("family", author.Family).
		Int("added", tally.Added).
		Int("rejected", tally.Rejected).
		Int("errors", tally.Errors).
		Msg("author harvest complete")
	return tally, nil
}

// HarvestJournal ingests the works listed for params, typically a journal
// ISSN with an optional publication date window.
func (c *Coordinator) HarvestJournal(ctx context.Context, params papersources.ListParams) (HarvestTally, error) {
	var tally HarvestTally

	_, err := c.works.ListWorks(ctx, params, func(w *domain.Work) error {
		return c.harvestWork(ctx, w, &tally)
	})
	if err != nil {
		return tally, err
	}

	c.logger.Info().
		Str("issn", params.ISSN).
		Int("added", tally.Added).
		Int("errors", tally.Errors).
		Msg("journal harvest complete")
	return tally, nil
}

// harvestWork ingests one listed work. Bad payloads are tallied; other
// failures abort the harvest.
func (c *Coordinator) harvestWork(ctx context.Context, w *domain.Work, tally *HarvestTally) error {
	_, err := c.UpsertPaper(ctx, w, UpsertOptions{WithCitations: true})
	switch {
	case err == nil:
		tally.Added++
		return nil
	case errors.Is(err, domain.ErrInvalidDOI), errors.Is(err, domain.ErrUpstreamData), errors.Is(err, domain.ErrConflictingIdentity):
		c.logger.Error().Err(err).Str("doi", w.DOI).Msg("skipping harvested work")
		tally.fail(err)
		return nil
	default:
		return err
	}
}
