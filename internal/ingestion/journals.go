package ingestion

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/camrobjones/papernet/internal/domain"
	"github.com/camrobjones/papernet/internal/identity"
	"github.com/camrobjones/papernet/internal/observability"
	"github.com/camrobjones/papernet/internal/papersources"
	"github.com/camrobjones/papernet/internal/repository"
)

// JournalMerger folds journals that share an ISSN into one.
type JournalMerger struct {
	store   *repository.Store
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewJournalMerger creates a merger writing through store. metrics may be nil.
func NewJournalMerger(store *repository.Store, logger zerolog.Logger, metrics *observability.Metrics) *JournalMerger {
	return &JournalMerger{store: store, metrics: metrics, logger: logger}
}

// Merge folds journals[1:] into journals[0] and returns it. The primary
// receives the print and electronic ISSN found among the inputs. Each
// publication of a merged journal moves to the primary unless its paper is
// already published there, in which case it is deleted. The merged journals
// are then deleted. Inputs holding different non-empty print or electronic
// ISSNs fail with domain.ErrConflictingIdentity and nothing is written.
func (m *JournalMerger) Merge(ctx context.Context, journals ...*domain.Journal) (*domain.Journal, error) {
	if len(journals) < 2 {
		return nil, fmt.Errorf("merge requires at least two journals, got %d: %w", len(journals), domain.ErrInvalidInput)
	}

	printISSN, err := uniqueISSN("print_issn", journals, func(j *domain.Journal) string { return j.PrintISSN })
	if err != nil {
		return nil, err
	}
	electronicISSN, err := uniqueISSN("electronic_issn", journals, func(j *domain.Journal) string { return j.ElectronicISSN })
	if err != nil {
		return nil, err
	}

	primary, others := journals[0], journals[1:]

	err = m.store.InTx(ctx, func(tx *repository.Store) error {
		if err := tx.Journals.SetISSNs(ctx, primary.ID, printISSN, electronicISSN); err != nil {
			return err
		}

		for _, other := range others {
			pubs, err := tx.Publications.ListByJournal(ctx, other.ID)
			if err != nil {
				return err
			}
			for _, pub := range pubs {
				dup, err := publishedIn(ctx, tx, pub, primary)
				if err != nil {
					return err
				}
				if dup {
					err = tx.Publications.Delete(ctx, pub.ID)
				} else {
					err = tx.Publications.Reassign(ctx, pub.ID, primary.ID)
				}
				if err != nil {
					return err
				}
			}
			if err := tx.Journals.Delete(ctx, other.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to merge journals into %s: %w", primary.ISSN, err)
	}

	primary.PrintISSN = printISSN
	primary.ElectronicISSN = electronicISSN

	if m.metrics != nil {
		m.metrics.RecordJournalsMerged(len(others))
	}
	m.logger.Info().
		Str("issn", primary.ISSN).
		Int("merged", len(others)).
		Msg("merged journals")
	return primary, nil
}

// publishedIn reports whether pub's paper already has a publication in journal.
func publishedIn(ctx context.Context, tx *repository.Store, pub *domain.Publication, journal *domain.Journal) (bool, error) {
	pubs, err := tx.Publications.ListByPaper(ctx, pub.PaperID)
	if err != nil {
		return false, err
	}
	for _, p := range pubs {
		if p.ID != pub.ID && p.JournalID != nil && *p.JournalID == journal.ID {
			return true, nil
		}
	}
	return false, nil
}

func uniqueISSN(field string, journals []*domain.Journal, get func(*domain.Journal) string) (string, error) {
	var values []string
	for _, j := range journals {
		if v := get(j); v != "" && !slices.Contains(values, v) {
			values = append(values, v)
		}
	}
	switch len(values) {
	case 0:
		return "", nil
	case 1:
		return values[0], nil
	default:
		slices.Sort(values)
		return "", domain.NewConflictingIdentityError(field, values)
	}
}

// resolveJournal returns the journal a work was published in, creating it
// on first sight. Works without an ISSN have no journal.
func (c *Coordinator) resolveJournal(ctx context.Context, logger zerolog.Logger, work *domain.Work) (*domain.Journal, error) {
	triple, unknown := identity.WorkISSN(work)
	for _, t := range unknown {
		logger.Warn().Str("issn_type", t).Msg("unknown issn type")
	}
	if triple.ISSN == "" {
		logger.Warn().Msg("no issn available, skipping journal")
		return nil, nil
	}

	journals, err := c.store.Journals.FindByAnyISSN(ctx, []string{triple.ISSN})
	if err != nil {
		return nil, err
	}
	switch len(journals) {
	case 0:
	case 1:
		return journals[0], nil
	default:
		logger.Info().Str("issn", triple.ISSN).Int("journals", len(journals)).Msg("merging journals")
		return c.merger.Merge(ctx, journals...)
	}

	journal, err := c.store.Journals.Create(ctx, &domain.Journal{
		ISSN:           triple.ISSN,
		PrintISSN:      triple.Print,
		ElectronicISSN: triple.Electronic,
		Title:          clip(first(work.ContainerTitle), 256),
		Abbreviation:   clip(first(work.ShortContainerTitle), referenceFieldMaxLen),
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		// Another worker created it first.
		logger.Debug().Str("issn", triple.ISSN).Msg("journal created concurrently, re-reading")
		return c.store.Journals.GetByISSN(ctx, triple.ISSN)
	}
	if err != nil {
		return nil, err
	}

	if c.metrics != nil {
		c.metrics.RecordJournalCreated()
	}
	logger.Info().Str("issn", journal.ISSN).Str("title", journal.Title).Msg("created journal")
	return journal, nil
}

// RefreshJournal fetches the journal record for journal's ISSN and writes its
// title, publisher, DOI count and ASJC topics. A record that does not list
// the journal's ISSN fails with domain.ErrUpstreamData.
func (c *Coordinator) RefreshJournal(ctx context.Context, journal *domain.Journal) (*domain.Journal, error) {
	logger := observability.WithJournalContext(c.logger, journal.ISSN)

	record, err := c.works.GetJournal(ctx, journal.ISSN, papersources.FetchOptions{})
	if err != nil {
		return nil, err
	}

	triple, unknown := identity.JournalISSN(record)
	for _, t := range unknown {
		logger.Warn().Str("issn_type", t).Msg("unknown issn type")
	}
	if !slices.Contains(triple.Values(), journal.ISSN) {
		return nil, domain.NewUpstreamDataError("crossref",
			fmt.Sprintf("journal record for %s lists issns %v", journal.ISSN, triple.Values()))
	}

	printISSN, electronicISSN := journal.PrintISSN, journal.ElectronicISSN
	if triple.Print != "" {
		printISSN = triple.Print
	}
	if triple.Electronic != "" {
		electronicISSN = triple.Electronic
	}
	if printISSN != journal.PrintISSN || electronicISSN != journal.ElectronicISSN {
		if err := c.store.Journals.SetISSNs(ctx, journal.ID, printISSN, electronicISSN); err != nil {
			return nil, err
		}
	}

	updated, err := c.store.Journals.Update(ctx, journal.ID, domain.JournalUpdate{
		Title:         clip(record.Title, 256),
		Publisher:     clip(record.Publisher, referenceFieldMaxLen),
		TotalDOIs:     record.Counts.TotalDOIs,
		LastRetrieved: c.now(),
	})
	if err != nil {
		return nil, err
	}

	for _, subject := range record.Subjects {
		if subject.ASJC == 0 || subject.Name == "" {
			continue
		}
		err := c.store.Journals.UpsertTopic(ctx, &domain.Topic{
			JournalID: journal.ID,
			Code:      subject.ASJC,
			Name:      clip(subject.Name, referenceFieldMaxLen),
			TopicType: domain.TopicTypeASJC,
		})
		if err != nil {
			return nil, err
		}
	}

	logger.Info().Int("total_dois", updated.TotalDOIs).Int("subjects", len(record.Subjects)).Msg("journal refreshed")
	return updated, nil
}
