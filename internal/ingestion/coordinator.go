package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/camrobjones/papernet/internal/domain"
	"github.com/camrobjones/papernet/internal/identity"
	"github.com/camrobjones/papernet/internal/observability"
	"github.com/camrobjones/papernet/internal/papersources"
	"github.com/camrobjones/papernet/internal/repository"
)

// UpsertOptions controls how a work is written to the graph.
type UpsertOptions struct {
	// WithCitations records the work's reference list and fetches the
	// papers citing it from the citation index.
	WithCitations bool

	// Force rewrites a paper whose metadata was already retrieved.
	Force bool

	// FetchOptions is passed to the upstream calls made on behalf of the work.
	FetchOptions papersources.FetchOptions
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithMetrics records ingestion counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithClock overrides the time source used for retrieval stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// Coordinator ingests works into the citation graph.
type Coordinator struct {
	store   *repository.Store
	works   papersources.MetadataSource
	index   papersources.CitationIndex
	merger  *JournalMerger
	metrics *observability.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// NewCoordinator creates a Coordinator writing through store.
func NewCoordinator(
	store *repository.Store,
	works papersources.MetadataSource,
	index papersources.CitationIndex,
	logger zerolog.Logger,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		store:  store,
		works:  works,
		index:  index,
		logger: logger.With().Str("component", "ingestion").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.merger = NewJournalMerger(store, c.logger, c.metrics)
	return c
}

// Merger returns the journal merger sharing the coordinator's store.
func (c *Coordinator) Merger() *JournalMerger {
	return c.merger
}

// GetOrFetchPaper returns the paper for rawDOI. A paper already in the graph
// is returned as stored. Otherwise, when retrieve is true, its metadata is
// fetched and ingested with citations; when false domain.ErrNotFound is
// returned. An unparseable DOI fails with domain.ErrInvalidDOI before any I/O.
func (c *Coordinator) GetOrFetchPaper(ctx context.Context, rawDOI string, retrieve bool) (*domain.Paper, error) {
	return c.getOrFetch(ctx, rawDOI, retrieve, UpsertOptions{WithCitations: true})
}

func (c *Coordinator) getOrFetch(ctx context.Context, rawDOI string, retrieve bool, opts UpsertOptions) (*domain.Paper, error) {
	doi, err := identity.CleanDOI(rawDOI)
	if err != nil {
		return nil, err
	}

	paper, err := c.store.Papers.GetByDOI(ctx, doi)
	if err == nil {
		return paper, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if !retrieve {
		return nil, domain.NewNotFoundError("paper", doi)
	}

	c.logger.Info().Str("doi", doi).Msg("retrieving paper")
	work, err := c.works.GetWork(ctx, doi, opts.FetchOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch work %s: %w", doi, err)
	}
	return c.UpsertPaper(ctx, work, opts)
}

// FetchPaper retrieves rawDOI from the metadata source and writes it to the
// graph. Unlike GetOrFetchPaper, a stub paper is fetched; a paper whose
// metadata was already retrieved is returned as stored unless opts.Force is
// set.
func (c *Coordinator) FetchPaper(ctx context.Context, rawDOI string, opts UpsertOptions) (*domain.Paper, error) {
	doi, err := identity.CleanDOI(rawDOI)
	if err != nil {
		return nil, err
	}

	paper, err := c.findPaper(ctx, doi)
	if err != nil {
		return nil, err
	}
	if paper != nil && paper.IsRetrieved() && !opts.Force {
		return paper, nil
	}

	work, err := c.works.GetWork(ctx, doi, opts.FetchOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch work %s: %w", doi, err)
	}
	return c.UpsertPaper(ctx, work, opts)
}

// AddStub stores a paper for rawDOI without metadata, so that citation edges
// pointing at it are resolved and it is no longer reported missing.
func (c *Coordinator) AddStub(ctx context.Context, rawDOI string) (*domain.Paper, error) {
	doi, err := identity.CleanDOI(rawDOI)
	if err != nil {
		return nil, err
	}
	paper, created, err := c.getOrCreatePaper(ctx, doi)
	if err != nil {
		return nil, err
	}
	if created && c.metrics != nil {
		c.metrics.RecordPaperStub()
	}
	return paper, nil
}

// UpsertPaper writes work to the graph and returns its paper. A paper that
// was already retrieved is returned unchanged unless opts.Force is set.
func (c *Coordinator) UpsertPaper(ctx context.Context, work *domain.Work, opts UpsertOptions) (*domain.Paper, error) {
	if work == nil || work.DOI == "" {
		return nil, domain.NewUpstreamDataError("crossref", "work has no DOI")
	}
	doi, err := identity.CleanDOI(work.DOI)
	if err != nil {
		return nil, err
	}

	logger := observability.WithPaperContext(c.logger, doi)
	start := c.now()

	paper, created, err := c.getOrCreatePaper(ctx, doi)
	if err != nil {
		return nil, err
	}
	if !created && paper.IsRetrieved() && !opts.Force {
		logger.Debug().Msg("paper already retrieved")
		if c.metrics != nil {
			c.metrics.RecordPaperSkipped()
		}
		return paper, nil
	}

	update := c.paperUpdate(logger, paper, work)

	if err := c.addAuthors(ctx, logger, paper, work.Author); err != nil {
		return nil, err
	}

	journal, err := c.resolveJournal(ctx, logger, work)
	if err != nil {
		return nil, err
	}
	if err := c.upsertPublication(ctx, logger, paper, journal, work); err != nil {
		return nil, err
	}

	if opts.WithCitations {
		tally, err := c.AddCitations(ctx, paper, work)
		if err != nil {
			return nil, err
		}
		logger.Debug().
			Int("added", tally.Added).
			Int("duplicates", tally.Duplicates).
			Int("missing_doi", tally.MissingDOI).
			Msg("citations added")

		if _, err := c.FetchCitedBy(ctx, paper, false); err != nil {
			return nil, err
		}
	}

	// Stamped last so that a failed ingestion is retried in full.
	update.RetrievedAt = c.now()
	paper, err = c.store.Papers.Update(ctx, paper.ID, update)
	if err != nil {
		return nil, err
	}

	if c.metrics != nil {
		c.metrics.RecordPaperIngested()
	}
	logger.Info().Dur("duration", c.now().Sub(start)).Str("title", paper.ShortTitle).Msg("paper retrieved")
	return paper, nil
}

// getOrCreatePaper returns the paper for doi, linking dangling citation
// edges to it when the row is new.
func (c *Coordinator) getOrCreatePaper(ctx context.Context, doi string) (*domain.Paper, bool, error) {
	paper, created, err := c.store.Papers.GetOrCreate(ctx, doi)
	if err != nil {
		return nil, false, err
	}
	if created {
		linked, err := c.store.References.LinkPaper(ctx, paper)
		if err != nil {
			return nil, false, err
		}
		if linked > 0 {
			c.logger.Debug().Str("doi", doi).Int64("edges", linked).Msg("linked citation edges")
		}
	}
	return paper, created, nil
}

func (c *Coordinator) paperUpdate(logger zerolog.Logger, paper *domain.Paper, work *domain.Work) domain.PaperUpdate {
	update := domain.PaperUpdate{
		Title:       paper.Title,
		ShortTitle:  paper.ShortTitle,
		Subtitle:    clip(first(work.Subtitle), TitleMaxLen),
		ArticleType: work.Type,
		Abstract:    work.Abstract,
		URL:         work.URL,
	}

	if title := first(work.Title); title != "" {
		update.Title = TruncateTitle(title, TitleMaxLen, TitleMinLen)
		short := first(work.ShortTitle)
		if short == "" {
			short = update.Title
		}
		update.ShortTitle = TruncateTitle(short, ShortTitleMaxLen, ShortTitleMinLen)
	} else {
		logger.Warn().Msg("title not found")
	}

	if work.ReferencesCount != nil {
		update.ReferencesCount = *work.ReferencesCount
	}
	if work.IsReferencedByCount != nil {
		update.IsReferencedByCount = *work.IsReferencedByCount
	}

	if work.Type == "" {
		logger.Warn().Str("field", "type").Msg("no value found")
	}
	if work.Abstract == "" {
		logger.Warn().Str("field", "abstract").Msg("no value found")
	}
	return update
}

func (c *Coordinator) addAuthors(ctx context.Context, logger zerolog.Logger, paper *domain.Paper, authors []domain.WorkAuthor) error {
	for _, wa := range authors {
		author, err := c.store.Authors.GetOrCreate(ctx, clip(wa.Given, referenceFieldMaxLen), clip(wa.Family, referenceFieldMaxLen))
		if err != nil {
			return err
		}

		authorship, created, err := c.store.Authors.GetOrCreateAuthorship(ctx, author.ID, paper.ID, wa.Sequence)
		if err != nil {
			return err
		}
		if !created {
			continue
		}

		for _, aff := range wa.Affiliation {
			if aff.Name == "" {
				logger.Warn().Str("family", wa.Family).Msg("skipping unnamed affiliation")
				continue
			}
			inst, err := c.store.Authors.GetOrCreateInstitution(ctx, aff.Name)
			if err != nil {
				return err
			}
			if err := c.store.Authors.AddAffiliation(ctx, authorship.ID, inst.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Coordinator) upsertPublication(ctx context.Context, logger zerolog.Logger, paper *domain.Paper, journal *domain.Journal, work *domain.Work) error {
	var journalID *uuid.UUID
	if journal != nil {
		journalID = &journal.ID
	}

	pub, _, err := c.store.Publications.GetOrCreate(ctx, paper.ID, journalID)
	if err != nil {
		return err
	}

	dates := ExtractDates(work)
	update := domain.PublicationUpdate{
		Published:       dates.Published,
		PublishedOnline: dates.Online,
		PublishedPrint:  dates.Print,
		Volume:          clip(work.Volume, referenceFieldMaxLen),
		Issue:           clip(work.Issue, referenceFieldMaxLen),
		Pages:           clip(work.Page, referenceFieldMaxLen),
		Source:          work.Source,
	}
	if dates.IsEmpty() {
		logger.Warn().Msg("no publication date found")
	}
	if err := c.store.Publications.Update(ctx, pub.ID, update); err != nil {
		return err
	}

	pubs, err := c.store.Publications.ListByPaper(ctx, paper.ID)
	if err != nil {
		return err
	}
	if len(pubs) > 1 {
		logger.Warn().Int("publications", len(pubs)).Msg("paper has several publications")
	}
	return nil
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
