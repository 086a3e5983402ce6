package activities

import (
	"context"
	"errors"
	"strings"

	"go.temporal.io/sdk/activity"

	"github.com/camrobjones/papernet/internal/domain"
	"github.com/camrobjones/papernet/internal/identity"
	"github.com/camrobjones/papernet/internal/ingestion"
	"github.com/camrobjones/papernet/internal/papersources"
	"github.com/camrobjones/papernet/internal/repository"
)

// Ingester writes upstream metadata to the citation graph.
// It is satisfied by *ingestion.Coordinator.
type Ingester interface {
	FetchPaper(ctx context.Context, doi string, opts ingestion.UpsertOptions) (*domain.Paper, error)
	AddStub(ctx context.Context, doi string) (*domain.Paper, error)
	FetchCitedBy(ctx context.Context, paper *domain.Paper, retrieve bool) ([]domain.CitationRecord, error)
	RetrieveReferences(ctx context.Context, paper *domain.Paper) (ingestion.RetrievalTally, error)
	RefreshJournal(ctx context.Context, journal *domain.Journal) (*domain.Journal, error)
	HarvestAuthor(ctx context.Context, author domain.WorkAuthor, rows int) (ingestion.HarvestTally, error)
	HarvestJournal(ctx context.Context, params papersources.ListParams) (ingestion.HarvestTally, error)
}

// IngestionActivities provides Temporal activities for citation graph ingestion.
// Methods on this struct are registered as Temporal activities via the worker.
type IngestionActivities struct {
	ingester Ingester
	papers   repository.PaperRepository
	journals repository.JournalRepository
	refs     repository.ReferenceRepository
}

// NewIngestionActivities creates a new IngestionActivities instance.
func NewIngestionActivities(ingester Ingester, store *repository.Store) *IngestionActivities {
	return &IngestionActivities{
		ingester: ingester,
		papers:   store.Papers,
		journals: store.Journals,
		refs:     store.References,
	}
}

// FetchPaper retrieves a paper's metadata and writes it to the graph.
func (a *IngestionActivities) FetchPaper(ctx context.Context, input FetchPaperInput) (*FetchPaperOutput, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("fetching paper", "doi", input.DOI, "force", input.Force)

	paper, err := a.ingester.FetchPaper(ctx, input.DOI, ingestion.UpsertOptions{
		WithCitations: input.WithCitations,
		Force:         input.Force,
	})
	if err != nil && input.StubMissing && errors.Is(err, domain.ErrNotFound) {
		logger.Warn("doi unknown upstream, storing stub", "doi", input.DOI)
		paper, err = a.ingester.AddStub(ctx, input.DOI)
		if err != nil {
			return nil, classifyError("add stub", err)
		}
		return &FetchPaperOutput{PaperID: paper.ID, DOI: paper.DOI, Stub: true}, nil
	}
	if err != nil {
		logger.Error("failed to fetch paper", "doi", input.DOI, "error", err)
		return nil, classifyError("fetch paper", err)
	}

	return &FetchPaperOutput{
		PaperID:   paper.ID,
		DOI:       paper.DOI,
		Title:     paper.Title,
		Retrieved: paper.IsRetrieved(),
	}, nil
}

// FetchCitedBy records the edges from every paper citing the given paper.
func (a *IngestionActivities) FetchCitedBy(ctx context.Context, input FetchCitedByInput) (*FetchCitedByOutput, error) {
	paper, err := a.lookupPaper(ctx, input.DOI)
	if err != nil {
		return nil, classifyError("fetch cited by", err)
	}

	records, err := a.ingester.FetchCitedBy(ctx, paper, input.Retrieve)
	if err != nil {
		return nil, classifyError("fetch cited by", err)
	}

	activity.GetLogger(ctx).Info("recorded citing papers", "doi", paper.DOI, "records", len(records))
	return &FetchCitedByOutput{Records: len(records)}, nil
}

// RetrieveReferences ingests the cited papers of a paper that are not yet
// in the graph.
func (a *IngestionActivities) RetrieveReferences(ctx context.Context, input RetrieveReferencesInput) (*ingestion.RetrievalTally, error) {
	paper, err := a.lookupPaper(ctx, input.DOI)
	if err != nil {
		return nil, classifyError("retrieve references", err)
	}

	tally, err := a.ingester.RetrieveReferences(ctx, paper)
	if err != nil {
		return nil, classifyError("retrieve references", err)
	}
	return &tally, nil
}

// RefreshJournal rewrites a journal from its upstream record.
func (a *IngestionActivities) RefreshJournal(ctx context.Context, input RefreshJournalInput) (*RefreshJournalOutput, error) {
	issn, err := requireISSN(input.ISSN)
	if err != nil {
		return nil, classifyError("refresh journal", err)
	}

	journal, err := a.journals.GetByISSN(ctx, issn)
	if err != nil {
		return nil, classifyError("refresh journal", err)
	}

	updated, err := a.ingester.RefreshJournal(ctx, journal)
	if err != nil {
		return nil, classifyError("refresh journal", err)
	}
	return &RefreshJournalOutput{
		JournalID: updated.ID,
		Title:     updated.Title,
		TotalDOIs: updated.TotalDOIs,
	}, nil
}

// HarvestAuthorWorks ingests the works of an author found by name search.
func (a *IngestionActivities) HarvestAuthorWorks(ctx context.Context, input HarvestAuthorWorksInput) (*ingestion.HarvestTally, error) {
	if input.Family == "" {
		return nil, classifyError("harvest author", domain.NewValidationError("family", "family name is required"))
	}

	activity.GetLogger(ctx).Info("harvesting author", "given", input.Given, "family", input.Family)
	tally, err := a.ingester.HarvestAuthor(ctx, domain.WorkAuthor{Given: input.Given, Family: input.Family}, input.Rows)
	if err != nil {
		return nil, classifyError("harvest author", err)
	}
	return &tally, nil
}

// HarvestJournalWorks ingests the works listed for a journal.
func (a *IngestionActivities) HarvestJournalWorks(ctx context.Context, input HarvestJournalWorksInput) (*ingestion.HarvestTally, error) {
	issn, err := requireISSN(input.ISSN)
	if err != nil {
		return nil, classifyError("harvest journal", err)
	}

	activity.GetLogger(ctx).Info("harvesting journal", "issn", issn, "limit", input.Limit)
	tally, err := a.ingester.HarvestJournal(ctx, papersources.ListParams{
		ISSN:         issn,
		FromPubDate:  input.FromPubDate,
		UntilPubDate: input.UntilPubDate,
		HasAbstract:  input.HasAbstract,
		Limit:        input.Limit,
	})
	if err != nil {
		return nil, classifyError("harvest journal", err)
	}
	return &tally, nil
}

// FindMissingReferences ranks cited DOIs that have no paper by how often
// they are cited.
func (a *IngestionActivities) FindMissingReferences(ctx context.Context, input FindMissingReferencesInput) (*FindMissingReferencesOutput, error) {
	if input.Limit <= 0 {
		return nil, classifyError("find missing references", domain.NewValidationError("limit", "must be positive"))
	}

	missing, err := a.refs.MostCitedMissing(ctx, input.CitingDOIs, input.Limit)
	if err != nil {
		return nil, classifyError("find missing references", err)
	}

	activity.GetLogger(ctx).Info("found missing references", "count", len(missing))
	return &FindMissingReferencesOutput{Missing: missing}, nil
}

func (a *IngestionActivities) lookupPaper(ctx context.Context, rawDOI string) (*domain.Paper, error) {
	doi, err := identity.CleanDOI(rawDOI)
	if err != nil {
		return nil, err
	}
	return a.papers.GetByDOI(ctx, doi)
}

func requireISSN(raw string) (string, error) {
	issn := strings.ToUpper(strings.TrimSpace(raw))
	if issn == "" {
		return "", domain.NewValidationError("issn", "issn is required")
	}
	return issn, nil
}
