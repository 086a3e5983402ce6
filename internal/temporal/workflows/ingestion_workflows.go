// Package workflows defines the Temporal workflows that orchestrate citation
// graph ingestion.
package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/camrobjones/papernet/internal/ingestion"
	pntemporal "github.com/camrobjones/papernet/internal/temporal"
	"github.com/camrobjones/papernet/internal/temporal/activities"
)

// Workflow input and result types are declared next to the client so the
// server can start workflows without importing this package.
type (
	PaperIngestionInput  = pntemporal.PaperIngestionInput
	PaperIngestionResult = pntemporal.PaperIngestionResult
	BatchIngestionInput  = pntemporal.BatchIngestionInput
	BatchIngestionResult = pntemporal.BatchIngestionResult
	SweepInput           = pntemporal.SweepInput
	SweepResult          = pntemporal.SweepResult
)

const (
	// DefaultSweepLimit is the number of missing DOIs fetched by a sweep
	// started without a limit.
	DefaultSweepLimit = 100

	// maxFailedDOIs bounds the failed DOIs listed on a batch result.
	maxFailedDOIs = 100
)

// fetchOptions covers a single paper fetch, which waits on the upstream
// rate limiter and may write many citation edges.
func fetchOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    1 * time.Minute,
			MaximumAttempts:    5,
		},
	})
}

// retrievalOptions covers reference retrieval, which fetches every
// unresolved cited paper in turn.
func retrievalOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 4 * time.Hour,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    5 * time.Minute,
			MaximumAttempts:    3,
		},
	})
}

func queryOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    500 * time.Millisecond,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	})
}

// PaperIngestionWorkflow fetches one paper and, when requested, the papers
// it cites that are not yet in the graph.
func PaperIngestionWorkflow(ctx workflow.Context, input PaperIngestionInput) (*PaperIngestionResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("starting paper ingestion", "doi", input.DOI, "retrieveReferences", input.RetrieveReferences)

	var act *activities.IngestionActivities

	var fetched activities.FetchPaperOutput
	err := workflow.ExecuteActivity(fetchOptions(ctx), act.FetchPaper, activities.FetchPaperInput{
		DOI:           input.DOI,
		Force:         input.Force,
		WithCitations: input.WithCitations,
	}).Get(ctx, &fetched)
	if err != nil {
		logger.Error("paper fetch failed", "doi", input.DOI, "error", err)
		return nil, fmt.Errorf("fetch paper %s: %w", input.DOI, err)
	}

	result := &PaperIngestionResult{
		DOI:     fetched.DOI,
		PaperID: fetched.PaperID.String(),
		Title:   fetched.Title,
	}
	if !input.RetrieveReferences {
		return result, nil
	}

	var tally ingestion.RetrievalTally
	err = workflow.ExecuteActivity(retrievalOptions(ctx), act.RetrieveReferences, activities.RetrieveReferencesInput{
		DOI: fetched.DOI,
	}).Get(ctx, &tally)
	if err != nil {
		logger.Error("reference retrieval failed", "doi", fetched.DOI, "error", err)
		return result, fmt.Errorf("retrieve references of %s: %w", fetched.DOI, err)
	}
	result.References = &tally

	logger.Info("paper ingestion complete",
		"doi", fetched.DOI,
		"added", tally.Added,
		"stubs", tally.Stubs,
		"failed", tally.Failed,
	)
	return result, nil
}

// BatchIngestionWorkflow fetches a list of papers one at a time. A paper
// that fails is counted and the batch continues. The running tally is
// available through the progress query.
func BatchIngestionWorkflow(ctx workflow.Context, input BatchIngestionInput) (*BatchIngestionResult, error) {
	logger := workflow.GetLogger(ctx)

	dois, invalid := NormalizeDOIs(input.DOIs)
	progress := &BatchIngestionResult{Total: len(dois) + len(invalid)}
	for _, raw := range invalid {
		recordFailure(progress, raw)
	}

	if err := workflow.SetQueryHandler(ctx, pntemporal.QueryProgress, func() (*BatchIngestionResult, error) {
		return progress, nil
	}); err != nil {
		return nil, fmt.Errorf("register progress query: %w", err)
	}

	logger.Info("starting batch ingestion", "papers", len(dois), "invalid", len(invalid))

	var act *activities.IngestionActivities
	fetchCtx := fetchOptions(ctx)

	for _, doi := range dois {
		var fetched activities.FetchPaperOutput
		err := workflow.ExecuteActivity(fetchCtx, act.FetchPaper, activities.FetchPaperInput{
			DOI:           doi,
			Force:         input.Force,
			WithCitations: input.WithCitations,
		}).Get(ctx, &fetched)
		if temporal.IsCanceledError(err) {
			return progress, err
		}
		if err != nil {
			logger.Warn("batch paper failed", "doi", doi, "error", err)
			recordFailure(progress, doi)
			continue
		}
		progress.Done++
		progress.Added++
	}

	logger.Info("batch ingestion complete", "added", progress.Added, "errors", progress.Errors)
	return progress, nil
}

func recordFailure(progress *BatchIngestionResult, doi string) {
	progress.Done++
	progress.Errors++
	if len(progress.Failed) < maxFailedDOIs {
		progress.Failed = append(progress.Failed, doi)
	}
}

// MissingReferenceSweepWorkflow fetches the cited DOIs that are most often
// referenced but have no paper. DOIs unknown upstream are stored as stubs
// so the next sweep moves on to other candidates.
func MissingReferenceSweepWorkflow(ctx workflow.Context, input SweepInput) (*SweepResult, error) {
	logger := workflow.GetLogger(ctx)

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultSweepLimit
	}

	var act *activities.IngestionActivities

	var missing activities.FindMissingReferencesOutput
	err := workflow.ExecuteActivity(queryOptions(ctx), act.FindMissingReferences, activities.FindMissingReferencesInput{
		Limit: limit,
	}).Get(ctx, &missing)
	if err != nil {
		return nil, fmt.Errorf("find missing references: %w", err)
	}

	result := &SweepResult{Candidates: len(missing.Missing)}
	logger.Info("starting missing reference sweep", "candidates", result.Candidates)

	fetchCtx := fetchOptions(ctx)
	for _, m := range missing.Missing {
		var fetched activities.FetchPaperOutput
		err := workflow.ExecuteActivity(fetchCtx, act.FetchPaper, activities.FetchPaperInput{
			DOI:         m.DOI,
			StubMissing: true,
		}).Get(ctx, &fetched)
		switch {
		case temporal.IsCanceledError(err):
			return result, err
		case err != nil:
			logger.Warn("sweep fetch failed", "doi", m.DOI, "citations", m.Citations, "error", err)
			result.Errors++
		case fetched.Stub:
			result.Stubs++
		default:
			result.Added++
		}
	}

	logger.Info("missing reference sweep complete",
		"added", result.Added,
		"stubs", result.Stubs,
		"errors", result.Errors,
	)
	return result, nil
}
