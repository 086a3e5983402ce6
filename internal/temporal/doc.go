// Package temporal provides the Temporal client integration for papernet.
//
// Ingestion runs on Temporal workers: the HTTP server and the scheduler only
// enqueue workflows through IngestionWorkflowClient, and cmd/worker hosts
// the workflows in the workflows package and the activities in the
// activities package.
//
// # Starting Workflows
//
//	c, err := client.Dial(client.Options{HostPort: "localhost:7233"})
//	if err != nil {
//	    return err
//	}
//	wc := temporal.NewIngestionWorkflowClient(c, temporal.ClientConfig{TaskQueue: "papernet"})
//	defer wc.Close()
//
//	workflowID, runID, err := wc.StartPaperIngestion(ctx, temporal.PaperIngestionInput{
//	    DOI:                "10.1038/nature14539",
//	    WithCitations:      true,
//	    RetrieveReferences: true,
//	})
//
// Paper workflows use the ID "paper-<doi>", so starting a DOI that is
// already being ingested joins the open run.
//
// # Errors
//
// Temporal service errors are wrapped in *TemporalError whose Kind is one of
// the sentinel errors declared in client.go, so callers can use errors.Is:
//
//	if errors.Is(err, temporal.ErrWorkflowAlreadyStarted) {
//	    // ...
//	}
package temporal
