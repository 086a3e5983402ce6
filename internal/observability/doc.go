// Package observability provides logging and metrics support for papernet.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	logger = observability.WithPaperContext(logger, "10.1038/nature12373")
//
// Components add a "component" field so log streams can be filtered.
//
// # Metrics
//
//	metrics := observability.NewMetrics("papernet")
//	metrics.RecordCitationTally(tally.Added, tally.Duplicates, tally.MissingDOI)
//
// # Standard Fields
//
//   - doi: canonical DOI of the paper being processed
//   - issn: journal ISSN
//   - url: upstream request URL
//   - request_id: HTTP request identifier
//   - workflow_id, workflow_run_id: Temporal identifiers
//
// All components are safe for concurrent use from multiple goroutines.
package observability
