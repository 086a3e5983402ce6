package observability

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey string

const (
	requestIDKey  contextKey = "request_id"
	workflowIDKey contextKey = "workflow_id"
	runIDKey      contextKey = "workflow_run_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithWorkflow adds workflow ID and run ID to the context.
func WithWorkflow(ctx context.Context, workflowID, runID string) context.Context {
	ctx = context.WithValue(ctx, workflowIDKey, workflowID)
	return context.WithValue(ctx, runIDKey, runID)
}

// WorkflowFromContext retrieves workflow ID and run ID from context.
func WorkflowFromContext(ctx context.Context) (workflowID, runID string) {
	workflowID, _ = ctx.Value(workflowIDKey).(string)
	runID, _ = ctx.Value(runIDKey).(string)
	return workflowID, runID
}

// LoggerFromContext decorates logger with whatever identifiers ctx carries.
func LoggerFromContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if id := RequestIDFromContext(ctx); id != "" {
		logger = WithRequestContext(logger, id)
	}
	if wf, run := WorkflowFromContext(ctx); wf != "" {
		logger = WithWorkflowContext(logger, wf, run)
	}
	return logger
}
