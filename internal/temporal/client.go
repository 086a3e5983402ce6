package temporal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/camrobjones/papernet/internal/identity"
	"github.com/camrobjones/papernet/internal/ingestion"
)

// Workflow type names. Workflows are registered under their function names,
// so these match the functions in the workflows package.
const (
	WorkflowPaperIngestion          = "PaperIngestionWorkflow"
	WorkflowBatchIngestion          = "BatchIngestionWorkflow"
	WorkflowMissingReferenceSweep   = "MissingReferenceSweepWorkflow"
	missingReferenceSweepWorkflowID = "missing-reference-sweep"
)

// QueryProgress is the query name answered by the batch workflow with its
// running tally.
const QueryProgress = "progress"

// Default timeouts for workflow execution and health checks.
const (
	DefaultPaperWorkflowTimeout = time.Hour
	DefaultBatchWorkflowTimeout = 24 * time.Hour
	DefaultHealthCheckTimeout   = 5 * time.Second
)

var (
	// ErrWorkflowNotFound indicates the workflow execution was not found.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowAlreadyStarted indicates a workflow with the same ID is already running.
	ErrWorkflowAlreadyStarted = errors.New("workflow already started")

	// ErrQueryFailed indicates the workflow query failed.
	ErrQueryFailed = errors.New("query failed")

	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = errors.New("client closed")

	// ErrConnectionFailed indicates a connection failure to the Temporal server.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrNamespaceNotFound indicates the namespace does not exist.
	ErrNamespaceNotFound = errors.New("namespace not found")

	// ErrInvalidArgument indicates an invalid argument was provided.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrResourceExhausted indicates resource limits have been reached.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrDeadlineExceeded indicates the operation deadline was exceeded.
	ErrDeadlineExceeded = errors.New("deadline exceeded")
)

// TemporalError wraps a Temporal error with the operation and workflow it
// concerned.
type TemporalError struct {
	Op         string
	Kind       error
	WorkflowID string
	RunID      string
	Err        error
}

// Error returns the error message.
func (e *TemporalError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.WorkflowID != "" {
		msg += fmt.Sprintf(" [workflowID=%s", e.WorkflowID)
		if e.RunID != "" {
			msg += fmt.Sprintf(", runID=%s", e.RunID)
		}
		msg += "]"
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *TemporalError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error's Kind.
func (e *TemporalError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// wrapTemporalError maps a Temporal SDK error to one of the sentinels above.
func wrapTemporalError(op string, err error, workflowID, runID string) error {
	if err == nil {
		return nil
	}

	te := &TemporalError{Op: op, WorkflowID: workflowID, RunID: runID, Err: err}

	var (
		notFound          *serviceerror.NotFound
		alreadyStarted    *serviceerror.WorkflowExecutionAlreadyStarted
		namespaceNotFound *serviceerror.NamespaceNotFound
		invalidArgument   *serviceerror.InvalidArgument
		resourceExhausted *serviceerror.ResourceExhausted
		deadlineExceeded  *serviceerror.DeadlineExceeded
		queryFailed       *serviceerror.QueryFailed
	)

	switch {
	case errors.As(err, &notFound):
		te.Kind = ErrWorkflowNotFound
	case errors.As(err, &alreadyStarted):
		te.Kind = ErrWorkflowAlreadyStarted
	case errors.As(err, &namespaceNotFound):
		te.Kind = ErrNamespaceNotFound
	case errors.As(err, &invalidArgument):
		te.Kind = ErrInvalidArgument
	case errors.As(err, &resourceExhausted):
		te.Kind = ErrResourceExhausted
	case errors.As(err, &deadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		te.Kind = ErrDeadlineExceeded
	case errors.As(err, &queryFailed):
		te.Kind = ErrQueryFailed
	case errors.Is(err, context.Canceled):
		te.Kind = ErrClientClosed
	default:
		te.Kind = ErrConnectionFailed
	}

	return te
}

// IsWorkflowNotFound checks if the error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsWorkflowAlreadyStarted checks if the error indicates a workflow already started.
func IsWorkflowAlreadyStarted(err error) bool {
	return errors.Is(err, ErrWorkflowAlreadyStarted)
}

// IsConnectionFailed checks if the error indicates a connection failure.
func IsConnectionFailed(err error) bool {
	return errors.Is(err, ErrConnectionFailed)
}

// ClientConfig contains configuration for the Temporal client.
type ClientConfig struct {
	// HostPort is the Temporal server address (e.g., "localhost:7233").
	HostPort string

	// Namespace is the Temporal namespace to use.
	Namespace string

	// TaskQueue is the task queue workflows are started on.
	TaskQueue string

	// HealthCheckTimeout defaults to DefaultHealthCheckTimeout.
	HealthCheckTimeout time.Duration
}

// PaperIngestionInput starts the ingestion of one paper.
type PaperIngestionInput struct {
	DOI                string `json:"doi"`
	Force              bool   `json:"force"`
	WithCitations      bool   `json:"with_citations"`
	RetrieveReferences bool   `json:"retrieve_references"`
}

// PaperIngestionResult is the outcome of a paper ingestion workflow.
type PaperIngestionResult struct {
	DOI        string                    `json:"doi"`
	PaperID    string                    `json:"paper_id"`
	Title      string                    `json:"title"`
	References *ingestion.RetrievalTally `json:"references,omitempty"`
}

// BatchIngestionInput starts the ingestion of a list of papers.
type BatchIngestionInput struct {
	DOIs          []string `json:"dois"`
	Force         bool     `json:"force"`
	WithCitations bool     `json:"with_citations"`
}

// BatchIngestionResult tallies a batch ingestion. It is also the answer to
// QueryProgress while the batch runs.
type BatchIngestionResult struct {
	Total  int      `json:"total"`
	Done   int      `json:"done"`
	Added  int      `json:"added"`
	Errors int      `json:"errors"`
	Failed []string `json:"failed,omitempty"`
}

// SweepInput starts a missing reference sweep.
type SweepInput struct {
	// Limit is the number of most cited missing DOIs fetched.
	Limit int `json:"limit"`
}

// SweepResult tallies a missing reference sweep.
type SweepResult struct {
	Candidates int `json:"candidates"`
	Added      int `json:"added"`
	Stubs      int `json:"stubs"`
	Errors     int `json:"errors"`
}

// PaperWorkflowID returns the workflow ID used for doi. Starting the same
// paper twice while a run is open joins the open run.
func PaperWorkflowID(doi string) string {
	return "paper-" + doi
}

// IngestionWorkflowClient starts and inspects ingestion workflows.
type IngestionWorkflowClient struct {
	mu                 sync.RWMutex
	client             client.Client
	taskQueue          string
	healthCheckTimeout time.Duration
	closed             bool
}

// NewIngestionWorkflowClient creates an IngestionWorkflowClient.
func NewIngestionWorkflowClient(c client.Client, cfg ClientConfig) *IngestionWorkflowClient {
	healthTimeout := cfg.HealthCheckTimeout
	if healthTimeout == 0 {
		healthTimeout = DefaultHealthCheckTimeout
	}
	return &IngestionWorkflowClient{
		client:             c,
		taskQueue:          cfg.TaskQueue,
		healthCheckTimeout: healthTimeout,
	}
}

// Close closes the underlying Temporal client connection.
func (c *IngestionWorkflowClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && !c.closed {
		c.client.Close()
		c.closed = true
	}
}

func (c *IngestionWorkflowClient) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Health checks the connection to the Temporal server.
func (c *IngestionWorkflowClient) Health(ctx context.Context) error {
	if c.isClosed() {
		return &TemporalError{Op: "Health", Kind: ErrClientClosed}
	}

	checkCtx, cancel := context.WithTimeout(ctx, c.healthCheckTimeout)
	defer cancel()

	if _, err := c.client.CheckHealth(checkCtx, &client.CheckHealthRequest{}); err != nil {
		return wrapTemporalError("Health", err, "", "")
	}
	return nil
}

// StartPaperIngestion starts PaperIngestionWorkflow for input.DOI, which is
// canonicalized first. An invalid DOI fails before contacting Temporal.
func (c *IngestionWorkflowClient) StartPaperIngestion(ctx context.Context, input PaperIngestionInput) (workflowID, runID string, err error) {
	doi, err := identity.CleanDOI(input.DOI)
	if err != nil {
		return "", "", err
	}
	input.DOI = doi

	return c.start(ctx, "StartPaperIngestion", client.StartWorkflowOptions{
		ID:                       PaperWorkflowID(doi),
		TaskQueue:                c.taskQueue,
		WorkflowExecutionTimeout: DefaultPaperWorkflowTimeout,
	}, WorkflowPaperIngestion, input)
}

// StartBatchIngestion starts BatchIngestionWorkflow under a new ID.
func (c *IngestionWorkflowClient) StartBatchIngestion(ctx context.Context, input BatchIngestionInput) (workflowID, runID string, err error) {
	return c.start(ctx, "StartBatchIngestion", client.StartWorkflowOptions{
		ID:                       "batch-" + uuid.NewString(),
		TaskQueue:                c.taskQueue,
		WorkflowExecutionTimeout: DefaultBatchWorkflowTimeout,
	}, WorkflowBatchIngestion, input)
}

// StartMissingReferenceSweep starts MissingReferenceSweepWorkflow. All sweeps
// share one workflow ID, so a sweep requested while another runs joins it.
func (c *IngestionWorkflowClient) StartMissingReferenceSweep(ctx context.Context, input SweepInput) (workflowID, runID string, err error) {
	return c.start(ctx, "StartMissingReferenceSweep", client.StartWorkflowOptions{
		ID:                       missingReferenceSweepWorkflowID,
		TaskQueue:                c.taskQueue,
		WorkflowExecutionTimeout: DefaultBatchWorkflowTimeout,
	}, WorkflowMissingReferenceSweep, input)
}

func (c *IngestionWorkflowClient) start(ctx context.Context, op string, options client.StartWorkflowOptions, workflow string, input interface{}) (string, string, error) {
	if c.isClosed() {
		return "", "", &TemporalError{Op: op, Kind: ErrClientClosed, WorkflowID: options.ID}
	}

	run, err := c.client.ExecuteWorkflow(ctx, options, workflow, input)
	if err != nil {
		return "", "", wrapTemporalError(op, err, options.ID, "")
	}
	return run.GetID(), run.GetRunID(), nil
}

// GetWorkflowResult waits for a workflow to complete and decodes its result.
func (c *IngestionWorkflowClient) GetWorkflowResult(ctx context.Context, workflowID, runID string, result interface{}) error {
	if c.isClosed() {
		return &TemporalError{Op: "GetWorkflowResult", Kind: ErrClientClosed, WorkflowID: workflowID, RunID: runID}
	}

	run := c.client.GetWorkflow(ctx, workflowID, runID)
	if err := run.Get(ctx, result); err != nil {
		return wrapTemporalError("GetWorkflowResult", err, workflowID, runID)
	}
	return nil
}

// QueryBatchProgress returns the running tally of a batch workflow.
func (c *IngestionWorkflowClient) QueryBatchProgress(ctx context.Context, workflowID string) (*BatchIngestionResult, error) {
	if c.isClosed() {
		return nil, &TemporalError{Op: "QueryBatchProgress", Kind: ErrClientClosed, WorkflowID: workflowID}
	}

	resp, err := c.client.QueryWorkflow(ctx, workflowID, "", QueryProgress)
	if err != nil {
		return nil, wrapTemporalError("QueryBatchProgress", err, workflowID, "")
	}

	var progress BatchIngestionResult
	if err := resp.Get(&progress); err != nil {
		return nil, &TemporalError{
			Op:         "QueryBatchProgress",
			Kind:       ErrQueryFailed,
			WorkflowID: workflowID,
			Err:        fmt.Errorf("decode query result: %w", err),
		}
	}
	return &progress, nil
}

// TaskQueue returns the configured task queue name.
func (c *IngestionWorkflowClient) TaskQueue() string {
	return c.taskQueue
}
