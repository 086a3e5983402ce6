package temporal

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// Worker defaults applied to zero-valued WorkerConfig fields.
const (
	defaultMaxConcurrentActivities    = 20
	defaultMaxConcurrentWorkflowTasks = 20
	defaultActivityPollers            = 2
	defaultWorkflowPollers            = 2
)

// WorkerConfig contains configuration for the Temporal worker.
type WorkerConfig struct {
	// TaskQueue is the name of the task queue to poll.
	TaskQueue string

	// MaxConcurrentActivityExecutionSize bounds concurrent activities. Upstream
	// calls are paced by the shared ledger, so a large value buys little.
	MaxConcurrentActivityExecutionSize int

	MaxConcurrentWorkflowTaskExecutionSize int
	MaxConcurrentActivityTaskPollers       int
	MaxConcurrentWorkflowTaskPollers       int
}

// DefaultWorkerConfig returns a WorkerConfig with default values.
func DefaultWorkerConfig(taskQueue string) WorkerConfig {
	return WorkerConfig{
		TaskQueue:                              taskQueue,
		MaxConcurrentActivityExecutionSize:     defaultMaxConcurrentActivities,
		MaxConcurrentWorkflowTaskExecutionSize: defaultMaxConcurrentWorkflowTasks,
		MaxConcurrentActivityTaskPollers:       defaultActivityPollers,
		MaxConcurrentWorkflowTaskPollers:       defaultWorkflowPollers,
	}
}

func workerOptionsFromConfig(config WorkerConfig) worker.Options {
	options := worker.Options{
		MaxConcurrentActivityExecutionSize:     config.MaxConcurrentActivityExecutionSize,
		MaxConcurrentWorkflowTaskExecutionSize: config.MaxConcurrentWorkflowTaskExecutionSize,
		MaxConcurrentActivityTaskPollers:       config.MaxConcurrentActivityTaskPollers,
		MaxConcurrentWorkflowTaskPollers:       config.MaxConcurrentWorkflowTaskPollers,
	}

	if options.MaxConcurrentActivityExecutionSize == 0 {
		options.MaxConcurrentActivityExecutionSize = defaultMaxConcurrentActivities
	}
	if options.MaxConcurrentWorkflowTaskExecutionSize == 0 {
		options.MaxConcurrentWorkflowTaskExecutionSize = defaultMaxConcurrentWorkflowTasks
	}
	if options.MaxConcurrentActivityTaskPollers == 0 {
		options.MaxConcurrentActivityTaskPollers = defaultActivityPollers
	}
	if options.MaxConcurrentWorkflowTaskPollers == 0 {
		options.MaxConcurrentWorkflowTaskPollers = defaultWorkflowPollers
	}

	return options
}

// NewWorker creates a worker polling config.TaskQueue. Workflows and
// activities are registered by the caller.
func NewWorker(c client.Client, config WorkerConfig) (worker.Worker, error) {
	if config.TaskQueue == "" {
		return nil, fmt.Errorf("task queue is required")
	}
	return worker.New(c, config.TaskQueue, workerOptionsFromConfig(config)), nil
}

// StartWorker runs w until ctx is cancelled or the worker fails.
func StartWorker(ctx context.Context, w worker.Worker) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(worker.InterruptCh())
	}()

	select {
	case <-ctx.Done():
		w.Stop()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
