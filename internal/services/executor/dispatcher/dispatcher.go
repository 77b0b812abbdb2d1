package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/hookflow/hookflow/internal/domain/execution"
	"github.com/hookflow/hookflow/internal/domain/workflow"
	"github.com/hookflow/hookflow/internal/services/executor/actions"
	"github.com/hookflow/hookflow/internal/services/executor/engine"
	"github.com/hookflow/hookflow/internal/services/executor/worker"
	wfrepo "github.com/hookflow/hookflow/internal/services/workflow/repository"
	"github.com/hookflow/hookflow/pkg/events"
	"github.com/hookflow/hookflow/pkg/logger"
	"github.com/hookflow/hookflow/pkg/metrics"
)

var (
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrWorkflowDisabled = errors.New("workflow is disabled")
)

// WorkflowStore fetches owner-scoped workflows.
type WorkflowStore interface {
	GetByIDAndUser(ctx context.Context, id, userID string) (*workflow.Workflow, error)
}

// Lifecycle is the execution record state machine the dispatcher drives.
type Lifecycle interface {
	Create(ctx context.Context, workflowID, userID string, input map[string]interface{}) (*execution.Execution, error)
	MarkRunning(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, executed, total int) error
	MarkFailed(ctx context.Context, id, msg string) error
}

// Submitter schedules a traversal task; implemented by the worker pool.
type Submitter interface {
	Submit(task worker.Task) error
}

// Notifier tells the workflow owner about a failed run. Best effort:
// implementations log their own delivery failures.
type Notifier interface {
	RunFailed(ctx context.Context, userID, workflowTitle, reason string)
}

// Dispatcher ties trigger sources to the engine: pre-flight checks, record
// creation, async scheduling. Callers get an execution id the moment the
// record exists; everything after that is observable only through it.
type Dispatcher struct {
	workflows  WorkflowStore
	executions Lifecycle
	engine     *engine.Engine
	pool       Submitter
	notifier   Notifier
	bus        events.EventBus // nil when kafka is disabled
	logger     logger.Logger
}

func New(workflows WorkflowStore, executions Lifecycle, eng *engine.Engine, pool Submitter, notifier Notifier, bus events.EventBus, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		workflows:  workflows,
		executions: executions,
		engine:     eng,
		pool:       pool,
		notifier:   notifier,
		bus:        bus,
		logger:     log,
	}
}

// ExecuteWorkflowByID validates the trigger, creates the pending record and
// schedules the traversal. The returned id is valid even when the run later
// fails; scheduling problems surface on the record, not the caller.
func (d *Dispatcher) ExecuteWorkflowByID(ctx context.Context, workflowID, userID string, input map[string]interface{}) (string, error) {
	wf, err := d.workflows.GetByIDAndUser(ctx, workflowID, userID)
	if err != nil {
		if errors.Is(err, wfrepo.ErrNotFound) {
			return "", ErrWorkflowNotFound
		}
		return "", fmt.Errorf("load workflow: %w", err)
	}
	if !wf.Enabled {
		return "", ErrWorkflowDisabled
	}

	exec, err := d.executions.Create(ctx, wf.ID, userID, input)
	if err != nil {
		return "", err
	}

	metrics.ExecutionsStarted.Inc()
	d.publish(ctx, events.ExecutionStarted, exec.ID, wf.ID, userID)

	run := actions.RunContext{
		ExecutionID: exec.ID,
		WorkflowID:  wf.ID,
		UserID:      userID,
		Input:       input,
	}
	task := func(taskCtx context.Context) {
		d.run(taskCtx, wf, run)
	}

	if err := d.pool.Submit(task); err != nil {
		// The record exists; reflect the scheduling failure on it so the
		// caller's poll does not hang on pending forever.
		d.logger.Warn("failed to schedule execution", "executionId", exec.ID, "error", err)
		if ferr := d.executions.MarkFailed(ctx, exec.ID, err.Error()); ferr != nil {
			d.logger.Error("failed to record scheduling failure", "executionId", exec.ID, "error", ferr)
		}
		metrics.ExecutionsFinished.WithLabelValues(execution.StatusFailed).Inc()
	}

	return exec.ID, nil
}

func (d *Dispatcher) run(ctx context.Context, wf *workflow.Workflow, run actions.RunContext) {
	// A cancel that landed before the worker started wins; skip the walk.
	if err := d.executions.MarkRunning(ctx, run.ExecutionID); err != nil {
		d.logger.Info("skipping traversal, execution no longer pending",
			"executionId", run.ExecutionID, "error", err)
		return
	}

	visited, err := d.engine.Run(ctx, wf, run)
	if err != nil {
		if ferr := d.executions.MarkFailed(ctx, run.ExecutionID, err.Error()); ferr != nil {
			d.logger.Error("failed to finalize execution", "executionId", run.ExecutionID, "error", ferr)
		}
		d.notifier.RunFailed(ctx, run.UserID, wf.Title, err.Error())
		d.publish(ctx, events.ExecutionFailed, run.ExecutionID, wf.ID, run.UserID)
		metrics.ExecutionsFinished.WithLabelValues(execution.StatusFailed).Inc()
		d.logger.Warn("execution failed",
			"executionId", run.ExecutionID, "workflowId", wf.ID, "error", err)
		return
	}

	if err := d.executions.MarkCompleted(ctx, run.ExecutionID, visited, len(wf.Nodes)); err != nil {
		d.logger.Error("failed to finalize execution", "executionId", run.ExecutionID, "error", err)
	}
	d.publish(ctx, events.ExecutionCompleted, run.ExecutionID, wf.ID, run.UserID)
	metrics.ExecutionsFinished.WithLabelValues(execution.StatusCompleted).Inc()
	d.logger.Info("execution completed",
		"executionId", run.ExecutionID, "workflowId", wf.ID, "visited", visited)
}

func (d *Dispatcher) publish(ctx context.Context, eventType, executionID, workflowID, userID string) {
	if d.bus == nil {
		return
	}
	ev := events.NewExecutionEvent(eventType, executionID, workflowID, userID)
	if err := d.bus.Publish(ctx, ev); err != nil {
		d.logger.Warn("failed to publish execution event", "type", eventType, "error", err)
	}
}
