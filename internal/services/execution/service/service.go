package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hookflow/hookflow/internal/domain/execution"
	"github.com/hookflow/hookflow/internal/services/execution/repository"
	"github.com/hookflow/hookflow/pkg/database"
	"github.com/hookflow/hookflow/pkg/logger"
)

var (
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrInvalidState is returned when an operation targets a record whose
	// state forbids it, e.g. cancelling a finished run.
	ErrInvalidState = errors.New("execution is in a state that does not allow this operation")
)

// ExecutionService owns the run record lifecycle. Transitions into a
// terminal state are first-writer-wins; late finalizations from the worker
// after a cancel are swallowed as no-ops.
type ExecutionService struct {
	repo   *repository.ExecutionRepository
	logger logger.Logger
}

func NewExecutionService(repo *repository.ExecutionRepository, log logger.Logger) *ExecutionService {
	return &ExecutionService{repo: repo, logger: log}
}

// Create persists a pending record and returns it synchronously, so the
// caller holds an id to poll before any node has run.
func (s *ExecutionService) Create(ctx context.Context, workflowID, userID string, input map[string]interface{}) (*execution.Execution, error) {
	exec := execution.New(workflowID, userID, input)
	if err := s.repo.Create(ctx, exec); err != nil {
		return nil, fmt.Errorf("create execution: %w", err)
	}
	s.logger.Info("execution created", "executionId", exec.ID, "workflowId", workflowID)
	return exec, nil
}

// MarkRunning gates the traversal: if it fails the worker must not run the
// graph, because a cancel already finalized the record.
func (s *ExecutionService) MarkRunning(ctx context.Context, id string) error {
	err := s.repo.MarkRunning(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrExecutionNotFound
	case errors.Is(err, repository.ErrNotPending):
		return ErrInvalidState
	}
	return err
}

func (s *ExecutionService) MarkCompleted(ctx context.Context, id string, executed, total int) error {
	progress := execution.FormatProgress(executed, total)
	err := s.repo.Finalize(ctx, id, execution.StatusCompleted, progress, "")
	if errors.Is(err, repository.ErrAlreadyFinal) {
		s.logger.Debug("completion ignored, execution already final", "executionId", id)
		return nil
	}
	return err
}

func (s *ExecutionService) MarkFailed(ctx context.Context, id, msg string) error {
	err := s.repo.Finalize(ctx, id, execution.StatusFailed, "", msg)
	if errors.Is(err, repository.ErrAlreadyFinal) {
		s.logger.Debug("failure ignored, execution already final", "executionId", id)
		return nil
	}
	return err
}

// Cancel marks a non-terminal run failed with the cancellation message.
// Unlike the worker-side finalizers it surfaces ErrInvalidState so the API
// can answer 400 on an already finished run.
func (s *ExecutionService) Cancel(ctx context.Context, id, userID string) (*execution.Execution, error) {
	if _, err := s.repo.GetByIDAndUser(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExecutionNotFound
		}
		return nil, err
	}

	err := s.repo.Finalize(ctx, id, execution.StatusFailed, "", execution.CancelledByUser)
	if errors.Is(err, repository.ErrAlreadyFinal) {
		return nil, ErrInvalidState
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("execution cancelled", "executionId", id)
	return s.repo.GetByIDAndUser(ctx, id, userID)
}

func (s *ExecutionService) Get(ctx context.Context, id, userID string) (*execution.Execution, error) {
	exec, err := s.repo.GetByIDAndUser(ctx, id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrExecutionNotFound
	}
	return exec, err
}

func (s *ExecutionService) List(ctx context.Context, filter repository.ExecutionFilter, pagination *database.Pagination) ([]*execution.Execution, error) {
	return s.repo.List(ctx, filter, pagination)
}

func (s *ExecutionService) Delete(ctx context.Context, id, userID string) error {
	err := s.repo.Delete(ctx, id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrExecutionNotFound
	}
	return err
}

// LogEntry is a synthesized log line derived from the record itself.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// Logs reconstructs a minimal timeline from the stored record. Per-node
// logs are not persisted; this mirrors what the record can prove.
func (s *ExecutionService) Logs(ctx context.Context, id, userID string) ([]LogEntry, error) {
	exec, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	entries := []LogEntry{{
		Timestamp: exec.StartedAt,
		Level:     "info",
		Message:   "Execution started",
	}}

	if exec.CompletedAt != nil {
		switch exec.Status {
		case execution.StatusCompleted:
			entries = append(entries, LogEntry{
				Timestamp: *exec.CompletedAt,
				Level:     "info",
				Message:   fmt.Sprintf("Execution completed (%s nodes)", exec.Progress),
			})
		case execution.StatusFailed:
			entries = append(entries, LogEntry{
				Timestamp: *exec.CompletedAt,
				Level:     "error",
				Message:   "Execution failed: " + exec.Error,
			})
		}
	}

	return entries, nil
}

// Cleanup removes terminal executions older than the retention window.
func (s *ExecutionService) Cleanup(ctx context.Context, retentionDays int) error {
	removed, err := s.repo.CleanupOlderThan(ctx, retentionDays)
	if err != nil {
		return fmt.Errorf("cleanup executions: %w", err)
	}
	if removed > 0 {
		s.logger.Info("cleaned up old executions", "removed", removed, "retentionDays", retentionDays)
	}
	return nil
}
