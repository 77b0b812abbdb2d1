package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hookflow/hookflow/internal/domain/execution"
	"github.com/hookflow/hookflow/pkg/database"
)

var (
	ErrNotFound = errors.New("execution not found")

	// ErrAlreadyFinal is returned when a transition targets a record that
	// already reached a terminal state. Terminal records never change again.
	ErrAlreadyFinal = errors.New("execution already in a terminal state")

	// ErrNotPending is returned by MarkRunning when the record left the
	// pending state, e.g. a cancel won the race before the worker started.
	ErrNotPending = errors.New("execution is not pending")
)

type ExecutionRepository struct {
	db *database.DB
}

func NewExecutionRepository(db *database.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

func (r *ExecutionRepository) Create(ctx context.Context, exec *execution.Execution) error {
	return r.db.WithContext(ctx).Create(exec).Error
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*execution.Execution, error) {
	var exec execution.Execution
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&exec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &exec, nil
}

func (r *ExecutionRepository) GetByIDAndUser(ctx context.Context, id, userID string) (*execution.Execution, error) {
	var exec execution.Execution
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&exec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &exec, nil
}

// MarkRunning flips pending to running. The status predicate in the UPDATE
// makes the transition atomic: whichever of worker and cancel commits first
// wins, the loser sees zero rows.
func (r *ExecutionRepository) MarkRunning(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&execution.Execution{}).
		Where("id = ? AND status = ?", id, execution.StatusPending).
		Update("status", execution.StatusRunning)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrNotPending
	}
	return nil
}

// Finalize moves a record into a terminal state. Progress is only written
// when non-empty so cancellation keeps the counter the run last reported.
func (r *ExecutionRepository) Finalize(ctx context.Context, id, status, progress, errMsg string) error {
	if status != execution.StatusCompleted && status != execution.StatusFailed {
		return fmt.Errorf("finalize with non-terminal status %q", status)
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":       status,
		"error":        errMsg,
		"completed_at": &now,
	}
	if progress != "" {
		updates["tasks_done"] = progress
	}

	res := r.db.WithContext(ctx).Model(&execution.Execution{}).
		Where("id = ? AND status NOT IN ?", id, []string{execution.StatusCompleted, execution.StatusFailed}).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyFinal
	}
	return nil
}

type ExecutionFilter struct {
	UserID     string
	WorkflowID string
	Status     string
}

func (r *ExecutionRepository) List(ctx context.Context, filter ExecutionFilter, pagination *database.Pagination) ([]*execution.Execution, error) {
	pagination.Normalize()

	query := r.db.WithContext(ctx).Model(&execution.Execution{}).
		Where("user_id = ?", filter.UserID)
	if filter.WorkflowID != "" {
		query = query.Where("workflow_id = ?", filter.WorkflowID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	pagination.SetTotal(total)

	var executions []*execution.Execution
	err := query.
		Order("started_at DESC").
		Limit(pagination.Limit).
		Offset(pagination.Offset()).
		Find(&executions).Error
	return executions, err
}

func (r *ExecutionRepository) Delete(ctx context.Context, id, userID string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&execution.Execution{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CleanupOlderThan removes terminal records past the retention window.
// Pending and running records are kept regardless of age.
func (r *ExecutionRepository) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	res := r.db.WithContext(ctx).
		Where("started_at < ? AND status IN ?", cutoff, []string{execution.StatusCompleted, execution.StatusFailed}).
		Delete(&execution.Execution{})
	return res.RowsAffected, res.Error
}
