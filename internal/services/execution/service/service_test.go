package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hookflow/hookflow/internal/domain/execution"
	"github.com/hookflow/hookflow/internal/services/execution/repository"
	"github.com/hookflow/hookflow/pkg/database"
	"github.com/hookflow/hookflow/pkg/logger"
)

func setupService(t *testing.T) *ExecutionService {
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(&execution.Execution{}))

	repo := repository.NewExecutionRepository(&database.DB{DB: gormDB})
	return NewExecutionService(repo, logger.NewNop())
}

func TestLifecycleHappyPath(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	exec, err := svc.Create(ctx, "wf-1", "user-1", nil)
	require.NoError(t, err)
	assert.Equal(t, execution.StatusPending, exec.Status)

	require.NoError(t, svc.MarkRunning(ctx, exec.ID))
	require.NoError(t, svc.MarkCompleted(ctx, exec.ID, 3, 4))

	got, err := svc.Get(ctx, exec.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, execution.StatusCompleted, got.Status)
	assert.Equal(t, "3/4", got.Progress)
	assert.NotNil(t, got.CompletedAt)
}

func TestCancelPendingExecution(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	exec, err := svc.Create(ctx, "wf-1", "user-1", nil)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, exec.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, execution.StatusFailed, cancelled.Status)
	assert.Equal(t, execution.CancelledByUser, cancelled.Error)
	assert.NotNil(t, cancelled.CompletedAt)

	// The worker that picks the task up later must not run it.
	assert.ErrorIs(t, svc.MarkRunning(ctx, exec.ID), ErrInvalidState)
}

func TestCancelTerminalExecutionRejected(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	exec, err := svc.Create(ctx, "wf-1", "user-1", nil)
	require.NoError(t, err)
	require.NoError(t, svc.MarkRunning(ctx, exec.ID))
	require.NoError(t, svc.MarkCompleted(ctx, exec.ID, 2, 2))

	_, err = svc.Cancel(ctx, exec.ID, "user-1")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestLateFinalizationAfterCancelIsNoOp(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	exec, err := svc.Create(ctx, "wf-1", "user-1", nil)
	require.NoError(t, err)
	require.NoError(t, svc.MarkRunning(ctx, exec.ID))

	_, err = svc.Cancel(ctx, exec.ID, "user-1")
	require.NoError(t, err)

	// Worker finishes the traversal after the cancel won; both finalizers
	// must leave the cancelled state untouched.
	require.NoError(t, svc.MarkCompleted(ctx, exec.ID, 5, 5))
	require.NoError(t, svc.MarkFailed(ctx, exec.ID, "node x: boom"))

	got, err := svc.Get(ctx, exec.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, execution.StatusFailed, got.Status)
	assert.Equal(t, execution.CancelledByUser, got.Error)
}

func TestCancelUnknownOrForeignExecution(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.Cancel(ctx, "missing", "user-1")
	assert.ErrorIs(t, err, ErrExecutionNotFound)

	exec, err := svc.Create(ctx, "wf-1", "user-1", nil)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, exec.ID, "intruder")
	assert.ErrorIs(t, err, ErrExecutionNotFound)
}

func TestLogsSynthesized(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	exec, err := svc.Create(ctx, "wf-1", "user-1", nil)
	require.NoError(t, err)

	logs, err := svc.Logs(ctx, exec.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "Execution started", logs[0].Message)

	require.NoError(t, svc.MarkRunning(ctx, exec.ID))
	require.NoError(t, svc.MarkFailed(ctx, exec.ID, "node n2 (email): no email credentials"))

	logs, err = svc.Logs(ctx, exec.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "error", logs[1].Level)
	assert.Contains(t, logs[1].Message, "no email credentials")
}
