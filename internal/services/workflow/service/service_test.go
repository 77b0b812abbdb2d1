package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hookflow/hookflow/internal/domain/workflow"
	"github.com/hookflow/hookflow/internal/services/workflow/repository"
	"github.com/hookflow/hookflow/pkg/database"
	"github.com/hookflow/hookflow/pkg/logger"
)

type fakeRunner struct {
	workflowIDs []string
	executionID string
	err         error
}

func (f *fakeRunner) ExecuteWorkflowByID(ctx context.Context, workflowID, userID string, input map[string]interface{}) (string, error) {
	f.workflowIDs = append(f.workflowIDs, workflowID)
	return f.executionID, f.err
}

func setupService(t *testing.T) (*WorkflowService, *fakeRunner) {
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(&workflow.Workflow{}))

	runner := &fakeRunner{executionID: "ex-1"}
	repo := repository.NewWorkflowRepository(&database.DB{DB: gormDB})
	return NewWorkflowService(repo, runner, nil, logger.NewNop()), runner
}

func TestCreateWorkflow(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	wf, err := svc.Create(ctx, "user-1", CreateRequest{
		Title: "deploy alerts",
		Nodes: []workflow.Node{
			{ID: "s", Type: workflow.NodeTypeStart},
			{ID: "e", Type: workflow.NodeTypeEnd},
		},
		Connections: []workflow.Connection{{ID: "c1", Source: "s", Target: "e"}},
	})
	require.NoError(t, err)
	assert.True(t, wf.Enabled, "workflows are enabled by default")

	got, err := svc.Get(ctx, wf.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "deploy alerts", got.Title)
	assert.Len(t, got.Nodes, 2)
}

func TestCreateWorkflowRejectsBrokenGraph(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Create(context.Background(), "user-1", CreateRequest{
		Title:       "broken",
		Nodes:       []workflow.Node{{ID: "s", Type: workflow.NodeTypeStart}},
		Connections: []workflow.Connection{{ID: "c1", Source: "s", Target: "ghost"}},
	})
	assert.ErrorIs(t, err, ErrInvalidWorkflow)
}

func TestUpdateWorkflow(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	wf, err := svc.Create(ctx, "user-1", CreateRequest{Title: "v1"})
	require.NoError(t, err)

	title := "v2"
	enabled := false
	updated, err := svc.Update(ctx, wf.ID, "user-1", UpdateRequest{Title: &title, Enabled: &enabled})
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Title)
	assert.False(t, updated.Enabled)

	// Partial update keeps the rest.
	nodes := []workflow.Node{{ID: "s", Type: workflow.NodeTypeStart}}
	updated, err = svc.Update(ctx, wf.ID, "user-1", UpdateRequest{Nodes: &nodes})
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Title)
	assert.Len(t, updated.Nodes, 1)
}

func TestUpdateWorkflowRejectsMultipleStarts(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	wf, err := svc.Create(ctx, "user-1", CreateRequest{Title: "wf"})
	require.NoError(t, err)

	nodes := []workflow.Node{
		{ID: "a", Type: workflow.NodeTypeStart},
		{ID: "b", Type: workflow.NodeTypeStart},
	}
	_, err = svc.Update(ctx, wf.ID, "user-1", UpdateRequest{Nodes: &nodes})
	assert.ErrorIs(t, err, ErrInvalidWorkflow)
}

func TestOwnershipScoping(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	wf, err := svc.Create(ctx, "user-1", CreateRequest{Title: "mine"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, wf.ID, "user-2")
	assert.ErrorIs(t, err, ErrWorkflowNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, wf.ID, "user-2"), ErrWorkflowNotFound)

	list, err := svc.List(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestExecuteDelegatesToRunner(t *testing.T) {
	svc, runner := setupService(t)

	id, err := svc.Execute(context.Background(), "wf-1", "user-1", map[string]interface{}{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, "ex-1", id)
	assert.Equal(t, []string{"wf-1"}, runner.workflowIDs)
}
