package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hookflow/hookflow/internal/domain/webhook"
	"github.com/hookflow/hookflow/internal/domain/workflow"
	"github.com/hookflow/hookflow/internal/services/webhook/repository"
	wfrepo "github.com/hookflow/hookflow/internal/services/workflow/repository"
	"github.com/hookflow/hookflow/pkg/cache"
	"github.com/hookflow/hookflow/pkg/database"
	"github.com/hookflow/hookflow/pkg/logger"
)

type fakeRunner struct {
	workflowIDs []string
	userIDs     []string
	inputs      []map[string]interface{}
	executionID string
	err         error
}

func (f *fakeRunner) ExecuteWorkflowByID(ctx context.Context, workflowID, userID string, input map[string]interface{}) (string, error) {
	f.workflowIDs = append(f.workflowIDs, workflowID)
	f.userIDs = append(f.userIDs, userID)
	f.inputs = append(f.inputs, input)
	return f.executionID, f.err
}

func setupService(t *testing.T) (*WebhookService, *fakeRunner, *wfrepo.WorkflowRepository) {
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(&webhook.Webhook{}, &workflow.Workflow{}))

	db := &database.DB{DB: gormDB}
	workflows := wfrepo.NewWorkflowRepository(db)
	runner := &fakeRunner{executionID: "ex-1"}
	svc := NewWebhookService(repository.NewWebhookRepository(db), workflows, runner, nil, "https://hooks.example.com/", logger.NewNop())
	return svc, runner, workflows
}

func createWorkflow(t *testing.T, workflows *wfrepo.WorkflowRepository, userID string) *workflow.Workflow {
	t.Helper()
	wf := workflow.New("wf", userID, nil, nil)
	require.NoError(t, workflows.Create(context.Background(), wf))
	return wf
}

func TestCreateWebhook(t *testing.T) {
	svc, _, workflows := setupService(t)
	ctx := context.Background()
	wf := createWorkflow(t, workflows, "user-1")

	hook, err := svc.Create(ctx, "user-1", CreateRequest{Title: "ci hook", WorkflowID: wf.ID})
	require.NoError(t, err)
	assert.Equal(t, "POST", hook.Method, "method defaults to POST")
	assert.Contains(t, hook.Path, "/webhook/handler/")
	assert.Equal(t, "https://hooks.example.com"+hook.Path, svc.FullURL(hook))
}

func TestCreateWebhookRequiresOwnedWorkflow(t *testing.T) {
	svc, _, workflows := setupService(t)
	wf := createWorkflow(t, workflows, "user-1")

	_, err := svc.Create(context.Background(), "user-2", CreateRequest{Title: "x", WorkflowID: wf.ID})
	assert.ErrorIs(t, err, ErrWorkflowNotFound)

	_, err = svc.Create(context.Background(), "user-1", CreateRequest{Title: "x", WorkflowID: "ghost"})
	assert.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestHandleTriggersWorkflow(t *testing.T) {
	svc, runner, workflows := setupService(t)
	ctx := context.Background()
	wf := createWorkflow(t, workflows, "user-1")

	hook, err := svc.Create(ctx, "user-1", CreateRequest{Title: "ci hook", WorkflowID: wf.ID})
	require.NoError(t, err)

	body := map[string]interface{}{"ref": "main"}
	id, err := svc.Handle(ctx, hook.PathID(), "post", map[string]string{"Content-Type": "application/json"}, body)
	require.NoError(t, err)
	assert.Equal(t, "ex-1", id)

	require.Len(t, runner.inputs, 1)
	assert.Equal(t, wf.ID, runner.workflowIDs[0])
	assert.Equal(t, "user-1", runner.userIDs[0], "runs as the hook owner")

	input := runner.inputs[0]
	assert.Equal(t, "POST", input["method"])
	assert.Equal(t, body, input["body"])
	assert.NotEmpty(t, input["timestamp"])
}

func TestHandleUnknownPath(t *testing.T) {
	svc, _, _ := setupService(t)

	_, err := svc.Handle(context.Background(), "ghost", "POST", nil, nil)
	assert.ErrorIs(t, err, ErrWebhookNotFound)
}

func TestHandleSecretMismatch(t *testing.T) {
	svc, runner, workflows := setupService(t)
	ctx := context.Background()
	wf := createWorkflow(t, workflows, "user-1")

	hook, err := svc.Create(ctx, "user-1", CreateRequest{Title: "locked", WorkflowID: wf.ID, Secret: "s3cret"})
	require.NoError(t, err)

	_, err = svc.Handle(ctx, hook.PathID(), "POST", map[string]string{SecretHeader: "wrong"}, nil)
	assert.ErrorIs(t, err, ErrInvalidSecret)

	_, err = svc.Handle(ctx, hook.PathID(), "POST", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidSecret)

	id, err := svc.Handle(ctx, hook.PathID(), "POST", map[string]string{SecretHeader: "s3cret"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ex-1", id)
	assert.Len(t, runner.inputs, 1, "only the matching request reaches the runner")
}

func TestHandleMethodMismatch(t *testing.T) {
	svc, _, workflows := setupService(t)
	ctx := context.Background()
	wf := createWorkflow(t, workflows, "user-1")

	hook, err := svc.Create(ctx, "user-1", CreateRequest{Title: "get hook", Method: "GET", WorkflowID: wf.ID})
	require.NoError(t, err)

	_, err = svc.Handle(ctx, hook.PathID(), "POST", nil, nil)
	assert.ErrorIs(t, err, ErrMethodNotAllowed)
}

func TestUpdateWebhook(t *testing.T) {
	svc, _, workflows := setupService(t)
	ctx := context.Background()
	wf := createWorkflow(t, workflows, "user-1")

	hook, err := svc.Create(ctx, "user-1", CreateRequest{Title: "v1", WorkflowID: wf.ID})
	require.NoError(t, err)

	method := "put"
	updated, err := svc.Update(ctx, hook.ID, "user-1", UpdateRequest{Method: &method})
	require.NoError(t, err)
	assert.Equal(t, "PUT", updated.Method)
	assert.Equal(t, hook.Path, updated.Path, "path never changes")
}

func TestHandleUsesCacheAndEvictsOnUpdate(t *testing.T) {
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(&webhook.Webhook{}, &workflow.Workflow{}))

	mr := miniredis.RunT(t)
	hookCache := cache.NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")

	db := &database.DB{DB: gormDB}
	workflows := wfrepo.NewWorkflowRepository(db)
	runner := &fakeRunner{executionID: "ex-1"}
	svc := NewWebhookService(repository.NewWebhookRepository(db), workflows, runner, hookCache, "https://hooks.example.com", logger.NewNop())

	ctx := context.Background()
	wf := createWorkflow(t, workflows, "user-1")
	hook, err := svc.Create(ctx, "user-1", CreateRequest{Title: "cached", WorkflowID: wf.ID, Secret: "s3cret"})
	require.NoError(t, err)

	// First delivery populates the cache, second is served from it. The
	// secret must survive the round trip.
	for i := 0; i < 2; i++ {
		_, err := svc.Handle(ctx, hook.PathID(), "POST", map[string]string{SecretHeader: "s3cret"}, nil)
		require.NoError(t, err)
	}
	assert.Len(t, runner.inputs, 2)

	// Rotating the secret evicts the entry; the old secret stops working
	// immediately.
	secret := "rotated"
	_, err = svc.Update(ctx, hook.ID, "user-1", UpdateRequest{Secret: &secret})
	require.NoError(t, err)

	_, err = svc.Handle(ctx, hook.PathID(), "POST", map[string]string{SecretHeader: "s3cret"}, nil)
	assert.ErrorIs(t, err, ErrInvalidSecret)

	_, err = svc.Handle(ctx, hook.PathID(), "POST", map[string]string{SecretHeader: "rotated"}, nil)
	assert.NoError(t, err)
}

func TestOwnershipScoping(t *testing.T) {
	svc, _, workflows := setupService(t)
	ctx := context.Background()
	wf := createWorkflow(t, workflows, "user-1")

	hook, err := svc.Create(ctx, "user-1", CreateRequest{Title: "mine", WorkflowID: wf.ID})
	require.NoError(t, err)

	_, err = svc.Get(ctx, hook.ID, "user-2")
	assert.ErrorIs(t, err, ErrWebhookNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, hook.ID, "user-2"), ErrWebhookNotFound)
}
