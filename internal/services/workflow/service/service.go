package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/hookflow/hookflow/internal/domain/workflow"
	"github.com/hookflow/hookflow/internal/services/workflow/repository"
	"github.com/hookflow/hookflow/pkg/events"
	"github.com/hookflow/hookflow/pkg/logger"
)

var (
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrInvalidWorkflow  = errors.New("invalid workflow")
)

// Runner triggers a run of a stored workflow; implemented by the
// execution dispatcher.
type Runner interface {
	ExecuteWorkflowByID(ctx context.Context, workflowID, userID string, input map[string]interface{}) (string, error)
}

type WorkflowService struct {
	repo   *repository.WorkflowRepository
	runner Runner
	bus    events.EventBus // nil when kafka is disabled
	logger logger.Logger
}

func NewWorkflowService(repo *repository.WorkflowRepository, runner Runner, bus events.EventBus, log logger.Logger) *WorkflowService {
	return &WorkflowService{repo: repo, runner: runner, bus: bus, logger: log}
}

type CreateRequest struct {
	Title       string                `json:"title" binding:"required"`
	Nodes       []workflow.Node       `json:"nodes"`
	Connections []workflow.Connection `json:"connections"`
}

type UpdateRequest struct {
	Title       *string                `json:"title"`
	Enabled     *bool                  `json:"enabled"`
	Nodes       *[]workflow.Node       `json:"nodes"`
	Connections *[]workflow.Connection `json:"connections"`
}

func (s *WorkflowService) Create(ctx context.Context, userID string, req CreateRequest) (*workflow.Workflow, error) {
	wf := workflow.New(req.Title, userID, req.Nodes, req.Connections)
	if err := wf.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWorkflow, err)
	}

	if err := s.repo.Create(ctx, wf); err != nil {
		return nil, fmt.Errorf("create workflow: %w", err)
	}

	s.publish(ctx, events.WorkflowCreated, wf)
	s.logger.Info("workflow created", "workflowId", wf.ID, "userId", userID)
	return wf, nil
}

func (s *WorkflowService) Update(ctx context.Context, id, userID string, req UpdateRequest) (*workflow.Workflow, error) {
	wf, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		wf.Title = *req.Title
	}
	if req.Enabled != nil {
		wf.Enabled = *req.Enabled
	}
	if req.Nodes != nil {
		wf.Nodes = *req.Nodes
	}
	if req.Connections != nil {
		wf.Connections = *req.Connections
	}

	if err := wf.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWorkflow, err)
	}

	if err := s.repo.Update(ctx, wf); err != nil {
		return nil, fmt.Errorf("update workflow: %w", err)
	}

	s.publish(ctx, events.WorkflowUpdated, wf)
	return wf, nil
}

func (s *WorkflowService) Get(ctx context.Context, id, userID string) (*workflow.Workflow, error) {
	wf, err := s.repo.GetByIDAndUser(ctx, id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrWorkflowNotFound
	}
	return wf, err
}

func (s *WorkflowService) List(ctx context.Context, userID string) ([]*workflow.Workflow, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *WorkflowService) Delete(ctx context.Context, id, userID string) error {
	err := s.repo.Delete(ctx, id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrWorkflowNotFound
	}
	if err != nil {
		return err
	}
	s.publish(ctx, events.WorkflowDeleted, &workflow.Workflow{ID: id, UserID: userID})
	return nil
}

// Execute hands the workflow to the dispatcher and returns the new
// execution id. Dispatcher errors pass through untranslated; handlers map
// them to statuses.
func (s *WorkflowService) Execute(ctx context.Context, id, userID string, input map[string]interface{}) (string, error) {
	return s.runner.ExecuteWorkflowByID(ctx, id, userID, input)
}

func (s *WorkflowService) publish(ctx context.Context, eventType string, wf *workflow.Workflow) {
	if s.bus == nil {
		return
	}
	ev := events.Event{
		Type:        eventType,
		AggregateID: wf.ID,
		UserID:      wf.UserID,
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish workflow event", "type", eventType, "error", err)
	}
}
