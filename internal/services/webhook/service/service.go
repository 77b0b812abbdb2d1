package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hookflow/hookflow/internal/domain/webhook"
	"github.com/hookflow/hookflow/internal/domain/workflow"
	"github.com/hookflow/hookflow/internal/services/webhook/repository"
	wfrepo "github.com/hookflow/hookflow/internal/services/workflow/repository"
	"github.com/hookflow/hookflow/pkg/cache"
	"github.com/hookflow/hookflow/pkg/logger"
	"github.com/hookflow/hookflow/pkg/metrics"
)

var (
	ErrWebhookNotFound  = errors.New("webhook not found")
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrInvalidSecret    = errors.New("invalid webhook secret")
	ErrMethodNotAllowed = errors.New("method not allowed for this webhook")
)

// SecretHeader carries the shared secret on inbound trigger requests.
const SecretHeader = "X-Webhook-Secret"

// hookCacheTTL bounds how stale a cached trigger lookup can get.
const hookCacheTTL = 5 * time.Minute

// cachedHook is the cache representation of a webhook. The entity itself
// hides the secret from JSON, so it cannot round-trip through the cache.
type cachedHook struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Secret     string `json:"secret"`
	WorkflowID string `json:"workflowId"`
	UserID     string `json:"userId"`
}

// WorkflowStore verifies that the bound workflow exists and belongs to the
// caller before a hook is created.
type WorkflowStore interface {
	GetByIDAndUser(ctx context.Context, id, userID string) (*workflow.Workflow, error)
}

// Runner schedules a workflow execution; implemented by the dispatcher.
type Runner interface {
	ExecuteWorkflowByID(ctx context.Context, workflowID, userID string, input map[string]interface{}) (string, error)
}

type WebhookService struct {
	repo      *repository.WebhookRepository
	workflows WorkflowStore
	runner    Runner
	cache     cache.Cache // nil disables trigger lookup caching
	baseURL   string
	logger    logger.Logger
}

func NewWebhookService(repo *repository.WebhookRepository, workflows WorkflowStore, runner Runner, c cache.Cache, baseURL string, log logger.Logger) *WebhookService {
	return &WebhookService{
		repo:      repo,
		workflows: workflows,
		runner:    runner,
		cache:     c,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    log,
	}
}

type CreateRequest struct {
	Title      string `json:"title" binding:"required"`
	Method     string `json:"method"`
	WorkflowID string `json:"workflowId" binding:"required"`
	Secret     string `json:"secret"`
}

type UpdateRequest struct {
	Title  *string `json:"title"`
	Method *string `json:"method"`
	Secret *string `json:"secret"`
}

func (s *WebhookService) Create(ctx context.Context, userID string, req CreateRequest) (*webhook.Webhook, error) {
	if _, err := s.workflows.GetByIDAndUser(ctx, req.WorkflowID, userID); err != nil {
		if errors.Is(err, wfrepo.ErrNotFound) {
			return nil, ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("verify workflow: %w", err)
	}

	hook := webhook.New(req.Title, req.Method, req.WorkflowID, userID, req.Secret)
	if err := s.repo.Create(ctx, hook); err != nil {
		return nil, fmt.Errorf("create webhook: %w", err)
	}
	s.logger.Info("webhook created", "webhookId", hook.ID, "workflowId", hook.WorkflowID)
	return hook, nil
}

func (s *WebhookService) Update(ctx context.Context, id, userID string, req UpdateRequest) (*webhook.Webhook, error) {
	hook, err := s.repo.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, s.mapNotFound(err)
	}

	if req.Title != nil {
		hook.Title = *req.Title
	}
	if req.Method != nil {
		hook.Method = strings.ToUpper(*req.Method)
	}
	if req.Secret != nil {
		hook.Secret = *req.Secret
	}

	if err := s.repo.Update(ctx, hook); err != nil {
		return nil, fmt.Errorf("update webhook: %w", err)
	}
	s.evict(ctx, hook)
	return hook, nil
}

func (s *WebhookService) Get(ctx context.Context, id, userID string) (*webhook.Webhook, error) {
	hook, err := s.repo.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, s.mapNotFound(err)
	}
	return hook, nil
}

func (s *WebhookService) List(ctx context.Context, userID string) ([]*webhook.Webhook, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *WebhookService) Delete(ctx context.Context, id, userID string) error {
	hook, err := s.repo.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return s.mapNotFound(err)
	}
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return s.mapNotFound(err)
	}
	s.evict(ctx, hook)
	return nil
}

// FullURL is the absolute address external systems call.
func (s *WebhookService) FullURL(hook *webhook.Webhook) string {
	return s.baseURL + hook.Path
}

// Handle processes an inbound trigger request and schedules the bound
// workflow. The request becomes the execution's input payload.
func (s *WebhookService) Handle(ctx context.Context, pathID, method string, headers map[string]string, body map[string]interface{}) (string, error) {
	hook, err := s.lookupHook(ctx, pathID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.WebhookDeliveries.WithLabelValues("not_found").Inc()
			return "", ErrWebhookNotFound
		}
		return "", err
	}

	if hook.Secret != "" && headers[SecretHeader] != hook.Secret {
		metrics.WebhookDeliveries.WithLabelValues("rejected").Inc()
		return "", ErrInvalidSecret
	}
	if !hook.AcceptsMethod(method) {
		metrics.WebhookDeliveries.WithLabelValues("rejected").Inc()
		return "", ErrMethodNotAllowed
	}

	input := map[string]interface{}{
		"method":    strings.ToUpper(method),
		"headers":   headers,
		"body":      body,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	executionID, err := s.runner.ExecuteWorkflowByID(ctx, hook.WorkflowID, hook.UserID, input)
	if err != nil {
		metrics.WebhookDeliveries.WithLabelValues("failed").Inc()
		return "", err
	}

	metrics.WebhookDeliveries.WithLabelValues("accepted").Inc()
	s.logger.Info("webhook delivered", "webhookId", hook.ID, "executionId", executionID)
	return executionID, nil
}

// lookupHook is the hot path of every trigger request; it goes through the
// cache when one is configured.
func (s *WebhookService) lookupHook(ctx context.Context, pathID string) (*webhook.Webhook, error) {
	if s.cache != nil {
		var cached cachedHook
		if err := s.cache.Get(ctx, hookCacheKey(pathID), &cached); err == nil {
			return &webhook.Webhook{
				ID:         cached.ID,
				Title:      cached.Title,
				Method:     cached.Method,
				Path:       cached.Path,
				Secret:     cached.Secret,
				WorkflowID: cached.WorkflowID,
				UserID:     cached.UserID,
			}, nil
		}
	}

	hook, err := s.repo.GetByPathID(ctx, pathID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		entry := cachedHook{
			ID:         hook.ID,
			Title:      hook.Title,
			Method:     hook.Method,
			Path:       hook.Path,
			Secret:     hook.Secret,
			WorkflowID: hook.WorkflowID,
			UserID:     hook.UserID,
		}
		if err := s.cache.Set(ctx, hookCacheKey(pathID), entry, hookCacheTTL); err != nil {
			s.logger.Warn("failed to cache webhook lookup", "pathId", pathID, "error", err)
		}
	}
	return hook, nil
}

func (s *WebhookService) evict(ctx context.Context, hook *webhook.Webhook) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, hookCacheKey(hook.PathID())); err != nil {
		s.logger.Warn("failed to evict webhook cache entry", "webhookId", hook.ID, "error", err)
	}
}

func hookCacheKey(pathID string) string {
	return "webhook:path:" + pathID
}

func (s *WebhookService) mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrWebhookNotFound
	}
	return err
}
