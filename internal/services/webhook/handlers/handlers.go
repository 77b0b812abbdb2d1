package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hookflow/hookflow/internal/domain/execution"
	"github.com/hookflow/hookflow/internal/domain/webhook"
	"github.com/hookflow/hookflow/internal/services/executor/dispatcher"
	"github.com/hookflow/hookflow/internal/services/webhook/service"
	"github.com/hookflow/hookflow/pkg/logger"
)

type WebhookHandlers struct {
	service *service.WebhookService
	logger  logger.Logger
}

func NewWebhookHandlers(svc *service.WebhookService, log logger.Logger) *WebhookHandlers {
	return &WebhookHandlers{service: svc, logger: log}
}

func (h *WebhookHandlers) Create(c *gin.Context) {
	var req service.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hook, err := h.service.Create(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"webhook": h.view(hook)})
}

func (h *WebhookHandlers) List(c *gin.Context) {
	hooks, err := h.service.List(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	views := make([]gin.H, 0, len(hooks))
	for _, hook := range hooks {
		views = append(views, h.view(hook))
	}
	c.JSON(http.StatusOK, gin.H{"webhooks": views})
}

func (h *WebhookHandlers) Get(c *gin.Context) {
	hook, err := h.service.Get(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"webhook": h.view(hook)})
}

func (h *WebhookHandlers) Update(c *gin.Context) {
	var req service.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hook, err := h.service.Update(c.Request.Context(), c.Param("id"), c.GetString("userID"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"webhook": h.view(hook)})
}

func (h *WebhookHandlers) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), c.GetString("userID")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Handle is the public, unauthenticated trigger endpoint.
func (h *WebhookHandlers) Handle(c *gin.Context) {
	headers := make(map[string]string, len(c.Request.Header))
	for name := range c.Request.Header {
		headers[name] = c.GetHeader(name)
	}

	var body map[string]interface{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
	}

	executionID, err := h.service.Handle(c.Request.Context(), c.Param("id"), c.Request.Method, headers, body)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWebhookNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "webhook not found"})
		case errors.Is(err, service.ErrInvalidSecret):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
		case errors.Is(err, service.ErrMethodNotAllowed):
			c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
		case errors.Is(err, dispatcher.ErrWorkflowDisabled):
			c.JSON(http.StatusBadRequest, gin.H{"error": "workflow is disabled"})
		case errors.Is(err, dispatcher.ErrWorkflowNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "workflow not found"})
		default:
			h.logger.Error("webhook delivery failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"executionId": executionID,
		"status":      execution.StatusPending,
	})
}

func (h *WebhookHandlers) view(hook *webhook.Webhook) gin.H {
	return gin.H{
		"id":         hook.ID,
		"title":      hook.Title,
		"method":     hook.Method,
		"path":       hook.Path,
		"fullUrl":    h.service.FullURL(hook),
		"workflowId": hook.WorkflowID,
		"createdAt":  hook.CreatedAt,
		"updatedAt":  hook.UpdatedAt,
	}
}

func (h *WebhookHandlers) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrWebhookNotFound), errors.Is(err, service.ErrWorkflowNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.Error("webhook request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
