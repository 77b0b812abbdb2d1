package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hookflow/hookflow/internal/domain/execution"
	"github.com/hookflow/hookflow/internal/services/executor/dispatcher"
	"github.com/hookflow/hookflow/internal/services/workflow/service"
	"github.com/hookflow/hookflow/pkg/logger"
)

// ExecutionGetter fetches the record created by a manual trigger so the
// response can carry its real status.
type ExecutionGetter interface {
	Get(ctx context.Context, id, userID string) (*execution.Execution, error)
}

type WorkflowHandlers struct {
	service    *service.WorkflowService
	executions ExecutionGetter
	logger     logger.Logger
}

func NewWorkflowHandlers(svc *service.WorkflowService, executions ExecutionGetter, log logger.Logger) *WorkflowHandlers {
	return &WorkflowHandlers{service: svc, executions: executions, logger: log}
}

func (h *WorkflowHandlers) Create(c *gin.Context) {
	var req service.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wf, err := h.service.Create(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"workflow": wf})
}

func (h *WorkflowHandlers) List(c *gin.Context) {
	wfs, err := h.service.List(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflows": wfs})
}

func (h *WorkflowHandlers) Get(c *gin.Context) {
	wf, err := h.service.Get(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflow": wf})
}

func (h *WorkflowHandlers) Update(c *gin.Context) {
	var req service.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wf, err := h.service.Update(c.Request.Context(), c.Param("id"), c.GetString("userID"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflow": wf})
}

func (h *WorkflowHandlers) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), c.GetString("userID")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Execute triggers a manual run. The run itself is asynchronous; the
// response carries the execution record to poll.
func (h *WorkflowHandlers) Execute(c *gin.Context) {
	var req struct {
		Data map[string]interface{} `json:"data"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	userID := c.GetString("userID")
	id, err := h.service.Execute(c.Request.Context(), c.Param("id"), userID, req.Data)
	if err != nil {
		h.fail(c, err)
		return
	}

	exec, err := h.executions.Get(c.Request.Context(), id, userID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"execution": gin.H{
		"id":        exec.ID,
		"status":    exec.Status,
		"startedAt": exec.StartedAt,
	}})
}

func (h *WorkflowHandlers) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrWorkflowNotFound), errors.Is(err, dispatcher.ErrWorkflowNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "workflow not found"})
	case errors.Is(err, service.ErrInvalidWorkflow):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, dispatcher.ErrWorkflowDisabled):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("workflow request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
