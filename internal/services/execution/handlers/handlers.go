package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hookflow/hookflow/internal/services/execution/repository"
	"github.com/hookflow/hookflow/internal/services/execution/service"
	"github.com/hookflow/hookflow/pkg/database"
	"github.com/hookflow/hookflow/pkg/logger"
)

type ExecutionHandlers struct {
	service *service.ExecutionService
	logger  logger.Logger
}

func NewExecutionHandlers(svc *service.ExecutionService, log logger.Logger) *ExecutionHandlers {
	return &ExecutionHandlers{service: svc, logger: log}
}

func (h *ExecutionHandlers) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	pagination := &database.Pagination{Page: page, Limit: limit}

	filter := repository.ExecutionFilter{
		UserID:     c.GetString("userID"),
		WorkflowID: c.Query("workflowId"),
		Status:     c.Query("status"),
	}

	execs, err := h.service.List(c.Request.Context(), filter, pagination)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"executions": execs, "pagination": pagination})
}

func (h *ExecutionHandlers) Get(c *gin.Context) {
	exec, err := h.service.Get(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"execution": exec})
}

func (h *ExecutionHandlers) Cancel(c *gin.Context) {
	exec, err := h.service.Cancel(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"execution": exec})
}

func (h *ExecutionHandlers) Logs(c *gin.Context) {
	logs, err := h.service.Logs(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

func (h *ExecutionHandlers) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), c.GetString("userID")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ExecutionHandlers) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExecutionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "execution not found"})
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("execution request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
