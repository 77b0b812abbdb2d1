package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hookflow/hookflow/internal/services/credential/service"
	"github.com/hookflow/hookflow/pkg/logger"
)

type CredentialHandlers struct {
	service *service.CredentialService
	logger  logger.Logger
}

func NewCredentialHandlers(svc *service.CredentialService, log logger.Logger) *CredentialHandlers {
	return &CredentialHandlers{service: svc, logger: log}
}

func (h *CredentialHandlers) Create(c *gin.Context) {
	var req service.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cred, err := h.service.Create(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"credential": cred})
}

func (h *CredentialHandlers) List(c *gin.Context) {
	creds, err := h.service.List(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credentials": creds})
}

func (h *CredentialHandlers) Get(c *gin.Context) {
	cred, err := h.service.Get(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credential": cred})
}

func (h *CredentialHandlers) Update(c *gin.Context) {
	var req service.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cred, err := h.service.Update(c.Request.Context(), c.Param("id"), c.GetString("userID"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credential": cred})
}

func (h *CredentialHandlers) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), c.GetString("userID")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Test probes the stored secret against its provider.
func (h *CredentialHandlers) Test(c *gin.Context) {
	res, err := h.service.Test(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *CredentialHandlers) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCredentialNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "credential not found"})
	case errors.Is(err, service.ErrInvalidCredential):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("credential request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
