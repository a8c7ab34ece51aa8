package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/medscribe/clinrag/internal/pkg/response"
	"github.com/medscribe/clinrag/internal/service"
)

type StatusHandler struct {
	documents *service.DocumentService
}

func NewStatusHandler(documents *service.DocumentService) *StatusHandler {
	return &StatusHandler{documents: documents}
}

func (h *StatusHandler) Status(c *gin.Context) {
	response.Success(c, h.documents.Status(c.Request.Context()))
}

func (h *StatusHandler) Health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
