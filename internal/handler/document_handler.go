package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medscribe/clinrag/internal/model"
	"github.com/medscribe/clinrag/internal/pkg/response"
	"github.com/medscribe/clinrag/internal/service"
)

type DocumentHandler struct {
	documents *service.DocumentService
}

func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

type uploadRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Upload accepts either a multipart form with a "file" field or a JSON body
// with name and content. The document ID is optional and derives from the
// name when absent.
func (h *DocumentHandler) Upload(c *gin.Context) {
	id, name, content, ok := h.readUpload(c)
	if !ok {
		return
	}
	doc, err := h.documents.Upload(c.Request.Context(), id, name, content)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) readUpload(c *gin.Context) (string, string, []byte, bool) {
	if fh, err := c.FormFile("file"); err == nil {
		file, err := fh.Open()
		if err != nil {
			response.Error(c, http.StatusBadRequest, "invalid", "unreadable upload")
			return "", "", nil, false
		}
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "invalid", "unreadable upload")
			return "", "", nil, false
		}
		return c.PostForm("id"), fh.Filename, content, true
	}
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "invalid request body")
		return "", "", nil, false
	}
	return req.ID, req.Name, []byte(req.Content), true
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documents.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	if docs == nil {
		docs = []model.Document{}
	}
	response.Success(c, docs)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.documents.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *DocumentHandler) Clear(c *gin.Context) {
	if err := h.documents.Clear(c.Request.Context()); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
