package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/medscribe/clinrag/internal/pkg/response"
	"github.com/medscribe/clinrag/internal/service"
)

type AskHandler struct {
	answers *service.AnswerService
}

func NewAskHandler(answers *service.AnswerService) *AskHandler {
	return &AskHandler{answers: answers}
}

func (h *AskHandler) Ask(c *gin.Context) {
	var req service.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "invalid request body")
		return
	}
	if req.Stream || c.Query("stream") == "1" || c.Query("stream") == "true" {
		h.askStream(c, &req)
		return
	}
	res, err := h.answers.Ask(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

// askStream answers over SSE. Errors before the first delta map to the usual
// JSON envelope; once streaming has started they become a final error event.
func (h *AskHandler) askStream(c *gin.Context, req *service.AskRequest) {
	ctx := c.Request.Context()
	started := false
	matches, err := h.answers.AskStream(ctx, req, func(delta string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !started {
			started = true
			c.Header("Content-Type", "text/event-stream")
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
		}
		c.SSEvent("delta", delta)
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		if !started {
			handleError(c, err)
			return
		}
		logutil.GetLogger(ctx).Error("stream aborted", zap.Error(err))
		c.SSEvent("error", gin.H{"code": "stream_failed"})
		c.Writer.Flush()
		return
	}
	if !started {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
	}
	c.SSEvent("done", gin.H{"chunk_count": len(matches)})
	c.Writer.Flush()
}
