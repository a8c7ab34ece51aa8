package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appErr "github.com/medscribe/clinrag/internal/pkg/errors"
	"github.com/medscribe/clinrag/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, http.StatusBadRequest, "invalid", err.Error())
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, appErr.ErrIndexNotReady):
		response.Error(c, http.StatusServiceUnavailable, "index_not_ready", "index not ready")
	case errors.Is(err, appErr.ErrUnavailable):
		response.Error(c, http.StatusServiceUnavailable, "service_unavailable", "service unavailable")
	case errors.Is(err, appErr.ErrGenerateFailed):
		response.Error(c, http.StatusBadGateway, "generation_failed", "generation failed")
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, http.StatusTooManyRequests, "too_many_requests", "too many requests")
	default:
		response.Error(c, http.StatusInternalServerError, "internal", "internal error")
	}
}
