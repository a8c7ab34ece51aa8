package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestRequestIDEchoesCallerID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest("GET", "/api/v1/status", nil)
	c.Request.Header.Set(HeaderRequestID, "caller-id-1")

	RequestID()(c)

	require.Equal(t, "caller-id-1", rec.Header().Get(HeaderRequestID))
	got, ok := c.Get(ContextRequestIDKey)
	require.True(t, ok)
	require.Equal(t, "caller-id-1", got)
}

func TestRequestIDMintsWhenMissingOrOversize(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest("GET", "/api/v1/status", nil)
	RequestID()(c)
	minted := rec.Header().Get(HeaderRequestID)
	require.Len(t, minted, 32)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest("GET", "/api/v1/status", nil)
	c.Request.Header.Set(HeaderRequestID, strings.Repeat("x", maxRequestIDLen+1))
	RequestID()(c)
	require.Len(t, rec.Header().Get(HeaderRequestID), 32)
}
