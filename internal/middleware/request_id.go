package middleware

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/gin-gonic/gin"
)

const (
	HeaderRequestID     = "X-Request-Id"
	ContextRequestIDKey = "request_id"

	// caller-supplied ids longer than this are replaced, they are most
	// likely garbage or abuse
	maxRequestIDLen = 64
)

// RequestID echoes a caller-supplied request id or mints one, so that
// answers and their log lines can be correlated across the pipeline.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(HeaderRequestID)
		if reqID == "" || len(reqID) > maxRequestIDLen {
			reqID = newRequestID()
		}
		c.Writer.Header().Set(HeaderRequestID, reqID)
		c.Set(ContextRequestIDKey, reqID)
		c.Next()
	}
}

func newRequestID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
