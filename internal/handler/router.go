package handler

import (
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/medscribe/clinrag/internal/middleware"
)

type RouterDeps struct {
	Ask       *AskHandler
	Documents *DocumentHandler
	Status    *StatusHandler

	CORSOrigins     []string
	RateLimitWindow time.Duration
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(deps.CORSOrigins))
	// SSE responses bypass gzip; it only compresses the JSON endpoints
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/ask"})))

	RegisterRoutes(router, deps)
	return router
}

func RegisterRoutes(router *gin.Engine, deps RouterDeps) {
	api := router.Group("/api/v1")

	ask := api.Group("")
	if deps.RateLimitWindow > 0 {
		ask.Use(middleware.RateLimit(deps.RateLimitWindow))
	}
	ask.POST("/ask", deps.Ask.Ask)

	api.POST("/documents", deps.Documents.Upload)
	api.GET("/documents", deps.Documents.List)
	api.DELETE("/documents/:id", deps.Documents.Delete)
	api.DELETE("/documents", deps.Documents.Clear)

	api.GET("/status", deps.Status.Status)
	api.GET("/health", deps.Status.Health)
}
