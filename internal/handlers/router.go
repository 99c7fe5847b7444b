package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/groundctx/ragserver/internal/config"
	"github.com/groundctx/ragserver/internal/middleware"
	"github.com/groundctx/ragserver/internal/observability/metrics"
)

// RouterDeps bundles everything SetupRouter wires together.
type RouterDeps struct {
	Service   RAGService
	Reloader  Reloader
	DB        HealthChecker
	Validator middleware.TokenValidator
	Metrics   *metrics.Collector
	Logger    *logrus.Logger
}

// SetupRouter builds the gin engine with the full route table. Health and
// metrics stay outside the auth boundary.
func SetupRouter(cfg *config.Config, deps RouterDeps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	if cfg.Server.EnableCORS {
		router.Use(middleware.CORS())
	}
	if deps.Metrics != nil {
		router.Use(metricsMiddleware(deps.Metrics))
	}

	health := NewHealthHandler(deps.DB)
	router.GET("/health", health.Health)
	if cfg.Monitoring.MetricsEnabled && deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	api := router.Group("/")
	if cfg.Auth.Enabled && deps.Validator != nil {
		api.Use(middleware.Auth(deps.Validator, deps.Logger))
	}

	query := NewQueryHandler(deps.Service, deps.Logger)
	documents := NewDocumentHandler(deps.Service, deps.Logger)
	admin := NewAdminHandler(deps.Service, deps.Reloader, deps.Metrics, deps.Logger)

	api.POST("/query", query.Query)
	api.POST("/search", query.Search)
	api.POST("/process-document", documents.ProcessDocument)
	api.POST("/generate-embedding", documents.GenerateEmbedding)
	api.GET("/stats", documents.Stats)
	api.GET("/rag-models", admin.ListProfiles)
	api.POST("/admin/backends/reload", admin.ReloadBackends)

	return router
}

func metricsMiddleware(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		collector.ObserveRequest(c.Request.Method, endpoint,
			strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
