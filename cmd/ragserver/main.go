package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/groundctx/ragserver/internal/assembler"
	"github.com/groundctx/ragserver/internal/auth"
	"github.com/groundctx/ragserver/internal/backend"
	"github.com/groundctx/ragserver/internal/chunker"
	"github.com/groundctx/ragserver/internal/config"
	"github.com/groundctx/ragserver/internal/database"
	"github.com/groundctx/ragserver/internal/handlers"
	"github.com/groundctx/ragserver/internal/models"
	"github.com/groundctx/ragserver/internal/observability/metrics"
	"github.com/groundctx/ragserver/internal/rag"
	"github.com/groundctx/ragserver/internal/retriever"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := newLogger(cfg.Monitoring)
	logger.Info("Starting ragserver")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Database connection failed")
	}
	defer db.Close()

	documents := database.NewDocumentRepository(db, logger)
	profiles := database.NewProfileRepository(db)

	router := backend.NewRouter(backend.RouterOptions{
		Source:              backendSource(cfg.Backend, logger),
		ExpectedDimension:   cfg.Backend.EmbeddingDimension,
		AllowMockEmbeddings: cfg.Backend.AllowMockEmbeddings,
		Fallbacks: models.GenerationParams{
			MaxTokens:   cfg.RAG.DefaultMaxTokens,
			Temperature: cfg.RAG.DefaultTemperature,
		},
		Logger: logger,
	})
	if _, err := router.Reload(ctx); err != nil {
		logger.WithError(err).Fatal("Initial backend configuration is invalid")
	}

	collector := metrics.NewCollector()

	service := rag.NewService(
		router,
		retriever.New(documents, logger),
		documents,
		profiles,
		chunker.NewWordChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
		assembler.New(cfg.RAG.MaxContextLength, cfg.RAG.MaxContextDocuments),
		rag.Options{
			RetrievalLimit:    cfg.RAG.RetrievalLimit,
			ScoreThreshold:    cfg.RAG.ScoreThreshold,
			IngestConcurrency: cfg.RAG.IngestConcurrency,
			Metrics:           collector,
		},
		logger,
	)

	engine := handlers.SetupRouter(cfg, handlers.RouterDeps{
		Service:   service,
		Reloader:  router,
		DB:        db,
		Validator: auth.NewClient(cfg.Auth.ServiceURL, logger),
		Metrics:   collector,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
}

func newLogger(cfg config.MonitoringConfig) *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// backendSource prefers the external configuration service; without one the
// static env-var config is the only backend the process will ever run.
func backendSource(cfg config.BackendConfig, logger *logrus.Logger) backend.ConfigSource {
	if cfg.ConfigServiceURL != "" {
		return backend.NewHTTPSource(cfg.ConfigServiceURL, logger)
	}
	return &backend.StaticSource{Config: backend.Config{
		Provider: backend.Kind(cfg.Provider),
		IsActive: true,
		Generation: backend.GenerationConfig{
			Endpoint:  cfg.Endpoint,
			APIKey:    cfg.APIKey,
			ModelName: cfg.ModelName,
		},
		Embedding: backend.EmbeddingConfig{
			Endpoint:  cfg.EmbeddingEndpoint,
			APIKey:    cfg.EmbeddingAPIKey,
			ModelName: cfg.EmbeddingModel,
			Dimension: cfg.EmbeddingDimension,
		},
	}}
}
