// Package handlers exposes the RAG pipeline over HTTP.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/groundctx/ragserver/internal/backend"
	"github.com/groundctx/ragserver/internal/models"
	"github.com/groundctx/ragserver/internal/rag"
	"github.com/groundctx/ragserver/internal/utils"
)

// RAGService is the orchestrator surface the handlers depend on.
type RAGService interface {
	Query(ctx context.Context, req models.QueryRequest) (*models.QueryResponse, error)
	Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error)
	ProcessDocument(ctx context.Context, req models.ProcessDocumentRequest) (*models.IngestResult, error)
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	Stats(ctx context.Context) (*models.Stats, error)
	Profiles(ctx context.Context) ([]models.RagProfile, error)
}

// Reloader triggers a backend configuration reload.
type Reloader interface {
	Reload(ctx context.Context) (*backend.Snapshot, error)
}

// HealthChecker reports storage liveness.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// handleServiceError maps orchestrator error kinds onto HTTP statuses. The
// wrapped cause is logged and never serialized.
func handleServiceError(c *gin.Context, logger *logrus.Logger, err error) {
	var ragErr *rag.Error
	if !errors.As(err, &ragErr) {
		logger.WithError(err).Error("Unclassified service error")
		utils.HandleError(c, utils.NewAppError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError, err))
		return
	}

	status := http.StatusInternalServerError
	switch ragErr.Kind {
	case rag.KindValidation:
		status = http.StatusBadRequest
	case rag.KindProfileNotFound:
		status = http.StatusNotFound
	case rag.KindUpstreamAuth:
		status = http.StatusUnauthorized
	case rag.KindConfiguration:
		status = http.StatusServiceUnavailable
	case rag.KindEmbeddingProvider, rag.KindGenerationProvider:
		status = http.StatusBadGateway
	case rag.KindRetrieval:
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		logger.WithError(ragErr).Error("Request failed")
	} else {
		logger.WithError(ragErr).Warn("Request rejected")
	}
	utils.HandleError(c, utils.NewAppError(string(ragErr.Kind), ragErr.Message, status, ragErr.Err))
}
