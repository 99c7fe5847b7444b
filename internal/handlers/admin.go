package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/groundctx/ragserver/internal/backend"
	"github.com/groundctx/ragserver/internal/models"
	"github.com/groundctx/ragserver/internal/observability/metrics"
	"github.com/groundctx/ragserver/internal/utils"
)

// AdminHandler serves backend reload and profile listing.
type AdminHandler struct {
	service  RAGService
	reloader Reloader
	metrics  *metrics.Collector
	logger   *logrus.Logger
}

func NewAdminHandler(service RAGService, reloader Reloader, collector *metrics.Collector, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{service: service, reloader: reloader, metrics: collector, logger: logger}
}

// ReloadBackends swaps in the latest backend configuration. On failure the
// previous backend stays active and the client gets a conflict. Validation
// failures name the offending field; anything else (notably transport errors
// against the configuration service) is surfaced as a generic message, with
// the detail only in the logs.
func (h *AdminHandler) ReloadBackends(c *gin.Context) {
	snap, err := h.reloader.Reload(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Backend reload rejected")
		h.metrics.CountBackendReload("failure")

		message := "backend configuration reload failed"
		var verr *backend.ValidationError
		if errors.As(err, &verr) {
			message = verr.Error()
		}
		utils.HandleError(c, utils.NewAppError("CONFIGURATION_ERROR", message, http.StatusConflict, err))
		return
	}
	h.metrics.CountBackendReload("success")

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"provider":  snap.Kind,
		"dimension": snap.Dimension,
		"loaded_at": snap.LoadedAt,
	})
}

// ListProfiles returns every active RAG profile.
func (h *AdminHandler) ListProfiles(c *gin.Context) {
	profiles, err := h.service.Profiles(c.Request.Context())
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	if profiles == nil {
		profiles = []models.RagProfile{}
	}
	c.JSON(http.StatusOK, gin.H{"rag_models": profiles})
}
