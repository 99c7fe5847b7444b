package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/groundctx/ragserver/internal/models"
	"github.com/groundctx/ragserver/internal/utils"
)

// QueryHandler serves the retrieval and generation endpoints.
type QueryHandler struct {
	service RAGService
	logger  *logrus.Logger
}

func NewQueryHandler(service RAGService, logger *logrus.Logger) *QueryHandler {
	return &QueryHandler{service: service, logger: logger}
}

// Query runs the full RAG pipeline for one question.
func (h *QueryHandler) Query(c *gin.Context) {
	var req models.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.HandleError(c, utils.NewAppError("VALIDATION_ERROR", "Invalid request format", http.StatusBadRequest, err))
		return
	}

	h.logger.WithFields(logrus.Fields{
		"request_id":   c.GetString("request_id"),
		"query_length": len(req.Query),
	}).Info("Processing RAG query")

	response, err := h.service.Query(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// Search returns ranked documents without invoking generation.
func (h *QueryHandler) Search(c *gin.Context) {
	var req models.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.HandleError(c, utils.NewAppError("VALIDATION_ERROR", "Invalid request format", http.StatusBadRequest, err))
		return
	}

	response, err := h.service.Search(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response)
}
