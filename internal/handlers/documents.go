package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/groundctx/ragserver/internal/models"
	"github.com/groundctx/ragserver/internal/utils"
)

// DocumentHandler serves ingestion, embedding, and corpus stats.
type DocumentHandler struct {
	service RAGService
	logger  *logrus.Logger
}

func NewDocumentHandler(service RAGService, logger *logrus.Logger) *DocumentHandler {
	return &DocumentHandler{service: service, logger: logger}
}

// ProcessDocument chunks, embeds, and stores one document.
func (h *DocumentHandler) ProcessDocument(c *gin.Context) {
	var req models.ProcessDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.HandleError(c, utils.NewAppError("VALIDATION_ERROR", "Invalid request format", http.StatusBadRequest, err))
		return
	}

	h.logger.WithFields(logrus.Fields{
		"request_id":     c.GetString("request_id"),
		"filename":       req.Filename,
		"content_length": len(req.Content),
	}).Info("Processing document")

	result, err := h.service.ProcessDocument(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	message := "Document processed successfully"
	if result.ChunksProcessed < result.TotalChunks {
		message = "Document partially processed"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"document_id":      result.DocumentID,
		"chunks_processed": result.ChunksProcessed,
		"total_chunks":     result.TotalChunks,
		"message":          message,
	})
}

// GenerateEmbedding embeds arbitrary text with the active backend.
func (h *DocumentHandler) GenerateEmbedding(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.HandleError(c, utils.NewAppError("VALIDATION_ERROR", "Invalid request format", http.StatusBadRequest, err))
		return
	}

	embedding, err := h.service.GenerateEmbedding(c.Request.Context(), req.Text)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"embedding": embedding,
		"dimension": len(embedding),
	})
}

// Stats reports document and embedding counts.
func (h *DocumentHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
