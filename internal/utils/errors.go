// Package utils provides the shared HTTP error envelope.
package utils

import (
	"time"

	"github.com/gin-gonic/gin"
)

// AppError is an error with an HTTP mapping. Message is safe for clients;
// Cause is for logs only.
type AppError struct {
	Code    string
	Message string
	Status  int
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func NewAppError(code, message string, status int, cause error) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Cause: cause}
}

// HandleError writes the standard error envelope and aborts the request.
func HandleError(c *gin.Context, err *AppError) {
	c.AbortWithStatusJSON(err.Status, gin.H{
		"error": gin.H{
			"code":      err.Code,
			"message":   err.Message,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}
