// Package middleware holds the gin middleware chain: bearer auth, request
// IDs, and CORS.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/groundctx/ragserver/internal/models"
)

// TokenValidator is the auth collaborator contract.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.TokenValidation, error)
}

const userContextKey = "authenticated_user"

// Auth enforces a bearer token on every request it wraps. A token the auth
// service rejects and a token it could not check both get 401: when the auth
// service is unreachable no request is trusted. The transport detail goes to
// the logs only.
func Auth(validator TokenValidator, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			unauthorized(c, "missing bearer token")
			return
		}

		validation, err := validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			logger.WithError(err).Error("Token validation unavailable")
			unauthorized(c, "unauthorized")
			return
		}
		if !validation.Valid {
			unauthorized(c, "invalid or expired token")
			return
		}

		if validation.User != nil {
			c.Set(userContextKey, validation.User)
		}
		c.Next()
	}
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// RequestID tags every request with a correlation ID, honoring one supplied
// by the caller.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// CORS sets permissive cross-origin headers and answers preflights.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorEnvelope("UNAUTHORIZED", message))
}

func errorEnvelope(code, message string) gin.H {
	return gin.H{"error": gin.H{
		"code":      code,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}}
}
