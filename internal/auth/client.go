// Package auth validates bearer tokens against the authentication service.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/groundctx/ragserver/internal/models"
)

// Client is the HTTP client for the auth collaborator. A token the service
// rejects comes back as Valid=false; only transport failures are errors.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(baseURL string, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// ValidateToken asks the auth service whether the token is valid and who it
// belongs to. Transient transport failures are retried with backoff before
// giving up.
func (c *Client) ValidateToken(ctx context.Context, token string) (*models.TokenValidation, error) {
	payload, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return nil, fmt.Errorf("marshal validation request: %w", err)
	}

	var validation models.TokenValidation
	b := retry.NewFibonacci(500 * time.Millisecond)

	err = retry.Do(ctx, retry.WithMaxRetries(3, b), func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/validate", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.WithError(err).Debug("Auth service unreachable, retrying")
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("auth service returned %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			// The service answered and said no. Not retryable.
			validation = models.TokenValidation{Valid: false}
			return nil
		}
		return json.Unmarshal(raw, &validation)
	})
	if err != nil {
		return nil, fmt.Errorf("auth service unavailable: %w", err)
	}
	return &validation, nil
}
