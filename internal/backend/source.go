package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

// ConfigSource yields the currently active backend configuration.
type ConfigSource interface {
	Fetch(ctx context.Context) (*Config, error)
}

// StaticSource serves a fixed configuration, used for bootstrap from
// environment variables and in tests.
type StaticSource struct {
	Config Config
}

func (s *StaticSource) Fetch(context.Context) (*Config, error) {
	cfg := s.Config
	return &cfg, nil
}

// HTTPSource pulls the active backend from the configuration service's admin
// API. The service keeps one backend flagged active at a time; we resolve the
// flag first and then pick the matching entry from the full list.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewHTTPSource(baseURL string, logger *logrus.Logger) *HTTPSource {
	if logger == nil {
		logger = logrus.New()
	}
	return &HTTPSource{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (s *HTTPSource) Fetch(ctx context.Context) (*Config, error) {
	var status struct {
		ActiveBackend Kind `json:"active_backend"`
	}
	if err := s.getJSON(ctx, s.baseURL+"/admin/backends/status", &status); err != nil {
		return nil, fmt.Errorf("fetch active backend: %w", err)
	}

	var configs []Config
	if err := s.getJSON(ctx, s.baseURL+"/admin/backends", &configs); err != nil {
		return nil, fmt.Errorf("fetch backend list: %w", err)
	}

	for i := range configs {
		if configs[i].Provider == status.ActiveBackend && configs[i].IsActive {
			return &configs[i], nil
		}
	}
	return nil, fmt.Errorf("active backend %q not present in configuration list", status.ActiveBackend)
}

// getJSON retries transient failures with fibonacci backoff so a restarting
// configuration service does not fail a reload.
func (s *HTTPSource) getJSON(ctx context.Context, url string, out any) error {
	b := retry.NewFibonacci(500 * time.Millisecond)

	return retry.Do(ctx, retry.WithMaxRetries(3, b), func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			s.logger.WithField("url", url).Debug("Configuration service unreachable, retrying")
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("configuration service returned %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("configuration service returned %d", resp.StatusCode)
		}
		return json.Unmarshal(raw, out)
	})
}
