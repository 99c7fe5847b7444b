package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/groundctx/ragserver/internal/models"
)

// AzureProvider calls the Azure OpenAI gateway service for both completions
// and embeddings.
type AzureProvider struct {
	cfg        Config
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewAzureProvider(cfg Config, logger *logrus.Logger) *AzureProvider {
	if logger == nil {
		logger = logrus.New()
	}
	return &AzureProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

func (p *AzureProvider) Name() string { return "Azure OpenAI" }

func (p *AzureProvider) GenerateCompletion(ctx context.Context, prompt string, params models.GenerationParams) (*CompletionResult, error) {
	body := map[string]any{
		"prompt":      prompt,
		"max_tokens":  params.MaxTokens,
		"temperature": params.Temperature,
		"top_p":       params.TopP,
	}

	var out CompletionResult
	if err := p.postJSON(ctx, p.cfg.Generation.Endpoint+"/chat", p.cfg.Generation.APIKey, body, &out); err != nil {
		return nil, fmt.Errorf("azure completion: %w", err)
	}
	return &out, nil
}

func (p *AzureProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	model := p.cfg.Embedding.ModelName
	if model == "" {
		model = "text-embedding-ada-002"
	}
	body := map[string]any{
		"input": text,
		"model": model,
	}

	var out struct {
		Embeddings []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"embeddings"`
	}
	if err := p.postJSON(ctx, p.cfg.Embedding.Endpoint+"/embeddings", p.cfg.Embedding.APIKey, body, &out); err != nil {
		return nil, fmt.Errorf("azure embedding: %w", err)
	}
	if len(out.Embeddings) == 0 || len(out.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("azure embedding: empty embedding in response")
	}

	vec := out.Embeddings[0].Embedding
	if want := p.cfg.Embedding.Dimension; want > 0 && len(vec) != want {
		return nil, fmt.Errorf("azure embedding: dimension mismatch: got %d, configured %d", len(vec), want)
	}
	return vec, nil
}

func (p *AzureProvider) postJSON(ctx context.Context, url, apiKey string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		p.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"url":    url,
		}).Error("Azure gateway returned an error")
		return fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
