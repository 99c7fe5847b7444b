package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/groundctx/ragserver/internal/models"
)

// BedrockProvider calls the AWS Bedrock gateway service. The gateway exposes
// completions natively; Titan embeddings are only reachable when the gateway
// proxies them, so embedding support is optional and guarded.
type BedrockProvider struct {
	cfg        Config
	httpClient *http.Client
	logger     *logrus.Logger

	// allowMockEmbeddings substitutes deterministic pseudo-vectors when the
	// gateway has no embedding route. Never enable outside local development.
	allowMockEmbeddings bool
}

func NewBedrockProvider(cfg Config, allowMockEmbeddings bool, logger *logrus.Logger) *BedrockProvider {
	if logger == nil {
		logger = logrus.New()
	}
	return &BedrockProvider{
		cfg:                 cfg,
		httpClient:          &http.Client{Timeout: 60 * time.Second},
		logger:              logger,
		allowMockEmbeddings: allowMockEmbeddings,
	}
}

func (p *BedrockProvider) Name() string { return "AWS Bedrock" }

func (p *BedrockProvider) GenerateCompletion(ctx context.Context, prompt string, params models.GenerationParams) (*CompletionResult, error) {
	body := map[string]any{
		"prompt":      prompt,
		"max_tokens":  params.MaxTokens,
		"temperature": params.Temperature,
		"top_p":       params.TopP,
	}

	var out CompletionResult
	if err := p.postJSON(ctx, p.cfg.Generation.Endpoint+"/chat", p.cfg.Generation.APIKey, body, &out); err != nil {
		return nil, fmt.Errorf("bedrock completion: %w", err)
	}
	return &out, nil
}

func (p *BedrockProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	body := map[string]any{
		"input_text": text,
	}

	var out struct {
		Embedding []float32 `json:"embedding"`
		Dimension int       `json:"dimension"`
	}
	err := p.postJSON(ctx, p.cfg.Embedding.Endpoint+"/embeddings", p.cfg.Embedding.APIKey, body, &out)
	if err != nil {
		if p.allowMockEmbeddings {
			p.logger.WithField("text_length", len(text)).
				Warn("Bedrock embedding route unavailable, serving mock embedding")
			return p.mockEmbedding(text), nil
		}
		return nil, fmt.Errorf("bedrock embedding: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("bedrock embedding: empty embedding in response")
	}
	if want := p.cfg.Embedding.Dimension; want > 0 && len(out.Embedding) != want {
		return nil, fmt.Errorf("bedrock embedding: dimension mismatch: got %d, configured %d", len(out.Embedding), want)
	}
	return out.Embedding, nil
}

// mockEmbedding derives a unit-norm vector from the text bytes so repeated
// inputs stay comparable across a development session.
func (p *BedrockProvider) mockEmbedding(text string) []float32 {
	dim := p.cfg.Embedding.Dimension
	if dim <= 0 {
		dim = 1536
	}
	vec := make([]float32, dim)
	var seed uint64 = 1469598103934665603
	for _, b := range []byte(text) {
		seed = (seed ^ uint64(b)) * 1099511628211
	}
	var norm float64
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		v := float32(int64(seed>>33))/float32(math.MaxInt32) - 0.5
		vec[i] = v
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func (p *BedrockProvider) postJSON(ctx context.Context, url, apiKey string, body, out any) error {
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
		}).Error("Bedrock gateway returned an error")
		return fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
