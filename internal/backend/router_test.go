package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundctx/ragserver/internal/models"
)

func validConfig(kind Kind) Config {
	return Config{
		Provider: kind,
		IsActive: true,
		Generation: GenerationConfig{
			Endpoint:  "http://gateway:9000",
			APIKey:    "key",
			ModelName: "gpt-4",
		},
		Embedding: EmbeddingConfig{
			Endpoint:  "http://gateway:9000",
			ModelName: "text-embedding-ada-002",
			Dimension: 1536,
		},
	}
}

type failingSource struct{ err error }

func (f *failingSource) Fetch(context.Context) (*Config, error) { return nil, f.err }

func TestRouter_CurrentBeforeReload(t *testing.T) {
	r := NewRouter(RouterOptions{Source: &StaticSource{Config: validConfig(KindAzure)}})

	_, err := r.Current()

	assert.ErrorIs(t, err, ErrNoActiveBackend)
}

func TestRouter_ReloadInstallsSnapshot(t *testing.T) {
	r := NewRouter(RouterOptions{Source: &StaticSource{Config: validConfig(KindAzure)}})

	snap, err := r.Reload(context.Background())

	require.NoError(t, err)
	assert.Equal(t, KindAzure, snap.Kind)
	assert.Equal(t, 1536, snap.Dimension)
	assert.Equal(t, "Azure OpenAI", snap.Provider.Name())

	current, err := r.Current()
	require.NoError(t, err)
	assert.Same(t, snap, current)
}

func TestRouter_ReloadSwapsProvider(t *testing.T) {
	source := &StaticSource{Config: validConfig(KindAzure)}
	r := NewRouter(RouterOptions{Source: source})

	first, err := r.Reload(context.Background())
	require.NoError(t, err)

	source.Config = validConfig(KindBedrock)
	second, err := r.Reload(context.Background())
	require.NoError(t, err)

	assert.Equal(t, KindBedrock, second.Kind)
	current, err := r.Current()
	require.NoError(t, err)
	assert.Same(t, second, current)
	assert.NotSame(t, first, current)
}

// A request that captured a snapshot keeps its provider even after a reload
// publishes a different one.
func TestRouter_SnapshotSurvivesReload(t *testing.T) {
	source := &StaticSource{Config: validConfig(KindAzure)}
	r := NewRouter(RouterOptions{Source: source})

	_, err := r.Reload(context.Background())
	require.NoError(t, err)

	held, err := r.Current()
	require.NoError(t, err)

	source.Config = validConfig(KindBedrock)
	_, err = r.Reload(context.Background())
	require.NoError(t, err)

	assert.Equal(t, KindAzure, held.Kind)
	assert.Equal(t, "Azure OpenAI", held.Provider.Name())
}

func TestRouter_FailedReloadKeepsOldSnapshot(t *testing.T) {
	source := &StaticSource{Config: validConfig(KindAzure)}
	r := NewRouter(RouterOptions{Source: source})

	_, err := r.Reload(context.Background())
	require.NoError(t, err)

	source.Config.Generation.APIKey = ""
	_, err = r.Reload(context.Background())
	require.Error(t, err)

	current, err := r.Current()
	require.NoError(t, err)
	assert.Equal(t, KindAzure, current.Kind)
}

func TestRouter_SourceErrorKeepsOldSnapshot(t *testing.T) {
	source := &StaticSource{Config: validConfig(KindAzure)}
	r := NewRouter(RouterOptions{Source: source})

	_, err := r.Reload(context.Background())
	require.NoError(t, err)

	r.source = &failingSource{err: errors.New("connection refused")}
	_, err = r.Reload(context.Background())
	assert.ErrorContains(t, err, "fetch backend config")

	current, err := r.Current()
	require.NoError(t, err)
	assert.Equal(t, KindAzure, current.Kind)
}

func TestRouter_RejectsDimensionMismatch(t *testing.T) {
	cfg := validConfig(KindAzure)
	cfg.Embedding.Dimension = 768
	r := NewRouter(RouterOptions{
		Source:            &StaticSource{Config: cfg},
		ExpectedDimension: 1536,
	})

	_, err := r.Reload(context.Background())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "embedding_config.dimension", verr.Field)
	assert.ErrorContains(t, err, "does not match store dimension")
	_, err = r.Current()
	assert.ErrorIs(t, err, ErrNoActiveBackend)
}

func TestRouter_RejectsUnknownKind(t *testing.T) {
	cfg := validConfig("openrouter")
	r := NewRouter(RouterOptions{Source: &StaticSource{Config: cfg}})

	_, err := r.Reload(context.Background())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "provider", verr.Field)
}

func TestRouter_DefaultsFoldConfigOverFallbacks(t *testing.T) {
	cfg := validConfig(KindAzure)
	maxTokens := 2048
	cfg.Generation.MaxTokens = &maxTokens
	r := NewRouter(RouterOptions{
		Source:    &StaticSource{Config: cfg},
		Fallbacks: models.GenerationParams{MaxTokens: 1000, Temperature: 0.7, TopP: 0.9},
	})

	snap, err := r.Reload(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2048, snap.Defaults.MaxTokens)
	assert.Equal(t, 0.7, snap.Defaults.Temperature)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing generation endpoint", func(c *Config) { c.Generation.Endpoint = "" }, "generation endpoint is required"},
		{"missing api key", func(c *Config) { c.Generation.APIKey = "" }, "generation credential is required"},
		{"missing embedding endpoint", func(c *Config) { c.Embedding.Endpoint = "" }, "embedding endpoint is required"},
		{"zero dimension", func(c *Config) { c.Embedding.Dimension = 0 }, "dimension must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(KindAzure)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
