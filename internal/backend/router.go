package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/groundctx/ragserver/internal/models"
)

// ErrNoActiveBackend is returned when no snapshot has been installed yet.
var ErrNoActiveBackend = errors.New("no active backend configured")

// Snapshot is one immutable, fully-constructed backend. Callers that grab a
// snapshot keep using it for their whole request even if a reload swaps the
// active one underneath them.
type Snapshot struct {
	Kind      Kind
	Provider  Provider
	Defaults  models.GenerationParams
	Dimension int
	LoadedAt  time.Time
}

// Router owns the active backend snapshot and replaces it atomically on
// reload. Reads never block and never observe a half-built backend.
type Router struct {
	active atomic.Pointer[Snapshot]

	source    ConfigSource
	build     func(Config) (Provider, error)
	fallbacks models.GenerationParams

	// expectedDimension pins reloads to the vector store's column width.
	// Zero disables the check (first boot against an empty store).
	expectedDimension int

	reloadMu sync.Mutex
	logger   *logrus.Logger
}

// RouterOptions configures a Router.
type RouterOptions struct {
	Source              ConfigSource
	ExpectedDimension   int
	AllowMockEmbeddings bool
	Fallbacks           models.GenerationParams
	Logger              *logrus.Logger
}

func NewRouter(opts RouterOptions) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	fallbacks := opts.Fallbacks
	if fallbacks.MaxTokens == 0 {
		fallbacks.MaxTokens = 1000
	}
	if fallbacks.Temperature == 0 {
		fallbacks.Temperature = 0.7
	}
	if fallbacks.TopP == 0 {
		fallbacks.TopP = 0.9
	}

	r := &Router{
		source:            opts.Source,
		fallbacks:         fallbacks,
		expectedDimension: opts.ExpectedDimension,
		logger:            logger,
	}
	r.build = func(cfg Config) (Provider, error) {
		switch cfg.Provider {
		case KindAzure:
			return NewAzureProvider(cfg, logger), nil
		case KindBedrock:
			return NewBedrockProvider(cfg, opts.AllowMockEmbeddings, logger), nil
		default:
			return nil, &ValidationError{Field: "provider", Reason: "unsupported provider kind: " + string(cfg.Provider)}
		}
	}
	return r
}

// Current returns the active snapshot. The caller must hold on to the
// returned pointer for the duration of its operation instead of calling
// Current again mid-flight.
func (r *Router) Current() (*Snapshot, error) {
	snap := r.active.Load()
	if snap == nil {
		return nil, ErrNoActiveBackend
	}
	return snap, nil
}

// Reload fetches the latest configuration, builds the new backend, and
// publishes it. Any failure leaves the previous snapshot untouched, so
// in-flight and subsequent requests keep a working backend.
func (r *Router) Reload(ctx context.Context) (*Snapshot, error) {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	cfg, err := r.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch backend config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if r.expectedDimension > 0 && cfg.Embedding.Dimension != r.expectedDimension {
		return nil, &ValidationError{
			Field: "embedding_config.dimension",
			Reason: fmt.Sprintf("embedding dimension %d does not match store dimension %d",
				cfg.Embedding.Dimension, r.expectedDimension),
		}
	}

	provider, err := r.build(*cfg)
	if err != nil {
		return nil, fmt.Errorf("build %s backend: %w", cfg.Provider, err)
	}

	snap := &Snapshot{
		Kind:      cfg.Provider,
		Provider:  provider,
		Defaults:  cfg.GenerationDefaults(r.fallbacks),
		Dimension: cfg.Embedding.Dimension,
		LoadedAt:  time.Now(),
	}
	r.active.Store(snap)

	r.logger.WithFields(logrus.Fields{
		"provider":  snap.Kind,
		"dimension": snap.Dimension,
	}).Info("Backend configuration reloaded")

	return snap, nil
}
