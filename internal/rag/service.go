// Package rag orchestrates the retrieval-augmented generation pipeline:
// embed the query, retrieve similar chunks, assemble a context window, and
// generate the final answer through the active backend.
package rag

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/groundctx/ragserver/internal/assembler"
	"github.com/groundctx/ragserver/internal/backend"
	"github.com/groundctx/ragserver/internal/chunker"
	"github.com/groundctx/ragserver/internal/database"
	"github.com/groundctx/ragserver/internal/models"
	"github.com/groundctx/ragserver/internal/observability/metrics"
)

// DefaultSystemPrompt is used when neither the profile nor the caller
// supplies one.
const DefaultSystemPrompt = "You are a helpful assistant that answers questions based on the provided context. " +
	"Use the context information to provide accurate and relevant answers. " +
	"If the context doesn't contain enough information to answer the question, " +
	"say so clearly and explain what information is missing."

// Pipeline stages, used for log correlation and error messages.
const (
	stageEmbedding  = "embedding"
	stageRetrieving = "retrieving"
	stageAssembling = "assembling"
	stageGenerating = "generating"
)

// SnapshotSource hands out the active backend snapshot.
type SnapshotSource interface {
	Current() (*backend.Snapshot, error)
}

// Searcher ranks stored chunks against a query vector.
type Searcher interface {
	Search(ctx context.Context, queryVector []float32, limit int, scoreThreshold float64, scope *int64) ([]models.SimilarityResult, error)
}

// ChunkStore persists chunk rows and reports corpus counts.
type ChunkStore interface {
	StoreChunk(ctx context.Context, filename, content string, chunkIndex int, embedding []float32) (int64, error)
	Counts(ctx context.Context) (models.Stats, error)
}

// ProfileStore resolves RAG profiles.
type ProfileStore interface {
	GetByID(ctx context.Context, id int64) (*models.RagProfile, error)
	GetByName(ctx context.Context, name string) (*models.RagProfile, error)
	ListActive(ctx context.Context) ([]models.RagProfile, error)
}

// Options are the service-level tunables, loaded from configuration.
// Metrics may be nil; all observations are skipped then.
type Options struct {
	RetrievalLimit    int
	ScoreThreshold    float64
	IngestConcurrency int
	Metrics           *metrics.Collector
}

// Service is the orchestrator. It holds no per-request state; every query
// pins one backend snapshot for its whole lifetime and never retries a
// failed step.
type Service struct {
	backends  SnapshotSource
	searcher  Searcher
	store     ChunkStore
	profiles  ProfileStore
	chunker   *chunker.WordChunker
	assembler *assembler.Assembler
	opts      Options
	logger    *logrus.Logger
}

func NewService(backends SnapshotSource, searcher Searcher, store ChunkStore, profiles ProfileStore, ck *chunker.WordChunker, asm *assembler.Assembler, opts Options, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.RetrievalLimit <= 0 {
		opts.RetrievalLimit = 10
	}
	if opts.IngestConcurrency <= 0 {
		opts.IngestConcurrency = 4
	}
	if ck == nil {
		ck = chunker.NewWordChunker(chunker.DefaultTargetSize, chunker.DefaultOverlapFraction)
	}
	if asm == nil {
		asm = assembler.New(0, 0)
	}
	return &Service{
		backends:  backends,
		searcher:  searcher,
		store:     store,
		profiles:  profiles,
		chunker:   ck,
		assembler: asm,
		opts:      opts,
		logger:    logger,
	}
}

// Query runs the full pipeline for one question. An empty retrieval result is
// not an error; generation proceeds with whatever context exists.
func (s *Service) Query(ctx context.Context, req models.QueryRequest) (*models.QueryResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, E(KindValidation, "query must not be empty", nil)
	}

	snap, err := s.backends.Current()
	if err != nil {
		return nil, E(KindConfiguration, "no backend is configured", err)
	}

	profile, err := s.resolveProfile(ctx, req)
	if err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"provider": snap.Kind,
		"profiled": profile != nil,
	})
	log.WithField("stage", stageEmbedding).Debug("Embedding query")

	queryVector, err := s.embed(ctx, snap, req.Query)
	if err != nil {
		return nil, E(KindEmbeddingProvider, "failed to embed query", err)
	}

	var scope *int64
	if profile != nil {
		scope = &profile.CollectionID
	}

	log.WithField("stage", stageRetrieving).Debug("Retrieving similar documents")
	results, err := s.searcher.Search(ctx, queryVector, s.opts.RetrievalLimit, s.opts.ScoreThreshold, scope)
	if err != nil {
		return nil, E(KindRetrieval, "similarity search failed", err)
	}
	s.opts.Metrics.ObserveRetrieval(scope != nil, len(results))
	if len(results) == 0 {
		log.Warn("No relevant documents found for query")
	}

	log.WithField("stage", stageAssembling).Debug("Assembling context")
	profileContext := ""
	if profile != nil {
		profileContext = profile.Context
	}
	asm := s.assembler.Assemble(results, profileContext, req.Context)

	systemPrompt := s.systemPrompt(profile, req.SystemPrompt)
	prompt := BuildPrompt(systemPrompt, asm.ContextText, req.Query)

	params := snap.Defaults
	if req.MaxTokens != nil {
		params.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		params.Temperature = *req.Temperature
	}

	log.WithFields(logrus.Fields{
		"stage":         stageGenerating,
		"prompt_length": len(prompt),
		"sources":       len(asm.Sources),
	}).Debug("Generating completion")

	genStart := time.Now()
	completion, err := snap.Provider.GenerateCompletion(ctx, prompt, params)
	s.opts.Metrics.ObserveProviderCall(string(snap.Kind), "completion", time.Since(genStart), err)
	if err != nil {
		return nil, E(KindGenerationProvider, "completion failed", err)
	}

	return &models.QueryResponse{
		Answer:      completion.Text,
		Sources:     asm.Sources,
		Query:       req.Query,
		ContextUsed: asm.ContextText,
	}, nil
}

// Search embeds the query and returns ranked documents without generation.
func (s *Service) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, E(KindValidation, "query must not be empty", nil)
	}

	snap, err := s.backends.Current()
	if err != nil {
		return nil, E(KindConfiguration, "no backend is configured", err)
	}

	limit := s.opts.RetrievalLimit
	if req.Limit != nil && *req.Limit > 0 {
		limit = min(*req.Limit, 100)
	}
	threshold := s.opts.ScoreThreshold
	if req.SimilarityThreshold != nil {
		threshold = *req.SimilarityThreshold
	}

	queryVector, err := s.embed(ctx, snap, req.Query)
	if err != nil {
		return nil, E(KindEmbeddingProvider, "failed to embed query", err)
	}

	results, err := s.searcher.Search(ctx, queryVector, limit, threshold, nil)
	if err != nil {
		return nil, E(KindRetrieval, "similarity search failed", err)
	}
	s.opts.Metrics.ObserveRetrieval(false, len(results))
	return &models.SearchResponse{Documents: results}, nil
}

// ProcessDocument chunks the content, embeds each chunk, and stores each one
// in its own transaction. Failures are isolated per chunk; the result reports
// how many made it.
func (s *Service) ProcessDocument(ctx context.Context, req models.ProcessDocumentRequest) (*models.IngestResult, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, E(KindValidation, "content must not be empty", nil)
	}
	if strings.TrimSpace(req.Filename) == "" {
		return nil, E(KindValidation, "filename must not be empty", nil)
	}

	snap, err := s.backends.Current()
	if err != nil {
		return nil, E(KindConfiguration, "no backend is configured", err)
	}

	chunks := slices.Collect(s.chunker.Chunk(req.Content))
	if len(chunks) == 0 {
		return nil, E(KindValidation, "content produced no chunks", nil)
	}

	var (
		mu         sync.Mutex
		processed  int
		documentID int64
		firstErr   error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.IngestConcurrency)

	for i, chunk := range chunks {
		g.Go(func() error {
			name := chunkFilename(req.Filename, req.CollectionID, i)

			embedding, err := s.embed(gctx, snap, chunk)
			if err == nil {
				var id int64
				id, err = s.store.StoreChunk(gctx, name, chunk, i, embedding)
				if err == nil {
					s.opts.Metrics.CountIngestedChunk("success")
					mu.Lock()
					processed++
					if documentID == 0 || id < documentID {
						documentID = id
					}
					mu.Unlock()
					return nil
				}
			}

			s.opts.Metrics.CountIngestedChunk("failure")
			s.logger.WithFields(logrus.Fields{
				"filename":    name,
				"chunk_index": i,
			}).WithError(err).Error("Chunk ingestion failed")
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; Wait only surfaces context cancellation.
	if err := g.Wait(); err != nil {
		return nil, E(KindEmbeddingProvider, "ingestion aborted", err)
	}

	if processed == 0 {
		return nil, E(KindEmbeddingProvider, "all chunks failed to ingest", firstErr)
	}

	s.logger.WithFields(logrus.Fields{
		"filename":         req.Filename,
		"chunks_processed": processed,
		"total_chunks":     len(chunks),
	}).Info("Document ingested")

	return &models.IngestResult{
		DocumentID:      documentID,
		ChunksProcessed: processed,
		TotalChunks:     len(chunks),
	}, nil
}

// GenerateEmbedding exposes the active embedder directly.
func (s *Service) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, E(KindValidation, "text must not be empty", nil)
	}
	snap, err := s.backends.Current()
	if err != nil {
		return nil, E(KindConfiguration, "no backend is configured", err)
	}
	vec, err := s.embed(ctx, snap, text)
	if err != nil {
		return nil, E(KindEmbeddingProvider, "failed to generate embedding", err)
	}
	return vec, nil
}

// embed calls the snapshot's embedder and records latency and errors.
func (s *Service) embed(ctx context.Context, snap *backend.Snapshot, text string) ([]float32, error) {
	start := time.Now()
	vec, err := snap.Provider.GenerateEmbedding(ctx, text)
	s.opts.Metrics.ObserveProviderCall(string(snap.Kind), "embedding", time.Since(start), err)
	return vec, err
}

// Stats reports corpus-level counts.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	stats, err := s.store.Counts(ctx)
	if err != nil {
		return nil, E(KindRetrieval, "failed to read corpus stats", err)
	}
	return &stats, nil
}

// Profiles lists every active RAG profile.
func (s *Service) Profiles(ctx context.Context) ([]models.RagProfile, error) {
	profiles, err := s.profiles.ListActive(ctx)
	if err != nil {
		return nil, E(KindRetrieval, "failed to list profiles", err)
	}
	return profiles, nil
}

func (s *Service) resolveProfile(ctx context.Context, req models.QueryRequest) (*models.RagProfile, error) {
	var (
		profile *models.RagProfile
		err     error
	)
	switch {
	case req.ProfileID != nil:
		profile, err = s.profiles.GetByID(ctx, *req.ProfileID)
	case req.ProfileName != "":
		profile, err = s.profiles.GetByName(ctx, req.ProfileName)
	default:
		return nil, nil
	}
	if err != nil {
		if errors.Is(err, database.ErrProfileNotFound) {
			return nil, E(KindProfileNotFound, "rag model not found or inactive", err)
		}
		return nil, E(KindRetrieval, "failed to resolve rag model", err)
	}
	return profile, nil
}

// systemPrompt picks the profile's prompt first, then the caller's, then the
// built-in default.
func (s *Service) systemPrompt(profile *models.RagProfile, requested string) string {
	if profile != nil && profile.SystemPrompt != "" {
		return profile.SystemPrompt
	}
	if requested != "" {
		return requested
	}
	return DefaultSystemPrompt
}

// BuildPrompt renders the final LLM prompt. The context stanza is omitted
// entirely when no context was assembled.
func BuildPrompt(systemPrompt, contextText, query string) string {
	if contextText == "" {
		return fmt.Sprintf("System: %s\n\nUser: %s\n\nAssistant:", systemPrompt, query)
	}
	return fmt.Sprintf("System: %s\n\nContext:\n%s\n\nUser: %s\n\nAssistant:", systemPrompt, contextText, query)
}

func chunkFilename(filename string, collection *int64, index int) string {
	if collection != nil {
		return fmt.Sprintf("%d_%s_chunk_%d", *collection, filename, index)
	}
	return fmt.Sprintf("%s_chunk_%d", filename, index)
}
