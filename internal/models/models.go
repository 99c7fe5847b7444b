package models

import "time"

// Document is a stored chunk row. Ingestion persists one row per chunk, so
// Filename carries the chunk suffix and ChunkIndex identifies the position
// within the original file.
type Document struct {
	ID          int64     `json:"id"`
	Filename    string    `json:"filename"`
	Content     string    `json:"content"`
	ContentHash string    `json:"content_hash"`
	ChunkIndex  int       `json:"chunk_index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SimilarityResult pairs a document with its normalized similarity score.
// Higher is closer; results are always ordered descending.
type SimilarityResult struct {
	Document   Document `json:"document"`
	Similarity float64  `json:"similarity"`
}

// RagProfile binds a retrieval collection to a prompt template. Inactive
// profiles are invisible to queries.
type RagProfile struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	CollectionID int64     `json:"collection_id"`
	SystemPrompt string    `json:"system_prompt"`
	Context      string    `json:"context,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Source is the citation record returned alongside an answer.
type Source struct {
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Similarity float64 `json:"similarity"`
	Snippet    string  `json:"snippet"`
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query        string   `json:"query" binding:"required"`
	ProfileID    *int64   `json:"rag_model_id,omitempty"`
	ProfileName  string   `json:"rag_model_name,omitempty"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Context      string   `json:"context,omitempty"`
	MaxTokens    *int     `json:"max_tokens,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
}

// QueryResponse is the terminal result of one orchestrated query.
type QueryResponse struct {
	Answer      string   `json:"answer"`
	Sources     []Source `json:"sources"`
	Query       string   `json:"query"`
	ContextUsed string   `json:"context_used"`
}

// SearchRequest is the body of POST /search (retrieval only, no generation).
type SearchRequest struct {
	Query               string   `json:"query" binding:"required"`
	Limit               *int     `json:"limit,omitempty"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
}

// SearchResponse lists ranked documents for a search request.
type SearchResponse struct {
	Documents []SimilarityResult `json:"documents"`
}

// ProcessDocumentRequest is the body of POST /process-document.
type ProcessDocumentRequest struct {
	Filename     string `json:"filename" binding:"required"`
	Content      string `json:"content" binding:"required"`
	CollectionID *int64 `json:"collection_id,omitempty"`
}

// IngestResult reports per-chunk partial success for one ingested document.
type IngestResult struct {
	DocumentID      int64 `json:"document_id"`
	ChunksProcessed int   `json:"chunks_processed"`
	TotalChunks     int   `json:"total_chunks"`
}

// Stats is the corpus-level count report.
type Stats struct {
	DocumentCount  int64 `json:"document_count"`
	EmbeddingCount int64 `json:"embedding_count"`
}

// User is the identity attached to a validated token by the auth collaborator.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
	IsAdmin  bool   `json:"is_admin"`
}

// TokenValidation is the auth collaborator's verdict on a bearer token.
type TokenValidation struct {
	Valid bool  `json:"valid"`
	User  *User `json:"user,omitempty"`
}

// GenerationParams are the tunables forwarded to the generation provider.
type GenerationParams struct {
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}
