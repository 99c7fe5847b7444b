package rag

import "fmt"

// Kind classifies an orchestration failure so the HTTP layer can map it to a
// status code without inspecting wrapped causes.
type Kind string

const (
	KindValidation         Kind = "VALIDATION_ERROR"
	KindUpstreamAuth       Kind = "UPSTREAM_AUTH_ERROR"
	KindEmbeddingProvider  Kind = "EMBEDDING_PROVIDER_ERROR"
	KindRetrieval          Kind = "RETRIEVAL_ERROR"
	KindProfileNotFound    Kind = "PROFILE_NOT_FOUND"
	KindGenerationProvider Kind = "GENERATION_PROVIDER_ERROR"
	KindConfiguration      Kind = "CONFIGURATION_ERROR"
)

// Error carries a machine-readable kind alongside the human message. The
// wrapped cause is for logs only and never reaches API clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an Error. Message should be safe to surface to clients.
func E(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}
