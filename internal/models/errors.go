package models

import "errors"

var (
	// ErrSourceRead means the document could not be opened or decoded. Fatal for ingestion.
	ErrSourceRead = errors.New("source read error")
	// ErrEmbeddingProvider covers transport failures and malformed provider responses.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrRateLimited marks a provider refusal caused by rate limiting (HTTP 429).
	ErrRateLimited = errors.New("embedding provider rate limited")
	// ErrStore covers schema, insert and search failures of the vector store.
	ErrStore = errors.New("store error")
	// ErrRouterClassification is returned when the router model call fails or returns nothing.
	ErrRouterClassification = errors.New("router classification error")
	// ErrRetrieval wraps failures while building a retrieval context.
	ErrRetrieval = errors.New("retrieval error")
	// ErrBadRequest is a malformed user request.
	ErrBadRequest = errors.New("bad request")
)
