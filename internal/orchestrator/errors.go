package orchestrator

import "errors"

var (
	// Validation errors: surfaced to the caller, never retried.
	ErrUnsupportedFormat = errors.New("unsupported file type")
	ErrEmptyQuery        = errors.New("query cannot be empty")
	ErrAsyncDisabled     = errors.New("async processing is disabled")

	// Collaborator failures.
	ErrExtractionFailed = errors.New("extraction failed")
	ErrIndexingFailed   = errors.New("indexing failed")
	ErrGenerationFailed = errors.New("answer generation failed")

	// Lookup misses.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrEmptyIndex distinguishes "nothing ingested yet" from a genuine
	// collaborator fault.
	ErrEmptyIndex = errors.New("no documents have been indexed yet")
)
