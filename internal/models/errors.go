package models

import "errors"

// Error taxonomy of the core. Callers match with errors.Is; none of these are
// retried internally except the ingestion rollback behind ErrIndexation.
var (
	// ErrEmptyDocument: the uploaded text normalizes to nothing, so there is
	// nothing to index. User-correctable.
	ErrEmptyDocument = errors.New("document has no text content")

	// ErrDimensionMismatch: an embedding's dimension disagrees with the
	// index. A configuration bug; never coerced by truncating or padding.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrIndexation: ingestion failed mid-stream. Already-inserted chunks
	// have been rolled back; re-uploading is safe.
	ErrIndexation = errors.New("document indexation failed")

	// ErrUnknownRole: the requester role is not in the closed role set.
	// Treated as zero access, never as full access.
	ErrUnknownRole = errors.New("unknown role")

	// ErrForbidden: the requester may not perform the operation, for example
	// touching a chat session it does not own. Nothing was mutated.
	ErrForbidden = errors.New("forbidden")

	// ErrGeneration: the external answer-generation call failed. The turn
	// fails; no assistant message is stored.
	ErrGeneration = errors.New("answer generation failed")

	ErrNotFound = errors.New("not found")
)
