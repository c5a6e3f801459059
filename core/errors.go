package core

import "errors"

// Error taxonomy for ingestion and retrieval. All four are surfaced to
// the immediate caller; match with errors.Is.
var (
	// ErrEmptyExtraction means an artifact produced no usable text
	// (blank scan, empty vitals entry). No record is created.
	ErrEmptyExtraction = errors.New("no usable text extracted")

	// ErrExtraction means the artifact was malformed or unreadable.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbedding means the embedder rejected the input.
	ErrEmbedding = errors.New("embedding failed")

	// ErrStorageUnavailable is a transient storage condition; callers
	// retry with bounded backoff before surfacing a hard failure.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
