package core

import "errors"

// Sentinel errors shared across the pipeline. Callers classify failures
// with errors.Is; each layer wraps these with %w and context.
var (
	// ErrDuplicateJobID indicates a job id that already exists in the store.
	ErrDuplicateJobID = errors.New("job id already exists")
	// ErrJobNotFound indicates the requested job id is not in the store.
	ErrJobNotFound = errors.New("job not found")
	// ErrStorage indicates an artifact could not be read or written.
	ErrStorage = errors.New("artifact storage failed")
	// ErrExtraction indicates the document could not be read or parsed.
	ErrExtraction = errors.New("document extraction failed")
	// ErrSynthesis indicates the speech engine could not process a chunk.
	ErrSynthesis = errors.New("speech synthesis failed")
)
