// Package core defines the domain types, collaborator interfaces, and
// sentinel errors for the narration pipeline.
package core

import "context"

// Section is one structural unit of an extracted document.
type Section struct {
	Heading string
	Body    string
}

// Document is the structured content produced by the Extraction Adapter.
// Title and Abstract may be empty (for example plain-text input) while
// Sections is still populated.
type Document struct {
	Title    string
	Abstract string
	Sections []Section
}

// PCM is a segment of mono 16-bit samples at a fixed sample rate.
type PCM []int16

// ArtifactRefs carries the artifact keys released by a bulk deletion,
// split by owning store. Source refs keep the user's file extension, so
// the two sets cannot be told apart by name.
type ArtifactRefs struct {
	Sources []string
	Outputs []string
}

// JobStore is the durable record of every job and its status. All
// operations are synchronous; updates are single-row and atomic, so the
// submission path and the worker can share a store without external
// locking.
type JobStore interface {
	// Create persists a new job record. It fails with ErrDuplicateJobID
	// if the id already exists.
	Create(ctx context.Context, job *Job) error
	// UpdateStatus atomically overwrites the status and output reference
	// of a job. It fails with ErrJobNotFound if no such job exists.
	UpdateStatus(ctx context.Context, id string, status JobStatus, outputRef string) error
	// Get returns the current record or ErrJobNotFound.
	Get(ctx context.Context, id string) (*Job, error)
	// List returns all jobs ordered by creation time ascending.
	List(ctx context.Context) ([]Job, error)
	// DeleteAll removes every record and returns the artifact keys,
	// split by owning store, that the caller must release.
	DeleteAll(ctx context.Context) (ArtifactRefs, error)
	// Pending returns, in submission order, the ids of jobs that are not
	// yet terminal. Used to rebuild the work queue after a restart.
	Pending(ctx context.Context) ([]string, error)
}

// ArtifactStore is a keyed blob store for source documents and produced
// audio files.
type ArtifactStore interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Extractor produces structured document content from raw uploaded bytes.
// It fails with ErrExtraction on unreadable or unsupported input.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*Document, error)
}

// SpeechEngine converts one text chunk into an ordered sequence of PCM
// segments. Callers must not submit empty or whitespace-only text. It
// fails with ErrSynthesis if the engine cannot process the text.
type SpeechEngine interface {
	Synthesize(ctx context.Context, text, voice string) ([]PCM, error)
	// SampleRate is the fixed sample rate, in Hz, of every segment the
	// engine returns.
	SampleRate() int
}
