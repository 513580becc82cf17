package core

import "time"

// JobStatus is the lifecycle state of a narration job.
type JobStatus string

// Job lifecycle states. A job moves queued -> processing -> completed or
// failed; no transition skips a state or reverses.
const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is the durable record of one narration request.
type Job struct {
	// ID is a globally unique identifier assigned exactly once, before
	// the job is enqueued.
	ID string

	// OriginalName is the user-supplied filename, kept for display only.
	OriginalName string

	// SourceRef is the key of the stored input artifact.
	SourceRef string

	// Status is the current lifecycle state.
	Status JobStatus

	// OutputRef is the key of the produced audio artifact. It is
	// non-empty if and only if Status is StatusCompleted.
	OutputRef string

	// CreatedAt is set once at submission and used for display ordering.
	CreatedAt time.Time
}
