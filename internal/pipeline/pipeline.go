// Package pipeline is the submission and query surface of the narration
// service. It owns the source artifacts, the job records, and the work
// queue, and is the only place that writes to all three.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/queue"
)

// Pipeline accepts documents, records them as jobs, and hands their ids
// to the worker via the queue.
type Pipeline struct {
	store     core.JobStore
	workQueue *queue.Queue
	sources   core.ArtifactStore
	outputs   core.ArtifactStore
	log       *logger.Logger
}

// New creates a pipeline over the given collaborators.
func New(
	store core.JobStore,
	workQueue *queue.Queue,
	sources core.ArtifactStore,
	outputs core.ArtifactStore,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		store:     store,
		workQueue: workQueue,
		sources:   sources,
		outputs:   outputs,
		log:       log,
	}
}

// Submit stores the document bytes, creates a queued job record, and
// enqueues its id. It returns the new job id. The id is generated here;
// callers never supply one.
func (p *Pipeline) Submit(ctx context.Context, data []byte, displayName string) (string, error) {
	jobID := uuid.NewString()
	sourceRef := jobID + "_" + sanitizeFilename(displayName)

	err := p.sources.Save(ctx, sourceRef, data)
	if err != nil {
		return "", fmt.Errorf("failed to store source document: %w", err)
	}

	job := &core.Job{
		ID:           jobID,
		OriginalName: displayName,
		SourceRef:    sourceRef,
		Status:       core.StatusQueued,
		OutputRef:    "",
		CreatedAt:    time.Now(),
	}

	err = p.store.Create(ctx, job)
	if err != nil {
		// The artifact is orphaned without a job row; remove it so a
		// failed submission leaves nothing behind.
		deleteErr := p.sources.Delete(ctx, sourceRef)
		if deleteErr != nil {
			p.log.Warn("Failed to remove orphaned source %s: %v", sourceRef, deleteErr)
		}

		return "", fmt.Errorf("failed to create job record: %w", err)
	}

	p.workQueue.Enqueue(jobID)
	p.log.Info("Accepted job %s (%s)", jobID, displayName)

	return jobID, nil
}

// Status returns the current status of a job and, once completed, the key
// of its audio artifact.
func (p *Pipeline) Status(ctx context.Context, jobID string) (core.JobStatus, string, error) {
	job, err := p.store.Get(ctx, jobID)
	if err != nil {
		return "", "", fmt.Errorf("failed to look up job %s: %w", jobID, err)
	}

	return job.Status, job.OutputRef, nil
}

// List returns every job in submission order.
func (p *Pipeline) List(ctx context.Context) ([]core.Job, error) {
	jobs, err := p.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// ClearAll deletes every job record together with its source and audio
// artifacts. Artifact deletion is best effort: a missing file must never
// keep the records from being cleared.
func (p *Pipeline) ClearAll(ctx context.Context) error {
	refs, err := p.store.DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear job records: %w", err)
	}

	for _, ref := range refs.Sources {
		deleteErr := p.sources.Delete(ctx, ref)
		if deleteErr != nil {
			p.log.Warn("Failed to delete source artifact %s: %v", ref, deleteErr)
		}
	}

	for _, ref := range refs.Outputs {
		deleteErr := p.outputs.Delete(ctx, ref)
		if deleteErr != nil {
			p.log.Warn("Failed to delete audio artifact %s: %v", ref, deleteErr)
		}
	}

	p.log.Info("Cleared all jobs (%d artifacts removed)",
		len(refs.Sources)+len(refs.Outputs))

	return nil
}

// Recover re-enqueues every job that was queued or mid-processing when
// the service last stopped, so a restart resumes instead of stranding
// them.
func (p *Pipeline) Recover(ctx context.Context) error {
	ids, err := p.store.Pending(ctx)
	if err != nil {
		return fmt.Errorf("failed to load pending jobs: %w", err)
	}

	for _, id := range ids {
		p.workQueue.Enqueue(id)
	}

	if len(ids) > 0 {
		p.log.Info("Re-enqueued %d pending jobs after restart", len(ids))
	}

	return nil
}

// sanitizeFilename reduces an untrusted display name to a safe artifact
// key component. Anything outside letters, digits, dot, underscore, and
// hyphen becomes an underscore.
func sanitizeFilename(name string) string {
	if strings.TrimSpace(name) == "" {
		return "document"
	}

	var builder strings.Builder

	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			builder.WriteRune(r)
		default:
			builder.WriteRune('_')
		}
	}

	return builder.String()
}
