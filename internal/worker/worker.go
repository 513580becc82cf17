// Package worker provides the single long-lived consumer that drives
// queued jobs through extraction, synthesis, and audio assembly.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/narration-service/internal/audio"
	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/narration"
	"github.com/book-expert/narration-service/internal/queue"
)

// ErrNothingNarrated indicates a document that produced zero audio
// segments.
var ErrNothingNarrated = errors.New("document produced no narration")

// Settings holds the per-job narration parameters.
type Settings struct {
	// Voice is the speaker voice passed to the speech engine for every
	// chunk.
	Voice string
	// Gap is the duration of the silence inserted between narration
	// units.
	Gap time.Duration
}

// Worker dequeues job ids and processes them strictly one at a time, in
// FIFO submission order. A job's failure is recorded as a terminal status
// and never blocks the next job.
type Worker struct {
	store      core.JobStore
	workQueue  *queue.Queue
	sources    core.ArtifactStore
	outputs    core.ArtifactStore
	extractor  core.Extractor
	engine     core.SpeechEngine
	normalizer *narration.Normalizer
	settings   Settings
	log        *logger.Logger
}

// New creates a worker over the given collaborators.
func New(
	store core.JobStore,
	workQueue *queue.Queue,
	sources core.ArtifactStore,
	outputs core.ArtifactStore,
	extractor core.Extractor,
	engine core.SpeechEngine,
	settings Settings,
	log *logger.Logger,
) *Worker {
	return &Worker{
		store:      store,
		workQueue:  workQueue,
		sources:    sources,
		outputs:    outputs,
		extractor:  extractor,
		engine:     engine,
		normalizer: narration.NewNormalizer(),
		settings:   settings,
		log:        log,
	}
}

// Run consumes the queue until it is closed. It never returns an error:
// per-job failures end in a terminal failed status, and the loop moves on.
func (w *Worker) Run(ctx context.Context) {
	for {
		jobID, ok := w.workQueue.Dequeue()
		if !ok {
			w.log.Info("Work queue closed, worker stopping")

			return
		}

		w.processJob(ctx, jobID)
	}
}

func (w *Worker) processJob(ctx context.Context, jobID string) {
	job, err := w.store.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, core.ErrJobNotFound) {
			// The queue and store diverged. The job cannot be marked
			// failed, so make the skew visible in the log.
			w.log.Error("Dequeued job %s is missing from the store, skipping", jobID)

			return
		}

		w.log.Error("Failed to load job %s: %v", jobID, err)

		return
	}

	w.log.Info("Processing job %s (%s)", jobID, job.OriginalName)

	err = w.store.UpdateStatus(ctx, jobID, core.StatusProcessing, "")
	if err != nil {
		w.log.Error("Failed to mark job %s processing: %v", jobID, err)

		return
	}

	outputRef, err := w.narrate(ctx, job)
	if err != nil {
		w.log.Error("Job %s failed: %v", jobID, err)
		w.markFailed(ctx, jobID)

		return
	}

	err = w.store.UpdateStatus(ctx, jobID, core.StatusCompleted, outputRef)
	if err != nil {
		w.log.Error("Failed to mark job %s completed: %v", jobID, err)

		return
	}

	w.log.Info("Job %s completed: %s", jobID, outputRef)
}

// narrate runs extraction, synthesis, and assembly for one job and
// returns the key of the stored audio artifact.
func (w *Worker) narrate(ctx context.Context, job *core.Job) (string, error) {
	data, err := w.sources.Load(ctx, job.SourceRef)
	if err != nil {
		return "", fmt.Errorf("failed to load source artifact: %w", err)
	}

	doc, err := w.extractor.Extract(ctx, data)
	if err != nil {
		return "", fmt.Errorf("extraction failed: %w", err)
	}

	assembler, err := audio.NewAssembler(w.engine.SampleRate())
	if err != nil {
		return "", fmt.Errorf("failed to create assembler: %w", err)
	}

	for _, step := range narration.Plan(doc) {
		stepErr := w.applyStep(ctx, assembler, step)
		if stepErr != nil {
			return "", stepErr
		}
	}

	if assembler.Empty() {
		return "", ErrNothingNarrated
	}

	wavData, err := assembler.EncodeWAV()
	if err != nil {
		return "", fmt.Errorf("failed to encode narration: %w", err)
	}

	outputRef := job.ID + ".wav"

	err = w.outputs.Save(ctx, outputRef, wavData)
	if err != nil {
		return "", fmt.Errorf("failed to store narration artifact: %w", err)
	}

	return outputRef, nil
}

func (w *Worker) applyStep(
	ctx context.Context,
	assembler *audio.Assembler,
	step narration.Step,
) error {
	if step.Kind == narration.StepPause {
		assembler.AppendSilence(w.settings.Gap)

		return nil
	}

	segments, err := w.engine.Synthesize(ctx, w.normalizer.Normalize(step.Text), w.settings.Voice)
	if err != nil {
		return fmt.Errorf("synthesis failed: %w", err)
	}

	for _, segment := range segments {
		assembler.AppendSegment(segment)
	}

	return nil
}

func (w *Worker) markFailed(ctx context.Context, jobID string) {
	err := w.store.UpdateStatus(ctx, jobID, core.StatusFailed, "")
	if err != nil {
		w.log.Error("Failed to mark job %s failed: %v", jobID, err)
	}
}
