// Package worker_test tests the narration worker loop.
package worker_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/narration-service/internal/artifact"
	"github.com/book-expert/narration-service/internal/audio"
	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/jobstore"
	"github.com/book-expert/narration-service/internal/queue"
	"github.com/book-expert/narration-service/internal/worker"
)

const testSampleRate = 24000

var (
	errMockExtract = errors.New("mock extract error")
	errMockSynth   = errors.New("mock synthesis error")
)

// mockExtractor is a mock implementation of the Extractor interface. When
// queue holds more than one document, each call pops the next, so two
// jobs can carry distinct content.
type mockExtractor struct {
	doc        *core.Document
	docQueue   []*core.Document
	shouldFail bool
}

func (m *mockExtractor) Extract(_ context.Context, _ []byte) (*core.Document, error) {
	if m.shouldFail {
		return nil, errMockExtract
	}

	if len(m.docQueue) > 0 {
		next := m.docQueue[0]
		m.docQueue = m.docQueue[1:]

		return next, nil
	}

	return m.doc, nil
}

// mockEngine is a mock implementation of the SpeechEngine interface. It
// returns a fixed two-sample segment per chunk and records the chunks it
// was asked to speak.
type mockEngine struct {
	spokenChunks []string
	spokenVoices []string
	failOnChunk  string
}

func (m *mockEngine) Synthesize(_ context.Context, text, voice string) ([]core.PCM, error) {
	if m.failOnChunk != "" && text == m.failOnChunk {
		return nil, errMockSynth
	}

	m.spokenChunks = append(m.spokenChunks, text)
	m.spokenVoices = append(m.spokenVoices, voice)

	return []core.PCM{{1, -1}}, nil
}

func (m *mockEngine) SampleRate() int {
	return testSampleRate
}

type testRig struct {
	store     *jobstore.Store
	workQueue *queue.Queue
	sources   *artifact.FileStore
	outputs   *artifact.FileStore
	extractor *mockExtractor
	engine    *mockEngine
	worker    *worker.Worker
}

func newTestRig(t *testing.T, extractor *mockExtractor, engine *mockEngine) *testRig {
	t.Helper()

	store, err := jobstore.Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	sources, err := artifact.NewFileStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	outputs, err := artifact.NewFileStore(filepath.Join(t.TempDir(), "audio"))
	require.NoError(t, err)

	log, err := logger.New(t.TempDir(), "worker-test.log")
	require.NoError(t, err)

	workQueue := queue.New()

	workerInstance := worker.New(
		store, workQueue, sources, outputs, extractor, engine,
		worker.Settings{
			Voice: "af_heart",
			Gap:   500 * time.Millisecond,
		},
		log,
	)

	return &testRig{
		store:     store,
		workQueue: workQueue,
		sources:   sources,
		outputs:   outputs,
		extractor: extractor,
		engine:    engine,
		worker:    workerInstance,
	}
}

func (r *testRig) submit(t *testing.T, id string) {
	t.Helper()

	ctx := context.Background()
	sourceRef := id + "_doc.md"

	err := r.sources.Save(ctx, sourceRef, []byte("document body"))
	require.NoError(t, err)

	err = r.store.Create(ctx, &core.Job{
		ID:           id,
		OriginalName: "doc.md",
		SourceRef:    sourceRef,
		Status:       core.StatusQueued,
		OutputRef:    "",
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)

	r.workQueue.Enqueue(id)
}

func (r *testRig) runToCompletion(t *testing.T) {
	t.Helper()

	done := make(chan struct{})

	go func() {
		r.worker.Run(context.Background())
		close(done)
	}()

	r.workQueue.Close()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not stop after queue close")
	}
}

func TestWorker_CompletesJobWithFullTemplate(t *testing.T) {
	t.Parallel()

	extractor := &mockExtractor{
		doc: &core.Document{
			Title:    "T",
			Abstract: "A",
			Sections: []core.Section{{Heading: "H", Body: "B"}},
		},
		docQueue:   nil,
		shouldFail: false,
	}
	engine := &mockEngine{spokenChunks: nil, spokenVoices: nil, failOnChunk: ""}
	rig := newTestRig(t, extractor, engine)

	rig.submit(t, "job-1")
	rig.runToCompletion(t)

	ctx := context.Background()

	job, err := rig.store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, job.Status)
	assert.Equal(t, "job-1.wav", job.OutputRef)

	// The narration template, in order.
	assert.Equal(t, []string{
		"Title: T.",
		"Abstract.",
		"A",
		"Section: H.",
		"B",
	}, engine.spokenChunks)

	for _, voice := range engine.spokenVoices {
		assert.Equal(t, "af_heart", voice)
	}

	wavData, err := rig.outputs.Load(ctx, "job-1.wav")
	require.NoError(t, err)

	samples, sampleRate, err := audio.DecodeWAV(wavData)
	require.NoError(t, err)
	assert.Equal(t, testSampleRate, sampleRate)

	// 5 speech segments of 2 samples each plus 5 half-second gaps.
	expectedLen := 5*2 + 5*(testSampleRate/2)
	assert.Len(t, samples, expectedLen)
}

func TestWorker_ExtractionFailureMarksJobFailed(t *testing.T) {
	t.Parallel()

	extractor := &mockExtractor{doc: nil, docQueue: nil, shouldFail: true}
	engine := &mockEngine{spokenChunks: nil, spokenVoices: nil, failOnChunk: ""}
	rig := newTestRig(t, extractor, engine)

	rig.submit(t, "job-1")
	rig.runToCompletion(t)

	job, err := rig.store.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, job.Status)
	assert.Empty(t, job.OutputRef)
	assert.Empty(t, engine.spokenChunks)
}

func TestWorker_SynthesisFailureDoesNotBlockNextJob(t *testing.T) {
	t.Parallel()

	extractor := &mockExtractor{
		doc: nil,
		docQueue: []*core.Document{
			{
				Title:    "",
				Abstract: "",
				Sections: []core.Section{{Heading: "", Body: "BOOM"}},
			},
			{
				Title:    "",
				Abstract: "",
				Sections: []core.Section{{Heading: "", Body: "X"}},
			},
		},
		shouldFail: false,
	}
	// Only the first job's chunk fails; the second must still complete.
	engine := &mockEngine{spokenChunks: nil, spokenVoices: nil, failOnChunk: "BOOM"}
	rig := newTestRig(t, extractor, engine)

	rig.submit(t, "job-1")
	rig.submit(t, "job-2")
	rig.runToCompletion(t)

	ctx := context.Background()

	first, err := rig.store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, first.Status)
	assert.Empty(t, first.OutputRef)

	second, err := rig.store.Get(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, second.Status)
	assert.Equal(t, "job-2.wav", second.OutputRef)
}

func TestWorker_EmptyDocumentFails(t *testing.T) {
	t.Parallel()

	extractor := &mockExtractor{
		doc:        &core.Document{Title: "", Abstract: "", Sections: nil},
		docQueue:   nil,
		shouldFail: false,
	}
	engine := &mockEngine{spokenChunks: nil, spokenVoices: nil, failOnChunk: ""}
	rig := newTestRig(t, extractor, engine)

	rig.submit(t, "job-1")
	rig.runToCompletion(t)

	job, err := rig.store.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, job.Status)
	assert.Empty(t, job.OutputRef)
}

func TestWorker_MissingJobIsSkipped(t *testing.T) {
	t.Parallel()

	extractor := &mockExtractor{doc: nil, docQueue: nil, shouldFail: false}
	engine := &mockEngine{spokenChunks: nil, spokenVoices: nil, failOnChunk: ""}
	rig := newTestRig(t, extractor, engine)

	// Enqueue an id the store has never seen alongside a real job.
	rig.workQueue.Enqueue("ghost")
	extractor.doc = &core.Document{
		Title:    "",
		Abstract: "",
		Sections: []core.Section{{Heading: "", Body: "X"}},
	}
	rig.submit(t, "job-1")
	rig.runToCompletion(t)

	job, err := rig.store.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, job.Status)

	_, err = rig.store.Get(context.Background(), "ghost")
	require.ErrorIs(t, err, core.ErrJobNotFound)
}

func TestWorker_OutputsAreIsolatedPerJob(t *testing.T) {
	t.Parallel()

	extractor := &mockExtractor{
		doc: &core.Document{
			Title:    "",
			Abstract: "",
			Sections: []core.Section{{Heading: "", Body: "X"}},
		},
		docQueue:   nil,
		shouldFail: false,
	}
	engine := &mockEngine{spokenChunks: nil, spokenVoices: nil, failOnChunk: ""}
	rig := newTestRig(t, extractor, engine)

	rig.submit(t, "job-1")
	rig.submit(t, "job-2")
	rig.runToCompletion(t)

	ctx := context.Background()

	for _, id := range []string{"job-1", "job-2"} {
		job, err := rig.store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, core.StatusCompleted, job.Status)
		assert.Equal(t, id+".wav", job.OutputRef)

		wavData, loadErr := rig.outputs.Load(ctx, job.OutputRef)
		require.NoError(t, loadErr)

		samples, _, decodeErr := audio.DecodeWAV(wavData)
		require.NoError(t, decodeErr)
		// One 2-sample speech segment and one half-second gap each.
		assert.Len(t, samples, 2+testSampleRate/2)
	}
}
