// Package tts_test tests the synthesis adapter.
package tts_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/narration-service/internal/audio"
	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/tts"
)

const testSampleRate = 24000

var errMockGenerate = errors.New("mock generate error")

// mockGenerator is a mock implementation of the SpeechGenerator interface.
type mockGenerator struct {
	generateShouldFail bool
	response           []byte
	lastRequest        tts.Request
}

func (m *mockGenerator) GenerateSpeech(_ context.Context, req tts.Request) ([]byte, error) {
	if m.generateShouldFail {
		return nil, errMockGenerate
	}

	m.lastRequest = req

	return m.response, nil
}

func encodeTestWAV(t *testing.T, sampleRate int, samples core.PCM) []byte {
	t.Helper()

	assembler, err := audio.NewAssembler(sampleRate)
	require.NoError(t, err)

	assembler.AppendSegment(samples)

	data, err := assembler.EncodeWAV()
	require.NoError(t, err)

	return data
}

func TestEngine_SynthesizeDecodesPCM(t *testing.T) {
	t.Parallel()

	samples := core.PCM{10, -10, 300, -300}
	generator := &mockGenerator{
		generateShouldFail: false,
		response:           encodeTestWAV(t, testSampleRate, samples),
		lastRequest:        tts.Request{Text: "", Voice: ""},
	}
	engine := tts.NewEngine(generator, testSampleRate)

	segments, err := engine.Synthesize(context.Background(), "Title: T.", "af_heart")
	require.NoError(t, err)

	require.Len(t, segments, 1)
	assert.Equal(t, samples, segments[0])
	assert.Equal(t, "Title: T.", generator.lastRequest.Text)
	assert.Equal(t, "af_heart", generator.lastRequest.Voice)
	assert.Equal(t, testSampleRate, engine.SampleRate())
}

func TestEngine_RejectsBlankText(t *testing.T) {
	t.Parallel()

	engine := tts.NewEngine(&mockGenerator{
		generateShouldFail: false,
		response:           nil,
		lastRequest:        tts.Request{Text: "", Voice: ""},
	}, testSampleRate)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := engine.Synthesize(context.Background(), text, "af_heart")
		require.ErrorIs(t, err, core.ErrSynthesis, "text %q", text)
		require.ErrorIs(t, err, tts.ErrBlankChunk, "text %q", text)
	}
}

func TestEngine_GeneratorFailure(t *testing.T) {
	t.Parallel()

	engine := tts.NewEngine(&mockGenerator{
		generateShouldFail: true,
		response:           nil,
		lastRequest:        tts.Request{Text: "", Voice: ""},
	}, testSampleRate)

	_, err := engine.Synthesize(context.Background(), "hello", "af_heart")
	require.ErrorIs(t, err, core.ErrSynthesis)
}

func TestEngine_SampleRateMismatch(t *testing.T) {
	t.Parallel()

	generator := &mockGenerator{
		generateShouldFail: false,
		response:           encodeTestWAV(t, 16000, core.PCM{1, 2, 3}),
		lastRequest:        tts.Request{Text: "", Voice: ""},
	}
	engine := tts.NewEngine(generator, testSampleRate)

	_, err := engine.Synthesize(context.Background(), "hello", "af_heart")
	require.ErrorIs(t, err, tts.ErrSampleRateMismatch)
}

func TestHTTPClient_GenerateSpeech(t *testing.T) {
	t.Parallel()

	wavData := encodeTestWAV(t, testSampleRate, core.PCM{5, -5})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/generate/speech", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "audio/wav")

		_, err := w.Write(wavData)
		require.NoError(t, err)
	}))
	defer server.Close()

	client := tts.NewHTTPClient(server.URL, 5*time.Second)

	got, err := client.GenerateSpeech(context.Background(), tts.Request{
		Text:  "hello",
		Voice: "af_heart",
	})
	require.NoError(t, err)
	assert.Equal(t, wavData, got)
}

func TestHTTPClient_RejectsEmptyText(t *testing.T) {
	t.Parallel()

	client := tts.NewHTTPClient("http://localhost:0", time.Second)

	_, err := client.GenerateSpeech(context.Background(), tts.Request{Text: "", Voice: ""})
	require.Error(t, err)
}

func TestHTTPClient_ServiceError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)

		_, _ = w.Write([]byte(`{"detail":"text too long","error_code":"TEXT_TOO_LONG"}`))
	}))
	defer server.Close()

	client := tts.NewHTTPClient(server.URL, 5*time.Second)

	_, err := client.GenerateSpeech(context.Background(), tts.Request{Text: "x", Voice: ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text too long")
	assert.Contains(t, err.Error(), "TEXT_TOO_LONG")
}

func TestHTTPClient_HealthCheck(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := tts.NewHTTPClient(server.URL, 5*time.Second)

	require.NoError(t, client.HealthCheck(context.Background()))
}
