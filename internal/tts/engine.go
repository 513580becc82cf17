package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/book-expert/narration-service/internal/audio"
	"github.com/book-expert/narration-service/internal/core"
)

// Static errors.
var (
	ErrBlankChunk         = errors.New("chunk text is empty or whitespace-only")
	ErrSampleRateMismatch = errors.New("engine returned unexpected sample rate")
)

// SpeechGenerator is the part of HTTPClient the engine depends on,
// separated so tests can substitute a stub service.
type SpeechGenerator interface {
	GenerateSpeech(ctx context.Context, req Request) ([]byte, error)
}

// Engine implements core.SpeechEngine on top of the TTS HTTP service. It
// guards the adapter contract (no blank chunks in, fixed sample rate out)
// and decodes the service's WAV responses into PCM segments.
type Engine struct {
	generator  SpeechGenerator
	sampleRate int
}

// NewEngine creates an engine that expects every response at the given
// sample rate.
func NewEngine(generator SpeechGenerator, sampleRate int) *Engine {
	return &Engine{
		generator:  generator,
		sampleRate: sampleRate,
	}
}

// SampleRate returns the fixed sample rate of the engine's output.
func (e *Engine) SampleRate() int {
	return e.sampleRate
}

// Synthesize converts one text chunk into an ordered sequence of PCM
// segments. Blank text is a caller bug and is rejected before the service
// is contacted.
func (e *Engine) Synthesize(ctx context.Context, text, voice string) ([]core.PCM, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrSynthesis, ErrBlankChunk)
	}

	wavData, err := e.generator.GenerateSpeech(ctx, Request{
		Text:  text,
		Voice: voice,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSynthesis, err)
	}

	samples, sampleRate, err := audio.DecodeWAV(wavData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSynthesis, err)
	}

	if sampleRate != e.sampleRate {
		return nil, fmt.Errorf("%w: %w: want %d Hz, got %d Hz",
			core.ErrSynthesis, ErrSampleRateMismatch, e.sampleRate, sampleRate)
	}

	return []core.PCM{samples}, nil
}
