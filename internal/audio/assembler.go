// Package audio provides the deterministic assembly of synthesized speech
// segments and silence gaps into one continuous mono waveform, plus the
// WAV encoding and decoding used at the synthesis boundary.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/book-expert/narration-service/internal/core"
)

const (
	bitDepth     = 16
	monoChannels = 1
	// Linear PCM format tag in the WAV header.
	wavFormatPCM = 1
)

// Static errors.
var (
	ErrNoSegments     = errors.New("no audio segments to encode")
	ErrInvalidWAV     = errors.New("invalid WAV data")
	ErrNotMono        = errors.New("expected mono audio")
	ErrSampleRateZero = errors.New("sample rate must be positive")
)

// Assembler collects PCM segments in order and concatenates them into one
// waveform. The segment order is a hard contract: reordering changes the
// narrated output.
type Assembler struct {
	sampleRate int
	segments   []core.PCM
}

// NewAssembler creates an assembler for the given sample rate.
func NewAssembler(sampleRate int) (*Assembler, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrSampleRateZero, sampleRate)
	}

	return &Assembler{
		sampleRate: sampleRate,
		segments:   nil,
	}, nil
}

// AppendSegment appends one synthesized PCM segment.
func (a *Assembler) AppendSegment(segment core.PCM) {
	a.segments = append(a.segments, segment)
}

// AppendSilence appends a zero-amplitude segment of the given duration.
func (a *Assembler) AppendSilence(gap time.Duration) {
	sampleCount := int(float64(a.sampleRate) * gap.Seconds())
	a.segments = append(a.segments, make(core.PCM, sampleCount))
}

// SegmentCount reports how many segments have been appended.
func (a *Assembler) SegmentCount() int {
	return len(a.segments)
}

// Empty reports whether nothing has been appended.
func (a *Assembler) Empty() bool {
	return len(a.segments) == 0
}

// Samples concatenates all segments, in order, into one waveform.
func (a *Assembler) Samples() core.PCM {
	total := 0
	for _, segment := range a.segments {
		total += len(segment)
	}

	combined := make(core.PCM, 0, total)
	for _, segment := range a.segments {
		combined = append(combined, segment...)
	}

	return combined
}

// EncodeWAV concatenates the collected segments and encodes them as a
// 16-bit mono PCM WAV file. The encoder needs a seekable writer to patch
// header sizes, so the data takes a round trip through a temp file.
func (a *Assembler) EncodeWAV() ([]byte, error) {
	if a.Empty() {
		return nil, ErrNoSegments
	}

	tempFile, err := os.CreateTemp("", "narration-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for wav output: %w", err)
	}

	tempPath := tempFile.Name()

	defer func() { _ = os.Remove(tempPath) }()

	encodeErr := a.encodeTo(tempFile)

	closeErr := tempFile.Close()

	if encodeErr != nil {
		return nil, encodeErr
	}

	if closeErr != nil {
		return nil, fmt.Errorf("failed to close temp wav file: %w", closeErr)
	}

	data, err := os.ReadFile(tempPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read encoded wav data: %w", err)
	}

	return data, nil
}

func (a *Assembler) encodeTo(file *os.File) error {
	samples := a.Samples()

	intSamples := make([]int, len(samples))
	for i, sample := range samples {
		intSamples[i] = int(sample)
	}

	encoder := wav.NewEncoder(file, a.sampleRate, bitDepth, monoChannels, wavFormatPCM)

	buffer := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: monoChannels,
			SampleRate:  a.sampleRate,
		},
		Data:           intSamples,
		SourceBitDepth: bitDepth,
	}

	err := encoder.Write(buffer)
	if err != nil {
		return fmt.Errorf("failed to write wav samples: %w", err)
	}

	err = encoder.Close()
	if err != nil {
		return fmt.Errorf("failed to finalize wav encoding: %w", err)
	}

	return nil
}

// DecodeWAV decodes 16-bit mono PCM WAV data into samples and reports the
// sample rate found in the header.
func DecodeWAV(data []byte) (core.PCM, int, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, 0, ErrInvalidWAV
	}

	buffer, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode wav data: %w", err)
	}

	if buffer.Format.NumChannels != monoChannels {
		return nil, 0, fmt.Errorf("%w: got %d channels", ErrNotMono, buffer.Format.NumChannels)
	}

	samples := make(core.PCM, len(buffer.Data))
	for i, sample := range buffer.Data {
		samples[i] = int16(sample)
	}

	return samples, buffer.Format.SampleRate, nil
}
