// Package audio_test tests the waveform assembler and WAV codec.
package audio_test

import (
	"testing"
	"time"

	"github.com/book-expert/narration-service/internal/audio"
	"github.com/book-expert/narration-service/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSampleRate = 24000

func TestNewAssembler_RejectsNonPositiveSampleRate(t *testing.T) {
	t.Parallel()

	_, err := audio.NewAssembler(0)
	require.ErrorIs(t, err, audio.ErrSampleRateZero)

	_, err = audio.NewAssembler(-1)
	require.ErrorIs(t, err, audio.ErrSampleRateZero)
}

func TestAssembler_ConcatenatesSegmentsInOrder(t *testing.T) {
	t.Parallel()

	assembler, err := audio.NewAssembler(testSampleRate)
	require.NoError(t, err)

	assembler.AppendSegment(core.PCM{1, 2, 3})
	assembler.AppendSegment(core.PCM{4, 5})
	assembler.AppendSegment(core.PCM{6})

	assert.Equal(t, 3, assembler.SegmentCount())
	assert.Equal(t, core.PCM{1, 2, 3, 4, 5, 6}, assembler.Samples())
}

func TestAssembler_SilenceLength(t *testing.T) {
	t.Parallel()

	assembler, err := audio.NewAssembler(testSampleRate)
	require.NoError(t, err)

	assembler.AppendSilence(500 * time.Millisecond)

	samples := assembler.Samples()
	require.Len(t, samples, testSampleRate/2)

	for _, sample := range samples {
		require.Zero(t, sample)
	}
}

func TestAssembler_EmptyEncodingFails(t *testing.T) {
	t.Parallel()

	assembler, err := audio.NewAssembler(testSampleRate)
	require.NoError(t, err)

	require.True(t, assembler.Empty())

	_, err = assembler.EncodeWAV()
	require.ErrorIs(t, err, audio.ErrNoSegments)
}

func TestAssembler_EncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	assembler, err := audio.NewAssembler(testSampleRate)
	require.NoError(t, err)

	speech := core.PCM{100, -100, 2000, -2000, 32767, -32768}
	assembler.AppendSegment(speech)
	assembler.AppendSilence(100 * time.Millisecond)

	data, err := assembler.EncodeWAV()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	decoded, sampleRate, err := audio.DecodeWAV(data)
	require.NoError(t, err)

	assert.Equal(t, testSampleRate, sampleRate)
	require.Len(t, decoded, len(speech)+testSampleRate/10)
	assert.Equal(t, speech, decoded[:len(speech)])

	for _, sample := range decoded[len(speech):] {
		require.Zero(t, sample)
	}
}

func TestDecodeWAV_RejectsGarbage(t *testing.T) {
	t.Parallel()

	_, _, err := audio.DecodeWAV([]byte("not a wav file"))
	require.ErrorIs(t, err, audio.ErrInvalidWAV)
}
