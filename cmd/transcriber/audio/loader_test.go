package audio

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTone(seconds float64, rate int) Buffer {
	samples := make([]float32, int(seconds*float64(rate)))
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
	}
	return Buffer{Samples: samples, SampleRate: rate}
}

func TestLoaderWAV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")

	tone := newTone(1.5, SampleRate)
	require.NoError(t, WriteWAV(path, tone))

	l := NewLoader()
	buf, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, SampleRate, buf.SampleRate)
	require.Len(t, buf.Samples, len(tone.Samples))
	require.InDelta(t, 1.5, buf.Duration(), 0.001)

	for i := 0; i < len(tone.Samples); i += 1000 {
		require.InDelta(t, tone.Samples[i], buf.Samples[i], 0.001)
	}
}

func TestLoaderResamplesWAV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")

	require.NoError(t, WriteWAV(path, newTone(2, 48000)))

	buf, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, SampleRate, buf.SampleRate)
	require.InDelta(t, 2, buf.Duration(), 0.01)
}

func TestLoaderUnsupported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0600))

	l := NewLoader()
	require.False(t, l.Supports(path))

	_, err := l.Load(context.Background(), path)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestLoaderRegister(t *testing.T) {
	l := NewLoader()
	require.Equal(t, []string{".flac", ".m4a", ".mp3", ".wav"}, l.Extensions())
	require.True(t, l.Supports("/tmp/a.FLAC"))
	require.False(t, l.Supports("/tmp/a.ogg"))

	var called bool
	l.Register(".ogg", func(_ io.ReadSeeker) (Buffer, error) {
		called = true
		return newTone(1, SampleRate), nil
	})
	require.True(t, l.Supports("/tmp/a.ogg"))
	require.Equal(t, []string{".flac", ".m4a", ".mp3", ".ogg", ".wav"}, l.Extensions())

	path := filepath.Join(t.TempDir(), "a.ogg")
	require.NoError(t, os.WriteFile(path, []byte("OggS"), 0600))

	buf, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, 1.0, buf.Duration())
}

func TestLoaderTranscodeFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.flac")
	require.NoError(t, os.WriteFile(path, []byte("not flac"), 0600))

	l := NewLoader(WithFFmpeg(filepath.Join(dir, "missing-ffmpeg")), WithTempDir(dir))
	_, err := l.Load(context.Background(), path)
	require.Error(t, err)

	// No conversion leftovers.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestTempClip(t *testing.T) {
	dir := t.TempDir()

	path, cleanup, err := TempClip(dir, "turn-*.wav", newTone(0.5, SampleRate))
	require.NoError(t, err)
	require.FileExists(t, path)

	buf, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.InDelta(t, 0.5, buf.Duration(), 0.001)

	cleanup()
	require.NoFileExists(t, path)

	// Calling it twice is harmless.
	cleanup()
}

func TestWAVBytes(t *testing.T) {
	data, err := WAVBytes(newTone(1, SampleRate))
	require.NoError(t, err)
	require.Equal(t, "RIFF", string(data[:4]))
	require.Equal(t, "WAVE", string(data[8:12]))
	require.Greater(t, len(data), 2*SampleRate)
}
