package audio

import (
	"errors"
	"fmt"
	"math"
)

const (
	SampleRate = 16000 // 16KHz is what both the embedding and transcription models expect
	Channels   = 1     // Only mono supported
	BitDepth   = 16    // Bit depth used when writing clips to disk
)

var (
	ErrInvalidSpan       = errors.New("invalid span")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// Buffer holds mono PCM samples normalized in the [-1, 1] range.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

func (b Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

func (b Buffer) IsEmpty() bool {
	return len(b.Samples) == 0
}

// Extract returns a copy of the samples in the [start, end) span, expressed in seconds.
// An end past the buffer's duration is clamped to it.
func (b Buffer) Extract(start, end float64) (Buffer, error) {
	dur := b.Duration()
	if start < 0 || start >= end || start >= dur {
		return Buffer{}, fmt.Errorf("%w: [%.3f, %.3f] over %.3fs of audio", ErrInvalidSpan, start, end, dur)
	}
	end = min(end, dur)

	startIdx := int(math.Floor(start * float64(b.SampleRate)))
	endIdx := min(int(math.Floor(end*float64(b.SampleRate))), len(b.Samples))
	if endIdx <= startIdx {
		return Buffer{}, fmt.Errorf("%w: [%.3f, %.3f] is shorter than a sample", ErrInvalidSpan, start, end)
	}

	samples := make([]float32, endIdx-startIdx)
	copy(samples, b.Samples[startIdx:endIdx])

	return Buffer{
		Samples:    samples,
		SampleRate: b.SampleRate,
	}, nil
}

// Windows splits the buffer into consecutive, non-overlapping windows of size
// seconds. The last window holds whatever is left and can be shorter.
func (b Buffer) Windows(size float64) []Buffer {
	if b.IsEmpty() {
		return nil
	}

	n := int(math.Floor(size * float64(b.SampleRate)))
	if n <= 0 || n >= len(b.Samples) {
		return []Buffer{b}
	}

	windows := make([]Buffer, 0, (len(b.Samples)+n-1)/n)
	for i := 0; i < len(b.Samples); i += n {
		windows = append(windows, Buffer{
			Samples:    b.Samples[i:min(i+n, len(b.Samples))],
			SampleRate: b.SampleRate,
		})
	}

	return windows
}

// PCM16 converts the samples to signed 16-bit integers, clipping out of range values.
func (b Buffer) PCM16() []int {
	out := make([]int, len(b.Samples))
	for i, s := range b.Samples {
		v := float64(s) * 32768.0
		out[i] = int(max(-32768, min(32767, v)))
	}
	return out
}
