package vad

import (
	"fmt"
	"testing"

	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/transcribe"

	"github.com/streamer45/silero-vad-go/speech"
	"github.com/stretchr/testify/require"
)

type mockDetector struct {
	segments  []speech.Segment
	err       error
	resets    int
	destroyed bool
}

func (d *mockDetector) Detect(_ []float32) ([]speech.Segment, error) {
	return d.segments, d.err
}

func (d *mockDetector) Reset() error {
	d.resets++
	return nil
}

func (d *mockDetector) Destroy() error {
	d.destroyed = true
	return nil
}

type mockEngine struct {
	calls     int
	destroyed bool
}

func (e *mockEngine) Transcribe(_ []float32) (transcribe.Result, error) {
	e.calls++
	return transcribe.Result{Text: "hello", Language: "en"}, nil
}

func (e *mockEngine) Destroy() error {
	e.destroyed = true
	return fmt.Errorf("engine destroy failed")
}

func TestNewGate(t *testing.T) {
	_, err := NewGate(nil, &mockDetector{})
	require.EqualError(t, err, "engine should not be nil")

	_, err = NewGate(&mockEngine{}, nil)
	require.EqualError(t, err, "detector should not be nil")
}

func TestNewDetector(t *testing.T) {
	_, err := NewDetector("/tmp/missing_silero_vad.onnx")
	require.ErrorContains(t, err, "failed to stat model file")
}

func TestGate(t *testing.T) {
	samples := make([]float32, 16000)

	tcs := []struct {
		name      string
		detector  *mockDetector
		expText   string
		expCalled int
	}{
		{
			name:      "speech",
			detector:  &mockDetector{segments: []speech.Segment{{SpeechStartAt: 0.1, SpeechEndAt: 0.8}}},
			expText:   "hello",
			expCalled: 1,
		},
		{
			name:     "silence",
			detector: &mockDetector{},
		},
		{
			name:      "detection failure",
			detector:  &mockDetector{err: fmt.Errorf("window too small")},
			expText:   "hello",
			expCalled: 1,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			engine := &mockEngine{}
			g, err := NewGate(engine, tc.detector)
			require.NoError(t, err)

			res, err := g.Transcribe(samples)
			require.NoError(t, err)
			require.Equal(t, tc.expText, res.Text)
			require.Equal(t, tc.expCalled, engine.calls)
			require.Equal(t, 1, tc.detector.resets)

			require.EqualError(t, g.Destroy(), "engine destroy failed")
			require.True(t, engine.destroyed)
			require.True(t, tc.detector.destroyed)
		})
	}
}
