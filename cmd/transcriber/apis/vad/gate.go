package vad

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/audio"
	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/transcribe"

	"github.com/streamer45/silero-vad-go/speech"
)

const (
	windowSizeInSamples  = 512
	threshold            = 0.5
	minSilenceDurationMs = 150
	minSpeechDurationMs  = 200
	silencePadMs         = 32
)

// Detector finds speech segments in 16KHz mono samples.
type Detector interface {
	Detect(samples []float32) ([]speech.Segment, error)
	Reset() error
	Destroy() error
}

// NewDetector loads the silero VAD model at modelPath.
func NewDetector(modelPath string) (Detector, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("failed to stat model file: %w", err)
	}

	sd, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:            modelPath,
		SampleRate:           audio.SampleRate,
		WindowSize:           windowSizeInSamples,
		Threshold:            threshold,
		MinSilenceDurationMs: minSilenceDurationMs,
		MinSpeechDurationMs:  minSpeechDurationMs,
		SilencePadMs:         silencePadMs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create speech detector: %w", err)
	}

	return sd, nil
}

// Gate skips the wrapped engine for clips in which no speech is detected,
// returning an empty result instead.
type Gate struct {
	engine   transcribe.Engine
	detector Detector
}

func NewGate(engine transcribe.Engine, detector Detector) (*Gate, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine should not be nil")
	}
	if detector == nil {
		return nil, fmt.Errorf("detector should not be nil")
	}
	return &Gate{
		engine:   engine,
		detector: detector,
	}, nil
}

func (g *Gate) Transcribe(samples []float32) (transcribe.Result, error) {
	segments, err := g.detector.Detect(samples)
	if resetErr := g.detector.Reset(); resetErr != nil {
		slog.Error("failed to reset speech detector", slog.String("err", resetErr.Error()))
	}

	if err != nil {
		// The engine gets the final say when detection fails.
		slog.Warn("speech detection failed", slog.String("err", err.Error()))
	} else if len(segments) == 0 {
		slog.Debug("no speech detected, skipping transcription", slog.Int("samples", len(samples)))
		return transcribe.Result{}, nil
	}

	return g.engine.Transcribe(samples)
}

func (g *Gate) Destroy() error {
	return errors.Join(g.engine.Destroy(), g.detector.Destroy())
}
