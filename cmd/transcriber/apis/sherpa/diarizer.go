package sherpa

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/audio"
	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/conversation"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
)

const (
	ProviderDefault            = "cpu"
	clusteringThresholdDefault = 0.5
	minDurationOnDefault       = 0.3
	minDurationOffDefault      = 0.5
)

type DiarizerConfig struct {
	// The path to the pyannote segmentation model.
	SegmentationModel string
	// The path to the speaker embedding model used for clustering.
	EmbeddingModel string
	NumThreads     int
	// The ONNX execution provider (e.g. cpu, cuda, coreml).
	Provider string
	// The number of speakers if known in advance, -1 to detect it.
	NumSpeakers         int
	ClusteringThreshold float32
	MinDurationOn       float32
	MinDurationOff      float32
}

func (c *DiarizerConfig) SetDefaults() {
	if c.NumThreads == 0 {
		c.NumThreads = 1
	}
	if c.Provider == "" {
		c.Provider = ProviderDefault
	}
	if c.NumSpeakers == 0 {
		c.NumSpeakers = -1
	}
	if c.ClusteringThreshold == 0 {
		c.ClusteringThreshold = clusteringThresholdDefault
	}
	if c.MinDurationOn == 0 {
		c.MinDurationOn = minDurationOnDefault
	}
	if c.MinDurationOff == 0 {
		c.MinDurationOff = minDurationOffDefault
	}
}

func (c DiarizerConfig) IsValid() error {
	if c.SegmentationModel == "" {
		return fmt.Errorf("invalid SegmentationModel: should not be empty")
	}
	if _, err := os.Stat(c.SegmentationModel); err != nil {
		return fmt.Errorf("invalid SegmentationModel: failed to stat model file: %w", err)
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("invalid EmbeddingModel: should not be empty")
	}
	if _, err := os.Stat(c.EmbeddingModel); err != nil {
		return fmt.Errorf("invalid EmbeddingModel: failed to stat model file: %w", err)
	}
	if c.NumThreads < 1 {
		return fmt.Errorf("invalid NumThreads: should be a positive number")
	}
	if c.ClusteringThreshold <= 0 || c.ClusteringThreshold >= 1 {
		return fmt.Errorf("invalid ClusteringThreshold: should be in the range (0, 1)")
	}
	return nil
}

type AudioLoader interface {
	Load(ctx context.Context, path string) (audio.Buffer, error)
}

// Diarizer segments recordings into speaker turns using sherpa-onnx offline
// speaker diarization.
type Diarizer struct {
	cfg      DiarizerConfig
	loader   AudioLoader
	mut      sync.Mutex
	diarizer *sherpa.OfflineSpeakerDiarization
}

func NewDiarizer(cfg DiarizerConfig, loader AudioLoader) (*Diarizer, error) {
	cfg.SetDefaults()
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}
	if loader == nil {
		return nil, fmt.Errorf("loader should not be nil")
	}

	slog.Debug("creating diarizer", slog.Any("cfg", cfg))

	diarizer := sherpa.NewOfflineSpeakerDiarization(&sherpa.OfflineSpeakerDiarizationConfig{
		Segmentation: sherpa.OfflineSpeakerSegmentationModelConfig{
			Pyannote: sherpa.OfflineSpeakerSegmentationPyannoteModelConfig{
				Model: cfg.SegmentationModel,
			},
			NumThreads: cfg.NumThreads,
			Provider:   cfg.Provider,
		},
		Embedding: sherpa.SpeakerEmbeddingExtractorConfig{
			Model:      cfg.EmbeddingModel,
			NumThreads: cfg.NumThreads,
			Provider:   cfg.Provider,
		},
		Clustering: sherpa.FastClusteringConfig{
			NumClusters: cfg.NumSpeakers,
			Threshold:   cfg.ClusteringThreshold,
		},
		MinDurationOn:  cfg.MinDurationOn,
		MinDurationOff: cfg.MinDurationOff,
	})
	if diarizer == nil {
		return nil, fmt.Errorf("failed to create diarizer")
	}

	return &Diarizer{
		cfg:      cfg,
		loader:   loader,
		diarizer: diarizer,
	}, nil
}

func (d *Diarizer) Segment(ctx context.Context, audioPath string) ([]conversation.Turn, error) {
	buf, err := d.loader.Load(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load recording: %w", err)
	}
	if buf.IsEmpty() {
		return nil, nil
	}

	d.mut.Lock()
	defer d.mut.Unlock()

	if d.diarizer == nil {
		return nil, fmt.Errorf("diarizer is not initialized")
	}

	if sr := d.diarizer.SampleRate(); sr != buf.SampleRate {
		return nil, fmt.Errorf("unexpected sample rate %d, diarizer expects %d", buf.SampleRate, sr)
	}

	turns := toTurns(d.diarizer.Process(buf.Samples))

	slog.Debug("diarization completed", slog.Int("turns", len(turns)), slog.Int("speakers", countLabels(turns)))

	return turns, nil
}

func (d *Diarizer) Destroy() error {
	d.mut.Lock()
	defer d.mut.Unlock()

	if d.diarizer == nil {
		return fmt.Errorf("diarizer is not initialized")
	}
	sherpa.DeleteOfflineSpeakerDiarization(d.diarizer)
	d.diarizer = nil
	return nil
}

func toTurns(segments []sherpa.OfflineSpeakerDiarizationSegment) []conversation.Turn {
	turns := make([]conversation.Turn, 0, len(segments))
	for _, s := range segments {
		turns = append(turns, conversation.Turn{
			Start: float64(s.Start),
			End:   float64(s.End),
			Label: fmt.Sprintf("speaker_%d", s.Speaker),
		})
	}
	sort.SliceStable(turns, func(i, j int) bool {
		return turns[i].Start < turns[j].Start
	})
	return turns
}

func countLabels(turns []conversation.Turn) int {
	labels := make(map[string]bool)
	for _, t := range turns {
		labels[t.Label] = true
	}
	return len(labels)
}
