package sherpa

import (
	"context"
	"fmt"
	"os"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
)

type EmbedderConfig struct {
	// The path to the speaker embedding model (e.g. wespeaker, 3d-speaker).
	Model      string
	NumThreads int
	Provider   string
}

func (c *EmbedderConfig) SetDefaults() {
	if c.NumThreads == 0 {
		c.NumThreads = 1
	}
	if c.Provider == "" {
		c.Provider = ProviderDefault
	}
}

func (c EmbedderConfig) IsValid() error {
	if c.Model == "" {
		return fmt.Errorf("invalid Model: should not be empty")
	}
	if _, err := os.Stat(c.Model); err != nil {
		return fmt.Errorf("invalid Model: failed to stat model file: %w", err)
	}
	if c.NumThreads < 1 {
		return fmt.Errorf("invalid NumThreads: should be a positive number")
	}
	return nil
}

// Embedder computes voice embeddings with a sherpa-onnx speaker embedding
// extractor. Calls are serialized.
type Embedder struct {
	mut       sync.Mutex
	extractor *sherpa.SpeakerEmbeddingExtractor
}

func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	cfg.SetDefaults()
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	extractor := sherpa.NewSpeakerEmbeddingExtractor(&sherpa.SpeakerEmbeddingExtractorConfig{
		Model:      cfg.Model,
		NumThreads: cfg.NumThreads,
		Provider:   cfg.Provider,
	})
	if extractor == nil {
		return nil, fmt.Errorf("failed to create embedding extractor")
	}

	return &Embedder{
		extractor: extractor,
	}, nil
}

// Dim returns the size of the produced embeddings.
func (e *Embedder) Dim() int {
	e.mut.Lock()
	defer e.mut.Unlock()
	if e.extractor == nil {
		return 0
	}
	return e.extractor.Dim()
}

func (e *Embedder) Embed(ctx context.Context, samples []float32, sampleRate int) ([]float32, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("samples should not be empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mut.Lock()
	defer e.mut.Unlock()

	if e.extractor == nil {
		return nil, fmt.Errorf("embedder is not initialized")
	}

	stream := e.extractor.CreateStream()
	defer sherpa.DeleteOnlineStream(stream)

	stream.AcceptWaveform(sampleRate, samples)
	stream.InputFinished()

	if !e.extractor.IsReady(stream) {
		return nil, fmt.Errorf("clip is too short to compute an embedding")
	}

	return e.extractor.Compute(stream), nil
}

func (e *Embedder) Destroy() error {
	e.mut.Lock()
	defer e.mut.Unlock()

	if e.extractor == nil {
		return fmt.Errorf("embedder is not initialized")
	}
	sherpa.DeleteSpeakerEmbeddingExtractor(e.extractor)
	e.extractor = nil
	return nil
}
