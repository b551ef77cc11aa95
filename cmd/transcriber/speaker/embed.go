package speaker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/audio"
)

const (
	LongClipThresholdDefault = 30.0 // seconds
	WindowSizeDefault        = 5.0  // seconds
)

// Embedder computes a fixed size voice embedding for a mono audio clip.
type Embedder interface {
	Embed(ctx context.Context, samples []float32, sampleRate int) ([]float32, error)
}

type ChunkOptions struct {
	// Clips longer than this many seconds are embedded window by window.
	LongClipThreshold float64
	// The size of each window in seconds.
	WindowSize float64
}

func (o *ChunkOptions) SetDefaults() {
	if o.LongClipThreshold == 0 {
		o.LongClipThreshold = LongClipThresholdDefault
	}
	if o.WindowSize == 0 {
		o.WindowSize = WindowSizeDefault
	}
}

func (o ChunkOptions) IsValid() error {
	if o.LongClipThreshold <= 0 {
		return fmt.Errorf("LongClipThreshold should be a positive number")
	}
	if o.WindowSize <= 0 {
		return fmt.Errorf("WindowSize should be a positive number")
	}
	if o.WindowSize > o.LongClipThreshold {
		return fmt.Errorf("WindowSize should not be greater than LongClipThreshold")
	}
	return nil
}

// ExtractEmbeddings returns one embedding for short clips, or one embedding
// per window for clips longer than the threshold. Windows the embedder
// rejects are skipped; it fails only when no window could be embedded.
func ExtractEmbeddings(ctx context.Context, e Embedder, buf audio.Buffer, opts ChunkOptions) ([][]float32, error) {
	if buf.IsEmpty() {
		return nil, fmt.Errorf("audio should not be empty")
	}

	windows := []audio.Buffer{buf}
	if buf.Duration() > opts.LongClipThreshold {
		windows = buf.Windows(opts.WindowSize)
	}

	var firstErr error
	embeddings := make([][]float32, 0, len(windows))
	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		emb, err := e.Embed(ctx, w.Samples, w.SampleRate)
		if err == nil && len(emb) == 0 {
			err = fmt.Errorf("empty embedding")
		}
		if err != nil {
			err = fmt.Errorf("failed to embed window %d: %w", i, err)
			if len(windows) > 1 {
				slog.Warn("skipping window", slog.String("err", err.Error()),
					slog.Float64("duration", w.Duration()))
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		embeddings = append(embeddings, emb)
	}

	if len(embeddings) == 0 {
		return nil, firstErr
	}

	return embeddings, nil
}
