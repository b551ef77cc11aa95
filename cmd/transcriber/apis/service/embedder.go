package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/audio"
)

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embedder computes voice embeddings through a remote service exposing
// POST /embed.
type Embedder struct {
	c *client
}

func NewEmbedder(cfg ClientConfig) (*Embedder, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Embedder{c: c}, nil
}

func (e *Embedder) Embed(ctx context.Context, samples []float32, sampleRate int) ([]float32, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("samples should not be empty")
	}

	data, err := audio.WAVBytes(audio.Buffer{Samples: samples, SampleRate: sampleRate})
	if err != nil {
		return nil, fmt.Errorf("failed to encode clip: %w", err)
	}

	var resp embedResponse
	if err := e.c.postForm(ctx, "/embed", formFile{name: "clip.wav", data: bytes.NewReader(data)}, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to embed: %w", err)
	}

	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}

	return resp.Embedding, nil
}
