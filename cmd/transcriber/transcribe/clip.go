package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/audio"
)

type ClipLoader interface {
	Load(ctx context.Context, path string) (audio.Buffer, error)
}

// ClipTranscriber loads clips from disk and feeds them to a pool of engines.
// Each engine serves one clip at a time.
type ClipTranscriber struct {
	loader  ClipLoader
	engines chan Engine
	size    int
}

func NewClipTranscriber(loader ClipLoader, engines ...Engine) (*ClipTranscriber, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader should not be nil")
	}
	if len(engines) == 0 {
		return nil, fmt.Errorf("at least one engine is required")
	}

	t := &ClipTranscriber{
		loader:  loader,
		engines: make(chan Engine, len(engines)),
		size:    len(engines),
	}
	for _, e := range engines {
		if e == nil {
			return nil, fmt.Errorf("engine should not be nil")
		}
		t.engines <- e
	}

	return t, nil
}

func (t *ClipTranscriber) Transcribe(ctx context.Context, clipPath string) (Result, error) {
	buf, err := t.loader.Load(ctx, clipPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load clip: %w", err)
	}
	if buf.IsEmpty() {
		return Result{}, nil
	}

	var engine Engine
	select {
	case engine = <-t.engines:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	defer func() {
		t.engines <- engine
	}()

	res, err := engine.Transcribe(buf.Samples)
	if err != nil {
		return Result{}, fmt.Errorf("failed to transcribe clip: %w", err)
	}

	return res, nil
}

// Destroy releases every engine in the pool, waiting for in-flight
// transcriptions to complete.
func (t *ClipTranscriber) Destroy() error {
	var errs []error
	for i := 0; i < t.size; i++ {
		engine := <-t.engines
		if err := engine.Destroy(); err != nil {
			slog.Error("failed to destroy engine", slog.String("err", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
