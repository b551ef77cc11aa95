package speaker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/audio"
	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/enrollment"
)

type AudioLoader interface {
	Load(ctx context.Context, path string) (audio.Buffer, error)
	Supports(path string) bool
}

// Service enrolls and identifies speakers against the enrollment store.
type Service struct {
	store     *enrollment.Store
	embedder  Embedder
	loader    AudioLoader
	threshold float64
	chunkOpts ChunkOptions
}

func NewService(store *enrollment.Store, embedder Embedder, loader AudioLoader, threshold float64, opts ChunkOptions) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store should not be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder should not be nil")
	}
	if loader == nil {
		return nil, fmt.Errorf("loader should not be nil")
	}
	if threshold < -1 || threshold > 1 {
		return nil, fmt.Errorf("threshold should be in the range [-1, 1]")
	}
	opts.SetDefaults()
	if err := opts.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate chunk options: %w", err)
	}

	return &Service{
		store:     store,
		embedder:  embedder,
		loader:    loader,
		threshold: threshold,
		chunkOpts: opts,
	}, nil
}

// AddSpeaker enrolls name from the given sources. A source can either be an
// audio file or a directory containing audio files. Files that can't be
// read are skipped. It returns false if no embedding could be extracted, in
// which case the store is left untouched.
func (s *Service) AddSpeaker(ctx context.Context, name string, sources ...string) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("name should not be empty")
	}

	files := s.resolveSources(sources)
	if len(files) == 0 {
		slog.Warn("no valid audio files to enroll", slog.String("name", name))
		return false, nil
	}

	var embeddings [][]float32
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		buf, err := s.loader.Load(ctx, path)
		if err != nil {
			slog.Error("failed to load enrollment file", slog.String("err", err.Error()), slog.String("path", path))
			continue
		}

		embs, err := ExtractEmbeddings(ctx, s.embedder, buf, s.chunkOpts)
		if err != nil {
			slog.Error("failed to extract embeddings", slog.String("err", err.Error()), slog.String("path", path))
			continue
		}

		slog.Debug("extracted embeddings",
			slog.String("path", path),
			slog.Int("count", len(embs)),
			slog.Float64("duration", buf.Duration()))

		embeddings = append(embeddings, embs...)
	}

	if len(embeddings) == 0 {
		slog.Warn("no embeddings extracted", slog.String("name", name))
		return false, nil
	}

	return s.store.Add(ctx, name, embeddings)
}

// IdentifySpeaker returns the enrolled name matching the voice in the clip at
// path, or enrollment.Unknown.
func (s *Service) IdentifySpeaker(ctx context.Context, path string) (string, error) {
	buf, err := s.loader.Load(ctx, path)
	if err != nil {
		return enrollment.Unknown, fmt.Errorf("failed to load clip: %w", err)
	}

	candidate, err := s.candidate(ctx, buf)
	if err != nil {
		return enrollment.Unknown, err
	}

	if dim := s.store.Dim(); dim != 0 && len(candidate) != dim {
		return enrollment.Unknown, fmt.Errorf("%w: got %d, store has %d", enrollment.ErrDimensionMismatch, len(candidate), dim)
	}

	m := s.store.Match(candidate, s.threshold)
	slog.Debug("speaker identified", slog.String("path", path), slog.String("name", m.Name), slog.Float64("similarity", m.Similarity))

	return m.Name, nil
}

// IdentifyBuffer is like IdentifySpeaker but works on in-memory audio. Any
// failure results in enrollment.Unknown.
func (s *Service) IdentifyBuffer(ctx context.Context, buf audio.Buffer) string {
	if s.store.Len() == 0 {
		return enrollment.Unknown
	}

	candidate, err := s.candidate(ctx, buf)
	if err != nil {
		slog.Error("failed to compute speaker embedding", slog.String("err", err.Error()))
		return enrollment.Unknown
	}

	if dim := s.store.Dim(); len(candidate) != dim {
		slog.Error("embedding dimension mismatch", slog.Int("got", len(candidate)), slog.Int("expected", dim))
		return enrollment.Unknown
	}

	m := s.store.Match(candidate, s.threshold)
	slog.Debug("speaker identified", slog.String("name", m.Name), slog.Float64("similarity", m.Similarity))

	return m.Name
}

func (s *Service) RemoveSpeaker(ctx context.Context, name string) (bool, error) {
	return s.store.Remove(ctx, name)
}

func (s *Service) ListSpeakers() []string {
	return s.store.List()
}

// candidate computes a single embedding for buf. Long clips are embedded
// window by window and the results averaged.
func (s *Service) candidate(ctx context.Context, buf audio.Buffer) ([]float32, error) {
	embs, err := ExtractEmbeddings(ctx, s.embedder, buf, s.chunkOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to extract embeddings: %w", err)
	}

	if len(embs) == 1 {
		return embs[0], nil
	}

	for _, e := range embs[1:] {
		if len(e) != len(embs[0]) {
			return nil, fmt.Errorf("%w: embedder returned vectors of dimension %d and %d",
				enrollment.ErrDimensionMismatch, len(embs[0]), len(e))
		}
	}

	return enrollment.MeanEmbedding(embs), nil
}

// resolveSources expands directories into the supported audio files they
// contain, in lexical order. Unsupported and missing paths are skipped.
func (s *Service) resolveSources(sources []string) []string {
	var files []string
	for _, src := range sources {
		info, err := os.Stat(src)
		if err != nil {
			slog.Warn("skipping enrollment source", slog.String("err", err.Error()), slog.String("path", src))
			continue
		}

		if !info.IsDir() {
			if !s.loader.Supports(src) {
				slog.Warn("skipping unsupported file", slog.String("path", src))
				continue
			}
			files = append(files, src)
			continue
		}

		entries, err := os.ReadDir(src)
		if err != nil {
			slog.Warn("failed to read enrollment directory", slog.String("err", err.Error()), slog.String("path", src))
			continue
		}
		for _, entry := range entries {
			path := filepath.Join(src, entry.Name())
			if entry.IsDir() || !s.loader.Supports(path) {
				continue
			}
			files = append(files, path)
		}
	}

	return files
}
