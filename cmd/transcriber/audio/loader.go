package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

const ffmpegDefaultPath = "ffmpeg"

// DecodeFunc decodes an encoded audio stream into a normalized mono buffer.
type DecodeFunc func(r io.ReadSeeker) (Buffer, error)

// Loader reads audio files of any supported format into 16KHz mono buffers.
// Formats without a native decoder are converted to WAV through ffmpeg first.
type Loader struct {
	decoders   map[string]DecodeFunc
	transcoded map[string]bool
	ffmpegPath string
	tmpDir     string
}

type LoaderOption func(l *Loader)

// WithFFmpeg sets the path to the ffmpeg binary used for conversions.
func WithFFmpeg(path string) LoaderOption {
	return func(l *Loader) {
		l.ffmpegPath = path
	}
}

// WithTempDir sets the directory where conversion artifacts are written.
func WithTempDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.tmpDir = dir
	}
}

func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		decoders: map[string]DecodeFunc{
			".wav": decodeWAV,
			".mp3": decodeMP3,
		},
		transcoded: map[string]bool{
			".flac": true,
			".m4a":  true,
		},
		ffmpegPath: ffmpegDefaultPath,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Register installs a decoder for the given file extension (e.g. ".ogg").
func (l *Loader) Register(ext string, fn DecodeFunc) {
	l.decoders[strings.ToLower(ext)] = fn
	delete(l.transcoded, strings.ToLower(ext))
}

func (l *Loader) Supports(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := l.decoders[ext]
	return ok || l.transcoded[ext]
}

// Extensions returns the sorted list of supported file extensions.
func (l *Loader) Extensions() []string {
	exts := make([]string, 0, len(l.decoders)+len(l.transcoded))
	for ext := range l.decoders {
		exts = append(exts, ext)
	}
	for ext := range l.transcoded {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func (l *Loader) Load(ctx context.Context, path string) (Buffer, error) {
	ext := strings.ToLower(filepath.Ext(path))

	if l.transcoded[ext] {
		wavPath, cleanup, err := l.transcode(ctx, path)
		if err != nil {
			return Buffer{}, err
		}
		defer cleanup()
		path = wavPath
		ext = ".wav"
	}

	decode, ok := l.decoders[ext]
	if !ok {
		return Buffer{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return Buffer{}, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	buf, err := decode(f)
	if err != nil {
		return Buffer{}, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}

	slog.Debug("audio loaded",
		slog.String("path", path),
		slog.Int("samples", len(buf.Samples)),
		slog.Float64("duration", buf.Duration()))

	return buf, nil
}

// transcode converts the input file into a 16KHz mono WAV file. The returned
// cleanup function removes the converted file and must always be called.
func (l *Loader) transcode(ctx context.Context, path string) (string, func(), error) {
	f, err := os.CreateTemp(l.tmpDir, "transcode-*.wav")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	outPath := f.Name()
	f.Close()

	cleanup := func() {
		if err := os.Remove(outPath); err != nil && !os.IsNotExist(err) {
			slog.Error("failed to remove converted file", slog.String("err", err.Error()), slog.String("path", outPath))
		}
	}

	args := []string{
		"-y",
		"-i", path,
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", SampleRate),
		"-f", "wav",
		outPath,
	}

	slog.Debug("converting audio", slog.String("path", path), slog.Any("args", args))

	out, err := exec.CommandContext(ctx, l.ffmpegPath, args...).CombinedOutput()
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to convert %s: %w: %s", filepath.Base(path), err, strings.TrimSpace(string(out)))
	}

	return outPath, cleanup, nil
}
