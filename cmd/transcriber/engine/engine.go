package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/apis/azure"
	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/apis/service"
	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/apis/sherpa"
	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/apis/vad"
	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/apis/vosk"
	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/apis/whisper.cpp"
	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/audio"
	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/config"
	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/conversation"
	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/enrollment"
	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/opus"
	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/speaker"
	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/transcribe"

	redis "github.com/redis/go-redis/v9"
)

const (
	SegmentationModelName = "speaker-segmentation.onnx"
	EmbeddingModelName    = "speaker-embedding.onnx"
	VADModelName          = "silero_vad.onnx"
)

// Engine holds the collaborators built from a TranscriberConfig. The speaker
// service is always available while the conversation pipeline, which needs
// the segmentation and transcription models, is only built on demand.
type Engine struct {
	cfg     config.TranscriberConfig
	loader  *audio.Loader
	store   *enrollment.Store
	service *speaker.Service

	closers []func() error
}

// New opens the enrollment store and builds the speaker service.
func New(ctx context.Context, cfg config.TranscriberConfig) (_ *Engine, retErr error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	e := &Engine{
		cfg:    cfg,
		loader: NewLoader(),
	}
	defer func() {
		if retErr != nil {
			if err := e.Close(); err != nil {
				slog.Error("failed to close engine", slog.String("err", err.Error()))
			}
		}
	}()

	backend, err := e.newBackend()
	if err != nil {
		return nil, err
	}

	e.store, err = enrollment.Open(ctx, backend, cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("failed to open enrollment store: %w", err)
	}

	embedder, err := e.newEmbedder()
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	e.service, err = speaker.NewService(e.store, embedder, e.loader, cfg.MatchThreshold, speaker.ChunkOptions{
		LongClipThreshold: cfg.LongClipThresholdSec,
		WindowSize:        cfg.ChunkSizeSec,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create speaker service: %w", err)
	}

	return e, nil
}

// NewLoader returns an audio loader that also decodes Ogg/Opus recordings.
func NewLoader() *audio.Loader {
	loader := audio.NewLoader()
	loader.Register(".ogg", opus.DecodeOgg)
	loader.Register(".opus", opus.DecodeOgg)
	return loader
}

func (e *Engine) Speakers() *speaker.Service {
	return e.service
}

// Pipeline builds the segmenter and the transcriber and wires them into a
// conversation pipeline sharing the speaker service.
func (e *Engine) Pipeline() (*conversation.Pipeline, error) {
	segmenter, err := e.newSegmenter()
	if err != nil {
		return nil, fmt.Errorf("failed to create segmenter: %w", err)
	}

	transcriber, err := e.newTranscriber()
	if err != nil {
		return nil, fmt.Errorf("failed to create transcriber: %w", err)
	}

	return conversation.NewPipeline(conversation.Config{
		DataDir:     e.cfg.DataDir,
		NumWorkers:  e.cfg.NumWorkers,
		TurnTimeout: time.Duration(e.cfg.TurnTimeoutSec) * time.Second,
		Output: conversation.OutputOptions{
			Text:        e.cfg.OutputOptions.Text,
			WebVTT:      e.cfg.OutputOptions.WebVTT,
			WriteWebVTT: e.cfg.OutputFormats.Has(config.OutputFormatVTT),
			WriteJSON:   e.cfg.OutputFormats.Has(config.OutputFormatJSON),
		},
	}, segmenter, e.service, transcriber, e.loader)
}

// Close releases the native models and connections in reverse creation order.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}

	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

func (e *Engine) onClose(fn func() error) {
	e.closers = append(e.closers, fn)
}

func (e *Engine) modelPath(name string) string {
	return filepath.Join(e.cfg.ModelsDir, name)
}

func (e *Engine) newBackend() (enrollment.Backend, error) {
	switch e.cfg.StoreBackend {
	case config.StoreBackendFile:
		return enrollment.NewFileBackend(e.cfg.StorePath), nil
	case config.StoreBackendRedis:
		opts, err := redis.ParseURL(e.cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		client := redis.NewClient(opts)
		e.onClose(client.Close)
		return enrollment.NewRedisBackend(client, e.cfg.RedisKey), nil
	default:
		return nil, fmt.Errorf("store backend %q not implemented", e.cfg.StoreBackend)
	}
}

func (e *Engine) newEmbedder() (speaker.Embedder, error) {
	switch e.cfg.EmbeddingAPI {
	case config.EmbeddingAPISherpa:
		embedder, err := sherpa.NewEmbedder(sherpa.EmbedderConfig{
			Model:      e.modelPath(EmbeddingModelName),
			NumThreads: e.cfg.NumThreads,
		})
		if err != nil {
			return nil, err
		}
		e.onClose(embedder.Destroy)
		return embedder, nil
	case config.EmbeddingAPIHTTP:
		return service.NewEmbedder(service.ClientConfig{URL: e.cfg.EmbeddingURL})
	default:
		return nil, fmt.Errorf("embedding API %q not implemented", e.cfg.EmbeddingAPI)
	}
}

func (e *Engine) newSegmenter() (conversation.Segmenter, error) {
	switch e.cfg.SegmentationAPI {
	case config.SegmentationAPISherpa:
		diarizer, err := sherpa.NewDiarizer(sherpa.DiarizerConfig{
			SegmentationModel: e.modelPath(SegmentationModelName),
			EmbeddingModel:    e.modelPath(EmbeddingModelName),
			NumThreads:        e.cfg.NumThreads,
		}, e.loader)
		if err != nil {
			return nil, err
		}
		e.onClose(diarizer.Destroy)
		return diarizer, nil
	case config.SegmentationAPIHTTP:
		return service.NewDiarizer(service.ClientConfig{URL: e.cfg.DiarizationURL})
	default:
		return nil, fmt.Errorf("segmentation API %q not implemented", e.cfg.SegmentationAPI)
	}
}

func (e *Engine) newTranscriber() (transcribe.Transcriber, error) {
	if e.cfg.TranscribeAPI == config.TranscribeAPIOpenAI {
		if e.cfg.VADEnabled {
			slog.Warn("speech detection is not supported by the transcribe API, ignoring",
				slog.String("api", string(e.cfg.TranscribeAPI)))
		}
		return service.NewTranscriber(service.ClientConfig{
			URL:    e.cfg.TranscribeURL,
			APIKey: e.cfg.TranscribeAPIKey,
		}, "", e.language())
	}

	// Sample based engines serve one clip at a time so we create one per worker.
	engines := make([]transcribe.Engine, 0, e.cfg.NumWorkers)
	for i := 0; i < e.cfg.NumWorkers; i++ {
		engine, err := e.newEngine()
		if err != nil {
			for _, eng := range engines {
				if err := eng.Destroy(); err != nil {
					slog.Error("failed to destroy engine", slog.String("err", err.Error()))
				}
			}
			return nil, err
		}
		engines = append(engines, engine)
	}

	transcriber, err := transcribe.NewClipTranscriber(e.loader, engines...)
	if err != nil {
		return nil, err
	}
	e.onClose(transcriber.Destroy)

	return transcriber, nil
}

func (e *Engine) newEngine() (transcribe.Engine, error) {
	var engine transcribe.Engine
	var err error

	switch e.cfg.TranscribeAPI {
	case config.TranscribeAPIWhisperCPP:
		engine, err = whisper.NewContext(whisper.Config{
			ModelFile:  e.modelPath(fmt.Sprintf("ggml-%s.bin", string(e.cfg.ModelSize))),
			NumThreads: e.cfg.NumThreads,
			NoContext:  true,
			Language:   e.cfg.Language,
		})
	case config.TranscribeAPIAzure:
		engine, err = azure.NewSpeechRecognizer(azure.SpeechRecognizerConfig{
			SpeechKey:    e.cfg.AzureSpeechKey,
			SpeechRegion: e.cfg.AzureSpeechRegion,
			Language:     e.language(),
		})
	case config.TranscribeAPIVosk:
		engine, err = vosk.NewTranscriber(vosk.Config{
			ServerURL: e.cfg.VoskURL,
			Language:  e.language(),
		})
	default:
		return nil, fmt.Errorf("transcribe API %q not implemented", e.cfg.TranscribeAPI)
	}
	if err != nil {
		return nil, err
	}

	if !e.cfg.VADEnabled {
		return engine, nil
	}

	detector, err := vad.NewDetector(e.modelPath(VADModelName))
	if err != nil {
		if destroyErr := engine.Destroy(); destroyErr != nil {
			slog.Error("failed to destroy engine", slog.String("err", destroyErr.Error()))
		}
		return nil, err
	}

	return vad.NewGate(engine, detector)
}

// language returns the configured language, or an empty string when it should
// be detected.
func (e *Engine) language() string {
	if e.cfg.Language == config.LanguageDefault {
		return ""
	}
	return e.cfg.Language
}
