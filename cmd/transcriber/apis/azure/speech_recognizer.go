package azure

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/audio"
	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/transcribe"

	sdkaudio "github.com/Microsoft/cognitive-services-speech-sdk-go/audio"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/common"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/speech"
)

const (
	LanguageDefault       = "en-US"
	sessionTimeoutDefault = 60 * time.Second
)

type SpeechRecognizerConfig struct {
	SpeechKey    string
	SpeechRegion string
	// The recognition language, as a BCP-47 tag (e.g. en-US).
	Language string
	// How long to wait for the service to finish recognizing a clip.
	SessionTimeout time.Duration
}

func (c *SpeechRecognizerConfig) SetDefaults() {
	if c.Language == "" {
		c.Language = LanguageDefault
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = sessionTimeoutDefault
	}
}

func (c SpeechRecognizerConfig) IsValid() error {
	if c.SpeechKey == "" {
		return fmt.Errorf("invalid SpeechKey: should not be empty")
	}

	if c.SpeechRegion == "" {
		return fmt.Errorf("invalid SpeechRegion: should not be empty")
	}

	if c.SessionTimeout < 0 {
		return fmt.Errorf("invalid SessionTimeout: should not be negative")
	}

	return nil
}

type SpeechRecognizer struct {
	cfg SpeechRecognizerConfig
}

func NewSpeechRecognizer(cfg SpeechRecognizerConfig) (*SpeechRecognizer, error) {
	cfg.SetDefaults()
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	return &SpeechRecognizer{
		cfg: cfg,
	}, nil
}

// phrases collects the recognized phrases of a recognition session.
type phrases struct {
	mut   sync.Mutex
	texts []string
	err   error
}

func (p *phrases) add(text string) {
	p.mut.Lock()
	defer p.mut.Unlock()
	if text = strings.TrimSpace(text); text != "" {
		p.texts = append(p.texts, text)
	}
}

func (p *phrases) fail(err error) {
	p.mut.Lock()
	defer p.mut.Unlock()
	if p.err == nil {
		p.err = err
	}
}

func (p *phrases) result() (string, error) {
	p.mut.Lock()
	defer p.mut.Unlock()
	return strings.Join(p.texts, " "), p.err
}

// Transcribe pushes the whole clip to the service and waits for the session
// to end, joining every recognized phrase. The reported language is the
// configured recognition language.
func (s *SpeechRecognizer) Transcribe(samples []float32) (transcribe.Result, error) {
	if len(samples) == 0 {
		return transcribe.Result{}, fmt.Errorf("samples should not be empty")
	}

	cfg, err := speech.NewSpeechConfigFromSubscription(s.cfg.SpeechKey, s.cfg.SpeechRegion)
	if err != nil {
		return transcribe.Result{}, fmt.Errorf("failed to create speech config: %w", err)
	}
	defer cfg.Close()

	if err := cfg.SetSpeechRecognitionLanguage(s.cfg.Language); err != nil {
		return transcribe.Result{}, fmt.Errorf("failed to set speech recognition language: %w", err)
	}

	stream, err := sdkaudio.CreatePushAudioInputStream()
	if err != nil {
		return transcribe.Result{}, fmt.Errorf("failed to create audio stream: %w", err)
	}
	defer stream.Close()

	audioConfig, err := sdkaudio.NewAudioConfigFromStreamInput(stream)
	if err != nil {
		return transcribe.Result{}, fmt.Errorf("failed to create audio config: %w", err)
	}
	defer audioConfig.Close()

	speechRecognizer, err := speech.NewSpeechRecognizerFromConfig(cfg, audioConfig)
	if err != nil {
		return transcribe.Result{}, fmt.Errorf("failed to create speech recognizer: %w", err)
	}
	defer speechRecognizer.Close()

	var ph phrases
	doneCh := make(chan struct{})
	var doneOnce sync.Once
	done := func() {
		doneOnce.Do(func() { close(doneCh) })
	}

	speechRecognizer.SessionStarted(func(event speech.SessionEventArgs) {
		defer event.Close()
		slog.Debug("session started", slog.String("sessionID", event.SessionID))
	})
	speechRecognizer.SessionStopped(func(event speech.SessionEventArgs) {
		defer event.Close()
		slog.Debug("session stopped", slog.String("sessionID", event.SessionID))
		done()
	})
	speechRecognizer.Canceled(func(event speech.SpeechRecognitionCanceledEventArgs) {
		defer event.Close()
		if event.Reason == common.Error {
			slog.Error("transcription canceled", slog.String("details", event.ErrorDetails))
			ph.fail(fmt.Errorf("recognition canceled: %s", event.ErrorDetails))
		} else {
			slog.Debug("transcription canceled", slog.String("details", event.ErrorDetails))
		}
		done()
	})
	speechRecognizer.Recognized(func(event speech.SpeechRecognitionEventArgs) {
		defer event.Close()

		if event.Result.Reason == common.NoMatch {
			slog.Debug("no match")
			return
		}

		slog.Debug("phrase recognized",
			slog.String("text", event.Result.Text),
			slog.Duration("offset", event.Result.Offset))
		ph.add(event.Result.Text)
	})

	wav, err := audio.WAVBytes(audio.Buffer{Samples: samples, SampleRate: audio.SampleRate})
	if err != nil {
		return transcribe.Result{}, fmt.Errorf("failed to encode audio data: %w", err)
	}
	if err := stream.Write(wav); err != nil {
		return transcribe.Result{}, fmt.Errorf("failed to write audio data: %w", err)
	}

	err = <-speechRecognizer.StartContinuousRecognitionAsync()
	if err != nil {
		return transcribe.Result{}, fmt.Errorf("failed to start recognizer: %w", err)
	}
	defer func() {
		err := <-speechRecognizer.StopContinuousRecognitionAsync()
		if err != nil {
			slog.Error("failed to stop recognizer", slog.String("err", err.Error()))
		}
	}()

	// This is important as it flushes out any remaining audio data.
	stream.CloseStream()

	select {
	case <-doneCh:
	case <-time.After(s.cfg.SessionTimeout):
		return transcribe.Result{}, fmt.Errorf("timed out waiting for transcription")
	}

	text, err := ph.result()
	if err != nil {
		return transcribe.Result{}, fmt.Errorf("transcription failed: %w", err)
	}

	slog.Debug("transcription completed",
		slog.Int("len", len(text)),
		slog.Float64("inputLen", float64(len(samples))/float64(audio.SampleRate)))

	return transcribe.Result{
		Text:     text,
		Language: s.cfg.Language,
	}, nil
}

func (s *SpeechRecognizer) Destroy() error {
	return nil
}
