package transcribe

import (
	"context"
	"fmt"
	"strings"
)

const (
	NoSpeechText    = "[No speech detected]"
	FailedText      = "[Transcription failed]"
	LanguageUnknown = "Unknown"
)

// Result is what a speech to text engine produced for a clip. Language is
// the engine's language code, if any.
type Result struct {
	Text     string
	Language string
}

// Transcriber transcribes the audio clip stored at clipPath.
type Transcriber interface {
	Transcribe(ctx context.Context, clipPath string) (Result, error)
}

// Engine is a speech to text engine working on 16KHz mono samples. Engines
// are not safe for concurrent use.
type Engine interface {
	Transcribe(samples []float32) (Result, error)
	Destroy() error
}

type Status int

const (
	StatusOK Status = iota
	StatusNoSpeech
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoSpeech:
		return "no_speech"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(data []byte) error {
	switch string(data) {
	case "ok":
		*s = StatusOK
	case "no_speech":
		*s = StatusNoSpeech
	case "failed":
		*s = StatusFailed
	default:
		return fmt.Errorf("invalid status %q", string(data))
	}
	return nil
}

// Sentinel returns the placeholder text for statuses that carry no transcription.
func (s Status) Sentinel() string {
	switch s {
	case StatusNoSpeech:
		return NoSpeechText
	case StatusFailed:
		return FailedText
	default:
		return ""
	}
}

// Outcome is the resolved result of transcribing a single turn.
type Outcome struct {
	Status   Status
	Text     string
	Language string
}

// Resolve maps what a Transcriber returned into an Outcome: errors become
// StatusFailed, blank text becomes StatusNoSpeech. Both carry sentinel text
// and an unknown language.
func Resolve(res Result, err error) Outcome {
	if err != nil {
		return Outcome{
			Status:   StatusFailed,
			Text:     FailedText,
			Language: LanguageUnknown,
		}
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		return Outcome{
			Status:   StatusNoSpeech,
			Text:     NoSpeechText,
			Language: LanguageUnknown,
		}
	}

	return Outcome{
		Status:   StatusOK,
		Text:     text,
		Language: LanguageName(res.Language),
	}
}
