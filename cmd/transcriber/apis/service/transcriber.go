package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/transcribe"
)

const ModelDefault = "whisper-1"

type transcriptionResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Transcriber sends clips to an OpenAI compatible transcription endpoint
// (POST /audio/transcriptions).
type Transcriber struct {
	c        *client
	model    string
	language string
}

// NewTranscriber creates a transcriber for the given model. An empty language
// lets the service detect it.
func NewTranscriber(cfg ClientConfig, model, language string) (*Transcriber, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = ModelDefault
	}
	return &Transcriber{
		c:        c,
		model:    model,
		language: language,
	}, nil
}

func (t *Transcriber) Transcribe(ctx context.Context, clipPath string) (transcribe.Result, error) {
	f, err := os.Open(clipPath)
	if err != nil {
		return transcribe.Result{}, fmt.Errorf("failed to open clip: %w", err)
	}
	defer f.Close()

	fields := map[string]string{
		"model":           t.model,
		"response_format": "verbose_json",
	}
	if t.language != "" && t.language != "auto" {
		fields["language"] = t.language
	}

	var resp transcriptionResponse
	if err := t.c.postForm(ctx, "/audio/transcriptions", formFile{name: filepath.Base(clipPath), data: f}, fields, &resp); err != nil {
		return transcribe.Result{}, fmt.Errorf("failed to transcribe: %w", err)
	}

	lang := resp.Language
	if lang == "" {
		lang = t.language
	}

	return transcribe.Result{
		Text:     resp.Text,
		Language: lang,
	}, nil
}
