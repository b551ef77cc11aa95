package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/conversation"
)

type diarizeSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

type diarizeResponse struct {
	Segments    []diarizeSegment `json:"segments"`
	NumSpeakers int              `json:"num_speakers"`
}

// Diarizer segments recordings through a remote diarization service exposing
// POST /diarize.
type Diarizer struct {
	c *client
}

func NewDiarizer(cfg ClientConfig) (*Diarizer, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Diarizer{c: c}, nil
}

func (d *Diarizer) Segment(ctx context.Context, audioPath string) ([]conversation.Turn, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	var resp diarizeResponse
	if err := d.c.postForm(ctx, "/diarize", formFile{name: filepath.Base(audioPath), data: f}, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to diarize: %w", err)
	}

	turns := make([]conversation.Turn, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		turns = append(turns, conversation.Turn{
			Start: s.Start,
			End:   s.End,
			Label: s.Speaker,
		})
	}
	sort.SliceStable(turns, func(i, j int) bool {
		return turns[i].Start < turns[j].Start
	})

	return turns, nil
}
