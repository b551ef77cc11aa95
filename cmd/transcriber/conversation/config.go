package conversation

import (
	"fmt"
	"time"

	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/transcribe"
)

const (
	NumWorkersDefault = 1
	tmpDirName        = "tmp"
	outputSuffix      = "_transcript"
	previewLen        = 1000
	unknownSpeaker    = "Unknown"
)

type OutputOptions struct {
	Text   transcribe.TextOptions
	WebVTT transcribe.WebVTTOptions
	// Whether to also write a WebVTT file next to the text transcript.
	WriteWebVTT bool
	// Whether to also write the raw segments as JSON next to the text transcript.
	WriteJSON bool
}

type Config struct {
	// The directory where outputs and temporary artifacts are written.
	DataDir string
	// The number of turns processed concurrently.
	NumWorkers int
	// The maximum time allowed for identifying and transcribing a single turn
	// (zero means no limit).
	TurnTimeout time.Duration

	Output OutputOptions
}

func (c *Config) SetDefaults() {
	if c.NumWorkers == 0 {
		c.NumWorkers = NumWorkersDefault
	}
	if c.Output.Text.IsEmpty() {
		c.Output.Text.SetDefaults()
	}
}

func (c Config) IsValid() error {
	if c.DataDir == "" {
		return fmt.Errorf("DataDir should not be empty")
	}
	if c.NumWorkers < 1 {
		return fmt.Errorf("NumWorkers should be a positive number")
	}
	if c.TurnTimeout < 0 {
		return fmt.Errorf("TurnTimeout should not be negative")
	}
	if err := c.Output.Text.IsValid(); err != nil {
		return err
	}
	return c.Output.WebVTT.IsValid()
}
