package transcribe

import (
	"encoding/json"
	"fmt"
	"io"
)

type jsonTranscript struct {
	Speakers []string  `json:"speakers"`
	Segments []Segment `json:"segments"`
}

// WriteJSON dumps the raw per-turn segments along with the identified speakers.
func WriteJSON(w io.Writer, segments []Segment) error {
	tr := Assemble(segments)

	doc := jsonTranscript{
		Speakers: tr.Speakers,
		Segments: segments,
	}
	if doc.Speakers == nil {
		doc.Speakers = []string{}
	}
	if doc.Segments == nil {
		doc.Segments = []Segment{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}

	return nil
}
