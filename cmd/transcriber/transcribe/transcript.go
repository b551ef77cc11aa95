package transcribe

import (
	"fmt"
	"math"
	"strings"
)

const unknownSpeaker = "Unknown"

// Segment is the outcome of processing a single conversation turn. Start and
// End are expressed in seconds from the beginning of the recording.
type Segment struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Speaker  string  `json:"speaker"`
	RawLabel string  `json:"raw_label"`
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Status   Status  `json:"status"`
}

func (s Segment) hasText() bool {
	return s.Status == StatusOK && s.Text != "" && s.Text != NoSpeechText && s.Text != FailedText
}

// Block is a run of consecutive segments attributed to the same speaker.
type Block struct {
	Speaker string
	Start   float64
	End     float64
	Text    string
}

type Transcript struct {
	// Speakers lists the identified speakers in order of first appearance.
	Speakers []string
	Blocks   []Block
}

// Assemble merges adjacent segments sharing the same speaker into blocks.
// Segments without text (sentinels) extend the current block but contribute
// no text; a run that ends up with no text at all produces no block.
func Assemble(segments []Segment) Transcript {
	var tr Transcript

	seen := make(map[string]bool)
	for _, s := range segments {
		if s.Speaker != unknownSpeaker && !seen[s.Speaker] {
			seen[s.Speaker] = true
			tr.Speakers = append(tr.Speakers, s.Speaker)
		}
	}

	var cur *Block
	var texts []string
	flush := func() {
		if cur != nil && len(texts) > 0 {
			cur.Text = strings.Join(texts, " ")
			tr.Blocks = append(tr.Blocks, *cur)
		}
		cur = nil
		texts = nil
	}

	for _, s := range segments {
		if cur == nil || s.Speaker != cur.Speaker {
			flush()
			cur = &Block{
				Speaker: s.Speaker,
				Start:   s.Start,
			}
		}

		cur.End = s.End
		if s.hasText() {
			texts = append(texts, s.Text)
		}
	}
	flush()

	return tr
}

// FormatTimestamp formats seconds in the MM:SS format. Minutes are not
// wrapped into hours.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	m := int(math.Floor(seconds / 60))
	s := int(math.Mod(seconds, 60))
	return fmt.Sprintf("%02d:%02d", m, s)
}

// sanitize collapses the text on a single line.
func sanitize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
