package conversation

import (
	"context"
	"fmt"
)

// Turn is a contiguous span of speech attributed to a single, anonymous,
// speaker label by the segmentation model.
type Turn struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Label string  `json:"label"`
}

func (t Turn) Duration() float64 {
	return t.End - t.Start
}

func (t Turn) String() string {
	return fmt.Sprintf("%s[%.2f-%.2f]", t.Label, t.Start, t.End)
}

// Segmenter splits the recording at audioPath into speaker turns, ordered by
// start time.
type Segmenter interface {
	Segment(ctx context.Context, audioPath string) ([]Turn, error)
}
