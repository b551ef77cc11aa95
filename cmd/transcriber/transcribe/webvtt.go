package transcribe

import (
	"fmt"
	"html"
	"io"
	"math"
	"os"
	"strconv"
)

type WebVTTOptions struct {
	OmitSpeaker bool
}

func (o *WebVTTOptions) IsValid() error {
	return nil
}

func (o *WebVTTOptions) IsEmpty() bool {
	return o == nil || *o == WebVTTOptions{}
}

func (o *WebVTTOptions) SetDefaults() {
	o.OmitSpeaker = false
}

func (o *WebVTTOptions) FromEnv() {
	o.OmitSpeaker, _ = strconv.ParseBool(os.Getenv("WEBVTT_OMIT_SPEAKER"))
}

func (o *WebVTTOptions) ToEnv() []string {
	return []string{
		fmt.Sprintf("WEBVTT_OMIT_SPEAKER=%t", o.OmitSpeaker),
	}
}

func (o *WebVTTOptions) FromMap(m map[string]any) {
	o.OmitSpeaker, _ = m["webvtt_omit_speaker"].(bool)
}

func (o *WebVTTOptions) ToMap() map[string]any {
	return map[string]any{
		"webvtt_omit_speaker": o.OmitSpeaker,
	}
}

// vttTS converts ts milliseconds in the 00:00:00.000 format.
func vttTS(ts int64) string {
	sMs := int64(1000)
	mMs := 60 * sMs
	hMs := 60 * mMs

	h := ts / hMs
	m := (ts - (h * hMs)) / mMs
	s := ((ts - (h * hMs)) - m*mMs) / sMs
	ms := ((ts - (h * hMs)) - m*mMs) - s*sMs

	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

func (t Transcript) WebVTT(w io.Writer, opts WebVTTOptions) error {
	_, err := fmt.Fprintf(w, "WEBVTT\n")
	if err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}
	for _, b := range t.Blocks {
		text := html.EscapeString(sanitize(b.Text))
		speaker := html.EscapeString(b.Speaker)

		_, err = fmt.Fprintf(w, "\n%s --> %s\n", vttTS(secondsToMs(b.Start)), vttTS(secondsToMs(b.End)))
		if err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
		tmpl := "<v %[1]s>(%[1]s) %[2]s\n"
		if opts.OmitSpeaker {
			tmpl = "%[2]s\n"
		}
		_, err = fmt.Fprintf(w, tmpl, speaker, text)
		if err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
	}

	return nil
}

func secondsToMs(s float64) int64 {
	return int64(math.Round(s * 1000))
}
