package transcribe

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const TextTitleDefault = "CONVERSATION TRANSCRIPT"

type TextOptions struct {
	Title string
}

func (o *TextOptions) SetDefaults() {
	o.Title = TextTitleDefault
}

func (o *TextOptions) IsValid() error {
	if strings.TrimSpace(o.Title) == "" {
		return fmt.Errorf("Title should not be empty")
	}

	if strings.ContainsAny(o.Title, "\r\n") {
		return fmt.Errorf("Title should be a single line")
	}

	return nil
}

func (o *TextOptions) IsEmpty() bool {
	return o == nil || *o == TextOptions{}
}

func (o *TextOptions) ToEnv() []string {
	return []string{
		fmt.Sprintf("TEXT_TITLE=%s", o.Title),
	}
}

func (o *TextOptions) FromEnv() {
	o.Title = os.Getenv("TEXT_TITLE")
}

func (o *TextOptions) ToMap() map[string]any {
	return map[string]any{
		"text_title": o.Title,
	}
}

func (o *TextOptions) FromMap(m map[string]any) {
	o.Title, _ = m["text_title"].(string)
}

// Text renders the transcript as plain text: a title, the list of known
// speakers and one paragraph per block.
func (t Transcript) Text(w io.Writer, opts TextOptions) error {
	if opts.IsEmpty() {
		opts.SetDefaults()
	}

	_, err := fmt.Fprintf(w, "=== %s ===\n", opts.Title)
	if err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}

	if len(t.Speakers) > 0 {
		_, err = fmt.Fprintf(w, "Known Speakers: %s\n", strings.Join(t.Speakers, ", "))
		if err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
	}

	_, err = fmt.Fprintf(w, "\n")
	if err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}

	for _, b := range t.Blocks {
		_, err = fmt.Fprintf(w, "%s [%s - %s]: %s\n\n",
			b.Speaker, FormatTimestamp(b.Start), FormatTimestamp(b.End), sanitize(b.Text))
		if err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
	}

	return nil
}
