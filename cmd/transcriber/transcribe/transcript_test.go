package transcribe

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatTimestamp(t *testing.T) {
	require.Equal(t, "00:00", FormatTimestamp(0))
	require.Equal(t, "02:05", FormatTimestamp(125.4))
	require.Equal(t, "00:59", FormatTimestamp(59.9))
	require.Equal(t, "01:00", FormatTimestamp(60))
	require.Equal(t, "99:59", FormatTimestamp(99*60+59))
	require.Equal(t, "120:00", FormatTimestamp(7200))
}

func TestVTTTS(t *testing.T) {
	require.Equal(t, "00:00:00.000", vttTS(0))

	require.Equal(t, "00:01:10.000", vttTS(70000))

	require.Equal(t, "00:00:00.999", vttTS(999))

	require.Equal(t, "00:00:01.100", vttTS(1100))

	require.Equal(t, "01:45:45.045", vttTS(6345045))
}

func TestAssemble(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		tr := Assemble(nil)
		require.Empty(t, tr.Speakers)
		require.Empty(t, tr.Blocks)
	})

	t.Run("order preservation", func(t *testing.T) {
		tr := Assemble([]Segment{
			{Start: 0, End: 2, Speaker: "X", RawLabel: "A", Text: "hi"},
			{Start: 2, End: 5, Speaker: "Y", RawLabel: "B", Text: "yo"},
			{Start: 5, End: 6, Speaker: "X", RawLabel: "A", Text: "bye"},
		})
		require.Equal(t, []string{"X", "Y"}, tr.Speakers)
		require.Equal(t, []Block{
			{Speaker: "X", Start: 0, End: 2, Text: "hi"},
			{Speaker: "Y", Start: 2, End: 5, Text: "yo"},
			{Speaker: "X", Start: 5, End: 6, Text: "bye"},
		}, tr.Blocks)
	})

	t.Run("merges adjacent", func(t *testing.T) {
		tr := Assemble([]Segment{
			{Start: 0, End: 2, Speaker: "X", Text: "hello"},
			{Start: 2, End: 4, Speaker: "X", Text: "there"},
			{Start: 4, End: 7, Speaker: "Y", Text: "hi"},
		})
		require.Equal(t, []Block{
			{Speaker: "X", Start: 0, End: 4, Text: "hello there"},
			{Speaker: "Y", Start: 4, End: 7, Text: "hi"},
		}, tr.Blocks)
	})

	t.Run("sentinel skip", func(t *testing.T) {
		tr := Assemble([]Segment{
			{Start: 0, End: 2, Speaker: "X", Text: "one"},
			{Start: 2, End: 3, Speaker: "X", Text: FailedText, Status: StatusFailed, Language: LanguageUnknown},
			{Start: 3, End: 5, Speaker: "X", Text: "two"},
		})
		require.Equal(t, []Block{
			{Speaker: "X", Start: 0, End: 5, Text: "one two"},
		}, tr.Blocks)
	})

	t.Run("sentinel only run", func(t *testing.T) {
		tr := Assemble([]Segment{
			{Start: 0, End: 2, Speaker: "X", Text: "one"},
			{Start: 2, End: 3, Speaker: "Y", Text: NoSpeechText, Status: StatusNoSpeech},
			{Start: 3, End: 5, Speaker: "X", Text: "two"},
		})
		require.Equal(t, []string{"X", "Y"}, tr.Speakers)
		require.Equal(t, []Block{
			{Speaker: "X", Start: 0, End: 2, Text: "one"},
			{Speaker: "X", Start: 3, End: 5, Text: "two"},
		}, tr.Blocks)
	})

	t.Run("sentinel text is never rendered", func(t *testing.T) {
		tr := Assemble([]Segment{
			{Start: 0, End: 2, Speaker: "X", Text: NoSpeechText},
			{Start: 2, End: 3, Speaker: "X", Text: "ok"},
		})
		require.Equal(t, []Block{
			{Speaker: "X", Start: 0, End: 3, Text: "ok"},
		}, tr.Blocks)
	})

	t.Run("unknown speakers are not listed", func(t *testing.T) {
		tr := Assemble([]Segment{
			{Start: 0, End: 1, Speaker: "Unknown", Text: "who"},
			{Start: 1, End: 2, Speaker: "Blake", Text: "me"},
			{Start: 2, End: 3, Speaker: "Alex", Text: "us"},
			{Start: 3, End: 4, Speaker: "Blake", Text: "again"},
		})
		require.Equal(t, []string{"Blake", "Alex"}, tr.Speakers)
		require.Len(t, tr.Blocks, 4)
	})
}

func TestTranscriptText(t *testing.T) {
	t.Run("end to end", func(t *testing.T) {
		tr := Assemble([]Segment{
			{Start: 0, End: 5, Speaker: "Alex", RawLabel: "spkA", Text: "hello there", Language: "English"},
			{Start: 5, End: 12, Speaker: "Blake", RawLabel: "spkB", Text: "hi Alex", Language: "English"},
		})

		var buf bytes.Buffer
		require.NoError(t, tr.Text(&buf, TextOptions{}))
		require.Equal(t, "=== CONVERSATION TRANSCRIPT ===\n"+
			"Known Speakers: Alex, Blake\n"+
			"\n"+
			"Alex [00:00 - 00:05]: hello there\n\n"+
			"Blake [00:05 - 00:12]: hi Alex\n\n", buf.String())
	})

	t.Run("no known speakers", func(t *testing.T) {
		tr := Assemble([]Segment{
			{Start: 61, End: 125.4, Speaker: "Unknown", Text: "some\ntext"},
		})

		var buf bytes.Buffer
		require.NoError(t, tr.Text(&buf, TextOptions{Title: "MEETING"}))
		require.Equal(t, "=== MEETING ===\n\nUnknown [01:01 - 02:05]: some text\n\n", buf.String())
	})
}

func TestTranscriptWebVTT(t *testing.T) {
	tr := Assemble([]Segment{
		{Start: 0, End: 1.5, Speaker: "Alex", Text: "a <b>"},
		{Start: 1.5, End: 3, Speaker: "Blake", Text: "c"},
	})

	t.Run("with speaker", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, tr.WebVTT(&buf, WebVTTOptions{}))
		require.Equal(t, "WEBVTT\n"+
			"\n00:00:00.000 --> 00:00:01.500\n<v Alex>(Alex) a &lt;b&gt;\n"+
			"\n00:00:01.500 --> 00:00:03.000\n<v Blake>(Blake) c\n", buf.String())
	})

	t.Run("omit speaker", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, tr.WebVTT(&buf, WebVTTOptions{OmitSpeaker: true}))
		require.Equal(t, "WEBVTT\n"+
			"\n00:00:00.000 --> 00:00:01.500\na &lt;b&gt;\n"+
			"\n00:00:01.500 --> 00:00:03.000\nc\n", buf.String())
	})
}

func TestWriteJSON(t *testing.T) {
	segments := []Segment{
		{Start: 0, End: 5, Speaker: "Alex", RawLabel: "speaker_0", Text: "hello", Language: "English"},
		{Start: 5, End: 6, Speaker: "Unknown", RawLabel: "speaker_1", Text: FailedText, Language: LanguageUnknown, Status: StatusFailed},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, segments))

	var doc struct {
		Speakers []string         `json:"speakers"`
		Segments []map[string]any `json:"segments"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Equal(t, []string{"Alex"}, doc.Speakers)
	require.Len(t, doc.Segments, 2)
	require.Equal(t, "ok", doc.Segments[0]["status"])
	require.Equal(t, "failed", doc.Segments[1]["status"])

	var decoded []Segment
	raw, err := json.Marshal(doc.Segments)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, segments, decoded)
}
