package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/audio"

	"github.com/stretchr/testify/require"
)

func setupCLI(t *testing.T) (string, string) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reply any
		switch r.URL.Path {
		case "/diarize":
			reply = map[string]any{"segments": []map[string]any{{"start": 0, "end": 1, "speaker": "A"}}}
		case "/embed":
			reply = map[string]any{"embedding": []float32{0, 1}}
		case "/audio/transcriptions":
			reply = map[string]any{"text": "good morning", "language": "en"}
		}
		_ = json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	data := fmt.Sprintf(`
data_dir: %s
models_dir: %s
log_level: error
segmentation_api: http
diarization_url: %s
embedding_api: http
embedding_url: %s
transcribe_api: openai
transcribe_url: %s
`, dir, dir, srv.URL, srv.URL, srv.URL)
	require.NoError(t, os.WriteFile(cfgPath, []byte(data), 0600))

	clip := filepath.Join(dir, "clip.wav")
	buf := audio.Buffer{Samples: make([]float32, audio.SampleRate), SampleRate: audio.SampleRate}
	for i := range buf.Samples {
		buf.Samples[i] = 0.25
	}
	require.NoError(t, audio.WriteWAV(clip, buf))

	return cfgPath, clip
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

func TestCommands(t *testing.T) {
	cfgPath, clip := setupCLI(t)

	out, err := execute(t, "--config", cfgPath, "list-speakers")
	require.NoError(t, err)
	require.Equal(t, "No speakers enrolled.\n", out)

	out, err = execute(t, "--config", cfgPath, "add-speaker", "Casey", clip)
	require.NoError(t, err)
	require.Equal(t, "Successfully added speaker: Casey\n", out)

	out, err = execute(t, "--config", cfgPath, "list-speakers")
	require.NoError(t, err)
	require.Equal(t, "Known speakers:\n  - Casey\n", out)

	out, err = execute(t, "--config", cfgPath, "identify", clip)
	require.NoError(t, err)
	require.Equal(t, "Casey\n", out)

	outPath := filepath.Join(t.TempDir(), "standup.txt")
	out, err = execute(t, "--config", cfgPath, "process", clip, outPath)
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("Transcript saved to: %s\n", outPath), out)
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "Casey [00:00 - 00:01]: good morning")

	out, err = execute(t, "--config", cfgPath, "process", filepath.Join(t.TempDir(), "missing.wav"))
	require.NoError(t, err)
	require.Contains(t, out, "No transcript produced for")

	out, err = execute(t, "--config", cfgPath, "remove-speaker", "Casey")
	require.NoError(t, err)
	require.Equal(t, "Removed speaker: Casey\n", out)

	_, err = execute(t, "--config", cfgPath, "remove-speaker", "Casey")
	require.EqualError(t, err, `speaker "Casey" not found`)
}

func TestCommandErrors(t *testing.T) {
	cfgPath, _ := setupCLI(t)

	tcs := []struct {
		name string
		args []string
		err  string
	}{
		{
			name: "missing config file",
			args: []string{"--config", "/tmp/missing-transcriber.yaml", "list-speakers"},
			err:  "failed to load config: failed to read config file",
		},
		{
			name: "process without input",
			args: []string{"--config", cfgPath, "process"},
			err:  "accepts between 1 and 2 arg(s), received 0",
		},
		{
			name: "add-speaker without sources",
			args: []string{"--config", cfgPath, "add-speaker", "Casey"},
			err:  "requires at least 2 arg(s), only received 1",
		},
		{
			name: "add-speaker with unreadable sources",
			args: []string{"--config", cfgPath, "add-speaker", "Casey", "/tmp/missing-transcriber-dir"},
			err:  `no embeddings extracted for "Casey"`,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := execute(t, tc.args...)
			require.ErrorContains(t, err, tc.err)
		})
	}
}
