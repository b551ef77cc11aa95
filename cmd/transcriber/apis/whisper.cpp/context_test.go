package whisper

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func getModelPath() string {
	modelsDir := os.Getenv("MODELS_DIR")
	if modelsDir == "" {
		modelsDir = "../../../../models"
	}
	return filepath.Join(modelsDir, "ggml-tiny.bin")
}

func requireModel(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(getModelPath()); err != nil {
		t.Skipf("model not available: %s", err)
	}
}

func TestConfigIsValid(t *testing.T) {
	tcs := []struct {
		name string
		cfg  Config
		err  string
	}{
		{
			name: "empty config",
			err:  "invalid empty config",
		},
		{
			name: "non existent model file",
			err:  "invalid ModelFile: failed to stat model file: stat /tmp/invalid.ggml: no such file or directory",
			cfg: Config{
				ModelFile: "/tmp/invalid.ggml",
			},
		},
		{
			name: "invalid NumThreads",
			err:  fmt.Sprintf("invalid NumThreads: should be in the range [1, %d]", runtime.NumCPU()),
			cfg: Config{
				ModelFile: os.Args[0],
			},
		},
		{
			name: "valid",
			cfg: Config{
				ModelFile:  os.Args[0],
				NumThreads: 1,
			},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.IsValid()
			if tc.err != "" {
				require.EqualError(t, err, tc.err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewContext(t *testing.T) {
	requireModel(t)

	t.Run("missing model file", func(t *testing.T) {
		ctx, err := NewContext(Config{})
		require.Error(t, err)
		require.Nil(t, ctx)
	})

	t.Run("success", func(t *testing.T) {
		ctx, err := NewContext(Config{
			NumThreads: 1,
			ModelFile:  getModelPath(),
		})
		require.NoError(t, err)
		require.NotNil(t, ctx)

		err = ctx.Destroy()
		require.NoError(t, err)
	})

	t.Run("destroy", func(t *testing.T) {
		ctx, err := NewContext(Config{
			NumThreads: 1,
			ModelFile:  getModelPath(),
		})
		require.NoError(t, err)
		require.NotNil(t, ctx)

		err = ctx.Destroy()
		require.NoError(t, err)

		err = ctx.Destroy()
		require.EqualError(t, err, "context is not initialized")
	})
}

func TestTranscribe(t *testing.T) {
	requireModel(t)

	ctx, err := NewContext(Config{
		NumThreads: 1,
		ModelFile:  getModelPath(),
	})
	require.NoError(t, err)
	require.NotNil(t, ctx)

	t.Run("empty samples", func(t *testing.T) {
		_, err := ctx.Transcribe(nil)
		require.EqualError(t, err, "samples should not be empty")
	})

	t.Run("silence", func(t *testing.T) {
		res, err := ctx.Transcribe(make([]float32, 16000*2))
		require.NoError(t, err)
		require.NotContains(t, res.Text, "\n")
	})

	t.Run("sample", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(filepath.Dir(getModelPath()), "..", "testfiles", "sample.pcm"))
		if err != nil {
			t.Skipf("sample not available: %s", err)
		}

		samples := make([]float32, 0, len(data)/4)
		for i := 0; i < len(data); i += 4 {
			samples = append(samples, math.Float32frombits(binary.LittleEndian.Uint32(data[i:i+4])))
		}

		res, err := ctx.Transcribe(samples)
		require.NoError(t, err)
		require.Equal(t, "This is a test transcription sample.", res.Text)
		require.Equal(t, "en", res.Language)
	})

	err = ctx.Destroy()
	require.NoError(t, err)
}
