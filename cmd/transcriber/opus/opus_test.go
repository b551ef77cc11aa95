package opus

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/audio"

	"github.com/pion/webrtc/v4/pkg/media/oggreader"
	"github.com/stretchr/testify/require"
)

const samplePath = "../../../testfiles/sample.opus"

func openSample(tb testing.TB) *os.File {
	tb.Helper()
	f, err := os.Open(samplePath)
	if err != nil {
		tb.Skipf("sample not available: %s", err)
	}
	tb.Cleanup(func() { f.Close() })
	return f
}

func TestOpusDecode(t *testing.T) {
	f := openSample(t)

	ogg, _, err := oggreader.NewWith(f)
	require.NoError(t, err)

	rate := 16000
	frameSize := 20 * rate / 1000

	dec, err := NewDecoder(rate, 1)
	require.NoError(t, err)
	require.NotNil(t, dec)

	for {
		data, hdr, err := ogg.ParseNextPage()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.NotEmpty(t, data)

		if hdr.GranulePosition == 0 {
			continue
		}

		pcm, err := dec.Decode(data)
		require.NoError(t, err)
		require.Len(t, pcm, frameSize)
	}

	err = dec.Destroy()
	require.NoError(t, err)
}

func BenchmarkOpusDecode(b *testing.B) {
	f := openSample(b)

	ogg, _, err := oggreader.NewWith(f)
	require.NoError(b, err)

	dec, err := NewDecoder(16000, 1)
	require.NoError(b, err)
	require.NotNil(b, dec)

	b.StopTimer()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		data, hdr, err := ogg.ParseNextPage()
		if err == io.EOF {
			ogg.ResetReader(func(_ int64) io.Reader {
				_, _ = f.Seek(0, 0)
				return f
			})
			data, hdr, err = ogg.ParseNextPage()
			require.NoError(b, err)
		}
		if hdr.GranulePosition == 0 {
			continue
		}
		b.StartTimer()
		pcm, err := dec.Decode(data)
		b.StopTimer()
		require.NoError(b, err)
		require.Len(b, pcm, 320)
	}

	err = dec.Destroy()
	require.NoError(b, err)
}

func TestNewDecoder(t *testing.T) {
	tcs := []struct {
		name     string
		rate     int
		channels int
		err      string
	}{
		{
			name:     "invalid rate",
			rate:     44100,
			channels: 1,
			err:      "invalid rate 44100: should be one of 8000, 12000, 16000, 24000, 48000",
		},
		{
			name:     "invalid channels",
			rate:     16000,
			channels: 6,
			err:      "invalid channels 6: should be 1 or 2",
		},
		{
			name:     "mono",
			rate:     16000,
			channels: 1,
		},
		{
			name:     "stereo",
			rate:     48000,
			channels: 2,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			dec, err := NewDecoder(tc.rate, tc.channels)
			if tc.err != "" {
				require.EqualError(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.rate, dec.Rate())

			_, err = dec.Decode(nil)
			require.EqualError(t, err, "data should not be empty")

			require.NoError(t, dec.Destroy())
			require.EqualError(t, dec.Destroy(), "decoder is not initialized")

			_, err = dec.Decode([]byte{0xfc})
			require.EqualError(t, err, "decoder is not initialized")
		})
	}
}

func TestDecodeOgg(t *testing.T) {
	t.Run("sample", func(t *testing.T) {
		f := openSample(t)

		buf, err := DecodeOgg(f)
		require.NoError(t, err)
		require.Equal(t, audio.SampleRate, buf.SampleRate)
		require.NotEmpty(t, buf.Samples)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := DecodeOgg(bytes.NewReader([]byte("definitely not an ogg stream")))
		require.ErrorContains(t, err, "failed to create ogg reader")
	})
}

func TestGapSamples(t *testing.T) {
	const preSkip = 3840

	tcs := []struct {
		name    string
		gp      uint64
		decoded int
		n       int
		exp     int
	}{
		{
			name: "first frame",
			gp:   preSkip + 960,
			n:    320,
		},
		{
			name:    "contiguous",
			gp:      preSkip + 1920,
			decoded: 320,
			n:       320,
		},
		{
			name:    "small jitter",
			gp:      preSkip + 2880 + 900,
			decoded: 640,
			n:       320,
		},
		{
			name:    "one second gap",
			gp:      preSkip + 1920 + 48000,
			decoded: 320,
			n:       320,
			exp:     16000,
		},
		{
			name: "before pre-skip",
			gp:   100,
			n:    320,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.exp, gapSamples(tc.gp, preSkip, tc.decoded, tc.n))
		})
	}
}
