package opus

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/audio"

	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

const (
	granuleRate      = 48000                          // Opus granule positions are always expressed at 48KHz
	granulePerSample = granuleRate / audio.SampleRate // Number of granule units per output sample
	minFrameSizeMs   = 20                             // The frame duration used by WebRTC recorders
	gapThreshold     = minFrameSizeMs * audio.SampleRate / 1000
)

// DecodeOgg decodes an Ogg/Opus stream into 16KHz mono samples. Each page is
// expected to carry a single Opus packet, as written by WebRTC recorders.
// Gaps in the granule positions (e.g. a muted track) are filled with silence
// so that sample offsets match the recording timeline.
func DecodeOgg(r io.ReadSeeker) (audio.Buffer, error) {
	oggReader, hdr, err := oggreader.NewWith(r)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("failed to create ogg reader: %w", err)
	}

	dec, err := NewDecoder(audio.SampleRate, audio.Channels)
	if err != nil {
		return audio.Buffer{}, err
	}
	defer func() {
		if err := dec.Destroy(); err != nil {
			slog.Error("failed to destroy decoder", slog.String("err", err.Error()))
		}
	}()

	var samples []float32
	for {
		data, pageHdr, err := oggReader.ParseNextPage()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		} else if err != nil {
			slog.Warn("failed to parse ogg page", slog.String("err", err.Error()))
			continue
		}

		// Ignoring pages which only contain metadata.
		if pageHdr.GranulePosition == 0 || len(data) == 0 {
			continue
		}

		pcm, err := dec.Decode(data)
		if err != nil {
			slog.Warn("failed to decode audio data", slog.String("err", err.Error()))
			continue
		}

		if gap := gapSamples(pageHdr.GranulePosition, uint64(hdr.PreSkip), len(samples), len(pcm)); gap > 0 {
			slog.Debug("gap in audio samples", slog.Int("samples", gap))
			samples = append(samples, make([]float32, gap)...)
		}

		samples = append(samples, pcm...)
	}

	return audio.Buffer{
		Samples:    samples,
		SampleRate: dec.Rate(),
	}, nil
}

// gapSamples returns the number of silent samples to insert before a frame of
// n samples ending at granule position gp, given that decoded samples have
// been produced so far.
func gapSamples(gp, preSkip uint64, decoded, n int) int {
	if gp < preSkip {
		return 0
	}
	end := int((gp - preSkip) / granulePerSample)
	gap := end - n - decoded
	if gap < gapThreshold {
		return 0
	}
	return gap
}
