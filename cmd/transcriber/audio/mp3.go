package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always decodes to signed 16-bit little endian stereo.
const mp3Channels = 2

func decodeMP3(r io.ReadSeeker) (Buffer, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return Buffer{}, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	var data []byte
	if length := dec.Length(); length > 0 {
		data = make([]byte, length)
		n, err := io.ReadFull(dec, data)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return Buffer{}, fmt.Errorf("failed to read PCM data: %w", err)
		}
		data = data[:n]
	} else {
		data, err = io.ReadAll(dec)
		if err != nil {
			return Buffer{}, fmt.Errorf("failed to read PCM data: %w", err)
		}
	}

	samples := make([]float32, len(data)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(data[i*2:]))) / 32768.0
	}

	return Normalize(samples, mp3Channels, dec.SampleRate()), nil
}
