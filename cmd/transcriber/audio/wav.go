package audio

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

func decodeWAV(r io.ReadSeeker) (Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Buffer{}, fmt.Errorf("invalid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Buffer{}, fmt.Errorf("failed to read PCM data: %w", err)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return Buffer{}, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	scale := float32(int64(1) << (bitDepth - 1))

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}

	return Normalize(samples, buf.Format.NumChannels, buf.Format.SampleRate), nil
}

// EncodeWAV writes buf as a 16-bit PCM mono WAV stream.
func EncodeWAV(w io.WriteSeeker, buf Buffer) error {
	enc := wav.NewEncoder(w, buf.SampleRate, BitDepth, Channels, wavFormatPCM)

	if err := enc.Write(&goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: Channels,
			SampleRate:  buf.SampleRate,
		},
		Data:           buf.PCM16(),
		SourceBitDepth: BitDepth,
	}); err != nil {
		return fmt.Errorf("failed to encode samples: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to close encoder: %w", err)
	}

	return nil
}

// WriteWAV saves buf to a WAV file at path.
func WriteWAV(path string, buf Buffer) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer f.Close()

	if err := EncodeWAV(f, buf); err != nil {
		return fmt.Errorf("failed to write WAV file: %w", err)
	}

	return nil
}

// WAVBytes returns buf encoded as an in-memory WAV file.
func WAVBytes(buf Buffer) ([]byte, error) {
	var ws memWriteSeeker
	if err := EncodeWAV(&ws, buf); err != nil {
		return nil, err
	}
	return ws.buf, nil
}

type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(m.pos) + offset
	case io.SeekEnd:
		pos = int64(len(m.buf)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("negative position")
	}
	m.pos = int(pos)
	return pos, nil
}
