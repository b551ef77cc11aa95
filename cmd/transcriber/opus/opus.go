package opus

// #cgo LDFLAGS: -l:libopus.a -lm
// #include <opus.h>
import "C"

import (
	"fmt"
)

// The largest Opus frame duration.
const maxFrameSizeMs = 120

// Decoder decodes Opus packets into interleaved float32 PCM at a fixed rate.
// It is not safe for concurrent use.
type Decoder struct {
	dec      *C.OpusDecoder
	rate     int
	channels int
	pcm      []float32
}

func isValidRate(rate int) bool {
	switch rate {
	case 8000, 12000, 16000, 24000, 48000:
		return true
	default:
		return false
	}
}

func NewDecoder(rate, channels int) (*Decoder, error) {
	if !isValidRate(rate) {
		return nil, fmt.Errorf("invalid rate %d: should be one of 8000, 12000, 16000, 24000, 48000", rate)
	}
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("invalid channels %d: should be 1 or 2", channels)
	}

	var errCode C.int
	dec := C.opus_decoder_create(C.opus_int32(rate), C.int(channels), &errCode)
	if errCode != C.OPUS_OK || dec == nil {
		return nil, fmt.Errorf("failed to create opus decoder: %s", C.GoString(C.opus_strerror(errCode)))
	}

	return &Decoder{
		dec:      dec,
		rate:     rate,
		channels: channels,
		pcm:      make([]float32, maxFrameSizeMs*rate/1000*channels),
	}, nil
}

// Decode decodes a single packet. The returned samples are only valid until
// the next call.
func (d *Decoder) Decode(data []byte) ([]float32, error) {
	if d.dec == nil {
		return nil, fmt.Errorf("decoder is not initialized")
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("data should not be empty")
	}

	ret := C.opus_decode_float(d.dec, (*C.uchar)(&data[0]), C.opus_int32(len(data)),
		(*C.float)(&d.pcm[0]), C.int(len(d.pcm)/d.channels), 0)
	if ret < 0 {
		return nil, fmt.Errorf("decode failed: %s", C.GoString(C.opus_strerror(ret)))
	}

	return d.pcm[:int(ret)*d.channels], nil
}

func (d *Decoder) Rate() int {
	return d.rate
}

func (d *Decoder) Destroy() error {
	if d.dec == nil {
		return fmt.Errorf("decoder is not initialized")
	}
	C.opus_decoder_destroy(d.dec)
	d.dec = nil
	return nil
}
