// Package lsb hides a bit sequence in the least significant bits of the
// red, green and blue channels of a pixel buffer.
//
// Bit k of the stream goes to channel k%3 (red, green, blue) of pixel k/3,
// in the buffer's scan order. Alpha is never read or written. The stream is
// terminated by the 16-bit sentinel 1111111111111110; there is no length
// field.
package lsb

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/tuomas-lb/lsbsteg/internal/bitstream"
	"github.com/tuomas-lb/lsbsteg/internal/pixbuf"
)

// ChannelsPerPixel is the number of carrier channels in each pixel.
const ChannelsPerPixel = 3

var (
	// ErrCapacityExceeded indicates the bit stream does not fit in the buffer
	ErrCapacityExceeded = errors.New("payload exceeds image capacity")
	// ErrSentinelNotFound indicates the buffer ended before the end marker
	ErrSentinelNotFound = errors.New("end-of-payload sentinel not found")
	// ErrMalformedPayload indicates the recovered bits are not a valid payload
	ErrMalformedPayload = errors.New("malformed payload")
)

// Channel identifies a carrier channel within a pixel.
type Channel uint8

const (
	Red Channel = iota
	Green
	Blue
)

func (c Channel) String() string {
	switch c {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	default:
		return fmt.Sprintf("channel(%d)", uint8(c))
	}
}

// Locate returns the pixel index and channel that carry bit pos.
func Locate(pos int) (pixel int, ch Channel) {
	return pos / ChannelsPerPixel, Channel(pos % ChannelsPerPixel)
}

// Capacity returns the number of bits a buffer of n pixels can carry.
func Capacity(pixels int) int {
	if pixels < 0 {
		return 0
	}
	return pixels * ChannelsPerPixel
}

func carrier(p *color.NRGBA, ch Channel) *uint8 {
	switch ch {
	case Red:
		return &p.R
	case Green:
		return &p.G
	default:
		return &p.B
	}
}

// RequiredBits returns the stream length for a payload of n bytes,
// sentinel included.
func RequiredBits(n int) int {
	return n*8 + bitstream.SentinelBits
}

// EmbedPayload terminates payload with the sentinel and embeds it.
func EmbedPayload(src *pixbuf.Buffer, payload []byte) (*pixbuf.Buffer, error) {
	return Embed(src, bitstream.Terminate(payload))
}

// Embed returns a copy of src with bits written into its channel LSBs.
// The caller is expected to have terminated bits with the sentinel. Pixels
// and channels past the last bit are left exactly as they were in src; src
// itself is never modified.
func Embed(src *pixbuf.Buffer, bits []bool) (*pixbuf.Buffer, error) {
	available := Capacity(src.Len())
	if len(bits) > available {
		return nil, fmt.Errorf("%w: need %d bits, have %d", ErrCapacityExceeded, len(bits), available)
	}

	if src == nil {
		src = pixbuf.New(0, 0)
	}
	dst := src.Clone()
	for pos, bit := range bits {
		px, ch := Locate(pos)
		v := carrier(&dst.Pix[px], ch)
		*v &= 0xFE
		if bit {
			*v |= 1
		}
	}
	return dst, nil
}

// Extract scans buf until the sentinel and returns the payload bytes that
// preceded it.
func Extract(buf *pixbuf.Buffer) ([]byte, error) {
	var s Scanner
	for pos, n := 0, Capacity(buf.Len()); pos < n; pos++ {
		px, ch := Locate(pos)
		if s.Feed(*carrier(&buf.Pix[px], ch)&1 == 1) {
			return s.Payload()
		}
	}
	s.Exhaust()
	return s.Payload()
}
