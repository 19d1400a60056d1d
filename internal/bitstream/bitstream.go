package bitstream

import (
	"errors"
	"fmt"
)

const (
	// SentinelBits is the length of the end-of-payload marker
	SentinelBits = 16
	// sentinelPattern is 1111111111111110
	sentinelPattern uint16 = 0xFFFE
)

var (
	// ErrUnaligned indicates a bit count that is not a multiple of 8
	ErrUnaligned = errors.New("bit count is not byte aligned")
)

// Sentinel returns the end-of-payload marker as bits.
func Sentinel() []bool {
	bits := make([]bool, SentinelBits)
	for i := range bits {
		bits[i] = (sentinelPattern>>(SentinelBits-1-i))&1 == 1
	}
	return bits
}

// BytesToBits converts a byte slice to a boolean slice representing bits.
// Each byte is converted to 8 bits, MSB first.
func BytesToBits(data []byte) []bool {
	if len(data) == 0 {
		return nil
	}
	bits := make([]bool, len(data)*8)
	for i, b := range data {
		offset := i * 8
		for j := 0; j < 8; j++ {
			bits[offset+j] = (b>>(7-j))&1 == 1
		}
	}
	return bits
}

// Terminate expands data to bits and appends the sentinel.
func Terminate(data []byte) []bool {
	bits := make([]bool, 0, len(data)*8+SentinelBits)
	bits = append(bits, BytesToBits(data)...)
	return append(bits, Sentinel()...)
}

// Packer accumulates bits MSB first, eight to a byte.
// The zero value is ready to use.
type Packer struct {
	buf []byte
	n   int
}

// WriteBit appends one bit.
func (p *Packer) WriteBit(bit bool) {
	if p.n%8 == 0 {
		p.buf = append(p.buf, 0)
	}
	if bit {
		p.buf[p.n/8] |= 1 << (7 - p.n%8)
	}
	p.n++
}

// Len returns the number of bits written.
func (p *Packer) Len() int {
	return p.n
}

// Bytes returns the first nbits bits written. Unlike a padding packer it
// refuses partial bytes and returns ErrUnaligned instead.
func (p *Packer) Bytes(nbits int) ([]byte, error) {
	if nbits < 0 || nbits > p.n {
		return nil, fmt.Errorf("%d bits requested, %d written", nbits, p.n)
	}
	if nbits%8 != 0 {
		return nil, ErrUnaligned
	}
	return p.buf[: nbits/8 : nbits/8], nil
}

// Window tracks the trailing 16 bits of a stream.
type Window struct {
	reg uint16
	n   int
}

// Push shifts bit into the window and reports whether the window now
// holds the sentinel.
func (w *Window) Push(bit bool) bool {
	w.reg <<= 1
	if bit {
		w.reg |= 1
	}
	if w.n < SentinelBits {
		w.n++
	}
	return w.n == SentinelBits && w.reg == sentinelPattern
}

// Reset clears the window.
func (w *Window) Reset() {
	w.reg, w.n = 0, 0
}
