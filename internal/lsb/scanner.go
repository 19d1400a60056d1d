package lsb

import (
	"fmt"

	"github.com/tuomas-lb/lsbsteg/internal/bitstream"
)

// State is the extraction progress of a Scanner.
type State uint8

const (
	// Scanning accepts bits until the sentinel is seen
	Scanning State = iota
	// SentinelFound means the sentinel has been seen and no more bits are read
	SentinelFound
	// Decoding means the accumulated bits are being packed into bytes
	Decoding
	// Done is terminal; Payload returns the result or the decoding error
	Done
	// Exhausted is terminal; the input ended without a sentinel
	Exhausted
)

func (s State) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case SentinelFound:
		return "sentinel-found"
	case Decoding:
		return "decoding"
	case Done:
		return "done"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Scanner packs extracted bits into bytes and watches for the sentinel.
// The zero value is ready to use.
type Scanner struct {
	state   State
	window  bitstream.Window
	packed  bitstream.Packer
	payload []byte
	err     error
}

// State returns the current state.
func (s *Scanner) State() State {
	return s.state
}

// Feed appends one bit. It returns true once no further bits are wanted,
// either because this bit completed the sentinel or because scanning had
// already stopped.
func (s *Scanner) Feed(bit bool) bool {
	if s.state != Scanning {
		return true
	}
	s.packed.WriteBit(bit)
	if s.window.Push(bit) {
		s.state = SentinelFound
		return true
	}
	return false
}

// Bits returns the number of bits fed while scanning.
func (s *Scanner) Bits() int {
	return s.packed.Len()
}

// Exhaust signals the end of input. A scanner still looking for the
// sentinel moves to Exhausted.
func (s *Scanner) Exhaust() {
	if s.state == Scanning {
		s.state = Exhausted
	}
}

// Payload returns the bytes that preceded the sentinel.
func (s *Scanner) Payload() ([]byte, error) {
	switch s.state {
	case Scanning, Exhausted:
		return nil, fmt.Errorf("%w after %d bits", ErrSentinelNotFound, s.packed.Len())
	case SentinelFound:
		s.state = Decoding
		s.payload, s.err = s.decode()
		s.state = Done
	}
	return s.payload, s.err
}

func (s *Scanner) decode() ([]byte, error) {
	body := s.packed.Len() - bitstream.SentinelBits
	out, err := s.packed.Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %d payload bits: %v", ErrMalformedPayload, body, err)
	}
	return out, nil
}
