// Package transport maps arbitrary bytes to a printable alphabet and back.
// The embedding stage only ever sees single-byte ASCII characters from this
// alphabet, which keeps the 8-bits-per-character layout valid for any input.
package transport

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed indicates the input was not produced by Encode
var ErrMalformed = errors.New("malformed transport payload")

// encoding is standard padded base64. Strict mode rejects non-zero
// trailing bits so every byte sequence has exactly one textual form.
var encoding = base64.StdEncoding.Strict()

// Encode returns the printable representation of data.
func Encode(data []byte) string {
	return encoding.EncodeToString(data)
}

// Decode reverses Encode. Any text Encode could not have produced is
// rejected with ErrMalformed.
func Decode(text string) ([]byte, error) {
	if len(text)%4 != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of 4", ErrMalformed, len(text))
	}
	// The stdlib decoder silently skips line breaks.
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		return nil, fmt.Errorf("%w: illegal character at offset %d", ErrMalformed, i)
	}
	data, err := encoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return data, nil
}

// EncodedLen returns the length of Encode's output for n input bytes.
func EncodedLen(n int) int {
	return encoding.EncodedLen(n)
}

// MaxDecodedLen returns the largest input length whose encoding fits in
// n characters.
func MaxDecodedLen(n int) int {
	if n < 0 {
		return 0
	}
	return (n / 4) * 3
}
