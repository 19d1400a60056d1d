// Package lsbsteg hides text in the least significant bits of an image's
// red, green and blue channels and recovers it again.
//
// The message is base64 encoded, expanded to bits MSB first and followed by
// the sentinel 1111111111111110. Bits are written one per channel, red then
// green then blue, across pixels in row-major order; alpha is untouched.
// Only lossless outputs (PNG, BMP, TIFF) preserve the payload.
//
// The scheme offers no confidentiality: anyone who knows it can read the
// message.
package lsbsteg

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/tuomas-lb/lsbsteg/internal/imgutil"
	"github.com/tuomas-lb/lsbsteg/internal/lsb"
	"github.com/tuomas-lb/lsbsteg/internal/pixbuf"
	"github.com/tuomas-lb/lsbsteg/internal/transport"
)

var (
	// ErrCapacityExceeded indicates message plus sentinel does not fit in the image
	ErrCapacityExceeded = lsb.ErrCapacityExceeded
	// ErrSentinelNotFound indicates the image carries no terminated payload
	ErrSentinelNotFound = lsb.ErrSentinelNotFound
	// ErrMalformedPayload indicates the recovered payload is corrupt or truncated
	ErrMalformedPayload = lsb.ErrMalformedPayload
	// ErrImageLoadFailed indicates the source image could not be read or decoded
	ErrImageLoadFailed = errors.New("image load failed")
	// ErrImageSaveFailed indicates the output image could not be encoded or written
	ErrImageSaveFailed = errors.New("image save failed")
)

// Options holds options for embedding and extraction
type Options struct {
	// OutputFormat is "png", "bmp" or "tiff". Empty means derive it from the
	// output path, falling back to png.
	OutputFormat string
	// PNGCompression is the PNG encoder compression level
	PNGCompression png.CompressionLevel
	// Logger receives debug records; nil discards them
	Logger *slog.Logger
}

// DefaultOptions returns default options
func DefaultOptions() *Options {
	return &Options{
		OutputFormat:   "",
		PNGCompression: png.DefaultCompression,
	}
}

func (o *Options) logger() *slog.Logger {
	if o == nil || o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

func (o *Options) encodeOptions() imgutil.EncodeOptions {
	return imgutil.EncodeOptions{PNGCompression: o.PNGCompression}
}

// RequiredBits returns how many channel bits message needs, sentinel included.
func RequiredBits(message string) int {
	return lsb.RequiredBits(transport.EncodedLen(len(message)))
}

// Embed hides message in img and returns the modified copy. img is not
// changed. Capacity is checked before any pixel is written.
func Embed(img image.Image, message string) (*image.NRGBA, error) {
	out, err := embed(pixbuf.FromImage(img), message, nil)
	if err != nil {
		return nil, err
	}
	return out.Image(), nil
}

// Extract recovers a message hidden by Embed.
func Extract(img image.Image) (string, error) {
	return extract(pixbuf.FromImage(img), nil)
}

func embed(src *pixbuf.Buffer, message string, opts *Options) (*pixbuf.Buffer, error) {
	encoded := transport.Encode([]byte(message))
	out, err := lsb.EmbedPayload(src, []byte(encoded))
	if err != nil {
		return nil, err
	}
	opts.logger().Debug("embedded payload",
		"message_bytes", len(message),
		"required_bits", lsb.RequiredBits(len(encoded)),
		"capacity_bits", lsb.Capacity(src.Len()),
		"pixels", src.Len())
	return out, nil
}

func extract(buf *pixbuf.Buffer, opts *Options) (string, error) {
	encoded, err := lsb.Extract(buf)
	if err != nil {
		return "", err
	}
	message, err := transport.Decode(string(encoded))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if !utf8.Valid(message) {
		return "", fmt.Errorf("%w: message is not valid UTF-8", ErrMalformedPayload)
	}
	opts.logger().Debug("extracted payload",
		"message_bytes", len(message),
		"payload_bits", len(encoded)*8,
		"pixels", buf.Len())
	return string(message), nil
}
