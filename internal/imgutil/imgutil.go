package imgutil

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	// Decode-only carrier formats.
	_ "image/gif"
	_ "image/jpeg"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// FormatPNG is the default output format
	FormatPNG = "png"
	// FormatBMP writes uncompressed BMP
	FormatBMP = "bmp"
	// FormatTIFF writes uncompressed TIFF
	FormatTIFF = "tiff"
)

var (
	// ErrUnsupportedFormat indicates a format no encoder is registered for
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrLossyFormat indicates an output format that would destroy embedded bits
	ErrLossyFormat = errors.New("lossy output format")
	// ErrAlphaUnsupported indicates an output format that cannot carry the
	// image's transparency
	ErrAlphaUnsupported = errors.New("output format drops alpha")
)

// EncodeOptions tunes the lossless encoders
type EncodeOptions struct {
	// PNGCompression is passed to the PNG encoder
	PNGCompression png.CompressionLevel
}

// LoadImageFromFile loads an image from a file path
// Returns the image, format string, and any error
func LoadImageFromFile(path string) (image.Image, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	return LoadImage(data)
}

// LoadImage loads an image from byte data
// Returns the image, format string, and any error
func LoadImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// NormalizeFormat maps a format name, MIME type or extension to one of the
// lossless output formats.
func NormalizeFormat(format string) (string, error) {
	f := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
	f = strings.TrimPrefix(f, "image/")
	switch f {
	case "png":
		return FormatPNG, nil
	case "bmp", "x-ms-bmp":
		return FormatBMP, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	case "jpg", "jpeg", "gif":
		return "", fmt.Errorf("%w: %s", ErrLossyFormat, f)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// FormatFromPath derives the output format from a file extension.
// A path without an extension yields FormatPNG.
func FormatFromPath(path string) (string, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return FormatPNG, nil
	}
	return NormalizeFormat(ext)
}

// CheckAlpha returns ErrAlphaUnsupported when img has transparency and
// format cannot store it. BMP is read back with every pixel opaque.
func CheckAlpha(img image.Image, format string) error {
	format, err := NormalizeFormat(format)
	if err != nil {
		return err
	}
	if format == FormatBMP && !Opaque(img) {
		return fmt.Errorf("%w: %s", ErrAlphaUnsupported, format)
	}
	return nil
}

// Opaque reports whether every pixel of img has full alpha.
func Opaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}

// SaveImageToFile saves an image to a file
func SaveImageToFile(img image.Image, format, path string, opts EncodeOptions) error {
	data, err := EncodeImage(img, format, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// EncodeImage encodes an image to the specified lossless format
func EncodeImage(img image.Image, format string, opts EncodeOptions) ([]byte, error) {
	if err := CheckAlpha(img, format); err != nil {
		return nil, err
	}
	format, err := NormalizeFormat(format)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch format {
	case FormatPNG:
		enc := png.Encoder{CompressionLevel: opts.PNGCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode PNG: %w", err)
		}
	case FormatBMP:
		if err := bmp.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode BMP: %w", err)
		}
	case FormatTIFF:
		if err := tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Uncompressed}); err != nil {
			return nil, fmt.Errorf("failed to encode TIFF: %w", err)
		}
	}

	return buf.Bytes(), nil
}
