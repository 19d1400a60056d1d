package lsbsteg

import (
	"fmt"
	"image"

	"github.com/tuomas-lb/lsbsteg/internal/imgutil"
	"github.com/tuomas-lb/lsbsteg/internal/lsb"
	"github.com/tuomas-lb/lsbsteg/internal/pixbuf"
	"github.com/tuomas-lb/lsbsteg/internal/transport"
)

// Encode hides message in the image at sourceImagePath and writes the result
// to destImagePath, choosing the format from its extension.
func Encode(sourceImagePath, message, destImagePath string) error {
	return EmbedMessageFile(sourceImagePath, destImagePath, message, nil)
}

// Decode recovers the message hidden in the image at sourceImagePath.
func Decode(sourceImagePath string) (string, error) {
	return ExtractMessageFile(sourceImagePath, nil)
}

// EmbedMessageFile embeds a message into an image file.
// The output file is only created once embedding has succeeded.
func EmbedMessageFile(inputPath, outputPath, message string, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}

	format, err := outputFormat(opts, outputPath)
	if err != nil {
		return err
	}

	img, err := loadFile(inputPath)
	if err != nil {
		return err
	}
	if err := checkAlpha(img, format); err != nil {
		return err
	}

	out, err := embed(pixbuf.FromImage(img), message, opts)
	if err != nil {
		return err
	}

	if err := imgutil.SaveImageToFile(out.Image(), format, outputPath, opts.encodeOptions()); err != nil {
		return fmt.Errorf("%w: %w", ErrImageSaveFailed, err)
	}
	opts.logger().Debug("saved image", "path", outputPath, "format", format)
	return nil
}

// ExtractMessageFile extracts a message from an image file.
func ExtractMessageFile(inputPath string, opts *Options) (string, error) {
	img, err := loadFile(inputPath)
	if err != nil {
		return "", err
	}
	return extract(pixbuf.FromImage(img), opts)
}

// EmbedMessage embeds a message into an encoded image held in memory and
// returns the encoded result. The output format is opts.OutputFormat, or
// PNG when unset.
func EmbedMessage(input []byte, message string, opts *Options) ([]byte, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	format, err := outputFormat(opts, "")
	if err != nil {
		return nil, err
	}

	img, _, err := imgutil.LoadImage(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageLoadFailed, err)
	}
	if err := checkAlpha(img, format); err != nil {
		return nil, err
	}

	out, err := embed(pixbuf.FromImage(img), message, opts)
	if err != nil {
		return nil, err
	}

	data, err := imgutil.EncodeImage(out.Image(), format, opts.encodeOptions())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageSaveFailed, err)
	}
	return data, nil
}

// ExtractMessage extracts a message from an encoded image held in memory.
func ExtractMessage(input []byte, opts *Options) (string, error) {
	img, _, err := imgutil.LoadImage(input)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrImageLoadFailed, err)
	}
	return extract(pixbuf.FromImage(img), opts)
}

func loadFile(path string) (image.Image, error) {
	img, _, err := imgutil.LoadImageFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageLoadFailed, err)
	}
	return img, nil
}

// outputFormat resolves the lossless format to write. Rejections are
// reported as save failures before any work is done.
func outputFormat(opts *Options, path string) (string, error) {
	var (
		format string
		err    error
	)
	switch {
	case opts.OutputFormat != "":
		format, err = imgutil.NormalizeFormat(opts.OutputFormat)
	case path != "":
		format, err = imgutil.FormatFromPath(path)
	default:
		format = imgutil.FormatPNG
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrImageSaveFailed, err)
	}
	return format, nil
}

// checkAlpha rejects a transparent source bound for a format that would
// flatten its alpha, before any pixel is written.
func checkAlpha(img image.Image, format string) error {
	if err := imgutil.CheckAlpha(img, format); err != nil {
		return fmt.Errorf("%w: %w", ErrImageSaveFailed, err)
	}
	return nil
}

// CapacityInfo holds information about image embedding capacity
type CapacityInfo struct {
	// Image dimensions
	Width  int
	Height int
	// Pixels is Width*Height
	Pixels int
	// CapacityBits is the number of writable channel bits (3 per pixel)
	CapacityBits int
	// MaxEncodedChars is the longest base64 text that fits with the sentinel
	MaxEncodedChars int
	// MaxMessageBytes is the longest message, in bytes, that fits
	MaxMessageBytes int
	// Usable reports whether even the empty message fits
	Usable bool
}

// Fits reports whether message can be embedded.
func (c *CapacityInfo) Fits(message string) bool {
	return RequiredBits(message) <= c.CapacityBits
}

// GetCapacityInfoFromImage calculates capacity for a decoded image
func GetCapacityInfoFromImage(img image.Image) *CapacityInfo {
	bounds := img.Bounds()
	info := &CapacityInfo{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pixels: bounds.Dx() * bounds.Dy(),
	}
	info.CapacityBits = lsb.Capacity(info.Pixels)

	// Base64 output comes in groups of 4 characters.
	spare := info.CapacityBits - RequiredBits("")
	if spare < 0 {
		return info
	}
	info.Usable = true
	chars := spare / 8
	info.MaxEncodedChars = chars - chars%4
	info.MaxMessageBytes = transport.MaxDecodedLen(info.MaxEncodedChars)
	return info
}

// GetCapacityInfoFromData calculates capacity from image data in memory
func GetCapacityInfoFromData(data []byte) (*CapacityInfo, error) {
	img, _, err := imgutil.LoadImage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageLoadFailed, err)
	}
	return GetCapacityInfoFromImage(img), nil
}

// GetCapacityInfo calculates capacity from an image file
func GetCapacityInfo(inputPath string) (*CapacityInfo, error) {
	img, err := loadFile(inputPath)
	if err != nil {
		return nil, err
	}
	return GetCapacityInfoFromImage(img), nil
}

// Capacity returns the capacity of img in a form comparable with
// RequiredBits.
func Capacity(img image.Image) int {
	return GetCapacityInfoFromImage(img).CapacityBits
}
