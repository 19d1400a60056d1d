// Package pixbuf holds decoded images as a flat, row-major sequence of
// non-premultiplied 8-bit RGBA pixels.
package pixbuf

import (
	"image"
	"image/color"
)

// Buffer is an image flattened into scan order.
// Pixel i sits at column i%Width, row i/Width.
type Buffer struct {
	Width  int
	Height int
	Pix    []color.NRGBA
}

// New allocates a zeroed buffer of the given dimensions.
func New(width, height int) *Buffer {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]color.NRGBA, width*height),
	}
}

// FromImage converts img to a Buffer. Non-8-bit and premultiplied sources
// go through color.NRGBAModel; *image.NRGBA is copied directly.
func FromImage(img image.Image) *Buffer {
	bounds := img.Bounds()
	buf := New(bounds.Dx(), bounds.Dy())

	if src, ok := img.(*image.NRGBA); ok {
		i := 0
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			row := src.Pix[src.PixOffset(bounds.Min.X, y):]
			for x := 0; x < buf.Width; x++ {
				o := x * 4
				buf.Pix[i] = color.NRGBA{R: row[o], G: row[o+1], B: row[o+2], A: row[o+3]}
				i++
			}
		}
		return buf
	}

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			buf.Pix[i] = color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			i++
		}
	}
	return buf
}

// Image returns the buffer as an *image.NRGBA anchored at the origin.
func (b *Buffer) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
	for i, p := range b.Pix {
		o := i * 4
		img.Pix[o] = p.R
		img.Pix[o+1] = p.G
		img.Pix[o+2] = p.B
		img.Pix[o+3] = p.A
	}
	return img
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	pix := make([]color.NRGBA, len(b.Pix))
	copy(pix, b.Pix)
	return &Buffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// Len returns the number of pixels.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Pix)
}
