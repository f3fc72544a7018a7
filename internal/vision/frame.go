// Package vision provides the pixel-level hand region heuristic used when no remote
// detector is available.
package vision

import (
	"image"
	"image/color"
	"time"
)

// Frame is an RGBA pixel buffer captured at a point in time.
// Pix holds 4 bytes per pixel, rows packed without padding.
type Frame struct {
	Width      int
	Height     int
	Pix        []uint8
	CapturedAt time.Time
}

// NewFrame allocates a black, fully opaque frame.
func NewFrame(width, height int) *Frame {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	f := &Frame{
		Width:      width,
		Height:     height,
		Pix:        make([]uint8, width*height*4),
		CapturedAt: time.Now(),
	}
	for i := 3; i < len(f.Pix); i += 4 {
		f.Pix[i] = 0xff
	}
	return f
}

// FromImage copies any image.Image into a Frame.
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy())
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			c := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
			i := f.offset(x, y)
			f.Pix[i] = c.R
			f.Pix[i+1] = c.G
			f.Pix[i+2] = c.B
			f.Pix[i+3] = c.A
		}
	}
	return f
}

// Ready reports whether the frame has resolved dimensions.
func (f *Frame) Ready() bool {
	return f != nil && f.Width > 0 && f.Height > 0 && len(f.Pix) >= f.Width*f.Height*4
}

// InBounds reports whether (x, y) addresses a pixel of the frame.
func (f *Frame) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < f.Width && y < f.Height
}

func (f *Frame) offset(x, y int) int {
	return (y*f.Width + x) * 4
}

// RGB returns the colour channels at (x, y). The caller must check InBounds.
func (f *Frame) RGB(x, y int) (r, g, b uint8) {
	i := f.offset(x, y)
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Set writes an opaque colour at (x, y). Out-of-bounds writes are ignored.
func (f *Frame) Set(x, y int, r, g, b uint8) {
	if !f.InBounds(x, y) {
		return
	}
	i := f.offset(x, y)
	f.Pix[i] = r
	f.Pix[i+1] = g
	f.Pix[i+2] = b
	f.Pix[i+3] = 0xff
}

// Fill paints the rectangle [x0,x1)×[y0,y1) clipped to the frame.
func (f *Frame) Fill(x0, y0, x1, y1 int, r, g, b uint8) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			f.Set(x, y, r, g, b)
		}
	}
}

// Image exposes the frame as an *image.RGBA sharing the pixel buffer.
func (f *Frame) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}
