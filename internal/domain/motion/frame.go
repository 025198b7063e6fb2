package motion

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
)

// channels is the number of color channels stored per pixel.
const channels = 3

// errInvalidDimensions is returned when a frame is built with a non-positive size
// or a buffer that does not match the size.
var errInvalidDimensions = errors.New("invalid frame dimensions")

// Frame is an immutable RGB pixel buffer.
type Frame struct {
	// Width is the frame width in pixels.
	Width int
	// Height is the frame height in pixels.
	Height int
	// Pix holds 3 bytes (R, G, B) per pixel, row by row.
	Pix []uint8
}

// NewFrame wraps an RGB buffer. The buffer must hold exactly width*height*3 bytes.
func NewFrame(width, height int, pix []uint8) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", errInvalidDimensions, width, height)
	}

	if len(pix) != width*height*channels {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", errInvalidDimensions, len(pix), width, height)
	}

	return &Frame{
		Width:  width,
		Height: height,
		Pix:    pix,
	}, nil
}

// FrameFromImage converts a decoded image into a Frame, dropping the alpha
// channel. The color bytes are taken unpremultiplied, as they were stored.
func FrameFromImage(img image.Image) (*Frame, error) {
	bounds := img.Bounds()

	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, bounds.Min, draw.Src)
	}

	width, height := nrgba.Rect.Dx(), nrgba.Rect.Dy()
	pix := make([]uint8, 0, width*height*channels)

	for y := range height {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+width*4]
		for x := 0; x < len(row); x += 4 {
			pix = append(pix, row[x], row[x+1], row[x+2])
		}
	}

	return NewFrame(width, height, pix)
}

// PixelCount returns width*height.
func (f *Frame) PixelCount() int {
	return f.Width * f.Height
}

// SameSize reports whether both frames have identical dimensions.
func (f *Frame) SameSize(other *Frame) bool {
	return f.Width == other.Width && f.Height == other.Height
}
