package motion

import (
	"errors"
	"fmt"
)

// ErrFrameSizeMismatch is returned when two frames of different dimensions are compared.
var ErrFrameSizeMismatch = errors.New("frame size mismatch")

// Difference returns the mean per-pixel summed-channel absolute difference
// between two frames of identical size.
func Difference(previous, current *Frame) (float64, error) {
	if !previous.SameSize(current) {
		return 0, fmt.Errorf(
			"%w: %dx%d vs %dx%d",
			ErrFrameSizeMismatch,
			previous.Width, previous.Height,
			current.Width, current.Height,
		)
	}

	var sum uint64

	for i := 0; i < len(current.Pix); i += channels {
		sum += absDiff(previous.Pix[i], current.Pix[i]) +
			absDiff(previous.Pix[i+1], current.Pix[i+1]) +
			absDiff(previous.Pix[i+2], current.Pix[i+2])
	}

	return float64(sum) / float64(current.PixelCount()), nil
}

func absDiff(a, b uint8) uint64 {
	if a > b {
		return uint64(a - b)
	}

	return uint64(b - a)
}

// Differencer holds the previous frame and turns each new frame into a sample.
// It is not safe for concurrent use.
type Differencer struct {
	// previous is the last frame a sample was computed against.
	previous *Frame
}

// Next diffs frame against the held previous frame and keeps frame as the new
// previous one. The first call only records the baseline and reports ok=false.
// On a size mismatch the held frame is left untouched.
func (d *Differencer) Next(frame *Frame) (sample float64, ok bool, err error) {
	if d.previous == nil {
		d.previous = frame
		return 0, false, nil
	}

	sample, err = Difference(d.previous, frame)
	if err != nil {
		return 0, false, err
	}

	d.previous = frame

	return sample, true, nil
}
