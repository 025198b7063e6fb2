package motion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Window is a fixed-capacity FIFO of recent difference samples.
// It is not safe for concurrent use.
type Window struct {
	// samples holds at most size values, oldest first.
	samples []float64
	// size is the capacity of the window.
	size int
	// ones holds size unit weights so stat.Mean sums the samples left to right.
	ones []float64
}

// NewWindow creates an empty window holding up to size samples.
func NewWindow(size int) *Window {
	if size < 1 {
		panic(fmt.Sprintf("motion: window size must be positive, got %d", size))
	}

	ones := make([]float64, size)
	for i := range ones {
		ones[i] = 1
	}

	return &Window{
		samples: make([]float64, 0, size),
		size:    size,
		ones:    ones,
	}
}

// Push appends a sample, evicting the oldest one once the window is over capacity.
func (w *Window) Push(sample float64) {
	if len(w.samples) == w.size {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:w.size-1]
	}

	w.samples = append(w.samples, sample)
}

// Mean returns the arithmetic mean. It panics on an empty window.
func (w *Window) Mean() float64 {
	w.mustNotBeEmpty("Mean")

	return stat.Mean(w.samples, w.ones[:len(w.samples)])
}

// StdDev returns the population standard deviation: the square root of the
// summed squared deviations from Mean divided by the sample count.
// It panics on an empty window.
func (w *Window) StdDev() float64 {
	w.mustNotBeEmpty("StdDev")

	return math.Sqrt(stat.MomentAbout(2, w.samples, w.Mean(), nil))
}

// Len returns the number of samples held.
func (w *Window) Len() int {
	return len(w.samples)
}

// Cap returns the window capacity.
func (w *Window) Cap() int {
	return w.size
}

// IsFull reports whether the window holds exactly Cap samples.
func (w *Window) IsFull() bool {
	return len(w.samples) == w.size
}

// Clear empties the window.
func (w *Window) Clear() {
	w.samples = w.samples[:0]
}

// Samples returns a copy of the held samples, oldest first.
func (w *Window) Samples() []float64 {
	result := make([]float64, len(w.samples))
	copy(result, w.samples)

	return result
}

func (w *Window) mustNotBeEmpty(op string) {
	if len(w.samples) == 0 {
		panic("motion: " + op + " called on an empty window")
	}
}
