package motion

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestClassify_StillSceneIsNotMotion covers the all-zero baseline.
func TestClassify_StillSceneIsNotMotion(t *testing.T) {
	t.Parallel()

	w := NewWindow(10)
	for range 10 {
		w.Push(0)
	}

	v := Classify(w, 0, 20)
	require.False(t, v.IsMotion)
	require.Zero(t, v.Magnitude)
	require.Zero(t, v.StdDev)
	require.Zero(t, v.Deviation)
}

// TestClassify_MagnitudeFormula checks |(sample-mean)^2 - stdev| on a hand-computed window.
func TestClassify_MagnitudeFormula(t *testing.T) {
	t.Parallel()

	w := NewWindow(4)
	for _, v := range []float64{0, 0, 0, 12} {
		w.Push(v)
	}

	// mean = 3, population stdev = sqrt((9+9+9+81)/4) = sqrt(27).
	v := Classify(w, 12, 20)

	wantStdDev := math.Sqrt(27)
	require.InDelta(t, wantStdDev, v.StdDev, 1e-12)
	require.InDelta(t, 81.0, v.Deviation, 1e-12)
	require.InDelta(t, 81-wantStdDev, v.Magnitude, 1e-12)
	require.True(t, v.IsMotion)
}

// TestClassify_ThresholdIsStrict verifies that magnitude equal to the threshold is not motion.
func TestClassify_ThresholdIsStrict(t *testing.T) {
	t.Parallel()

	w := NewWindow(2)
	w.Push(0)
	w.Push(2)

	// mean = 1, stdev = 1, deviation = 1, magnitude = 0.
	v := Classify(w, 2, 0)
	require.Zero(t, v.Magnitude)
	require.False(t, v.IsMotion)
}

// TestClassify_AbsoluteValue covers a deviation smaller than the stdev.
func TestClassify_AbsoluteValue(t *testing.T) {
	t.Parallel()

	w := NewWindow(2)
	w.Push(0)
	w.Push(10)

	// mean = 5, stdev = 5, deviation = 25, magnitude = 20.
	v := Classify(w, 10, 19.5)
	require.InDelta(t, 20.0, v.Magnitude, 1e-12)
	require.True(t, v.IsMotion)

	// Sample at the mean: deviation 0, magnitude |0 - 5| = 5.
	w = NewWindow(3)
	w.Push(0)
	w.Push(5)
	w.Push(10)

	v = Classify(w, 5, 20)
	require.InDelta(t, math.Sqrt(50.0/3), v.Magnitude, 1e-12)
	require.False(t, v.IsMotion)
}

// sequentialMagnitude computes the magnitude with plain left-to-right sums.
func sequentialMagnitude(samples []float64, sample float64) float64 {
	var sum float64
	for _, v := range samples {
		sum += v
	}

	mean := sum / float64(len(samples))

	var squares float64
	for _, v := range samples {
		squares += math.Pow(v-mean, 2)
	}

	stdDev := math.Sqrt(squares / float64(len(samples)))

	return math.Abs(math.Pow(sample-mean, 2) - stdDev)
}

// TestClassify_MagnitudeIsExact compares the magnitude bit for bit with
// sequential sums over random windows, since the threshold is calibrated on them.
func TestClassify_MagnitudeIsExact(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 42)) //nolint:gosec // Deterministic test data.

	for i := range 20000 {
		w := NewWindow(10)
		for range 10 {
			w.Push(rng.Float64() * 60)
		}

		samples := w.Samples()
		sample := samples[len(samples)-1]

		got := Classify(w, sample, 20).Magnitude
		want := sequentialMagnitude(samples, sample)

		if got != want {
			t.Fatalf("window %d: magnitude %v, want %v (samples %v)", i, got, want, samples)
		}
	}
}
