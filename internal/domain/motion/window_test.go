package motion

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// TestWindow_NeverExceedsCapacity pushes more samples than fit and checks the length bound.
func TestWindow_NeverExceedsCapacity(t *testing.T) {
	t.Parallel()

	w := NewWindow(4)

	for i := range 20 {
		w.Push(float64(i))
		require.LessOrEqual(t, w.Len(), w.Cap())
	}

	require.True(t, w.IsFull())
}

// TestWindow_EvictsOldestFirst verifies that after K+1 pushes the first sample is gone.
func TestWindow_EvictsOldestFirst(t *testing.T) {
	t.Parallel()

	w := NewWindow(3)
	w.Push(1)
	w.Push(2)
	w.Push(3)
	require.True(t, w.IsFull())

	w.Push(4)

	if diff := cmp.Diff([]float64{2, 3, 4}, w.Samples()); diff != "" {
		t.Fatalf("unexpected samples (-want +got):\n%s", diff)
	}
}

// TestWindow_Stats checks mean and population standard deviation on a known sequence.
func TestWindow_Stats(t *testing.T) {
	t.Parallel()

	w := NewWindow(8)
	for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		w.Push(v)
	}

	require.InDelta(t, 5.0, w.Mean(), 1e-12)
	// Population stdev of this textbook sequence is exactly 2 (sample stdev would be ~2.14).
	require.InDelta(t, 2.0, w.StdDev(), 1e-12)
}

// TestWindow_ConstantSequenceHasZeroStdDev covers the degenerate baseline.
func TestWindow_ConstantSequenceHasZeroStdDev(t *testing.T) {
	t.Parallel()

	for _, v := range []float64{0, 1, 42.5, 1e6} {
		w := NewWindow(10)
		for range 10 {
			w.Push(v)
		}

		require.InDelta(t, 0.0, w.StdDev(), 1e-9, "value %v", v)
		require.InDelta(t, v, w.Mean(), 1e-9, "value %v", v)
	}
}

// TestWindow_StatsAreOrderInvariant compares the stats of a sequence and its reverse.
func TestWindow_StatsAreOrderInvariant(t *testing.T) {
	t.Parallel()

	values := []float64{3.5, 10, 0.25, 7, 7, 1, 19.75}

	forward := NewWindow(len(values))
	backward := NewWindow(len(values))

	for i := range values {
		forward.Push(values[i])
		backward.Push(values[len(values)-1-i])
	}

	require.InDelta(t, forward.Mean(), backward.Mean(), 1e-12)
	require.InDelta(t, forward.StdDev(), backward.StdDev(), 1e-12)
}

// TestWindow_Clear empties the window and allows refilling.
func TestWindow_Clear(t *testing.T) {
	t.Parallel()

	w := NewWindow(2)
	w.Push(1)
	w.Push(2)
	w.Clear()

	require.Zero(t, w.Len())
	require.False(t, w.IsFull())

	w.Push(5)
	require.Equal(t, []float64{5}, w.Samples())
}

// TestWindow_EmptyStatsPanic asserts the fail-fast contract on an empty window.
func TestWindow_EmptyStatsPanic(t *testing.T) {
	t.Parallel()

	w := NewWindow(3)

	require.Panics(t, func() { w.Mean() })
	require.Panics(t, func() { w.StdDev() })
	require.Panics(t, func() { NewWindow(0) })
}
