package motion

import "math"

// Verdict is the outcome of classifying one sample against a full window.
type Verdict struct {
	// IsMotion is true when Magnitude exceeds the threshold.
	IsMotion bool
	// Magnitude is |Deviation - StdDev|, the decision statistic.
	Magnitude float64
	// StdDev is the population standard deviation of the window.
	StdDev float64
	// Deviation is the squared distance between the sample and the window mean.
	Deviation float64
}

// Classify judges sample against the statistics of window, which must already
// contain sample and be full.
//
// The magnitude compares a squared deviation with a standard deviation. It is
// not a z-score, and the default threshold is calibrated against this exact form.
func Classify(window *Window, sample, threshold float64) Verdict {
	var (
		localMean   = window.Mean()
		localStdDev = window.StdDev()
		deviation   = math.Pow(sample-localMean, 2)
		magnitude   = math.Abs(deviation - localStdDev)
	)

	return Verdict{
		IsMotion:  magnitude > threshold,
		Magnitude: magnitude,
		StdDev:    localStdDev,
		Deviation: deviation,
	}
}
