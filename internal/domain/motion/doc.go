// Package motion contains the pure detection primitives.
//
// It defines Frame (an RGB pixel buffer), the frame Differencer that turns two
// consecutive frames into a scalar sample, the rolling Window that keeps the
// recent samples as an adaptive baseline, and Classify, which judges a new
// sample against the window statistics.
package motion
