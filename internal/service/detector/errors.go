package detector

import "errors"

var (
	// ErrConnection is returned when the frame provider cannot be reached.
	ErrConnection = errors.New("frame provider connection failed")
	// ErrCapture is returned when a frame request fails on a live connection.
	ErrCapture = errors.New("frame capture failed")
	// ErrDecode is returned when a frame payload cannot be turned into pixels.
	ErrDecode = errors.New("frame decode failed")
)
