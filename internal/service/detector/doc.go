// Package detector runs the motion detection daemon.
//
// A Loop connects to the frame provider (retrying until it succeeds), then
// captures one frame per tick and feeds it to a Pipeline. The Pipeline diffs
// consecutive frames, keeps the rolling baseline, classifies each sample once
// the baseline is full and drives the stream controller. The OBSSource binds
// both the frame provider and the stream actuator to obs-websocket.
package detector
