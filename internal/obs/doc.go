// Package obs is a minimal obs-websocket v5 client.
//
// It performs the Hello/Identify handshake (with optional challenge/salt
// authentication), multiplexes requests over one connection by request id and
// exposes the few requests the detector needs: GetSourceScreenshot,
// StartStream and StopStream.
package obs
