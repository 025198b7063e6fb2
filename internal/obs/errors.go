package obs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when a request is issued before Connect succeeded.
	ErrNotConnected = errors.New("obs: not connected")
	// ErrClosed is returned when the connection was closed while a request was in flight.
	ErrClosed = errors.New("obs: connection closed")
	// ErrAuthRequired is returned when the server asks for a password and none is configured.
	ErrAuthRequired = errors.New("obs: server requires authentication")
	// ErrAuthFailed is returned when the server rejects the password.
	ErrAuthFailed = errors.New("obs: authentication failed")
	// ErrUnexpectedMessage is returned when the handshake sees an unexpected op code.
	ErrUnexpectedMessage = errors.New("obs: unexpected message")
)

// RequestError is returned when the server answers a request with a failed status.
type RequestError struct {
	// RequestType is the failed request.
	RequestType string
	// Code is the obs-websocket status code.
	Code int
	// Comment is the server's explanation, if any.
	Comment string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Comment == "" {
		return fmt.Sprintf("obs: %s failed with code %d", e.RequestType, e.Code)
	}

	return fmt.Sprintf("obs: %s failed with code %d: %s", e.RequestType, e.Code, e.Comment)
}
