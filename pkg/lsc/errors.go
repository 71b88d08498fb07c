// pkg/lsc/errors.go
package lsc

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when an operation runs without an open transport
	ErrNotConnected = errors.New("lsc: controller not connected")

	// ErrSendFailure wraps transport write errors
	ErrSendFailure = errors.New("lsc: failed to send command")

	// ErrReceiveFailure covers empty, failed or timed out reads
	ErrReceiveFailure = errors.New("lsc: failed to receive response")

	// ErrMalformedResponse covers header, command byte and length mismatches
	ErrMalformedResponse = errors.New("lsc: malformed response")

	// ErrFrameTooLong is returned when parameters do not fit one frame
	ErrFrameTooLong = errors.New("lsc: command frame too long")

	// ErrNoServos is returned for empty servo lists
	ErrNoServos = errors.New("lsc: no servos specified")
)

// FrameError describes a response frame that failed validation.
type FrameError struct {
	Cmd    byte
	Reason string
	Frame  []byte
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("lsc: malformed %s response: %s (% X)", CommandName(e.Cmd), e.Reason, e.Frame)
}

// Unwrap lets errors.Is match ErrMalformedResponse
func (e *FrameError) Unwrap() error {
	return ErrMalformedResponse
}

func malformed(cmd byte, frame []byte, format string, args ...interface{}) error {
	return &FrameError{Cmd: cmd, Reason: fmt.Sprintf(format, args...), Frame: frame}
}
