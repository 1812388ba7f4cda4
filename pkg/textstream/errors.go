package textstream

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for an unknown stream record id.
	ErrNotFound = errors.New("stream record not found")

	// ErrTerminalState is returned when appending to a done, error or timeout record.
	ErrTerminalState = errors.New("stream record is in a terminal state")

	// ErrInvalidOutcome is returned by Finalize for anything but done or error.
	ErrInvalidOutcome = errors.New("invalid finalize outcome")

	// ErrControlSignalParse marks a malformed early-completion payload. Pump logs
	// it and keeps appending.
	ErrControlSignalParse = errors.New("control signal parse error")

	// ErrLeaseHeld is returned when another producer already owns the record.
	ErrLeaseHeld = errors.New("stream record already has an active producer")

	errStopped = errors.New("stream stopped by control signal")
)

// ProducerError wraps a failure raised by the external fragment source.
type ProducerError struct {
	StreamID string
	Err      error
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("producer for stream %s failed: %v", e.StreamID, e.Err)
}

func (e *ProducerError) Unwrap() error {
	return e.Err
}
