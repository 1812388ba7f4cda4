package service

import "errors"

var (
	ErrUnauthorized     = errors.New("you do not have access to this conflict")
	ErrConflictNotFound = errors.New("conflict not found")
	ErrStreamNotPending = errors.New("stream has already been started")
	ErrStreamBusy       = errors.New("stream already has an active producer")
	ErrNoProducer       = errors.New("stream has no producer")
	ErrInvalidInput     = errors.New("invalid input")
)
