package generator

import "errors"

var (
	// ErrCancelled is returned when the caller stops a generation before it completes
	ErrCancelled = errors.New("generation cancelled")

	// ErrBusy is returned when a generation is already running
	ErrBusy = errors.New("generation already in progress")
)
