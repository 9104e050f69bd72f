package service

import "errors"

var (
	// ErrNotStarted is returned when the service is used before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrNoStore is returned by Start when no store was configured.
	ErrNoStore = errors.New("no store configured")
)
