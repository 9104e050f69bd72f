package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrSchemaRequired    = errors.New("schema is required")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrDuplicate         = errors.New("duplicate record")
	ErrUnknownReference  = errors.New("unknown reference")
	ErrUnavailable       = errors.New("store unavailable")
)
