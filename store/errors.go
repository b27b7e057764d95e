package store

import "errors"

// Sentinel errors for store operations.
var (
	// ErrNotConnected indicates the client has no open driver.
	ErrNotConnected = errors.New("graph store not connected")

	// ErrInvalidConfig indicates that connection settings failed validation.
	ErrInvalidConfig = errors.New("invalid graph store configuration")

	// ErrConnectionFailed indicates the store could not be reached.
	ErrConnectionFailed = errors.New("graph store connection failed")

	// ErrQueryFailed indicates a read statement failed.
	ErrQueryFailed = errors.New("graph query failed")

	// ErrWriteFailed indicates a write statement failed.
	ErrWriteFailed = errors.New("graph write failed")
)
