package analysis

import "errors"

var (
	// ErrFunctionRequired is returned when no function name or key is given.
	ErrFunctionRequired = errors.New("function name or uid is required")

	// ErrInvalidDepth is returned for a traversal depth outside 1..MaxDepth.
	ErrInvalidDepth = errors.New("invalid depth")

	// ErrNotFound is returned by lookups that match nothing.
	ErrNotFound = errors.New("not found")

	// ErrInvalidFilter is returned when a path filter does not compile to a
	// boolean expression.
	ErrInvalidFilter = errors.New("invalid path filter")
)
