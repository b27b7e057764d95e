package ingest

import "errors"

// Sentinel errors for import operations.
var (
	// ErrMalformedJSON indicates the document is not a JSON object.
	ErrMalformedJSON = errors.New("malformed JSON document")

	// ErrBadPattern indicates a directory file pattern that cannot match.
	ErrBadPattern = errors.New("invalid file pattern")

	// ErrNotDirectory indicates a directory import was pointed at a file.
	ErrNotDirectory = errors.New("not a directory")
)
