package graph

import "errors"

// Sentinel errors for entity validation.
var (
	// ErrMissingField indicates that a required identifying field is empty.
	ErrMissingField = errors.New("missing required field")

	// ErrUnknownRelation indicates a relationship type outside RelationType's set.
	ErrUnknownRelation = errors.New("unknown relationship type")
)
