package graph

import "fmt"

// RelationType names an edge kind.
type RelationType string

const (
	RelContains  RelationType = "CONTAINS"
	RelImports   RelationType = "IMPORTS"
	RelBelongsTo RelationType = "BELONGS_TO"
	RelCalls     RelationType = "CALLS"
)

// Endpoint identifies the label and key property an edge end is matched on.
type Endpoint struct {
	Label string
	Key   string
}

// Endpoints reports what each end of an edge of this type refers to.
func (t RelationType) Endpoints() (from, to Endpoint, ok bool) {
	switch t {
	case RelContains:
		return Endpoint{LabelBinary, "hash"}, Endpoint{LabelFunction, "uid"}, true
	case RelImports:
		return Endpoint{LabelBinary, "hash"}, Endpoint{LabelLibrary, "name"}, true
	case RelBelongsTo:
		return Endpoint{LabelFunction, "uid"}, Endpoint{LabelLibrary, "name"}, true
	case RelCalls:
		return Endpoint{LabelFunction, "uid"}, Endpoint{LabelFunction, "uid"}, true
	}
	return Endpoint{}, Endpoint{}, false
}

// Relationship is a directed edge between two keyed entities.
type Relationship struct {
	Type RelationType `json:"type"`

	// From and To hold the key values of the endpoints, interpreted
	// according to Type.Endpoints.
	From string `json:"from"`
	To   string `json:"to"`

	Properties map[string]any `json:"properties,omitempty"`
}

// Contains links a binary to a function it defines.
func Contains(binaryHash, functionUID string) Relationship {
	return Relationship{Type: RelContains, From: binaryHash, To: functionUID}
}

// Imports links a binary to a library it depends on.
func Imports(binaryHash, library string) Relationship {
	return Relationship{Type: RelImports, From: binaryHash, To: library}
}

// BelongsTo links an imported function to its library.
func BelongsTo(functionUID, library string) Relationship {
	return Relationship{Type: RelBelongsTo, From: functionUID, To: library}
}

// Calls links caller to callee with the call-site offset and kind.
func Calls(callerUID, calleeUID, offset string, callType CallType) Relationship {
	return Relationship{
		Type: RelCalls,
		From: callerUID,
		To:   calleeUID,
		Properties: map[string]any{
			"offset":    offset,
			"call_type": callType.String(),
		},
	}
}

// Offset returns the call-site offset of a CALLS edge.
func (r Relationship) Offset() string {
	s, _ := r.Properties["offset"].(string)
	return s
}

// CallType returns the kind of a CALLS edge.
func (r Relationship) CallType() CallType {
	s, _ := r.Properties["call_type"].(string)
	return ParseCallType(s)
}

// Validate checks that the edge names a known type and both endpoints.
func (r Relationship) Validate() error {
	if _, _, ok := r.Type.Endpoints(); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRelation, r.Type)
	}
	if r.From == "" {
		return fmt.Errorf("relationship %w: from", ErrMissingField)
	}
	if r.To == "" {
		return fmt.Errorf("relationship %w: to", ErrMissingField)
	}
	return nil
}
