package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Section names of an analysis export.
const (
	SectionBinaryInfo = "binary_info"
	SectionFunctions  = "functions"
	SectionStrings    = "strings"
	SectionImports    = "imports"
	SectionExports    = "exports"
	SectionCalls      = "calls"
)

// payload is a decoded export with each section left raw, so a malformed
// section fails on its own without rejecting the document.
type payload map[string]json.RawMessage

func decodePayload(data []byte) (payload, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedJSON, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: top level must be an object", ErrMalformedJSON)
	}
	return p, nil
}

// present reports whether the section exists and is not null.
func (p payload) present(name string) bool {
	raw, ok := p[name]
	return ok && !isNull(raw)
}

// array decodes a section that must be a JSON array. A missing or null
// section is an empty array.
func (p payload) array(name string) ([]json.RawMessage, error) {
	raw, ok := p[name]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%s must be an array", name)
	}
	return items, nil
}

// record is one JSON object with lazily decoded fields. Accessors treat a
// field of the wrong JSON type as absent.
type record map[string]json.RawMessage

func decodeRecord(raw json.RawMessage) (record, bool) {
	var r record
	if err := json.Unmarshal(raw, &r); err != nil || r == nil {
		return nil, false
	}
	return r, true
}

// str returns the first of keys holding a non-empty string.
func (r record) str(keys ...string) (string, bool) {
	for _, k := range keys {
		raw, ok := r[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s, true
		}
	}
	return "", false
}

// addr returns an address-like field as text. Strings pass through;
// non-negative integers are rendered in decimal so they parse back to the
// same value.
func (r record) addr(key string) (string, bool) {
	if s, ok := r.str(key); ok {
		return s, true
	}
	if v, ok := r.uint(key); ok {
		return strconv.FormatUint(v, 10), true
	}
	return "", false
}

// uint returns a non-negative integer field.
func (r record) uint(key string) (uint64, bool) {
	raw, ok := r[key]
	if !ok {
		return 0, false
	}
	var v uint64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	return v, true
}

// object returns a nested object field.
func (r record) object(key string) (record, bool) {
	raw, ok := r[key]
	if !ok {
		return nil, false
	}
	return decodeRecord(raw)
}

func (r record) has(key string) bool {
	raw, ok := r[key]
	return ok && !isNull(raw)
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func jsonString(raw json.RawMessage, dst *string) error {
	return json.Unmarshal(raw, dst)
}
