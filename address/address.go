// Package address parses and canonicalizes the address strings found in
// binary analysis exports.
//
// Disassemblers are inconsistent about how they print addresses: some emit
// "0x401000", some emit "401000", and some emit plain decimal. Every address
// that participates in key derivation or edge resolution goes through
// Normalize so that equal numeric addresses always produce equal strings.
//
// Parsing rules, applied in order to the trimmed input:
//
//   - a "0x" or "0X" prefix means the remainder is hexadecimal
//   - any character in a-f or A-F means the whole string is hexadecimal
//   - otherwise the string is tried as decimal
//   - if decimal fails, hexadecimal is tried as a last resort
//
// The canonical form is "0x" followed by lowercase hex digits without
// leading zeros; zero is "0x0".
package address

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnparseable is returned when an address string cannot be interpreted
// as an unsigned 64-bit integer under any of the accepted notations.
var ErrUnparseable = errors.New("unparseable address")

// Parse interprets s as a 64-bit unsigned address.
func Parse(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrUnparseable)
	}

	if rest, ok := cutHexPrefix(s); ok {
		v, err := strconv.ParseUint(rest, 16, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrUnparseable, s)
		}
		return v, nil
	}

	if containsHexLetter(s) {
		v, err := strconv.ParseUint(s, 16, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrUnparseable, s)
		}
		return v, nil
	}

	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	if v, err := strconv.ParseUint(s, 16, 64); err == nil {
		return v, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnparseable, s)
}

// Format renders v in canonical form.
func Format(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}

// Normalize parses s and returns its canonical form. Normalize is
// idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) (string, error) {
	v, err := Parse(s)
	if err != nil {
		return "", err
	}
	return Format(v), nil
}

// NormalizeOr returns the canonical form of s, or fallback when s does not
// parse. Query paths use it to compare against stored canonical addresses
// while still passing through caller input that is not numeric.
func NormalizeOr(s, fallback string) string {
	n, err := Normalize(s)
	if err != nil {
		return fallback
	}
	return n
}

// Compare orders two address strings numerically. Strings that do not parse
// sort after every parseable address and are compared lexicographically
// among themselves.
func Compare(a, b string) int {
	av, aerr := Parse(a)
	bv, berr := Parse(b)
	switch {
	case aerr == nil && berr == nil:
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	}
	return strings.Compare(a, b)
}

func cutHexPrefix(s string) (string, bool) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:], true
	}
	return "", false
}

func containsHexLetter(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			return true
		}
	}
	return false
}
