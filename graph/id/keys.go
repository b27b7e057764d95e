package id

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/zero-day-ai/binxgraph/address"
)

const (
	importPrefix = "imp"
	stringPrefix = "str"
)

// Function returns the key of the function at addr inside the binary
// identified by binaryHash. The address is rendered in canonical form, so
// callers never depend on how the address was originally written.
func Function(binaryHash string, addr uint64) string {
	return binaryHash + ":" + address.Format(addr)
}

// Import returns the binary-independent key of an imported symbol.
func Import(library, symbol string) string {
	return importPrefix + ":" + Library(library) + ":" + symbol
}

// ImportIn returns the key of an imported symbol as seen by one binary.
func ImportIn(binaryHash, library, symbol string) string {
	return importPrefix + ":" + binaryHash + ":" + Library(library) + ":" + symbol
}

// String returns the key of a string literal found in a binary.
func String(binaryHash, value string) string {
	return StringPrefix(binaryHash) + ContentHash(NormalizeString(value))
}

// StringPrefix returns the prefix shared by every string key of one
// binary.
func StringPrefix(binaryHash string) string {
	return stringPrefix + ":" + binaryHash + ":"
}

// Library returns the key of a library: its lowercased name.
func Library(name string) string {
	return strings.ToLower(name)
}

// NormalizeString strips the trailing NUL bytes and whitespace that string
// extractors leave behind.
func NormalizeString(value string) string {
	return strings.TrimRightFunc(value, func(r rune) bool {
		return r == 0 || unicode.IsSpace(r)
	})
}

// ContentHash returns the lowercase hex SHA-256 digest of s.
func ContentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
