// Package id derives the stable keys that identify entities in the binary
// knowledge graph.
//
// Keys are plain strings composed from identifying content, so the same
// analysis export imported twice produces the same keys and the store's
// upserts converge instead of duplicating nodes.
//
// # Key Formats
//
//	Function          {binary_hash}:{canonical_address}
//	Import (global)   imp:{library_lowercase}:{symbol}
//	Import (scoped)   imp:{binary_hash}:{library_lowercase}:{symbol}
//	String            str:{binary_hash}:{sha256_hex(normalized_value)}
//	Library           {library_lowercase}
//
// Function keys are scoped to a binary because addresses are only unique
// within one image. Imports without an address are shared by every binary
// that links the same symbol; an import observed at a concrete address
// (an IAT slot, a PLT stub) is scoped to its binary so that call edges can
// target it.
//
// String values are normalized before hashing by dropping trailing NUL
// bytes and trailing whitespace, which extractors append inconsistently.
package id
