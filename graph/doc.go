// Package graph defines the entity model of the binary knowledge graph.
//
// A Binary CONTAINS the Functions it defines or exports, IMPORTS the
// Libraries it links against, and every imported Function BELONGS_TO its
// Library. Functions are connected by CALLS edges that carry the call-site
// offset and a CallType.
//
// Entities are keyed by stable identifiers derived in package graph/id, so
// re-importing the same analysis export converges on the same graph. The
// types here are plain values: persistence lives in package store and the
// import pipeline in package ingest.
//
// All closed vocabularies (BinaryFormat, FunctionType, CallType and
// RelationType) are classified through a single function each, with an
// explicit default for unrecognized input:
//
//	graph.ClassifyFormat("PE32+ executable") // FormatPE
//	graph.ClassifyFormat("ELF64")            // FormatELF
//	graph.ParseCallType("tail")              // CallTail
//	graph.ParseCallType("jump-table")        // CallDirect (default)
package graph
