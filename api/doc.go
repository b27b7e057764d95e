// Package api serves the cross-reference queries over HTTP.
//
// Every route is a read-only GET under /v1 and answers JSON:
//
//	GET /v1/health                          store connectivity
//	GET /v1/stats                           graph-wide counts
//	GET /v1/functions?pattern=&binary=&limit=
//	GET /v1/functions/:name/paths?depth=&where=
//	GET /v1/functions/:name/upward?depth=&where=
//	GET /v1/functions/:name/sequences
//	GET /v1/functions/:name/callers
//	GET /v1/functions/:name/recursion
//	GET /v1/functions/:name/context?depth=
//	GET /v1/functions/:name/callgraph?depth=&binary=&enhanced=
//	GET /v1/binaries/:name
//	GET /v1/xrefs/:address?binary=
//	GET /v1/strings?q=&binary=&raw=&limit=
//
// Successful query responses are cached by request URI when a Cache is
// configured. Errors are never cached.
package api
