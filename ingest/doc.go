// Package ingest imports binary analysis exports into the knowledge graph.
//
// An export is a JSON document describing one binary:
//
//	{
//	  "binary_info": {
//	    "name": "sample.exe",
//	    "file_path": "/samples/sample.exe",
//	    "file_size": 73802,
//	    "file_type": {"type": "PE32+", "architecture": "x86_64"},
//	    "hashes": {"sha256": "9f86d0..."}
//	  },
//	  "functions": [{"name": "main", "address": "0x401000", "size": 212}],
//	  "strings":   [{"value": "cmd.exe", "address": "0x405010"}, "bare string"],
//	  "imports":   [{"name": "CreateFileW", "library": "KERNEL32.dll", "address": "0x403000"}],
//	  "exports":   [{"name": "DllMain", "address": "0x401200"}],
//	  "calls":     [{"from_address": "0x401000", "to_address": "0x403000", "offset": "0x401020", "type": "indirect"}]
//	}
//
// A Session processes one document in fixed phases: binary, functions,
// strings, imports, exports, calls. Earlier phases fill an address map
// that the calls phase resolves edge endpoints against, so every CALLS
// edge is written only after both of its endpoints were persisted.
//
// Failures are accumulated rather than returned. A malformed section
// contributes nothing and is reported; a bad record is skipped and
// reported; a call whose endpoints do not resolve is counted in
// Result.SkippedCalls without being an error. Only a document that is not
// JSON, or whose binary cannot be identified, aborts the import.
//
// Importer wraps sessions for files, readers and whole directories, and
// Watcher imports files as they appear in a directory.
package ingest
