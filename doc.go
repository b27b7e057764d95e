// Package binxgraph imports binary-analysis exports into a Neo4j knowledge
// graph and answers cross-reference questions about them.
//
// An analysis export is a JSON document describing one binary: its
// functions, string literals, imports, exports and call edges. Importing
// it yields Binary, Function, String and Library nodes joined by CONTAINS,
// CALLS, IMPORTS, EXPORTS and LINKS edges. Every write is a MERGE on a
// deterministic key, so re-importing a document never duplicates anything.
//
// # Getting Started
//
//	client, err := binxgraph.Open(ctx, store.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close(ctx)
//
//	client.InitSchema(ctx)
//	res, err := client.ImportFile(ctx, "ghidra_export.json")
//	if err != nil {
//		log.Fatal(err) // the document is not JSON
//	}
//	fmt.Println(res.Success, res.TotalNodes, res.TopErrors(10))
//
//	paths, err := client.Analyzer().CallPaths(ctx, "main", 3)
//
// # Packages
//
//   - address normalizes textual addresses to canonical lowercase hex
//   - graph, graph/id and graph/query define the entities, their keys and
//     the Cypher builders
//   - ingest runs import sessions, directory imports and watch mode
//   - analysis answers call-path, sequence, recursion and lookup queries
//   - store writes to and maintains Neo4j
//   - queue and registry distribute imports over Redis workers registered
//     in etcd
//   - api serves the queries over HTTP
//
// # Errors
//
// Recoverable import problems are collected in ingest.Result. Failures
// returned by Client are *Error values classified by Kind:
//
//	if errors.Is(err, &binxgraph.Error{Kind: binxgraph.KindValidation}) {
//		// malformed document or bad query argument
//	}
package binxgraph
