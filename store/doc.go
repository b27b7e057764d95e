// Package store persists the binary knowledge graph in a Cypher graph
// database and provides the maintenance operations around it.
//
// Writer turns entities and relationships from package graph into
// idempotent MERGE statements, so replaying an import converges on the
// same graph. Schema provisions the uniqueness constraints the keys rely
// on, Stats reports aggregate counts and Exporter dumps the graph as JSON.
//
// All of them run through the query.GraphClient interface. Neo4jClient is
// the production implementation; package store/storetest provides test
// doubles.
//
// # Connection Sharing
//
// A Neo4jClient wraps one driver and its connection pool. The driver is
// safe for concurrent use, so one client is shared by every Writer,
// import session and analyzer in a process; each operation opens its own
// short-lived session.
package store
