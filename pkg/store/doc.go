// Package store implements the in-memory, schema-keyed data store backing
// generated mock routes. Each schema holds an ordered collection of records
// keyed by a configurable identifier field (default "id"). Individual
// operations are atomic; sequences of operations are not — callers that
// read-modify-write can race with concurrent handlers, which is a documented
// limitation of the store, not a bug.
//
// The store is protocol-agnostic: it never broadcasts. Components that need
// to mirror mutations outward register an Observer.
package store
