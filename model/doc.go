// Package model contains the persisted records of the allocation engine:
// physical resources, the requests waiting for them and the ledger of
// allocations linking the two.
//
// Records are plain structs tagged for JSON (fs store, HTTP boundary) and for
// sqlx (`db` tags, relational store).  They carry no behaviour beyond status
// helpers and Clone, all state transitions live in service/allocator.
package model
