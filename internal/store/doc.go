// Package store implements the linked store: the three collections
// (invoices, products, customers) behind a single typed mutation entry
// point.
//
// # Critical Patterns
//
// CP-1: One Mutation Entry Point
//   - Apply() is the only way state changes
//   - Patch is the single primitive shared by user edits and the
//     propagation engine; that symmetry is what lets one consistency
//     mechanism serve both paths
//
// CP-2: No Aliased State
//   - Every read hands out a deep clone
//   - Direct field mutation from outside the store is impossible, so
//     nothing can skip propagation
//
// CP-3: Deterministic Iteration
//   - Collections preserve insertion order; All() never depends on map
//     iteration order
//
// The changelog of applied mutations lives in internal/oplog; the engine
// records every Apply there with a monotonic seq.
package store
