// Package engine implements the rowsync propagation engine.
//
// The engine is the heart of rowsync - it receives mutation intents
// (batch ingests, cell edits, clears), applies them to the linked store,
// and cascades derived-field recomputation until the three collections
// agree again.
//
// ARCHITECTURE:
//
// Single-Writer Synchronous Cascade:
// Every operation runs to completion - all directly and transitively
// dependent patches included - before control returns to the caller.
// Callers always observe a fully-converged state, never a partially
// propagated one. There is no event queue and no concurrency: mutations
// are synchronous function calls, which keeps evaluation order
// deterministic and causality trivial to reason about.
//
// Mutation Processing Flow:
// 1. The operation facade (IngestBatch, EditCell, ClearCollection)
//    builds a root mutation
// 2. dispatch() applies it to the store and records it in the changelog
// 3. react() routes to the propagation rule for the touched collection
// 4. Each rule recomputes the dependent derived fields and dispatches
//    follow-up patches, depth-first, in dependency order
//    (Product -> Invoice -> Customer, or the reverse naming direction)
//
// CRITICAL PATTERNS:
//
// CP-1: Equality-Guard Loop Suppression
// A propagated patch is dispatched only when the recomputed value
// differs from stored state (2-decimal tolerance for amounts). A patch
// whose changes equal current values is suppressed, which is what makes
// the bidirectional rename rules and the product/invoice cycle
// converge.
//
// CP-2: Depth Circuit Breaker
// The equality guard alone is believed convergent, but floating-point
// drift could in principle oscillate. A maximum cascade depth
// (default 16) backstops it; exceeding the limit surfaces a
// DivergenceError to the caller instead of looping forever.
//
// CP-3: Referential Gap Skip
// A propagation step that cannot find its referenced entity is skipped
// silently rather than failing the cascade. Propagation never raises
// for missing data: absent numerics count as 0 in aggregates while the
// stored fields stay null.
//
// All mutations are stamped with a monotonic seq from Clock.Next() and
// recorded in the oplog changelog. Ordering is logical, never
// wall-clock.
package engine
