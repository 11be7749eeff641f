// Package oplog records every mutation the engine applies, in an
// in-memory SQLite database.
//
// The log is the store's changelog of mutation intents and doubles as
// the mutation-count spy the propagation properties are tested against
// (an equal-value edit must add zero propagated rows).
//
// # Critical Patterns
//
// CP-1: Logical Ordering
//   - All ordering uses seq INTEGER (logical clock), NEVER timestamps
//   - Queries read ORDER BY seq ASC for deterministic listings
//
// CP-2: Nothing Durable
//   - The database is always ":memory:"; state is process-lifetime
//     only, matching the rest of the system
//
// The single-connection configuration is required: with database/sql,
// every new connection to ":memory:" would otherwise open its own empty
// database.
package oplog
