// Package store provides the SQLite implementation of docstore.Adapter.
//
// Documents live in one table keyed by (partition, id). The body column holds
// the JSON form of the field map with keys in RFC 8785 order and strings
// stored verbatim, so a read returns exactly what was written.
//
// # Sequencing
//
// Every effective write (put of a new body, delete of a live document,
// applied remote change) takes the next value of a store-wide sequence. The
// sequence never goes backwards, not even across Reset, which lets it serve
// as the replication cursor (ChangesSince, Checkpoint).
//
// Writes that change nothing do not take a sequence number: putting a body
// identical to the stored one and deleting an absent or already deleted id
// are no-ops. This keeps replication from echoing changes back and forth.
//
// # Deterministic Results
//
// All queries order by seq ASC, id ASC.
//
// # Full-text Search
//
// Full-text indexes are token tables maintained by the store itself rather
// than an SQLite FTS module, so both drivers behave identically without build
// tags. See Tokenize for the token rules.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout: 5000ms unless WithBusyTimeout says otherwise
//   - foreign_keys=ON: Index terms cascade with their index
package store
