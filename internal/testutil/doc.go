// Package testutil holds test doubles shared across packages.
//
// MemStore is an in-memory docstore.Adapter with the same observable
// semantics as the SQLite store (ordering, no-op writes, full-text rules)
// plus an operation log and failure injection for synchronizer tests.
package testutil
