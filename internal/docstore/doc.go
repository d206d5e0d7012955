// Package docstore defines the boundary between PYCO and the document store
// that persists records.
//
// Everything above this package (the record codec, collections, the CLI)
// talks to storage only through Adapter. internal/store provides the SQLite
// implementation and internal/testutil an in-memory fake.
//
// Storage is partitioned: every record type owns one partition, named after
// its type descriptor. Document identifiers are unique within a partition.
package docstore
