// Package replication keeps two document stores in step over a websocket.
//
// A Replicator (client) dials a Gateway (server) with HTTP Basic credentials
// and exchanges frames:
//
//	client                         gateway
//	hello{session}         ->
//	                       <-      hello{session}
//	subscribe{since}       ->
//	changes{seq, changes}  ->                      push, one batch in flight
//	                       <-      ack{seq}
//	                       <-      changes{seq, changes}   pull
//	                       <-      caught_up{seq}
//
// Every websocket message is a binary frame: one flag byte (0 raw, 1 zstd)
// followed by the CBOR encoding of a Frame.
//
// Progress is kept in store checkpoints ("push:<url>", "pull:<url>"), so a
// later run resumes where the last one stopped. Changes are applied last
// write wins; applying a change already reflected locally is a no-op, which
// is what stops changes from bouncing between the two stores.
//
// Replication is best effort: a failed handshake is logged once and not
// retried, and nothing here blocks local writes.
package replication
