// Package ir provides the value model shared by every other PYCO package.
//
// A document is a field map (IRObject) whose values are drawn from a small
// sealed set of types. ir imports nothing internal, which keeps it the
// foundation layer with no import cycles.
//
// Key constraints:
//   - no float type; timestamps are int64 epoch milliseconds
//   - canonical JSON (RFC 8785) is used for hashing only, storage keeps the
//     exact strings it was given
//   - content hashes are domain separated SHA-256
package ir
