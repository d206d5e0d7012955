// Package collection implements the collection synchronizer: an ordered,
// observable list of records whose every structural mutation is mirrored
// into a document store before the mutating call returns.
//
// A Collection keeps an identity table parallel to its items. After every
// mutation settles, IDs()[i] is the identifier of At(i). Mutations are the
// only way to change the contents, so the store can never miss one.
//
// Store operations per mutation:
//
//	Insert      encode every record, then put them in order
//	Remove      delete by identity table entry, ascending positions
//	Move        none; items and identity table are reordered together
//	Set         put the replacement, delete the old document if its id changed
//	ReplaceAll  none; reported as an unhandled change
//
// Collections do no internal locking. Callers serialize mutations; reads may
// run concurrently with each other but not with a mutation.
package collection
