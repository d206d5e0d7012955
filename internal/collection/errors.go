package collection

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned by mutations attempted before Initialize.
	ErrNotInitialized = errors.New("collection not initialized")

	// ErrOutOfRange is returned when a position or count does not fit the
	// collection. It is detected before any store operation.
	ErrOutOfRange = errors.New("position out of range")
)

// PartialError reports a ranged mutation that failed part way. The first
// Done items were applied to both the store and the collection; the rest
// were not. Re-query the store when all-or-nothing semantics are needed.
type PartialError struct {
	// Op is the mutation: "insert", "remove" or "set".
	Op string

	// Done counts the items applied before the failure.
	Done int

	Err error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("collection %s: failed after %d item(s): %v", e.Op, e.Done, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// IsPartial reports whether err is a *PartialError.
func IsPartial(err error) bool {
	var pe *PartialError
	return errors.As(err, &pe)
}

func outOfRange(op string, format string, args ...any) error {
	return fmt.Errorf("collection %s: %s: %w", op, fmt.Sprintf(format, args...), ErrOutOfRange)
}
