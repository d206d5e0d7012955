package collection

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Jerry0022/PYCO/internal/docstore"
	"github.com/Jerry0022/PYCO/internal/record"
)

// State is the lifecycle state of a Collection.
type State int

const (
	StateEmpty State = iota
	StateHydrated
)

func (s State) String() string {
	if s == StateHydrated {
		return "hydrated"
	}
	return "empty"
}

type options struct {
	logger    *slog.Logger
	observers []Observer
}

// Option configures a Collection.
type Option func(*options)

// WithLogger sets the logger for diagnostics. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithObserver registers an observer. May be given more than once.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// Collection is an ordered list of records of type T kept in step with the
// partition desc.Name of a document store.
type Collection[T any] struct {
	store     docstore.Adapter
	desc      *record.Descriptor[T]
	logger    *slog.Logger
	observers []Observer

	state State
	items []T
	ids   []string
}

// New creates an empty collection. Call Initialize before mutating it.
func New[T any](store docstore.Adapter, desc *record.Descriptor[T], opts ...Option) *Collection[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &Collection[T]{
		store:     store,
		desc:      desc,
		logger:    o.logger.With("partition", desc.Name),
		observers: o.observers,
	}
}

// Partition returns the store partition the collection mirrors.
func (c *Collection[T]) Partition() string { return c.desc.Name }

// State returns the lifecycle state.
func (c *Collection[T]) State() State { return c.state }

// Len returns the number of items.
func (c *Collection[T]) Len() int { return len(c.items) }

// At returns the item at position i. It panics when i is out of range, like
// slice indexing.
func (c *Collection[T]) At(i int) T { return c.items[i] }

// Items returns a copy of the items in order.
func (c *Collection[T]) Items() []T { return slices.Clone(c.items) }

// IDs returns a copy of the identity table.
func (c *Collection[T]) IDs() []string { return slices.Clone(c.ids) }

// Initialize loads every document of the partition, decodes it and replaces
// the contents of the collection, then marks it hydrated. If any document
// fails to decode nothing changes: there is no partial hydration.
//
// Calling Initialize on a hydrated collection reloads it from the store.
func (c *Collection[T]) Initialize(ctx context.Context) error {
	docs, err := c.store.Query(ctx, c.desc.Name)
	if err != nil {
		return fmt.Errorf("collection initialize %s: %w", c.desc.Name, err)
	}
	items, err := record.DecodeAll(c.desc, docs)
	if err != nil {
		return fmt.Errorf("collection initialize %s: %w", c.desc.Name, err)
	}
	ids, err := c.identify(items)
	if err != nil {
		return fmt.Errorf("collection initialize %s: %w", c.desc.Name, err)
	}

	wasHydrated := c.state == StateHydrated
	c.items, c.ids, c.state = items, ids, StateHydrated
	c.logger.Debug("collection hydrated", "count", len(items))

	if wasHydrated {
		c.notify(ChangeEvent{Kind: ChangeReset, Count: len(items)})
	} else if len(items) > 0 {
		c.notify(ChangeEvent{Kind: ChangeInserted, Position: 0, Count: len(items)})
	}
	return nil
}

// Append inserts recs at the end of the collection.
func (c *Collection[T]) Append(ctx context.Context, recs ...T) error {
	return c.Insert(ctx, len(c.items), recs...)
}

// Insert encodes recs, puts them into the store in order and inserts them at
// pos. Codec errors abort before any put. If a put fails, the records put
// before it are kept in the collection and a *PartialError is returned.
func (c *Collection[T]) Insert(ctx context.Context, pos int, recs ...T) error {
	if err := c.requireHydrated("insert"); err != nil {
		return err
	}
	if pos < 0 || pos > len(c.items) {
		return outOfRange("insert", "position %d, length %d", pos, len(c.items))
	}
	if len(recs) == 0 {
		return nil
	}

	docs := make([]docstore.Document, len(recs))
	for i, r := range recs {
		doc, err := record.Encode(c.desc, r)
		if err != nil {
			return fmt.Errorf("collection insert: %w", err)
		}
		docs[i] = doc
	}

	done := 0
	var putErr error
	for _, doc := range docs {
		if err := c.store.Put(ctx, c.desc.Name, doc); err != nil {
			putErr = err
			break
		}
		done++
	}

	if done > 0 {
		ids := make([]string, done)
		for i := range ids {
			ids[i] = docs[i].ID
		}
		c.items = slices.Insert(c.items, pos, recs[:done]...)
		c.ids = slices.Insert(c.ids, pos, ids...)
		c.notify(ChangeEvent{Kind: ChangeInserted, Position: pos, Count: done})
	}

	if putErr != nil {
		c.logger.Error("insert failed", "position", pos, "done", done, "error", putErr)
		return &PartialError{Op: "insert", Done: done, Err: putErr}
	}
	return nil
}

// RemoveAt removes the item at pos.
func (c *Collection[T]) RemoveAt(ctx context.Context, pos int) error {
	return c.Remove(ctx, pos, 1)
}

// Remove deletes the documents of n items starting at pos, in ascending
// position order, and removes them from the collection. A document still
// referenced by an item outside the range is kept. If a delete fails,
// the items deleted before it are removed and a *PartialError is returned.
func (c *Collection[T]) Remove(ctx context.Context, pos, n int) error {
	if err := c.requireHydrated("remove"); err != nil {
		return err
	}
	if n < 0 || pos < 0 || pos+n > len(c.items) {
		return outOfRange("remove", "position %d, count %d, length %d", pos, n, len(c.items))
	}
	if n == 0 {
		return nil
	}

	done := 0
	var delErr error
	for _, id := range c.ids[pos : pos+n] {
		if c.heldOutside(id, pos, n) {
			done++
			continue
		}
		if err := c.store.Delete(ctx, c.desc.Name, id); err != nil {
			delErr = err
			break
		}
		done++
	}

	if done > 0 {
		c.items = slices.Delete(c.items, pos, pos+done)
		c.ids = slices.Delete(c.ids, pos, pos+done)
		c.notify(ChangeEvent{Kind: ChangeRemoved, Position: pos, Count: done})
	}

	if delErr != nil {
		c.logger.Error("remove failed", "position", pos, "done", done, "error", delErr)
		return &PartialError{Op: "remove", Done: done, Err: delErr}
	}
	return nil
}

// heldOutside reports whether an item outside [pos, pos+n) shares id.
// Records with equal contents share a content hash, and their document must
// survive while any of them remains.
func (c *Collection[T]) heldOutside(id string, pos, n int) bool {
	return slices.Contains(c.ids[:pos], id) || slices.Contains(c.ids[pos+n:], id)
}

// Move moves n items starting at from so that they start at to, where to is
// a position in the collection after the block has been taken out. Items and
// identity table move together; the store is not touched.
func (c *Collection[T]) Move(ctx context.Context, from, to, n int) error {
	if err := c.requireHydrated("move"); err != nil {
		return err
	}
	if n < 0 || from < 0 || from+n > len(c.items) || to < 0 || to+n > len(c.items) {
		return outOfRange("move", "from %d, to %d, count %d, length %d", from, to, n, len(c.items))
	}
	if n == 0 || from == to {
		return nil
	}

	c.items = moveBlock(c.items, from, to, n)
	c.ids = moveBlock(c.ids, from, to, n)
	c.notify(ChangeEvent{Kind: ChangeMoved, Position: from, Count: n, To: to})
	return nil
}

// Set replaces the item at pos. The replacement is put first; when its
// identifier differs from the old one the old document is deleted. A failed
// delete leaves the replacement in place and returns a *PartialError.
func (c *Collection[T]) Set(ctx context.Context, pos int, rec T) error {
	if err := c.requireHydrated("set"); err != nil {
		return err
	}
	if pos < 0 || pos >= len(c.items) {
		return outOfRange("set", "position %d, length %d", pos, len(c.items))
	}

	doc, err := record.Encode(c.desc, rec)
	if err != nil {
		return fmt.Errorf("collection set: %w", err)
	}
	if err := c.store.Put(ctx, c.desc.Name, doc); err != nil {
		return fmt.Errorf("collection set: %w", err)
	}

	oldID := c.ids[pos]
	c.items[pos] = rec
	c.ids[pos] = doc.ID

	var delErr error
	if oldID != doc.ID && !slices.Contains(c.ids, oldID) {
		delErr = c.store.Delete(ctx, c.desc.Name, oldID)
	}
	c.notify(ChangeEvent{Kind: ChangeItemChanged, Position: pos, Count: 1})

	if delErr != nil {
		c.logger.Error("set left stale document", "position", pos, "id", oldID, "error", delErr)
		return &PartialError{Op: "set", Done: 1, Err: delErr}
	}
	return nil
}

// ReplaceAll swaps the whole contents for recs without touching the store.
// This is the degraded path for bulk changes: it is logged as unhandled and
// the store keeps whatever it had. The identity table is recomputed from
// recs so that it stays aligned with the items.
func (c *Collection[T]) ReplaceAll(ctx context.Context, recs []T) error {
	if err := c.requireHydrated("replace"); err != nil {
		return err
	}
	ids, err := c.identify(recs)
	if err != nil {
		return fmt.Errorf("collection replace: %w", err)
	}

	c.items = slices.Clone(recs)
	c.ids = ids
	c.logger.Warn("unhandled collection change", "kind", ChangeReset.String(), "count", len(recs))
	c.notify(ChangeEvent{Kind: ChangeReset, Count: len(recs)})
	return nil
}

func (c *Collection[T]) requireHydrated(op string) error {
	if c.state != StateHydrated {
		return fmt.Errorf("collection %s %s: %w", op, c.desc.Name, ErrNotInitialized)
	}
	return nil
}

func (c *Collection[T]) identify(items []T) ([]string, error) {
	ids := make([]string, len(items))
	for i, r := range items {
		id, err := record.ID(c.desc, r)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func (c *Collection[T]) notify(e ChangeEvent) {
	c.logger.Debug("collection changed", "kind", e.Kind.String(), "position", e.Position, "count", e.Count)
	for _, obs := range c.observers {
		obs.CollectionChanged(e)
	}
}

// moveBlock returns s with s[from:from+n] moved to start at to.
func moveBlock[E any](s []E, from, to, n int) []E {
	block := slices.Clone(s[from : from+n])
	rest := slices.Delete(slices.Clone(s), from, from+n)
	return slices.Insert(rest, to, block...)
}
