package collection

import (
	"context"
	"fmt"

	"github.com/Jerry0022/PYCO/internal/record"
)

// SearchExact returns the records of the partition whose text field equals
// term. Results come from the store, not from the in-memory items.
func (c *Collection[T]) SearchExact(ctx context.Context, term, field string) ([]T, error) {
	docs, err := c.store.QueryByEquality(ctx, c.desc.Name, field, term)
	if err != nil {
		return nil, fmt.Errorf("collection search %s: %w", c.desc.Name, err)
	}
	recs, err := record.DecodeAll(c.desc, docs)
	if err != nil {
		return nil, fmt.Errorf("collection search %s: %w", c.desc.Name, err)
	}
	return recs, nil
}

// SearchFullText returns the records matching term in the named full-text
// index. An index that was never created fails with docstore.ErrIndexNotFound.
func (c *Collection[T]) SearchFullText(ctx context.Context, term, index string) ([]T, error) {
	docs, err := c.store.QueryByFullText(ctx, c.desc.Name, index, term)
	if err != nil {
		return nil, fmt.Errorf("collection full-text search %s: %w", c.desc.Name, err)
	}
	recs, err := record.DecodeAll(c.desc, docs)
	if err != nil {
		return nil, fmt.Errorf("collection full-text search %s: %w", c.desc.Name, err)
	}
	return recs, nil
}

// CreateFullTextIndex creates or redefines the named index over fields.
// Every field must be declared by the record type.
func (c *Collection[T]) CreateFullTextIndex(ctx context.Context, name string, fields ...string) error {
	for _, f := range fields {
		if _, ok := c.desc.Field(f); !ok {
			return fmt.Errorf("collection create index %s: %s has no field %q", name, c.desc.Name, f)
		}
	}
	if err := c.store.CreateFullTextIndex(ctx, c.desc.Name, name, fields); err != nil {
		return fmt.Errorf("collection create index %s: %w", name, err)
	}
	return nil
}

// DeleteFullTextIndex drops the named index.
func (c *Collection[T]) DeleteFullTextIndex(ctx context.Context, name string) error {
	if err := c.store.DeleteFullTextIndex(ctx, c.desc.Name, name); err != nil {
		return fmt.Errorf("collection delete index %s: %w", name, err)
	}
	return nil
}
