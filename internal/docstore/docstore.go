package docstore

import (
	"context"
	"errors"

	"github.com/Jerry0022/PYCO/internal/ir"
)

var (
	// ErrIndexNotFound is returned by QueryByFullText when the named index
	// was never created in the partition. Create the index and retry.
	ErrIndexNotFound = errors.New("full-text index not found")

	// ErrNotFound is returned by Get when no live document has the id.
	ErrNotFound = errors.New("document not found")
)

// Document is the generic form of a record: a field map tagged with the
// identifier of the record it was produced from.
type Document struct {
	ID     string
	Fields ir.IRObject
}

// Clone returns a copy of d whose field map can be modified independently.
func (d Document) Clone() Document {
	return Document{ID: d.ID, Fields: d.Fields.Clone()}
}

// Adapter is the persistence contract the collection synchronizer relies on.
//
// Put must be durable before it returns: a nil error means the document
// exists. Delete of an absent id is a no-op. CreateFullTextIndex is
// idempotent. Query results come back in an implementation-defined but
// stable order.
type Adapter interface {
	// Query returns every live document of the partition.
	Query(ctx context.Context, partition string) ([]Document, error)

	// Get returns a single live document or ErrNotFound.
	Get(ctx context.Context, partition, id string) (Document, error)

	// Put upserts doc by its identifier.
	Put(ctx context.Context, partition string, doc Document) error

	// Delete removes the document with the identifier.
	Delete(ctx context.Context, partition, id string) error

	// CreateFullTextIndex creates (or redefines) a named full-text index
	// over the given fields.
	CreateFullTextIndex(ctx context.Context, partition, name string, fields []string) error

	// DeleteFullTextIndex drops a named index. Dropping an unknown index is
	// a no-op.
	DeleteFullTextIndex(ctx context.Context, partition, name string) error

	// QueryByEquality returns documents whose text field equals value.
	QueryByEquality(ctx context.Context, partition, field, value string) ([]Document, error)

	// QueryByFullText returns documents matching term in the named index,
	// or ErrIndexNotFound.
	QueryByFullText(ctx context.Context, partition, index, term string) ([]Document, error)

	// Reset destroys every document, index and change of the partition.
	// It exists for development databases only.
	Reset(ctx context.Context, partition string) error
}

// Change is one entry of a store's change feed. Seq is the store-local
// sequence number assigned when the change was written. Body is the JSON
// form of the document's fields; a deleted change carries an empty body.
type Change struct {
	Seq       int64  `cbor:"seq"`
	Partition string `cbor:"partition"`
	ID        string `cbor:"id"`
	Deleted   bool   `cbor:"deleted,omitempty"`
	Body      string `cbor:"body,omitempty"`
}

// Document decodes the change body. Deleted changes yield an empty field map.
func (c Change) Document() (Document, error) {
	if c.Deleted {
		return Document{ID: c.ID, Fields: ir.IRObject{}}, nil
	}
	fields, err := ir.ParseObject([]byte(c.Body))
	if err != nil {
		return Document{}, err
	}
	return Document{ID: c.ID, Fields: fields}, nil
}
