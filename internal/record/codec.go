package record

import (
	"fmt"
	"time"

	"github.com/Jerry0022/PYCO/internal/docstore"
	"github.com/Jerry0022/PYCO/internal/ir"
)

// Identifiable is implemented by records that carry their own identifier.
// Records that do not implement it are identified by a hash of their
// encoded fields.
type Identifiable interface {
	RecordID() string
}

// Encode converts r into a document. Text fields are copied verbatim,
// timestamps become epoch milliseconds.
func Encode[T any](d *Descriptor[T], r T) (docstore.Document, error) {
	fields, err := encodeFields(d, r)
	if err != nil {
		return docstore.Document{}, err
	}
	id, err := identify(d, r, fields)
	if err != nil {
		return docstore.Document{}, err
	}
	return docstore.Document{ID: id, Fields: fields}, nil
}

// ID returns the identifier of r: its RecordID when it implements
// Identifiable, otherwise the content hash of its encoded fields.
func ID[T any](d *Descriptor[T], r T) (string, error) {
	if idr, ok := any(r).(Identifiable); ok {
		return explicitID(d.Name, idr)
	}
	fields, err := encodeFields(d, r)
	if err != nil {
		return "", err
	}
	return identify(d, r, fields)
}

// Decode builds a T from doc by reading every descriptor field and calling
// the canonical constructor.
func Decode[T any](d *Descriptor[T], doc docstore.Document) (T, error) {
	var zero T
	if err := checkKinds(d); err != nil {
		return zero, err
	}

	args := make(Args, len(d.Fields))
	for _, f := range d.Fields {
		v, ok := doc.Fields[f.Name]
		if !ok {
			return zero, missingField(d.Name, f.Name, f.Kind)
		}
		switch f.Kind {
		case KindText:
			s, ok := v.(ir.IRString)
			if !ok {
				return zero, typeMismatch(d.Name, f.Name, f.Kind, v)
			}
			args[f.Name] = string(s)
		case KindTimestamp:
			ms, ok := v.(ir.IRInt)
			if !ok {
				return zero, typeMismatch(d.Name, f.Name, f.Kind, v)
			}
			args[f.Name] = time.UnixMilli(int64(ms)).UTC()
		}
	}

	r, err := d.New(args)
	if err != nil {
		return zero, fmt.Errorf("record: construct %s %s: %w", d.Name, doc.ID, err)
	}
	return r, nil
}

// DecodeAll decodes docs in order and stops at the first failure.
func DecodeAll[T any](d *Descriptor[T], docs []docstore.Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		r, err := Decode(d, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func checkKinds[T any](d *Descriptor[T]) error {
	for _, f := range d.Fields {
		if !f.Kind.Supported() {
			return unsupportedKind(d.Name, f.Name, f.Kind)
		}
	}
	return nil
}

func encodeFields[T any](d *Descriptor[T], r T) (ir.IRObject, error) {
	if err := checkKinds(d); err != nil {
		return nil, err
	}

	fields := make(ir.IRObject, len(d.Fields))
	for _, f := range d.Fields {
		v := f.Get(r)
		switch f.Kind {
		case KindText:
			s, ok := v.(string)
			if !ok {
				return nil, typeMismatch(d.Name, f.Name, f.Kind, v)
			}
			fields[f.Name] = ir.IRString(s)
		case KindTimestamp:
			t, ok := v.(time.Time)
			if !ok {
				return nil, typeMismatch(d.Name, f.Name, f.Kind, v)
			}
			fields[f.Name] = ir.IRInt(t.UnixMilli())
		}
	}
	return fields, nil
}

func identify[T any](d *Descriptor[T], r T, fields ir.IRObject) (string, error) {
	if idr, ok := any(r).(Identifiable); ok {
		return explicitID(d.Name, idr)
	}
	return ir.RecordID(d.Name, fields)
}

func explicitID(typeName string, r Identifiable) (string, error) {
	id := r.RecordID()
	if id == "" {
		return "", &CodecError{Code: ErrCodeMissingID, Type: typeName, Message: "RecordID returned an empty identifier"}
	}
	return id, nil
}
