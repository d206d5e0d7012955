package record

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Field describes one constructor parameter of a record type: its name in
// the document, its kind, and how to read it from a record.
type Field[T any] struct {
	Name string
	Kind Kind
	Get  func(T) any
}

// Text declares a text field.
func Text[T any](name string, get func(T) string) Field[T] {
	return Field[T]{Name: name, Kind: KindText, Get: func(r T) any { return get(r) }}
}

// Timestamp declares a timestamp field. Values are stored as epoch
// milliseconds and decode as UTC, so a record survives a round trip
// unchanged only if its times are already UTC and truncated to the
// millisecond.
func Timestamp[T any](name string, get func(T) time.Time) Field[T] {
	return Field[T]{Name: name, Kind: KindTimestamp, Get: func(r T) any { return get(r) }}
}

// Other declares a field of an arbitrary kind. Kinds outside the codec's
// whitelist are accepted here and rejected when the type is first encoded
// or decoded.
func Other[T any](name string, kind Kind, get func(T) any) Field[T] {
	return Field[T]{Name: name, Kind: kind, Get: get}
}

// Args carries decoded constructor arguments keyed by field name.
type Args map[string]any

// Text returns the text argument name, or "" when absent.
func (a Args) Text(name string) string {
	s, _ := a[name].(string)
	return s
}

// Time returns the timestamp argument name, or the zero time when absent.
func (a Args) Time(name string) time.Time {
	t, _ := a[name].(time.Time)
	return t
}

// Descriptor is the type descriptor of a record type T.
type Descriptor[T any] struct {
	// Name identifies the type and names its storage partition.
	Name string

	// Fields lists the constructor parameters in order.
	Fields []Field[T]

	// New is the canonical constructor. It receives exactly one argument
	// per field.
	New func(Args) (T, error)
}

// FieldNames returns the field names in declaration order.
func (d *Descriptor[T]) FieldNames() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// Field returns the field called name.
func (d *Descriptor[T]) Field(name string) (Field[T], bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field[T]{}, false
}

func (d *Descriptor[T]) validate() error {
	if d.Name == "" {
		return errors.New("record: descriptor name is required")
	}
	if d.New == nil {
		return fmt.Errorf("record: %s: constructor is required", d.Name)
	}
	if len(d.Fields) == 0 {
		return fmt.Errorf("record: %s: at least one field is required", d.Name)
	}
	seen := make(map[string]bool, len(d.Fields))
	for i, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("record: %s: field %d has no name", d.Name, i)
		}
		if seen[f.Name] {
			return fmt.Errorf("record: %s: duplicate field %q", d.Name, f.Name)
		}
		if f.Get == nil {
			return fmt.Errorf("record: %s: field %q has no accessor", d.Name, f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// registry holds one descriptor per type name. Entries are written once and
// never replaced, so readers only contend on the read lock.
var registry = struct {
	sync.RWMutex
	byName map[string]any
}{byName: make(map[string]any)}

// Register validates d and stores it under d.Name. Registering a name that
// already holds a descriptor of the same record type returns the stored
// descriptor unchanged; a different record type under the same name is an
// error.
func Register[T any](d Descriptor[T]) (*Descriptor[T], error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	registry.Lock()
	defer registry.Unlock()

	if existing, ok := registry.byName[d.Name]; ok {
		typed, ok := existing.(*Descriptor[T])
		if !ok {
			return nil, fmt.Errorf("record: name %q already registered for another type", d.Name)
		}
		return typed, nil
	}

	stored := d
	stored.Fields = append([]Field[T](nil), d.Fields...)
	registry.byName[d.Name] = &stored
	return &stored, nil
}

// MustRegister is like Register but panics on error. Intended for
// package-level descriptor variables.
func MustRegister[T any](d Descriptor[T]) *Descriptor[T] {
	desc, err := Register(d)
	if err != nil {
		panic(err)
	}
	return desc
}

// Lookup returns the descriptor registered under name for record type T.
func Lookup[T any](name string) (*Descriptor[T], bool) {
	registry.RLock()
	defer registry.RUnlock()

	desc, ok := registry.byName[name].(*Descriptor[T])
	return desc, ok
}
