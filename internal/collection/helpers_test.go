package collection

import (
	"fmt"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Jerry0022/PYCO/internal/docstore"
	"github.com/Jerry0022/PYCO/internal/record"
	"github.com/Jerry0022/PYCO/internal/store"
	"github.com/Jerry0022/PYCO/internal/testutil"
)

// note is identified by the hash of its contents.
type note struct {
	Title   string
	Created time.Time
}

var noteDescriptor = record.MustRegister(record.Descriptor[note]{
	Name: "note",
	Fields: []record.Field[note]{
		record.Text("title", func(n note) string { return n.Title }),
		record.Timestamp("created", func(n note) time.Time { return n.Created }),
	},
	New: func(a record.Args) (note, error) {
		return note{Title: a.Text("title"), Created: a.Time("created")}, nil
	},
})

// task carries its own identifier.
type task struct {
	Key   string
	Label string
}

func (t task) RecordID() string { return t.Key }

var taskDescriptor = record.MustRegister(record.Descriptor[task]{
	Name: "task",
	Fields: []record.Field[task]{
		record.Text("key", func(t task) string { return t.Key }),
		record.Text("label", func(t task) string { return t.Label }),
	},
	New: func(a record.Args) (task, error) {
		return task{Key: a.Text("key"), Label: a.Text("label")}, nil
	},
})

// gauge declares a field kind the codec rejects.
type gauge struct {
	Name  string
	Level int
}

var gaugeDescriptor = record.MustRegister(record.Descriptor[gauge]{
	Name: "gauge",
	Fields: []record.Field[gauge]{
		record.Text("name", func(g gauge) string { return g.Name }),
		record.Other("level", record.KindInteger, func(g gauge) any { return g.Level }),
	},
	New: func(a record.Args) (gauge, error) { return gauge{Name: a.Text("name")}, nil },
})

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newNote(i int) note {
	return note{Title: fmt.Sprintf("note %d", i), Created: epoch.Add(time.Duration(i) * time.Minute)}
}

type adapterFactory struct {
	name string
	open func(t *testing.T) docstore.Adapter
}

// adapters lists the store implementations every property runs against.
var adapters = []adapterFactory{
	{"memory", func(t *testing.T) docstore.Adapter { return testutil.NewMemStore() }},
	{"sqlite", func(t *testing.T) docstore.Adapter {
		t.Helper()
		s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	}},
}

// hydrated returns an initialized collection over a.
func hydrated[T any](t *testing.T, a docstore.Adapter, desc *record.Descriptor[T], opts ...Option) *Collection[T] {
	t.Helper()
	c := New(a, desc, opts...)
	require.NoError(t, c.Initialize(t.Context()))
	return c
}

// requireAligned checks that the identity table matches the items.
func requireAligned[T any](t *testing.T, c *Collection[T]) {
	t.Helper()
	ids := c.IDs()
	require.Len(t, ids, c.Len())
	for i, item := range c.Items() {
		id, err := record.ID(c.desc, item)
		require.NoError(t, err)
		require.Equal(t, id, ids[i], "identity table misaligned at %d", i)
	}
}

// storeIDs returns the sorted identifiers present in the partition.
func storeIDs(t *testing.T, a docstore.Adapter, partition string) []string {
	t.Helper()
	docs, err := a.Query(t.Context(), partition)
	require.NoError(t, err)
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	slices.Sort(ids)
	return ids
}

type recorder struct {
	events []ChangeEvent
}

func (r *recorder) CollectionChanged(e ChangeEvent) { r.events = append(r.events, e) }
