package testutil

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/Jerry0022/PYCO/internal/docstore"
	"github.com/Jerry0022/PYCO/internal/ir"
	"github.com/Jerry0022/PYCO/internal/store"
)

// OpKind names a store operation recorded by MemStore.
type OpKind string

const (
	OpPut    OpKind = "put"
	OpDelete OpKind = "delete"
)

// Op is one effective write seen by MemStore.
type Op struct {
	Kind      OpKind
	Partition string
	ID        string
}

type failKey struct {
	kind OpKind
	id   string
}

type memDoc struct {
	fields ir.IRObject
	seq    int64
}

type memPartition struct {
	docs    map[string]memDoc
	indexes map[string][]string
}

// MemStore is an in-memory docstore.Adapter.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type MemStore struct {
	mu       sync.Mutex
	seq      int64
	parts    map[string]*memPartition
	ops      []Op
	failures map[failKey]error
}

var _ docstore.Adapter = (*MemStore)(nil)

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		parts:    make(map[string]*memPartition),
		failures: make(map[failKey]error),
	}
}

// Fail makes every kind operation on id return err until ClearFailures.
func (m *MemStore) Fail(kind OpKind, id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[failKey{kind, id}] = err
}

// ClearFailures removes every injected failure.
func (m *MemStore) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.failures)
}

// Ops returns the put and delete calls that reached the store, in order.
// Failed calls are not recorded.
func (m *MemStore) Ops() []Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.ops)
}

// ResetOps clears the operation log.
func (m *MemStore) ResetOps() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = nil
}

// IDs returns the sorted identifiers of the live documents of partition.
func (m *MemStore) IDs(partition string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.parts[partition]
	if p == nil {
		return nil
	}
	ids := make([]string, 0, len(p.docs))
	for id := range p.docs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (m *MemStore) partition(name string) *memPartition {
	p := m.parts[name]
	if p == nil {
		p = &memPartition{docs: make(map[string]memDoc), indexes: make(map[string][]string)}
		m.parts[name] = p
	}
	return p
}

// sorted returns the documents of p ordered by seq, id. Caller holds mu.
func sorted(p *memPartition) []docstore.Document {
	type entry struct {
		id  string
		doc memDoc
	}
	entries := make([]entry, 0, len(p.docs))
	for id, d := range p.docs {
		entries = append(entries, entry{id, d})
	}
	slices.SortFunc(entries, func(a, b entry) int {
		if c := cmp.Compare(a.doc.seq, b.doc.seq); c != 0 {
			return c
		}
		return strings.Compare(a.id, b.id)
	})

	out := make([]docstore.Document, len(entries))
	for i, e := range entries {
		out[i] = docstore.Document{ID: e.id, Fields: e.doc.fields.Clone()}
	}
	return out
}

func (m *MemStore) Query(ctx context.Context, partition string) ([]docstore.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.parts[partition]
	if p == nil {
		return []docstore.Document{}, nil
	}
	return sorted(p), nil
}

func (m *MemStore) Get(ctx context.Context, partition, id string) (docstore.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p := m.parts[partition]; p != nil {
		if d, ok := p.docs[id]; ok {
			return docstore.Document{ID: id, Fields: d.fields.Clone()}, nil
		}
	}
	return docstore.Document{}, fmt.Errorf("get %s/%s: %w", partition, id, docstore.ErrNotFound)
}

func (m *MemStore) Put(ctx context.Context, partition string, doc docstore.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failures[failKey{OpPut, doc.ID}]; err != nil {
		return err
	}
	if doc.ID == "" {
		return fmt.Errorf("put %s: document id is required", partition)
	}

	p := m.partition(partition)
	if cur, ok := p.docs[doc.ID]; ok && cur.fields.Equal(doc.Fields) {
		return nil
	}
	m.seq++
	p.docs[doc.ID] = memDoc{fields: doc.Fields.Clone(), seq: m.seq}
	m.ops = append(m.ops, Op{Kind: OpPut, Partition: partition, ID: doc.ID})
	return nil
}

func (m *MemStore) Delete(ctx context.Context, partition, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failures[failKey{OpDelete, id}]; err != nil {
		return err
	}

	p := m.parts[partition]
	if p == nil {
		return nil
	}
	if _, ok := p.docs[id]; !ok {
		return nil
	}
	m.seq++
	delete(p.docs, id)
	m.ops = append(m.ops, Op{Kind: OpDelete, Partition: partition, ID: id})
	return nil
}

func (m *MemStore) CreateFullTextIndex(ctx context.Context, partition, name string, fields []string) error {
	if name == "" || len(fields) == 0 {
		return fmt.Errorf("create index %s/%s: name and fields are required", partition, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partition(partition).indexes[name] = slices.Clone(fields)
	return nil
}

func (m *MemStore) DeleteFullTextIndex(ctx context.Context, partition, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p := m.parts[partition]; p != nil {
		delete(p.indexes, name)
	}
	return nil
}

func (m *MemStore) QueryByEquality(ctx context.Context, partition, field, value string) ([]docstore.Document, error) {
	docs, err := m.Query(ctx, partition)
	if err != nil {
		return nil, err
	}
	out := []docstore.Document{}
	for _, d := range docs {
		if v, ok := d.Fields[field]; ok && ir.Equal(v, ir.IRString(value)) {
			out = append(out, d)
		}
	}
	return out, nil
}

// QueryByFullText tokenizes like store.Tokenize and applies the same AND and
// trailing '*' prefix rules as the SQLite store.
func (m *MemStore) QueryByFullText(ctx context.Context, partition, index, term string) ([]docstore.Document, error) {
	m.mu.Lock()
	p := m.parts[partition]
	var fields []string
	if p != nil {
		fields = p.indexes[index]
	}
	if fields == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("full-text %s/%s: %w", partition, index, docstore.ErrIndexNotFound)
	}
	docs := sorted(p)
	m.mu.Unlock()

	type token struct {
		text   string
		prefix bool
	}
	var want []token
	for _, word := range strings.Fields(term) {
		toks := store.Tokenize(strings.TrimRight(word, "*"))
		for i, tok := range toks {
			want = append(want, token{tok, strings.HasSuffix(word, "*") && i == len(toks)-1})
		}
	}

	out := []docstore.Document{}
	if len(want) == 0 {
		return out, nil
	}
	for _, d := range docs {
		have := make(map[string]bool)
		for _, f := range fields {
			if s, ok := d.Fields[f].(ir.IRString); ok {
				for _, tok := range store.Tokenize(string(s)) {
					have[tok] = true
				}
			}
		}
		matched := true
		for _, w := range want {
			if !hasToken(have, w.text, w.prefix) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, d)
		}
	}
	return out, nil
}

func hasToken(have map[string]bool, text string, prefix bool) bool {
	if !prefix {
		return have[text]
	}
	for tok := range have {
		if strings.HasPrefix(tok, text) {
			return true
		}
	}
	return false
}

func (m *MemStore) Reset(ctx context.Context, partition string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.parts, partition)
	return nil
}
