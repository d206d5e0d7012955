package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Jerry0022/PYCO/internal/docstore"
	"github.com/Jerry0022/PYCO/internal/ir"
)

// createTestStore opens a fresh store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// articleDoc builds a document with title and body text fields.
func articleDoc(id, title, body string) docstore.Document {
	return docstore.Document{
		ID: id,
		Fields: ir.IRObject{
			"title": ir.IRString(title),
			"body":  ir.IRString(body),
		},
	}
}

// mustPut puts docs into partition or fails the test.
func mustPut(t *testing.T, s *Store, partition string, docs ...docstore.Document) {
	t.Helper()
	for _, doc := range docs {
		if err := s.Put(context.Background(), partition, doc); err != nil {
			t.Fatalf("Put(%s) failed: %v", doc.ID, err)
		}
	}
}

func docIDs(docs []docstore.Document) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}
