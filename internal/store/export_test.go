package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jerry0022/PYCO/internal/docstore"
	"github.com/Jerry0022/PYCO/internal/ir"
)

func TestExport_Golden(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustPut(t, s, "Article",
		docstore.Document{ID: "b", Fields: ir.IRObject{
			"title":     ir.IRString("Café"),
			"body":      ir.IRString("line one\nline \"two\""),
			"published": ir.IRInt(1700000000123),
		}},
		articleDoc("a", "second", "<b>bold</b>"),
	)
	mustPut(t, s, "Note", articleDoc("n", "ignored", ""))

	path := filepath.Join(t.TempDir(), "articles.jsonl")
	n, err := s.Export(ctx, "Article", path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "export_articles", data)
}

func TestExport_EmptyPartition(t *testing.T) {
	s := createTestStore(t)

	path := filepath.Join(t.TempDir(), "empty.jsonl")
	n, err := s.Export(context.Background(), "Article", path)
	require.NoError(t, err)
	assert.Zero(t, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestExport_ReplacesFile(t *testing.T) {
	s := createTestStore(t)
	path := filepath.Join(t.TempDir(), "out.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("stale contents\n"), 0o644))

	mustPut(t, s, "Article", articleDoc("a", "t", "b"))
	_, err := s.Export(context.Background(), "Article", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"fields\":{\"body\":\"b\",\"title\":\"t\"},\"id\":\"a\"}\n", string(data))
}
