package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jerry0022/PYCO/internal/docstore"
)

func TestQueryByFullText_RequiresIndex(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustPut(t, s, "Article", articleDoc("a", "sync engine", ""))

	_, err := s.QueryByFullText(ctx, "Article", "text", "sync")
	require.ErrorIs(t, err, docstore.ErrIndexNotFound)

	require.NoError(t, s.CreateFullTextIndex(ctx, "Article", "text", []string{"title"}))
	docs, err := s.QueryByFullText(ctx, "Article", "text", "sync")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, docIDs(docs))

	// Indexes are partition scoped.
	_, err = s.QueryByFullText(ctx, "Note", "text", "sync")
	require.ErrorIs(t, err, docstore.ErrIndexNotFound)
}

func TestQueryByFullText_Matching(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustPut(t, s, "Article",
		articleDoc("a", "Synchronizing collections", "The identity table stays aligned"),
		articleDoc("b", "Café culture", "Coffee and documents"),
		articleDoc("c", "Replication", "Documents travel to a remote peer"),
	)
	require.NoError(t, s.CreateFullTextIndex(ctx, "Article", "text", []string{"title", "body"}))

	tests := []struct {
		term string
		want []string
	}{
		{"documents", []string{"b", "c"}},
		{"DOCUMENTS remote", []string{"c"}},
		{"cafe", []string{"b"}},
		{"café", []string{"b"}},
		{"sync*", []string{"a"}},
		{"sync", nil},
		{"doc* peer", []string{"c"}},
		{"missing", nil},
		{"", nil},
		{"!!!", nil},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			docs, err := s.QueryByFullText(ctx, "Article", "text", tt.term)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, docs)
				return
			}
			assert.Equal(t, tt.want, docIDs(docs))
		})
	}
}

func TestFullText_OnlyIndexedFields(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustPut(t, s, "Article", articleDoc("a", "title words", "body words"))
	require.NoError(t, s.CreateFullTextIndex(ctx, "Article", "titles", []string{"title"}))

	docs, err := s.QueryByFullText(ctx, "Article", "titles", "body")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestFullText_FollowsWrites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateFullTextIndex(ctx, "Article", "text", []string{"title"}))

	mustPut(t, s, "Article", articleDoc("a", "alpha", ""))
	docs, err := s.QueryByFullText(ctx, "Article", "text", "alpha")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, docIDs(docs))

	mustPut(t, s, "Article", articleDoc("a", "beta", ""))
	docs, err = s.QueryByFullText(ctx, "Article", "text", "alpha")
	require.NoError(t, err)
	assert.Empty(t, docs)
	docs, err = s.QueryByFullText(ctx, "Article", "text", "beta")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, docIDs(docs))

	require.NoError(t, s.Delete(ctx, "Article", "a"))
	docs, err = s.QueryByFullText(ctx, "Article", "text", "beta")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestCreateFullTextIndex_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustPut(t, s, "Article", articleDoc("a", "alpha", "omega"))
	require.NoError(t, s.CreateFullTextIndex(ctx, "Article", "text", []string{"title"}))
	require.NoError(t, s.CreateFullTextIndex(ctx, "Article", "text", []string{"title"}))

	docs, err := s.QueryByFullText(ctx, "Article", "text", "alpha")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, docIDs(docs))

	// Redefining the index rebuilds it over the new fields.
	require.NoError(t, s.CreateFullTextIndex(ctx, "Article", "text", []string{"body"}))
	docs, err = s.QueryByFullText(ctx, "Article", "text", "alpha")
	require.NoError(t, err)
	assert.Empty(t, docs)
	docs, err = s.QueryByFullText(ctx, "Article", "text", "omega")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, docIDs(docs))
}

func TestCreateFullTextIndex_Validation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.Error(t, s.CreateFullTextIndex(ctx, "Article", "", []string{"title"}))
	require.Error(t, s.CreateFullTextIndex(ctx, "Article", "text", nil))
}

func TestDeleteFullTextIndex(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustPut(t, s, "Article", articleDoc("a", "alpha", ""))
	require.NoError(t, s.CreateFullTextIndex(ctx, "Article", "text", []string{"title"}))
	require.NoError(t, s.DeleteFullTextIndex(ctx, "Article", "text"))

	_, err := s.QueryByFullText(ctx, "Article", "text", "alpha")
	require.ErrorIs(t, err, docstore.ErrIndexNotFound)

	var terms int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM fts_terms`).Scan(&terms))
	assert.Zero(t, terms)

	// Unknown index: no-op.
	require.NoError(t, s.DeleteFullTextIndex(ctx, "Article", "never"))
}
