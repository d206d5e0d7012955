package article

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jerry0022/PYCO/internal/ir"
	"github.com/Jerry0022/PYCO/internal/record"
)

func TestDescriptorRegistered(t *testing.T) {
	desc, ok := record.Lookup[Article](Partition)
	require.True(t, ok)
	assert.Same(t, Descriptor, desc)
	assert.Equal(t, []string{"id", "title", "body", "author", "published"}, desc.FieldNames())
}

func TestArticleRoundTrip(t *testing.T) {
	a := Article{
		ID:        "0190b6f0-0000-7000-8000-000000000001",
		Title:     "Hello",
		Body:      "First <b>post</b>",
		Author:    "ana",
		Published: time.Date(2024, 3, 1, 12, 30, 0, 123_000_000, time.UTC),
	}

	doc, err := record.Encode(Descriptor, a)
	require.NoError(t, err)
	assert.Equal(t, a.ID, doc.ID)
	assert.Equal(t, ir.IRInt(a.Published.UnixMilli()), doc.Fields["published"])

	got, err := record.Decode(Descriptor, doc)
	require.NoError(t, err)
	if diff := cmp.Diff(a, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestArticleIDSurvivesEdits(t *testing.T) {
	a := Article{ID: "a1", Title: "before"}
	b := a
	b.Title = "after"

	idA, err := record.ID(Descriptor, a)
	require.NoError(t, err)
	idB, err := record.ID(Descriptor, b)
	require.NoError(t, err)
	assert.Equal(t, idA, idB)
}

func TestDecodeRequiresID(t *testing.T) {
	doc, err := record.Encode(Descriptor, Article{ID: "x", Title: "t"})
	require.NoError(t, err)
	doc.Fields["id"] = ir.IRString("")

	_, err = record.Decode(Descriptor, doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id is required")
}

func TestNew(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 123_456_789, time.FixedZone("CEST", 2*3600))
	gen := NewFixedGenerator("id-1", "id-2")

	a, err := New(gen, Draft{Title: "T", Body: "B"}, now)
	require.NoError(t, err)
	assert.Equal(t, "id-1", a.ID)
	assert.Equal(t, time.Date(2024, 5, 6, 5, 8, 9, 123_000_000, time.UTC), a.Published)

	published := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	b, err := New(gen, Draft{Title: "T2", Published: published}, now)
	require.NoError(t, err)
	assert.Equal(t, "id-2", b.ID)
	assert.Equal(t, published, b.Published)

	_, err = New(gen, Draft{}, now)
	assert.Error(t, err, "title is required")
}

func TestUUIDv7Generator(t *testing.T) {
	var gen UUIDv7Generator
	first := gen.Generate()
	second := gen.Generate()

	u, err := uuid.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), u.Version())
	assert.Len(t, first, 36)
	assert.NotEqual(t, first, second)
}

func TestFixedGeneratorExhausted(t *testing.T) {
	gen := NewFixedGenerator("only")
	assert.Equal(t, "only", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}
