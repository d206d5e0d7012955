package ir

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordIDDeterminism(t *testing.T) {
	fields := IRObject{"title": IRString("hello"), "published": IRInt(1)}

	id1, err := RecordID("Article", fields)
	require.NoError(t, err)
	id2, err := RecordID("Article", fields.Clone())
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64)
	_, err = hex.DecodeString(id1)
	assert.NoError(t, err)
}

func TestRecordIDChangesWithContent(t *testing.T) {
	a, err := RecordID("Article", IRObject{"title": IRString("a")})
	require.NoError(t, err)
	b, err := RecordID("Article", IRObject{"title": IRString("b")})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestRecordIDSeparatesTypes(t *testing.T) {
	fields := IRObject{"title": IRString("same")}

	a, err := RecordID("Article", fields)
	require.NoError(t, err)
	b, err := RecordID("Note", fields)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestContentHashDomainSeparation(t *testing.T) {
	obj := IRObject{"x": IRInt(1)}

	a, err := ContentHash(DomainRecord, obj)
	require.NoError(t, err)
	b, err := ContentHash("pyco/test/v1", obj)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestContentHashRejectsNull(t *testing.T) {
	_, err := ContentHash("pyco/test/v1", IRObject{"x": IRNull{}})
	assert.Error(t, err)
}
