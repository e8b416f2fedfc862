package memdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docmap/internal/dbref"
)

func TestDB_InsertAndResolve(t *testing.T) {
	db := New("test")

	id, err := db.Insert("users", map[string]any{"_id": "u1", "name": "ann", "tags": []any{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	got, err := db.Resolve(context.Background(), dbref.Ref{Collection: "users", ID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "ann", got["name"])
	assert.Equal(t, []any{"a", "b"}, got["tags"])
	assert.Equal(t, int64(1), db.Lookups())
}

func TestDB_ResolveReturnsFreshCopies(t *testing.T) {
	db := New("test")
	_, err := db.Insert("users", map[string]any{"_id": "u1", "name": "ann"})
	require.NoError(t, err)

	a, err := db.Find("users", "u1")
	require.NoError(t, err)

	a["name"] = "changed"

	b, err := db.Find("users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "ann", b["name"])
}

func TestDB_MissingTargetIsNilWithoutError(t *testing.T) {
	db := New("test")

	got, err := db.Resolve(context.Background(), dbref.Ref{Collection: "users", ID: "nope"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDB_InsertAssignsIdentity(t *testing.T) {
	db := New("test")

	id, err := db.Insert("users", map[string]any{"name": "bob"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := db.Find("users", id)
	require.NoError(t, err)
	assert.Equal(t, id, got["_id"])
	assert.Equal(t, 1, db.Count("users"))
	assert.Equal(t, []string{"users"}, db.Collections())
}

func TestDB_NumericIdentityNormalized(t *testing.T) {
	db := New("test")
	_, err := db.Insert("nums", map[string]any{"_id": 7, "v": "x"})
	require.NoError(t, err)

	got, err := db.Find("nums", int64(7))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "x", got["v"])

	assert.True(t, db.Delete("nums", 7))
	assert.False(t, db.Delete("nums", 7))
}

func TestDB_InsertRejectsEmptyCollection(t *testing.T) {
	_, err := New("test").Insert("", map[string]any{})
	assert.Error(t, err)
}
