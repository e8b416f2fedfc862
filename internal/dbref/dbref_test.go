package dbref

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRaw(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want Ref
		ok   bool
	}{
		{"descriptor", map[string]any{"$ref": "users", "$id": "u1"}, Ref{Collection: "users", ID: "u1"}, true},
		{"extra keys", map[string]any{"$ref": "users", "$id": 7, "$db": "x"}, Ref{Collection: "users", ID: 7}, true},
		{"embedded", map[string]any{"name": "a"}, Ref{}, false},
		{"missing id", map[string]any{"$ref": "users"}, Ref{}, false},
		{"nil id", map[string]any{"$ref": "users", "$id": nil}, Ref{}, false},
		{"empty collection", map[string]any{"$ref": "", "$id": "u1"}, Ref{}, false},
		{"scalar", "users/u1", Ref{}, false},
		{"nil", nil, Ref{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FromRaw(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, IsRef(tt.raw))
		})
	}
}

func TestRef_RawRoundTrip(t *testing.T) {
	ref := Ref{Collection: "users", ID: "u1"}

	got, ok := FromRaw(ref.Raw())
	require.True(t, ok)
	assert.Equal(t, ref, got)
	assert.Equal(t, "users/u1", ref.String())
}

func TestResolverFunc(t *testing.T) {
	var seen Ref

	r := ResolverFunc(func(_ context.Context, ref Ref) (map[string]any, error) {
		seen = ref
		return map[string]any{"_id": ref.ID}, nil
	})

	doc, err := r.Resolve(context.Background(), Ref{Collection: "c", ID: 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"_id": 1}, doc)
	assert.Equal(t, "c", seen.Collection)
}
