package docpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		want     []Segment
		wildcard bool
	}{
		{
			name: "single field",
			path: "comments",
			want: []Segment{{Name: "comments"}},
		},
		{
			name: "indexed element",
			path: "comments.3.author",
			want: []Segment{
				{Name: "comments"},
				{Name: "3", Index: 3, IsIndex: true},
				{Name: "author"},
			},
		},
		{
			name: "wildcard requirement key",
			path: "comments.$.author",
			want: []Segment{
				{Name: "comments"},
				{Name: "$", IsWildcard: true},
				{Name: "author"},
			},
			wildcard: true,
		},
		{
			name: "underscore field",
			path: "_id",
			want: []Segment{{Name: "_id"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Segments)
			assert.Equal(t, tt.path, got.String())
			assert.Equal(t, tt.wildcard, got.HasWildcard())
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, p := range []string{"", "a..b", ".a", "a.", "a-b", "a.1x"} {
		t.Run(p, func(t *testing.T) {
			_, err := Parse(p)
			assert.Error(t, err)
		})
	}
}

func TestJoinAndIndex(t *testing.T) {
	assert.Equal(t, "comments", Join("", "comments"))
	assert.Equal(t, "post.comments", Join("post", "comments"))
	assert.Equal(t, "post", Join("post", ""))
	assert.Equal(t, "post.comments.2", Index("post.comments", 2))
	assert.Equal(t, "0", Index("", 0))
}

func TestParseIndex(t *testing.T) {
	i, err := ParseIndex("12")
	require.NoError(t, err)
	assert.Equal(t, 12, i)

	for _, bad := range []string{"", "-1", "a", "1.5", " 1"} {
		_, err := ParseIndex(bad)
		assert.Error(t, err, bad)
	}
}
