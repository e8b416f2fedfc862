package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDoc struct {
	class  string
	fields map[string]any
}

func (f fakeDoc) ClassName() string { return f.class }

func (f fakeDoc) Field(name string) (any, bool) {
	v, ok := f.fields[name]
	return v, ok
}

func TestChain_CollectsAllMessages(t *testing.T) {
	chain := NewChain(
		Required("author", "body"),
		Class("Comment"),
		MaxLen("title", 3),
	)
	require.Equal(t, 3, chain.Len())

	doc := fakeDoc{class: "Post", fields: map[string]any{"title": "long title"}}

	assert.False(t, chain.IsValid(doc))
	assert.Equal(t, []string{
		`field "author" is required`,
		`field "body" is required`,
		`document of class "Post" is not a Comment`,
		`field "title" is 10 characters long, at most 3 allowed`,
	}, chain.Messages())

	ok := fakeDoc{class: "Comment", fields: map[string]any{"author": "a", "body": "b", "title": "hey"}}
	assert.True(t, chain.IsValid(ok))
	assert.Empty(t, chain.Messages())
}

func TestEmptyChainAcceptsAnything(t *testing.T) {
	chain := NewChain()
	assert.True(t, chain.IsValid(nil))
	assert.True(t, chain.IsValid(42))
}

func TestValidators_NonDocument(t *testing.T) {
	for _, v := range []Validator{Required("a"), Class("X"), MaxLen("a", 1), MinLen("a", 1), OneOf("a", "b")} {
		t.Run(v.Name(), func(t *testing.T) {
			assert.NotEmpty(t, v.Validate(42))
		})
	}
}

func TestStringFieldValidators(t *testing.T) {
	doc := fakeDoc{fields: map[string]any{"state": "open", "n": 3, "name": "ab"}}

	assert.Empty(t, OneOf("state", "open", "closed").Validate(doc))
	assert.NotEmpty(t, OneOf("state", "closed").Validate(doc))
	assert.Empty(t, MinLen("missing", 5).Validate(doc))
	assert.NotEmpty(t, MinLen("name", 3).Validate(doc))
	assert.Equal(t, []string{`field "n" must be a string, got int`}, MaxLen("n", 1).Validate(doc))
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		decl    Declaration
		wantErr bool
	}{
		{"required args", Declaration{Name: "required", Args: []string{"a"}}, false},
		{"required field", Declaration{Name: "Required", Field: "a"}, false},
		{"required empty", Declaration{Name: "required"}, true},
		{"class", Declaration{Name: "class", Args: []string{"Comment"}}, false},
		{"class empty", Declaration{Name: "class"}, true},
		{"maxlen", Declaration{Name: "maxlen", Field: "body", Limit: 10}, false},
		{"maxlen no field", Declaration{Name: "maxlen", Limit: 10}, true},
		{"minlen", Declaration{Name: "minlen", Field: "body", Limit: 1}, false},
		{"oneof", Declaration{Name: "oneof", Field: "s", Args: []string{"x"}}, false},
		{"oneof no values", Declaration{Name: "oneof", Field: "s"}, true},
		{"unknown", Declaration{Name: "regex"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Build(tt.decl)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.NotNil(t, v)
		})
	}

	assert.True(t, Known("MAXLEN"))
	assert.False(t, Known("regex"))
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"class", "maxlen", "minlen", "oneof", "required"}, Names())

	for _, n := range Names() {
		assert.True(t, Known(n), n)
	}
}
