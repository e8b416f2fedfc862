package document

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docmap/internal/memdb"
	"docmap/internal/odmerr"
	"docmap/internal/ops"
	"docmap/internal/schema"
	"docmap/internal/validate"
)

func blogRegistry(t *testing.T) *schema.Registry {
	t.Helper()

	reg := schema.NewRegistry()

	user := &schema.Class{Name: "User", Collection: "users"}
	address := &schema.Class{Name: "Address"}
	require.NoError(t, reg.Register(user))
	require.NoError(t, reg.Register(address))
	require.NoError(t, reg.Register(&schema.Class{
		Name:       "Post",
		Collection: "posts",
		Requirements: schema.Requirements{
			"title":        {Required: true},
			"author":       {Class: user, AsReference: true},
			"address":      {Class: address, Validators: []validate.Validator{validate.Required("city")}},
			"address.city": {Required: true},
		},
	}))

	return reg
}

func loadPost(t *testing.T, db *memdb.DB, raw map[string]any) *Document {
	t.Helper()

	reg := blogRegistry(t)

	opts := Options{Class: reg.MustLookup("Post")}
	if db != nil {
		opts.Database = db
	}

	return Load(raw, opts)
}

func TestLoad_FieldsAndExport(t *testing.T) {
	raw := map[string]any{"_id": "p1", "title": "hello", "tags": []any{"a"}}
	d := loadPost(t, nil, raw)

	assert.False(t, d.IsNew())
	assert.Equal(t, "posts", d.Collection())
	assert.Equal(t, "Post", d.ClassName())

	v, ok := d.Field("title")
	require.True(t, ok)
	assert.Equal(t, "hello", v)

	// the snapshot is a copy
	raw["tags"].([]any)[0] = "changed"
	assert.Equal(t, []any{"a"}, d.Export()["tags"])

	assert.Equal(t, []string{"_id", "tags", "title"}, d.Keys())
	assert.Equal(t, map[string]any{"_id": "p1"}, d.Criteria())
}

func TestSet_RecordsOperationsOnlyForPersisted(t *testing.T) {
	loaded := loadPost(t, nil, map[string]any{"_id": "p1", "title": "a"})
	require.NoError(t, loaded.Set("title", "b"))
	require.NoError(t, loaded.Unset("tags"))

	got := loaded.Operations(false)
	v, ok := got.Get(ops.OpSet, "title")
	require.True(t, ok)
	assert.Equal(t, "b", v)
	assert.True(t, got.Has(ops.OpUnset, "tags"))

	fresh := New(map[string]any{"title": "x"}, Options{})
	require.NoError(t, fresh.Set("title", "y"))
	assert.True(t, fresh.IsNew())
	assert.True(t, fresh.Operations(true).IsEmpty())
	assert.Equal(t, map[string]any{"title": "y"}, fresh.Export())
}

func TestSet_RejectsPathsAndNodes(t *testing.T) {
	d := New(nil, Options{})

	for _, key := range []string{"", "a.b", "0", "$"} {
		err := d.Set(key, 1)
		assert.ErrorIs(t, err, odmerr.ErrUsage, key)
	}

	assert.ErrorIs(t, d.Set("x", fakeNode{}), odmerr.ErrUsage)
}

func TestUnset_HidesCleanValue(t *testing.T) {
	d := loadPost(t, nil, map[string]any{"title": "a", "body": "b"})
	require.NoError(t, d.Unset("body"))

	_, ok := d.Field("body")
	assert.False(t, ok)
	assert.Equal(t, map[string]any{"title": "a"}, d.Export())
	assert.Equal(t, []string{"title"}, d.Keys())

	v, ok := d.CleanValue("body")
	assert.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestChild_Embedded(t *testing.T) {
	ctx := context.Background()
	d := loadPost(t, nil, map[string]any{"_id": "p1", "address": map[string]any{"city": "Oslo"}})

	addr, err := d.Child(ctx, "address")
	require.NoError(t, err)
	require.NotNil(t, addr)

	assert.Equal(t, "Address", addr.ClassName())
	assert.Equal(t, "address", addr.PathToDocument())
	assert.Equal(t, "posts", addr.Collection())
	assert.Equal(t, map[string]any{"_id": "p1"}, addr.Criteria())
	assert.True(t, addr.Requirement("city").Required)

	again, err := d.Child(ctx, "address")
	require.NoError(t, err)
	assert.Same(t, addr, again)

	require.NoError(t, addr.Set("city", "Bergen"))

	assert.True(t, d.Operations(false).IsEmpty())

	got := d.Operations(true)
	v, ok := got.Get(ops.OpSet, "address.city")
	require.True(t, ok)
	assert.Equal(t, "Bergen", v)

	d.PurgeOperations(true)
	assert.True(t, d.Operations(true).IsEmpty())

	missing, err := d.Child(ctx, "nothing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = loadPost(t, nil, map[string]any{"address": "nope"}).Child(ctx, "address")
	assert.ErrorIs(t, err, odmerr.ErrUsage)
}

func TestChild_Reference(t *testing.T) {
	ctx := context.Background()
	db := memdb.New("test")
	_, err := db.Insert("users", map[string]any{"_id": "u1", "name": "ann"})
	require.NoError(t, err)

	d := loadPost(t, db, map[string]any{"_id": "p1", "author": map[string]any{"$ref": "users", "$id": "u1"}})

	author, err := d.Child(ctx, "author")
	require.NoError(t, err)
	require.NotNil(t, author)

	assert.True(t, d.IsReferenceChild("author"))
	assert.Equal(t, "users", author.Collection())
	assert.Empty(t, author.PathToDocument())
	assert.Equal(t, map[string]any{"_id": "u1"}, author.Criteria())

	require.NoError(t, author.Set("name", "bob"))

	// referenced children are saved on their own
	assert.True(t, d.Operations(true).IsEmpty())
	assert.Equal(t, map[string]any{"$ref": "users", "$id": "u1"}, d.Export()["author"])
}

func TestChild_BrokenReference(t *testing.T) {
	ctx := context.Background()
	db := memdb.New("test")

	d := loadPost(t, db, map[string]any{"author": map[string]any{"$ref": "users", "$id": "gone"}})

	author, err := d.Child(ctx, "author")
	require.NoError(t, err)
	assert.Nil(t, author)

	author, err = d.Child(ctx, "author")
	require.NoError(t, err)
	assert.Nil(t, author)
	assert.Equal(t, int64(1), db.Lookups())

	_, err = loadPost(t, nil, map[string]any{"author": map[string]any{"$ref": "users", "$id": "u1"}}).Child(ctx, "author")
	assert.ErrorIs(t, err, odmerr.ErrUsage)
}

func TestSetChild_ValidatesAndClones(t *testing.T) {
	reg := blogRegistry(t)
	address := reg.MustLookup("Address")

	d := loadPost(t, nil, map[string]any{"_id": "p1"})

	err := d.SetChild("address", New(nil, Options{Class: address}))
	require.ErrorIs(t, err, odmerr.ErrValidation)
	assert.Equal(t, []string{`field "city" is required`}, odmerr.Messages(err))

	err = d.SetChild("address", New(map[string]any{"city": "Oslo"}, Options{Class: reg.MustLookup("User")}))
	require.ErrorIs(t, err, odmerr.ErrValidation)

	persisted := Load(map[string]any{"city": "Oslo"}, Options{Class: address, Config: Config{PathToDocument: "elsewhere"}})
	require.NoError(t, d.SetChild("address", persisted))

	child, err := d.Child(context.Background(), "address")
	require.NoError(t, err)
	assert.NotSame(t, persisted, child)
	assert.NotEqual(t, persisted.ID(), child.ID())
	assert.True(t, child.IsNew())
	assert.Equal(t, "address", child.PathToDocument())
	assert.Equal(t, "elsewhere", persisted.PathToDocument())

	got := d.Operations(false)
	v, ok := got.Get(ops.OpSet, "address")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"city": "Oslo"}, v)

	d.PurgeOperations(false)
	assert.True(t, d.Operations(false).IsEmpty())

	require.NoError(t, d.SetChild("address", nil))
	_, ok = d.Field("address")
	assert.False(t, ok)
}

func TestRelocate_MovesEmbeddedChildren(t *testing.T) {
	d := loadPost(t, nil, map[string]any{"address": map[string]any{"city": "Oslo"}})

	addr, err := d.Child(context.Background(), "address")
	require.NoError(t, err)

	d.Relocate("archive", "posts.3", map[string]any{"_id": "root"})

	assert.Equal(t, "posts.3", d.PathToDocument())
	assert.Equal(t, "posts.3.address", addr.PathToDocument())
	assert.Equal(t, "archive", addr.Collection())
	assert.Equal(t, map[string]any{"_id": "root"}, addr.Criteria())
}

func TestValidate_RequiredFields(t *testing.T) {
	d := loadPost(t, nil, map[string]any{"body": "x"})
	assert.Equal(t, []string{`field "title" is required`}, d.Validate())

	require.NoError(t, d.Set("title", "t"))
	assert.Empty(t, d.Validate())
}

func TestClone(t *testing.T) {
	d := loadPost(t, nil, map[string]any{"_id": "p1", "title": "a"})
	c := d.Clone()

	assert.True(t, c.IsNew())
	assert.NotEqual(t, d.ID(), c.ID())
	assert.Equal(t, d.Export(), c.Export())
	assert.Equal(t, "Post", c.ClassName())

	require.NoError(t, c.Set("title", "b"))

	v, _ := d.Field("title")
	assert.Equal(t, "a", v)
}

func TestRef(t *testing.T) {
	d := loadPost(t, nil, map[string]any{"_id": "p1"})

	ref, ok := d.Ref()
	require.True(t, ok)
	assert.Equal(t, "posts/p1", ref.String())

	_, ok = New(nil, Options{}).Ref()
	assert.False(t, ok)
}

type fakeNode struct{}

func (fakeNode) ExportValue() any                        { return nil }
func (fakeNode) Operations(bool) *ops.Set                { return ops.New() }
func (fakeNode) PurgeOperations(bool)                    {}
func (fakeNode) Relocate(string, string, map[string]any) {}
