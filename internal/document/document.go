// Package document implements the base document abstraction: raw stored
// data, locally changed fields, child documents, and pending writes.
package document

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"docmap/internal/ctxlog"
	"docmap/internal/dbref"
	"docmap/internal/docpath"
	"docmap/internal/odmerr"
	"docmap/internal/ops"
)

// Document is a single stored document, root or embedded.
type Document struct {
	Base

	clean    map[string]any
	data     map[string]any
	unset    map[string]struct{}
	children map[string]Node
	// refChildren holds keys whose child was obtained by dereferencing.
	refChildren map[string]struct{}
	// dirtyChildren holds keys whose child was assigned since the last purge.
	dirtyChildren map[string]struct{}
}

// New creates a document that has never been persisted, holding fields.
func New(fields map[string]any, opts Options) *Document {
	d := newDocument(opts, true)
	d.data = copyMap(fields)

	if d.data == nil {
		d.data = make(map[string]any)
	}

	return d
}

// Load creates a document from stored data. The data is copied and kept as
// the clean snapshot.
func Load(raw map[string]any, opts Options) *Document {
	d := newDocument(opts, false)
	d.clean = copyMap(raw)

	return d
}

func newDocument(opts Options, isNew bool) *Document {
	return &Document{
		Base:          NewBase(opts, isNew),
		data:          make(map[string]any),
		unset:         make(map[string]struct{}),
		children:      make(map[string]Node),
		refChildren:   make(map[string]struct{}),
		dirtyChildren: make(map[string]struct{}),
	}
}

// Field returns the current value of a field. Child nodes are returned in
// their exported form.
func (d *Document) Field(name string) (any, bool) {
	if n, ok := d.children[name]; ok {
		return n.ExportValue(), true
	}

	return d.value(name)
}

// value looks up the raw value of a field: local changes first, then clean data.
func (d *Document) value(name string) (any, bool) {
	if _, ok := d.unset[name]; ok {
		return nil, false
	}

	if v, ok := d.data[name]; ok {
		return v, true
	}

	v, ok := d.clean[name]

	return v, ok
}

// CleanValue returns the value of a field as it was loaded.
func (d *Document) CleanValue(name string) (any, bool) {
	v, ok := d.clean[name]
	return v, ok
}

// Keys returns the names of every field currently present, sorted.
func (d *Document) Keys() []string {
	keys := make(map[string]struct{}, len(d.clean)+len(d.data)+len(d.children))

	for k := range d.clean {
		keys[k] = struct{}{}
	}

	for k := range d.data {
		keys[k] = struct{}{}
	}

	for k := range d.children {
		keys[k] = struct{}{}
	}

	for k := range d.unset {
		delete(keys, k)
	}

	return slices.Sorted(maps.Keys(keys))
}

// Criteria returns the configured criteria, or selects this document by its
// identity when it is a root document.
func (d *Document) Criteria() map[string]any {
	if c := d.Base.Criteria(); c != nil {
		return c
	}

	if id, ok := d.value(dbref.IDField); ok && id != nil {
		return map[string]any{dbref.IDField: id}
	}

	return nil
}

// Ref returns a reference to this document, if it has a collection and an identity.
func (d *Document) Ref() (dbref.Ref, bool) {
	id, ok := d.value(dbref.IDField)
	if !ok || id == nil || d.Collection() == "" {
		return dbref.Ref{}, false
	}

	return dbref.Ref{Collection: d.Collection(), ID: id}, true
}

// Set assigns a field. Documents are attached as children, see SetChild.
func (d *Document) Set(key string, value any) error {
	if err := checkFieldKey("set", key); err != nil {
		return err
	}

	switch v := value.(type) {
	case *Document:
		return d.SetChild(key, v)
	case Node:
		return odmerr.Usage("set", d.PathToProperty(key), "cannot assign a %T as a field value", v)
	}

	delete(d.unset, key)
	delete(d.children, key)
	delete(d.refChildren, key)
	delete(d.dirtyChildren, key)

	d.data[key] = CopyRaw(value)

	if !d.IsNew() {
		d.AddOperation(ops.OpSet, d.PathToProperty(key), CopyRaw(value))
	}

	return nil
}

// Unset removes a field.
func (d *Document) Unset(key string) error {
	if err := checkFieldKey("unset", key); err != nil {
		return err
	}

	delete(d.data, key)
	delete(d.children, key)
	delete(d.refChildren, key)
	delete(d.dirtyChildren, key)
	d.unset[key] = struct{}{}

	if !d.IsNew() {
		d.AddOperation(ops.OpUnset, d.PathToProperty(key), 1)
	}

	return nil
}

// Child returns the embedded or referenced document stored under key,
// materializing it on first access. A missing field or a broken reference
// yields nil without error.
func (d *Document) Child(ctx context.Context, key string) (*Document, error) {
	if n, ok := d.children[key]; ok {
		child, ok := n.(*Document)
		if !ok {
			return nil, odmerr.Usage("child", d.PathToProperty(key), "field holds a %T, not a document", n)
		}

		return child, nil
	}

	raw, ok := d.value(key)
	if !ok || raw == nil {
		return nil, nil
	}

	m, ok := raw.(map[string]any)
	if !ok {
		return nil, odmerr.Usage("child", d.PathToProperty(key), "field holds a %T, not a document", raw)
	}

	req := d.Requirement(key)

	class := req.Class
	if class == nil {
		class = baseClass
	}

	if !class.IsDocument() {
		return nil, odmerr.SchemaConfiguration("child", d.PathToProperty(key), "%s is not a document class", class.Name)
	}

	cfg := Config{
		Collection:           d.Collection(),
		HasID:                req.HasID,
		RequirementModifiers: d.Requirements().Scoped(key + docpath.Separator),
	}

	ref, isRef := dbref.FromRaw(m)
	if isRef {
		resolved, err := Resolve(ctx, d.Database(), ref)
		if err != nil {
			return nil, fmt.Errorf("child %q: %w", d.PathToProperty(key), err)
		}

		if resolved == nil {
			ctxlog.FromContext(ctx).Info("Broken reference", "path", d.PathToProperty(key), "ref", ref.String())
			d.data[key] = nil

			return nil, nil
		}

		m = resolved
		cfg.Collection = ref.Collection
	} else {
		cfg.PathToDocument = d.PathToProperty(key)
		cfg.Criteria = d.Criteria()
	}

	child := Load(m, Options{Database: d.Database(), Class: class, Config: cfg})
	d.children[key] = child

	if isRef {
		d.refChildren[key] = struct{}{}
	}

	return child, nil
}

// SetChild assigns a document to key after running the key's validators.
// A document already persisted elsewhere is copied first.
func (d *Document) SetChild(key string, child *Document) error {
	if err := checkFieldKey("set", key); err != nil {
		return err
	}

	if child == nil {
		return d.Unset(key)
	}

	chain := d.Validators(key)
	if !chain.IsValid(child) {
		return odmerr.Validation("set", d.PathToProperty(key), chain.Messages())
	}

	if !child.IsNew() {
		child = child.Clone()
	}

	delete(d.unset, key)
	delete(d.data, key)
	delete(d.refChildren, key)

	d.children[key] = child
	d.dirtyChildren[key] = struct{}{}
	child.Relocate(d.Collection(), d.PathToProperty(key), d.Criteria())

	return nil
}

// AttachNode caches a materialized child node under key without marking it
// changed. Document sets use it to register themselves with their parent.
func (d *Document) AttachNode(key string, n Node) {
	d.children[key] = n
}

// Node returns the child node cached under key.
func (d *Document) Node(key string) (Node, bool) {
	n, ok := d.children[key]
	return n, ok
}

// IsReferenceChild reports whether the child under key came from a reference.
func (d *Document) IsReferenceChild(key string) bool {
	_, ok := d.refChildren[key]
	return ok
}

// Relocate moves the document and its embedded children.
func (d *Document) Relocate(collection, path string, criteria map[string]any) {
	d.SetCollection(collection)
	d.SetPathToDocument(path)
	d.SetCriteria(criteria)

	for key, n := range d.children {
		if d.IsReferenceChild(key) {
			continue
		}

		n.Relocate(collection, docpath.Join(path, key), criteria)
	}
}

// Export returns the full stored representation of the document. Children
// obtained by reference are exported as reference descriptors.
func (d *Document) Export() map[string]any {
	out := copyMap(d.clean)
	if out == nil {
		out = make(map[string]any, len(d.data)+len(d.children))
	}

	for k := range d.unset {
		delete(out, k)
	}

	for k, v := range d.data {
		out[k] = CopyRaw(v)
	}

	for k, n := range d.children {
		if d.IsReferenceChild(k) {
			if child, ok := n.(*Document); ok {
				if ref, ok := child.Ref(); ok {
					out[k] = ref.Raw()
					continue
				}
			}
		}

		out[k] = n.ExportValue()
	}

	return out
}

// ExportValue implements Node.
func (d *Document) ExportValue() any {
	return d.Export()
}

// Operations returns pending writes. Assigned children are written whole;
// with includeChildren, the pending writes of loaded embedded children are
// collected too. Referenced children are never included.
func (d *Document) Operations(includeChildren bool) *ops.Set {
	out := d.OwnOperations()

	if !d.IsNew() {
		for _, key := range slices.Sorted(maps.Keys(d.dirtyChildren)) {
			out.Add(ops.OpSet, d.PathToProperty(key), d.children[key].ExportValue())
		}
	}

	if !includeChildren {
		return out
	}

	for _, key := range slices.Sorted(maps.Keys(d.children)) {
		if d.IsReferenceChild(key) {
			continue
		}

		if _, dirty := d.dirtyChildren[key]; dirty {
			continue
		}

		out.Merge(d.children[key].Operations(true))
	}

	return out
}

// PurgeOperations discards pending writes.
func (d *Document) PurgeOperations(includeChildren bool) {
	d.PurgeOwnOperations()

	if includeChildren {
		for key, n := range d.children {
			if !d.IsReferenceChild(key) {
				n.PurgeOperations(true)
			}
		}
	}

	clear(d.dirtyChildren)
}

// Clone returns a detached, never-persisted copy of the document with a new identity.
func (d *Document) Clone() *Document {
	cfg := Config{
		Collection:           d.Config().Collection,
		HasID:                d.HasID(),
		ParentIsArray:        d.ParentIsArray(),
		RequirementModifiers: d.Config().RequirementModifiers,
	}

	return New(d.Export(), Options{Database: d.Database(), Class: d.Class(), Config: cfg})
}

// Validate checks the document's own required fields and returns one
// message per missing field.
func (d *Document) Validate() []string {
	var msgs []string

	for _, key := range d.Requirements().Keys() {
		if !d.Requirement(key).Required {
			continue
		}

		p, err := docpath.Parse(key)
		if err != nil || len(p.Segments) != 1 || p.Segments[0].IsIndex || p.Segments[0].IsWildcard {
			continue
		}

		if v, ok := d.Field(key); !ok || v == nil {
			msgs = append(msgs, fmt.Sprintf("field %q is required", d.PathToProperty(key)))
		}
	}

	return msgs
}

// Resolve dereferences ref against db, failing with a usage error when no
// database is configured.
func Resolve(ctx context.Context, db dbref.Resolver, ref dbref.Ref) (map[string]any, error) {
	if db == nil {
		return nil, odmerr.Usage("resolve", ref.String(), "no database to resolve references against")
	}

	return db.Resolve(ctx, ref)
}

// checkFieldKey accepts single field names only.
func checkFieldKey(op, key string) error {
	p, err := docpath.Parse(key)
	if err != nil {
		return odmerr.Usage(op, key, "%v", err)
	}

	if len(p.Segments) != 1 || p.Segments[0].IsIndex || p.Segments[0].IsWildcard {
		return odmerr.Usage(op, key, "expected a single field name")
	}

	return nil
}
