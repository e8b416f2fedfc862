package docset

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"docmap/internal/ctxlog"
	"docmap/internal/dbref"
	"docmap/internal/docpath"
	"docmap/internal/document"
	"docmap/internal/odmerr"
	"docmap/internal/ops"
	"docmap/internal/schema"
)

var setClass = &schema.Class{Name: schema.BaseDocumentSet, Kind: schema.KindDocumentSet}

// DocumentSet is an ordered, growable set of documents stored as an array field.
type DocumentSet struct {
	document.Base

	clean map[int]any
	// materialized holds *document.Document elements, or *DocumentSet ones
	// when the element class is itself a set.
	materialized map[int]document.Node
	references   map[uuid.UUID]struct{}
	// dirty holds indices assigned or cleared since the last purge.
	dirty map[int]struct{}
}

var _ document.Node = (*DocumentSet)(nil)

// New creates a set over raw entries loaded from storage. Entries are copied;
// negative indices are ignored. isNew marks a set that was never persisted.
func New(entries map[int]any, opts document.Options, isNew bool) *DocumentSet {
	if opts.Class == nil {
		opts.Class = setClass
	}

	clean := make(map[int]any, len(entries))

	for i, v := range entries {
		if i < 0 {
			continue
		}

		clean[i] = document.CopyRaw(v)
	}

	return &DocumentSet{
		Base:         document.NewBase(opts, isNew),
		clean:        clean,
		materialized: make(map[int]document.Node),
		references:   make(map[uuid.UUID]struct{}),
		dirty:        make(map[int]struct{}),
	}
}

// Field returns the document set stored under key in parent, creating it from
// the parent's data on first use. The field must be declared as a DocumentSet.
func Field(ctx context.Context, parent *document.Document, key string) (*DocumentSet, error) {
	path := parent.PathToProperty(key)

	if n, ok := parent.Node(key); ok {
		s, ok := n.(*DocumentSet)
		if !ok {
			return nil, odmerr.Usage("field", path, "field holds a %T, not a document set", n)
		}

		return s, nil
	}

	class := parent.Requirement(key).Class
	if class == nil || class.Kind != schema.KindDocumentSet {
		return nil, odmerr.SchemaConfiguration("field", path, "field is not declared as a document set")
	}

	raw, present := parent.Field(key)

	entries, err := Entries(raw)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", path, err)
	}

	s := New(entries, document.Options{
		Database: parent.Database(),
		Class:    class,
		Config: document.Config{
			Collection:           parent.Collection(),
			PathToDocument:       path,
			Criteria:             parent.Criteria(),
			RequirementModifiers: parent.Requirements().Scoped(key + docpath.Separator),
		},
	}, parent.IsNew() || !present)

	parent.AttachNode(key, s)

	ctxlog.FromContext(ctx).Debug("Loaded document set", "path", path, "entries", len(entries))

	return s, nil
}

// Entries converts a raw stored array into index-keyed entries. It accepts a
// slice, or a mapping keyed by non-negative integers or their decimal strings.
// Mappings decoded with untyped keys, as yaml.v3 produces for integer keys,
// may mix both key forms.
func Entries(raw any) (map[int]any, error) {
	switch t := raw.(type) {
	case nil:
		return map[int]any{}, nil
	case []any:
		out := make(map[int]any, len(t))
		for i, v := range t {
			out[i] = v
		}

		return out, nil
	case map[int]any:
		for i := range t {
			if i < 0 {
				return nil, odmerr.Usage("load", "", "negative index %d", i)
			}
		}

		return maps.Clone(t), nil
	case map[string]any:
		out := make(map[int]any, len(t))

		for k, v := range t {
			i, err := docpath.ParseIndex(k)
			if err != nil {
				return nil, odmerr.Usage("load", "", "%v", err)
			}

			out[i] = v
		}

		return out, nil
	case map[any]any:
		out := make(map[int]any, len(t))

		for k, v := range t {
			i, err := entryIndex(k)
			if err != nil {
				return nil, err
			}

			out[i] = v
		}

		return out, nil
	default:
		return nil, odmerr.Usage("load", "", "expected an array of documents, got %T", raw)
	}
}

func entryIndex(k any) (int, error) {
	switch t := k.(type) {
	case int:
		if t < 0 {
			return 0, odmerr.Usage("load", "", "negative index %d", t)
		}

		return t, nil
	case string:
		i, err := docpath.ParseIndex(t)
		if err != nil {
			return 0, odmerr.Usage("load", "", "%v", err)
		}

		return i, nil
	default:
		return 0, odmerr.Usage("load", "", "index must be an integer, %T given", k)
	}
}

// GetProperty resolves the element under a string key. An empty key
// allocates a new element, see AllocateNew.
func (s *DocumentSet) GetProperty(ctx context.Context, key string) (document.Node, error) {
	if key == "" {
		return s.getProperty(ctx, nil)
	}

	i, err := docpath.ParseIndex(key)
	if err != nil {
		return nil, odmerr.Usage("get", s.PathToDocument(), "%v", err)
	}

	return s.getProperty(ctx, &i)
}

// Element returns the element at index, materializing it on first access.
// Repeated calls return the same object. An absent index, a stored null, and
// a broken reference all yield nil without error.
func (s *DocumentSet) Element(ctx context.Context, index int) (document.Node, error) {
	if index < 0 {
		return nil, odmerr.Usage("get", s.PathToDocument(), "index must be non-negative, %d given", index)
	}

	return s.getProperty(ctx, &index)
}

// Get is Element for sets of documents.
func (s *DocumentSet) Get(ctx context.Context, index int) (*document.Document, error) {
	n, err := s.Element(ctx, index)
	if err != nil || n == nil {
		return nil, err
	}

	doc, ok := n.(*document.Document)
	if !ok {
		return nil, odmerr.Usage("get", docpath.Index(s.PathToDocument(), index), "element is a %T, not a document", n)
	}

	return doc, nil
}

// GetSet is Element for sets whose elements are themselves sets.
func (s *DocumentSet) GetSet(ctx context.Context, index int) (*DocumentSet, error) {
	n, err := s.Element(ctx, index)
	if err != nil || n == nil {
		return nil, err
	}

	set, ok := n.(*DocumentSet)
	if !ok {
		return nil, odmerr.Usage("get", docpath.Index(s.PathToDocument(), index), "element is a %T, not a document set", n)
	}

	return set, nil
}

// AllocateNew returns a fresh, unsaved element configured for this set. It
// does not occupy a slot until passed to AddDocument or Set.
func (s *DocumentSet) AllocateNew(ctx context.Context) (*document.Document, error) {
	n, err := s.getProperty(ctx, nil)
	if err != nil {
		return nil, err
	}

	doc, ok := n.(*document.Document)
	if !ok {
		return nil, odmerr.Usage("allocate", s.PathToDocument(), "elements are document sets, use AllocateSet")
	}

	return doc, nil
}

// AllocateSet is AllocateNew for sets whose elements are themselves sets.
func (s *DocumentSet) AllocateSet(ctx context.Context) (*DocumentSet, error) {
	n, err := s.getProperty(ctx, nil)
	if err != nil {
		return nil, err
	}

	set, ok := n.(*DocumentSet)
	if !ok {
		return nil, odmerr.Usage("allocate", s.PathToDocument(), "elements are documents, use AllocateNew")
	}

	return set, nil
}

func (s *DocumentSet) getProperty(ctx context.Context, index *int) (document.Node, error) {
	isNew := index == nil
	logger := ctxlog.FromContext(ctx)

	path := s.PathToDocument()
	if !isNew {
		path = docpath.Index(path, *index)

		if n, ok := s.materialized[*index]; ok {
			return n, nil
		}
	}

	elem := s.Requirement(docpath.Wildcard)
	class := elem.Class

	if isNew && elem.AsReference && !class.HasCollection() {
		name := schema.BaseDocument
		if class != nil {
			name = class.Name
		}

		return nil, odmerr.SchemaConfiguration("get", path, "document class %q is not associated with a collection", name)
	}

	var stored any
	if !isNew {
		stored = s.clean[*index]
		if stored == nil {
			return nil, nil
		}
	}

	if elementsAreSets(elem) {
		return s.nestedSet(ctx, index, path, elem, stored)
	}

	raw := map[string]any{}

	if !isNew {
		m, ok := stored.(map[string]any)
		if !ok {
			return nil, odmerr.Usage("get", path, "element holds a %T, not a document", stored)
		}

		raw = m
	}

	// new elements get pushed onto the set, so they target the set itself
	cfg := document.Config{
		Collection:           s.Collection(),
		PathToDocument:       path,
		Criteria:             s.Criteria(),
		HasID:                elem.HasID,
		ParentIsArray:        true,
		RequirementModifiers: s.elementModifiers(),
	}

	ref, isRef := dbref.FromRaw(raw)
	if isRef {
		resolved, err := document.Resolve(ctx, s.Database(), ref)
		if err != nil {
			return nil, fmt.Errorf("element %q: %w", path, err)
		}

		if resolved == nil {
			logger.Info("Broken reference in document set", "path", path, "ref", ref.String())
			s.materialized[*index] = nil

			return nil, nil
		}

		raw = resolved
		cfg.Collection = ref.Collection
		cfg.PathToDocument = ""
		cfg.Criteria = nil
	}

	opts := document.Options{Database: s.Database(), Class: class, Config: cfg}

	if isNew {
		return document.New(nil, opts), nil
	}

	doc := document.Load(raw, opts)
	if isRef {
		s.references[doc.ID()] = struct{}{}
	}

	s.materialized[*index] = doc

	logger.Debug("Materialized element", "path", path, "reference", isRef)

	return doc, nil
}

// nestedSet builds an element of a set of sets from its stored array.
func (s *DocumentSet) nestedSet(ctx context.Context, index *int, path string, elem schema.Requirement, stored any) (document.Node, error) {
	var entries map[int]any

	if index != nil {
		e, err := Entries(stored)
		if err != nil {
			return nil, fmt.Errorf("element %q: %w", path, err)
		}

		entries = e
	}

	set := New(entries, document.Options{
		Database: s.Database(),
		Class:    elem.Class,
		Config: document.Config{
			Collection:           s.Collection(),
			PathToDocument:       path,
			Criteria:             s.Criteria(),
			ParentIsArray:        true,
			RequirementModifiers: s.elementModifiers(),
		},
	}, index == nil)

	if index == nil {
		return set, nil
	}

	s.materialized[*index] = set

	ctxlog.FromContext(ctx).Debug("Materialized element", "path", path, "entries", len(entries))

	return set, nil
}

func (s *DocumentSet) elementModifiers() schema.Requirements {
	return s.Requirements().Scoped(docpath.Wildcard + docpath.Separator)
}

func elementsAreSets(elem schema.Requirement) bool {
	return elem.Class != nil && elem.Class.Kind == schema.KindDocumentSet
}

// SetProperty assigns value under a string key; an empty key appends. The
// value must be a *document.Document or a *DocumentSet, or nil to clear an
// explicit index.
func (s *DocumentSet) SetProperty(key string, value any) error {
	var index *int

	if key != "" {
		i, err := docpath.ParseIndex(key)
		if err != nil {
			return odmerr.Usage("set", s.PathToDocument(), "%v", err)
		}

		index = &i
	}

	var n document.Node

	switch v := value.(type) {
	case nil:
	case *document.Document:
		if v != nil {
			n = v
		}
	case *DocumentSet:
		if v != nil {
			n = v
		}
	default:
		return odmerr.Usage("set", s.PathToDocument(), "value must be a document, %T given", value)
	}

	_, err := s.setProperty(index, n)

	return err
}

// Set places doc at index, replacing any previous occupant. A nil doc clears
// the slot.
func (s *DocumentSet) Set(index int, doc *document.Document) error {
	if doc == nil {
		return s.Clear(index)
	}

	return s.set(index, doc)
}

// SetSet is Set for sets whose elements are themselves sets.
func (s *DocumentSet) SetSet(index int, set *DocumentSet) error {
	if set == nil {
		return s.Clear(index)
	}

	return s.set(index, set)
}

// Clear empties the slot at index.
func (s *DocumentSet) Clear(index int) error {
	return s.set(index, nil)
}

func (s *DocumentSet) set(index int, n document.Node) error {
	if index < 0 {
		return odmerr.Usage("set", s.PathToDocument(), "index must be non-negative, %d given", index)
	}

	_, err := s.setProperty(&index, n)

	return err
}

// AddDocument appends doc after the highest occupied index and returns the
// index it was given.
func (s *DocumentSet) AddDocument(doc *document.Document) (int, error) {
	if doc == nil {
		return s.setProperty(nil, nil)
	}

	return s.setProperty(nil, doc)
}

// AddSet is AddDocument for sets whose elements are themselves sets.
func (s *DocumentSet) AddSet(set *DocumentSet) (int, error) {
	if set == nil {
		return s.setProperty(nil, nil)
	}

	return s.setProperty(nil, set)
}

// setProperty performs every check before touching any state.
func (s *DocumentSet) setProperty(index *int, n document.Node) (int, error) {
	path := s.PathToDocument()
	if index != nil {
		path = docpath.Index(path, *index)
	}

	if n == nil {
		if index == nil {
			return 0, odmerr.Usage("set", path, "cannot append a nil document")
		}

		s.evict(*index)
		s.materialized[*index] = nil
		s.dirty[*index] = struct{}{}

		return *index, nil
	}

	_, isSet := n.(*DocumentSet)
	if wantSet := elementsAreSets(s.Requirement(docpath.Wildcard)); wantSet != isSet {
		what := "documents"
		if wantSet {
			what = "document sets"
		}

		return 0, odmerr.Usage("set", path, "elements must be %s, %T given", what, n)
	}

	chain := s.Validators(docpath.Wildcard)
	if !chain.IsValid(n) {
		return 0, odmerr.Validation("set", path, chain.Messages())
	}

	switch t := n.(type) {
	case *document.Document:
		if !t.IsNew() {
			n = t.Clone()
		}
	case *DocumentSet:
		if !t.IsNew() {
			n = t.Clone()
		}
	}

	var i int
	if index == nil {
		i = s.nextIndex()
	} else {
		i = *index
		s.evict(i)
	}

	s.materialized[i] = n
	s.dirty[i] = struct{}{}

	n.Relocate(s.Collection(), docpath.Index(s.PathToDocument(), i), s.Criteria())

	return i, nil
}

// PushDocument queues doc to be pushed onto the stored array without
// placing it in any slot of this set.
func (s *DocumentSet) PushDocument(doc *document.Document) error {
	path := s.PathToDocument()

	if doc == nil {
		return odmerr.Usage("push", path, "cannot push a nil document")
	}

	chain := s.Validators(docpath.Wildcard)
	if !chain.IsValid(doc) {
		return odmerr.Validation("push", path, chain.Messages())
	}

	s.AddOperation(ops.OpPush, path, doc.Export())

	return nil
}

// Clone returns an unsaved set holding a copy of the exported elements.
// References are kept as descriptors and resolved again on access.
func (s *DocumentSet) Clone() *DocumentSet {
	entries := make(map[int]any)
	for i, v := range s.Export() {
		entries[i] = v
	}

	return New(entries, document.Options{
		Database: s.Database(),
		Class:    s.Class(),
		Config:   s.Config(),
	}, true)
}

// Field returns the exported element under a decimal index key, so that
// element validators can inspect a nested set like a document.
func (s *DocumentSet) Field(name string) (any, bool) {
	i, err := docpath.ParseIndex(name)
	if err != nil || !slices.Contains(s.Indices(), i) {
		return nil, false
	}

	return s.exportAt(i), true
}

// evict forgets the reference registration of the occupant at index.
func (s *DocumentSet) evict(index int) {
	if doc, ok := s.materialized[index].(*document.Document); ok && doc != nil {
		delete(s.references, doc.ID())
	}
}

func (s *DocumentSet) nextIndex() int {
	indices := s.Indices()
	if len(indices) == 0 {
		return 0
	}

	return indices[len(indices)-1] + 1
}

// Indices returns the occupied indices in ascending order. Materialized
// slots take precedence over clean ones; nil slots are unoccupied. A
// document with no fields still occupies its slot.
func (s *DocumentSet) Indices() []int {
	var out []int

	for i, v := range s.clean {
		if _, ok := s.materialized[i]; ok {
			continue
		}

		if v != nil {
			out = append(out, i)
		}
	}

	for i, n := range s.materialized {
		if n != nil {
			out = append(out, i)
		}
	}

	slices.Sort(out)

	return out
}

// Len returns the length of the exported array.
func (s *DocumentSet) Len() int {
	indices := s.Indices()
	if len(indices) == 0 {
		return 0
	}

	return indices[len(indices)-1] + 1
}

// IsReference reports whether doc occupies this set as a dereferenced document.
func (s *DocumentSet) IsReference(doc *document.Document) bool {
	if doc == nil {
		return false
	}

	_, ok := s.references[doc.ID()]

	return ok
}

func (s *DocumentSet) isReferenceNode(n document.Node) bool {
	doc, ok := n.(*document.Document)
	return ok && s.IsReference(doc)
}

// ReferenceCount returns the number of registered reference documents.
func (s *DocumentSet) ReferenceCount() int {
	return len(s.references)
}

func (s *DocumentSet) asReference() bool {
	return s.Requirement(docpath.Wildcard).AsReference
}

// refCollection is the collection element references point into, or ""
// when elements are embedded. It only affects the exported descriptor;
// embedded elements keep the set's collection and paths.
func (s *DocumentSet) refCollection() string {
	elem := s.Requirement(docpath.Wildcard)
	if !elem.AsReference || !elem.Class.HasCollection() {
		return ""
	}

	return elem.Class.Collection
}

// Export returns the set as a dense array: every position up to the highest
// occupied index is present, unoccupied ones as nil.
func (s *DocumentSet) Export() []any {
	indices := s.Indices()
	if len(indices) == 0 {
		return []any{}
	}

	out := make([]any, indices[len(indices)-1]+1)
	for _, i := range indices {
		out[i] = s.exportAt(i)
	}

	return out
}

// ExportValue implements document.Node.
func (s *DocumentSet) ExportValue() any {
	return s.Export()
}

func (s *DocumentSet) exportAt(i int) any {
	n, ok := s.materialized[i]
	if !ok {
		return document.CopyRaw(s.clean[i])
	}

	if n == nil {
		return nil
	}

	doc, ok := n.(*document.Document)
	if !ok {
		return n.ExportValue()
	}

	if s.IsReference(doc) {
		if ref, ok := doc.Ref(); ok {
			return ref.Raw()
		}
	}

	if coll := s.refCollection(); coll != "" {
		if id, ok := doc.Field(dbref.IDField); ok && id != nil {
			return dbref.Ref{Collection: coll, ID: id}.Raw()
		}
	}

	return doc.Export()
}

// Operations returns pending writes. A persisted set writes each assigned
// slot in place; a set never persisted is written whole. When elements are
// stored as references the set is a single unit and element writes are never
// collected, whatever includeChildren says.
func (s *DocumentSet) Operations(includeChildren bool) *ops.Set {
	if s.asReference() {
		includeChildren = false
	}

	out := s.OwnOperations()

	if s.IsNew() {
		if len(s.dirty) > 0 {
			out.Add(ops.OpSet, s.PathToDocument(), s.Export())
		}

		return out
	}

	for _, i := range slices.Sorted(maps.Keys(s.dirty)) {
		out.Add(ops.OpSet, docpath.Index(s.PathToDocument(), i), s.exportAt(i))
	}

	if !includeChildren {
		return out
	}

	for _, i := range slices.Sorted(maps.Keys(s.materialized)) {
		n := s.materialized[i]
		if n == nil || s.isReferenceNode(n) {
			continue
		}

		if _, dirty := s.dirty[i]; dirty {
			continue
		}

		out.Merge(n.Operations(true))
	}

	return out
}

// PurgeOperations discards pending writes, with the same reference rule as Operations.
func (s *DocumentSet) PurgeOperations(includeChildren bool) {
	if s.asReference() {
		includeChildren = false
	}

	s.PurgeOwnOperations()
	clear(s.dirty)

	if !includeChildren {
		return
	}

	for _, n := range s.materialized {
		if n != nil && !s.isReferenceNode(n) {
			n.PurgeOperations(true)
		}
	}
}

// Relocate moves the set and its embedded elements.
func (s *DocumentSet) Relocate(collection, path string, criteria map[string]any) {
	s.SetCollection(collection)
	s.SetPathToDocument(path)
	s.SetCriteria(criteria)

	for i, n := range s.materialized {
		if n == nil || s.isReferenceNode(n) {
			continue
		}

		n.Relocate(collection, docpath.Index(path, i), criteria)
	}
}
