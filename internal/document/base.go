package document

import (
	"github.com/google/uuid"

	"docmap/internal/dbref"
	"docmap/internal/docpath"
	"docmap/internal/ops"
	"docmap/internal/schema"
	"docmap/internal/validate"
)

// Node is anything a document can hold as a child field: embedded documents
// and document sets.
type Node interface {
	// ExportValue returns the stored representation of the node.
	ExportValue() any
	// Operations returns pending writes, including those of children when asked.
	Operations(includeChildren bool) *ops.Set
	// PurgeOperations discards pending writes.
	PurgeOperations(includeChildren bool)
	// Relocate tells the node where it now lives.
	Relocate(collection, path string, criteria map[string]any)
}

// Config describes where a document lives and what constrains it.
type Config struct {
	// Collection overrides the class collection; children inherit their parent's.
	Collection string
	// PathToDocument is the dotted path from the root document, empty for roots.
	PathToDocument string
	// Criteria selects the root document when building scoped updates.
	Criteria map[string]any
	// HasID marks documents that carry their own identity field.
	HasID bool
	// ParentIsArray marks elements of a document set.
	ParentIsArray bool
	// RequirementModifiers are requirements handed down by the parent,
	// already scoped to this document.
	RequirementModifiers schema.Requirements
}

// Options configure a new document or set.
type Options struct {
	Database dbref.Resolver
	Class    *schema.Class
	Config   Config
}

var baseClass = &schema.Class{Name: schema.BaseDocument, Kind: schema.KindDocument}

// Base holds the state shared by documents and document sets: identity,
// location, requirements and pending operations.
type Base struct {
	id    uuid.UUID
	db    dbref.Resolver
	class *schema.Class
	cfg   Config
	reqs  schema.Requirements
	ops   *ops.Set
	isNew bool
}

// NewBase builds the shared state. A nil class means the base document class.
func NewBase(opts Options, isNew bool) Base {
	class := opts.Class
	if class == nil {
		class = baseClass
	}

	cfg := opts.Config
	cfg.Criteria = cloneCriteria(cfg.Criteria)

	return Base{
		id:    uuid.New(),
		db:    opts.Database,
		class: class,
		cfg:   cfg,
		reqs:  class.Requirements.Merge(cfg.RequirementModifiers),
		ops:   ops.New(),
		isNew: isNew,
	}
}

// ID is a process-local identity, stable for the lifetime of the object and
// unrelated to the stored "_id" field.
func (b *Base) ID() uuid.UUID {
	return b.id
}

// Database returns the resolver used for references, possibly nil.
func (b *Base) Database() dbref.Resolver {
	return b.db
}

// Class returns the document class.
func (b *Base) Class() *schema.Class {
	return b.class
}

// ClassName returns the document class name.
func (b *Base) ClassName() string {
	return b.class.Name
}

// Config returns a copy of the document configuration.
func (b *Base) Config() Config {
	cfg := b.cfg
	cfg.Criteria = cloneCriteria(cfg.Criteria)

	return cfg
}

// Collection returns the effective collection: the configured one, else the class's.
func (b *Base) Collection() string {
	if b.cfg.Collection != "" {
		return b.cfg.Collection
	}

	return b.class.Collection
}

// SetCollection changes the configured collection.
func (b *Base) SetCollection(collection string) {
	b.cfg.Collection = collection
}

// PathToDocument returns the dotted path of this document from its root.
func (b *Base) PathToDocument() string {
	return b.cfg.PathToDocument
}

// SetPathToDocument changes the path of this document only; see Relocate
// for moving a document together with its children.
func (b *Base) SetPathToDocument(path string) {
	b.cfg.PathToDocument = path
}

// PathToProperty returns the path of a field of this document.
func (b *Base) PathToProperty(key string) string {
	return docpath.Join(b.cfg.PathToDocument, key)
}

// Criteria returns the configured criteria.
func (b *Base) Criteria() map[string]any {
	return cloneCriteria(b.cfg.Criteria)
}

// SetCriteria changes the configured criteria.
func (b *Base) SetCriteria(criteria map[string]any) {
	b.cfg.Criteria = cloneCriteria(criteria)
}

// HasID reports whether the document carries its own identity field.
func (b *Base) HasID() bool {
	return b.cfg.HasID
}

// ParentIsArray reports whether the document is an element of a set.
func (b *Base) ParentIsArray() bool {
	return b.cfg.ParentIsArray
}

// Requirements returns the effective requirements: the class's, overlaid
// with the modifiers handed down by the parent.
func (b *Base) Requirements() schema.Requirements {
	return b.reqs
}

// Requirement returns the requirement for key.
func (b *Base) Requirement(key string) schema.Requirement {
	return b.reqs.Get(key)
}

// Validators returns the validator chain for key.
func (b *Base) Validators(key string) *validate.Chain {
	return b.reqs.Validators(key)
}

// IsNew reports whether the document has never been persisted.
func (b *Base) IsNew() bool {
	return b.isNew
}

// SetNew changes the persisted state, e.g. after a successful save.
func (b *Base) SetNew(isNew bool) {
	b.isNew = isNew
}

// AddOperation records a pending write against this document.
func (b *Base) AddOperation(op ops.Operator, path string, value any) {
	b.ops.Add(op, path, value)
}

// OwnOperations returns a copy of this document's own pending writes.
func (b *Base) OwnOperations() *ops.Set {
	return b.ops.Clone()
}

// PurgeOwnOperations discards this document's own pending writes.
func (b *Base) PurgeOwnOperations() {
	b.ops.Purge()
}
