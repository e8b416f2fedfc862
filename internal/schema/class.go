package schema

import (
	"fmt"
	"maps"
	"slices"

	"docmap/internal/common"
)

// Names of the built-in base classes.
const (
	BaseDocument    = "Document"
	BaseDocumentSet = "DocumentSet"
)

// Kind distinguishes plain documents from document sets.
type Kind int

const (
	KindDocument Kind = iota
	KindDocumentSet
)

// String returns the kind as written in schema files.
func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindDocumentSet:
		return "set"
	default:
		return common.UnknownStr
	}
}

// ParseKind parses a kind name. The empty string means a document.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "document":
		return KindDocument, nil
	case "set":
		return KindDocumentSet, nil
	default:
		return 0, fmt.Errorf("unknown class kind %q (expected 'document' or 'set')", s)
	}
}

// Class is a resolved document class.
type Class struct {
	Name string
	// Collection is empty for classes only ever embedded in another document.
	Collection   string
	Kind         Kind
	Requirements Requirements
}

// HasCollection reports whether documents of this class live in their own collection.
func (c *Class) HasCollection() bool {
	return c != nil && c.Collection != ""
}

// IsDocument reports whether the class describes a plain document.
func (c *Class) IsDocument() bool {
	return c != nil && c.Kind == KindDocument
}

// Registry resolves class names. The base classes are always present.
type Registry struct {
	classes map[string]*Class
}

// NewRegistry creates a registry holding only the base classes.
func NewRegistry() *Registry {
	r := &Registry{classes: make(map[string]*Class)}
	r.classes[BaseDocument] = &Class{Name: BaseDocument, Kind: KindDocument}
	r.classes[BaseDocumentSet] = &Class{Name: BaseDocumentSet, Kind: KindDocumentSet}

	return r
}

// Register adds a class. Names must be unique.
func (r *Registry) Register(c *Class) error {
	if c == nil || c.Name == "" {
		return fmt.Errorf("cannot register a class without a name")
	}

	if _, ok := r.classes[c.Name]; ok {
		return fmt.Errorf("class %q is already registered", c.Name)
	}

	if c.Requirements == nil {
		c.Requirements = Requirements{}
	}

	r.classes[c.Name] = c

	return nil
}

// Lookup returns the class registered under name.
func (r *Registry) Lookup(name string) (*Class, bool) {
	c, ok := r.classes[name]
	return c, ok
}

// MustLookup is Lookup for names known to exist, such as the base classes.
func (r *Registry) MustLookup(name string) *Class {
	c, ok := r.classes[name]
	if !ok {
		panic(fmt.Sprintf("schema: class %q is not registered", name))
	}

	return c
}

// Names returns every registered class name, sorted.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.classes))
}
