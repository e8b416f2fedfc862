// Package dbref models cross-collection references stored inside documents
// and the resolver contract used to dereference them.
package dbref

import (
	"context"
	"fmt"
)

const (
	// CollectionKey names the referenced collection in a stored descriptor.
	CollectionKey = "$ref"
	// IDKey holds the referenced document's identity in a stored descriptor.
	IDKey = "$id"
	// IDField is the identity field of a stored document.
	IDField = "_id"
)

// Ref points at a document in another collection.
type Ref struct {
	Collection string
	ID         any
}

// String returns "collection/id".
func (r Ref) String() string {
	return fmt.Sprintf("%s/%v", r.Collection, r.ID)
}

// Raw returns the stored descriptor form of the reference.
func (r Ref) Raw() map[string]any {
	return map[string]any{CollectionKey: r.Collection, IDKey: r.ID}
}

// IsRef reports whether a raw stored value is a reference descriptor: a
// mapping carrying a non-empty collection name and an identity.
func IsRef(v any) bool {
	_, ok := FromRaw(v)
	return ok
}

// FromRaw extracts a Ref from a raw stored value.
func FromRaw(v any) (Ref, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Ref{}, false
	}

	coll, ok := m[CollectionKey].(string)
	if !ok || coll == "" {
		return Ref{}, false
	}

	id, ok := m[IDKey]
	if !ok || id == nil {
		return Ref{}, false
	}

	return Ref{Collection: coll, ID: id}, true
}

// Resolver dereferences references. A missing target is reported as a nil
// document with a nil error; errors are reserved for lookup failures.
type Resolver interface {
	Resolve(ctx context.Context, ref Ref) (map[string]any, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, ref Ref) (map[string]any, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, ref Ref) (map[string]any, error) {
	return f(ctx, ref)
}
