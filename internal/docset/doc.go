// Package docset implements DocumentSet, the container behind array-valued
// document fields.
//
// A set keeps two tiers of state. The clean tier is an immutable snapshot of
// the raw entries loaded from storage, keyed by index. The materialized tier
// maps indices to typed documents and is filled lazily: the first Get of an
// index turns its raw entry into a *document.Document and caches it, and
// every later Get returns that same object. Once an index is materialized it
// wins over the clean tier. When the element class is itself a DocumentSet,
// elements materialize as nested sets instead.
//
// Raw entries shaped as reference descriptors ({"$ref": ..., "$id": ...}) are
// dereferenced through the parent's database. Documents obtained that way are
// remembered in a registry keyed by their process-local identity, so the set
// exports them as references and never collects their writes. A reference
// whose target is gone collapses its slot to nil for the life of the set.
//
// Export always produces a dense slice: the storage format has no sparse
// arrays, so unoccupied positions below the highest occupied index are nil.
package docset
