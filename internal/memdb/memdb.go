// Package memdb is an in-memory document database. Documents are stored
// msgpack-encoded per collection, so every lookup hands back a fresh copy
// the way a real driver would.
package memdb

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"docmap/internal/ctxlog"
	"docmap/internal/dbref"
)

// DB is a named set of collections. It is safe for concurrent use.
type DB struct {
	name        string
	mu          sync.RWMutex
	collections map[string]map[string][]byte
	lookups     atomic.Int64
}

// New creates an empty database.
func New(name string) *DB {
	return &DB{
		name:        name,
		collections: make(map[string]map[string][]byte),
	}
}

// Name returns the database name.
func (db *DB) Name() string {
	return db.name
}

// Insert stores doc in collection, replacing any document with the same
// identity. A document without an identity is given a fresh uuid string.
// The stored identity is returned.
func (db *DB) Insert(collection string, doc map[string]any) (any, error) {
	if collection == "" {
		return nil, fmt.Errorf("insert into %s: empty collection name", db.name)
	}

	stored := maps.Clone(doc)
	if stored == nil {
		stored = make(map[string]any)
	}

	id, ok := stored[dbref.IDField]
	if !ok || id == nil {
		id = uuid.NewString()
		stored[dbref.IDField] = id
	}

	data, err := msgpack.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document %v for %s.%s: %w", id, db.name, collection, err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	coll, ok := db.collections[collection]
	if !ok {
		coll = make(map[string][]byte)
		db.collections[collection] = coll
	}

	coll[key(id)] = data

	return id, nil
}

// Delete removes the document with the given identity. It reports whether
// anything was removed.
func (db *DB) Delete(collection string, id any) bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	coll, ok := db.collections[collection]
	if !ok {
		return false
	}

	k := key(id)
	if _, ok := coll[k]; !ok {
		return false
	}

	delete(coll, k)

	return true
}

// Find returns a decoded copy of the document, or nil if it does not exist.
func (db *DB) Find(collection string, id any) (map[string]any, error) {
	db.mu.RLock()
	data, ok := db.collections[collection][key(id)]
	db.mu.RUnlock()

	if !ok {
		return nil, nil
	}

	return decode(data)
}

// Resolve implements dbref.Resolver.
func (db *DB) Resolve(ctx context.Context, ref dbref.Ref) (map[string]any, error) {
	db.lookups.Add(1)

	doc, err := db.Find(ref.Collection, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ref, err)
	}

	ctxlog.FromContext(ctx).Debug("Resolved reference", "db", db.name, "ref", ref.String(), "found", doc != nil)

	return doc, nil
}

// Lookups returns how many references have been resolved so far.
func (db *DB) Lookups() int64 {
	return db.lookups.Load()
}

// Collections returns the sorted collection names.
func (db *DB) Collections() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return slices.Sorted(maps.Keys(db.collections))
}

// Count returns the number of documents in collection.
func (db *DB) Count(collection string) int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.collections[collection])
}

func decode(data []byte) (map[string]any, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode stored document: %w", err)
	}

	return doc, nil
}

// key normalizes identities so that e.g. int and int64 7 address the same document.
func key(id any) string {
	return fmt.Sprint(id)
}
