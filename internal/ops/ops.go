// Package ops accumulates pending write operations (update operators keyed by
// storage path) for documents awaiting persistence.
package ops

import (
	"maps"
	"slices"
)

// Operator is a database update operator.
type Operator string

const (
	OpSet   Operator = "$set"
	OpUnset Operator = "$unset"
	OpPush  Operator = "$push"
)

// eachKey wraps multiple pushed values destined for the same path.
const eachKey = "$each"

// Set holds pending operations. The zero value is not usable; call New.
type Set struct {
	entries map[Operator]map[string][]any
}

// New creates an empty operation set.
func New() *Set {
	return &Set{entries: make(map[Operator]map[string][]any)}
}

// Add records an operation. $set and $unset keep the last value per path;
// $push accumulates every value in call order.
func (s *Set) Add(op Operator, path string, value any) {
	byPath, ok := s.entries[op]
	if !ok {
		byPath = make(map[string][]any)
		s.entries[op] = byPath
	}

	if op == OpPush {
		byPath[path] = append(byPath[path], value)
		return
	}

	if op == OpSet {
		// a later $set wins over a pending $unset for the same path
		s.remove(OpUnset, path)
	} else if op == OpUnset {
		s.remove(OpSet, path)
	}

	byPath[path] = []any{value}
}

func (s *Set) remove(op Operator, path string) {
	byPath, ok := s.entries[op]
	if !ok {
		return
	}

	delete(byPath, path)

	if len(byPath) == 0 {
		delete(s.entries, op)
	}
}

// Get returns the value recorded for op at path. Pushed values come back as a
// slice of every value pushed.
func (s *Set) Get(op Operator, path string) (any, bool) {
	values, ok := s.entries[op][path]
	if !ok {
		return nil, false
	}

	if op == OpPush {
		return slices.Clone(values), true
	}

	return values[0], true
}

// Has reports whether any operation targets path.
func (s *Set) Has(op Operator, path string) bool {
	_, ok := s.entries[op][path]
	return ok
}

// Paths returns the sorted paths recorded for op.
func (s *Set) Paths(op Operator) []string {
	return slices.Sorted(maps.Keys(s.entries[op]))
}

// Len returns the total number of (operator, path) entries.
func (s *Set) Len() int {
	n := 0
	for _, byPath := range s.entries {
		n += len(byPath)
	}

	return n
}

// IsEmpty returns true if nothing is pending.
func (s *Set) IsEmpty() bool {
	return s.Len() == 0
}

// Merge copies every entry of other into s.
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}

	for _, op := range other.operators() {
		for _, path := range other.Paths(op) {
			for _, v := range other.entries[op][path] {
				s.Add(op, path, v)
			}
		}
	}
}

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
	out := New()
	out.Merge(s)

	return out
}

// Purge discards every pending operation.
func (s *Set) Purge() {
	clear(s.entries)
}

// Update renders the set as an update document, e.g.
// {"$set": {"a.b": 1}, "$push": {"items": {"$each": [...]}}}.
func (s *Set) Update() map[string]map[string]any {
	out := make(map[string]map[string]any, len(s.entries))

	for op, byPath := range s.entries {
		rendered := make(map[string]any, len(byPath))

		for path, values := range byPath {
			switch {
			case op == OpPush && len(values) > 1:
				rendered[path] = map[string]any{eachKey: slices.Clone(values)}
			default:
				rendered[path] = values[0]
			}
		}

		out[string(op)] = rendered
	}

	return out
}

func (s *Set) operators() []Operator {
	return slices.Sorted(maps.Keys(s.entries))
}
