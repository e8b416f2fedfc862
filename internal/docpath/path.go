// Package docpath builds and parses dotted storage paths such as
// "comments.3.author" and requirement keys such as "comments.$.author".
package docpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Wildcard is the dynamic index marker: any numeric index matches it.
const Wildcard = "$"

// Separator joins path segments.
const Separator = "."

// Segment is one element of a parsed path.
type Segment struct {
	Name       string
	Index      int
	IsIndex    bool
	IsWildcard bool
}

// String returns the segment as it appears in a path.
func (s Segment) String() string {
	switch {
	case s.IsWildcard:
		return Wildcard
	case s.IsIndex:
		return strconv.Itoa(s.Index)
	default:
		return s.Name
	}
}

// Path is a parsed storage path or requirement key.
type Path struct {
	Segments []Segment
}

// String renders the path back into dotted form.
func (p Path) String() string {
	parts := make([]string, len(p.Segments))
	for i, s := range p.Segments {
		parts[i] = s.String()
	}

	return strings.Join(parts, Separator)
}

// HasWildcard reports whether any segment is the dynamic index marker.
func (p Path) HasWildcard() bool {
	for _, s := range p.Segments {
		if s.IsWildcard {
			return true
		}
	}

	return false
}

// Parse parses a dotted path. Supports: "name", "items.3", "items.$.name".
func Parse(path string) (Path, error) {
	if path == "" {
		return Path{}, errors.New("empty path")
	}

	var segments []Segment

	for part := range strings.SplitSeq(path, Separator) {
		if part == "" {
			return Path{}, fmt.Errorf("invalid path %q: empty segment", path)
		}

		if part == Wildcard {
			segments = append(segments, Segment{Name: part, IsWildcard: true})
			continue
		}

		if isDigits(part) {
			idx, err := strconv.Atoi(part)
			if err != nil {
				return Path{}, fmt.Errorf("invalid path %q: index %q: %w", path, part, err)
			}

			segments = append(segments, Segment{Name: part, Index: idx, IsIndex: true})

			continue
		}

		if !isValidIdent(part) {
			return Path{}, fmt.Errorf("invalid path %q: invalid field name %q", path, part)
		}

		segments = append(segments, Segment{Name: part})
	}

	return Path{Segments: segments}, nil
}

// Join appends key to base. An empty base yields key unchanged.
func Join(base, key string) string {
	if base == "" {
		return key
	}

	if key == "" {
		return base
	}

	return base + Separator + key
}

// Index appends a numeric element index to base.
func Index(base string, i int) string {
	return Join(base, strconv.Itoa(i))
}

// ParseIndex parses a set index key. Only non-negative decimal integers are accepted.
func ParseIndex(key string) (int, error) {
	if !isDigits(key) {
		return 0, fmt.Errorf("index must be a non-negative integer, %q given", key)
	}

	return strconv.Atoi(key)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if !isDigit(r) {
			return false
		}
	}

	return true
}

// isValidIdent checks a field name: letters, digits and underscores, not
// starting with a digit. Field names such as "_id" are allowed.
func isValidIdent(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !isLetter(r) && r != '_' {
				return false
			}
		} else if !isLetter(r) && !isDigit(r) && r != '_' {
			return false
		}
	}

	return true
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
