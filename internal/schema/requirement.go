package schema

import (
	"maps"
	"slices"
	"strings"

	"docmap/internal/validate"
)

// Requirement is the set of constraints declared for one key.
type Requirement struct {
	// Class is the declared document class, nil when undeclared.
	Class *Class
	// AsReference stores the value as a reference into Class's collection.
	AsReference bool
	// HasID marks documents that carry their own identity field.
	HasID bool
	// Required fails document validation when the field is absent.
	Required bool
	// Validators run against values assigned to the key.
	Validators []validate.Validator
}

// IsZero reports whether nothing was declared.
func (r Requirement) IsZero() bool {
	return r.Class == nil && !r.AsReference && !r.HasID && !r.Required && len(r.Validators) == 0
}

// merge overlays o on r: a declared class wins, flags accumulate, validators append.
func (r Requirement) merge(o Requirement) Requirement {
	if o.Class != nil {
		r.Class = o.Class
	}

	r.AsReference = r.AsReference || o.AsReference
	r.HasID = r.HasID || o.HasID
	r.Required = r.Required || o.Required
	r.Validators = append(slices.Clone(r.Validators), o.Validators...)

	return r
}

// Requirements maps requirement keys to their constraints.
type Requirements map[string]Requirement

// Get returns the requirement for key, or the zero Requirement.
func (r Requirements) Get(key string) Requirement {
	return r[key]
}

// Keys returns the declared keys, sorted.
func (r Requirements) Keys() []string {
	return slices.Sorted(maps.Keys(r))
}

// Scoped returns the requirements under prefix with the prefix stripped.
// Scoped("comments.") turns "comments.$.body" into "$.body".
func (r Requirements) Scoped(prefix string) Requirements {
	out := Requirements{}

	for key, req := range r {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok || rest == "" {
			continue
		}

		out[rest] = req
	}

	return out
}

// Merge returns a new set with other overlaid on r.
func (r Requirements) Merge(other Requirements) Requirements {
	out := maps.Clone(r)
	if out == nil {
		out = Requirements{}
	}

	for key, req := range other {
		out[key] = out[key].merge(req)
	}

	return out
}

// Validators builds the validator chain for key. A declared document class
// other than the base class contributes a class check.
func (r Requirements) Validators(key string) *validate.Chain {
	req := r.Get(key)
	chain := validate.NewChain()

	if req.Class != nil && req.Class.Name != BaseDocument && req.Class.IsDocument() {
		chain.Add(validate.Class(req.Class.Name))
	}

	for _, v := range req.Validators {
		chain.Add(v)
	}

	return chain
}
