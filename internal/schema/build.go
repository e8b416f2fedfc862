package schema

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"docmap/internal/diagnostic"
	"docmap/internal/docpath"
	"docmap/internal/suggest"
	"docmap/internal/validate"
)

type pendingClass struct {
	def   *ClassDef
	class *Class
}

// Build resolves every declared class and registers it in reg. Classes are
// only committed to reg when the returned diagnostics carry no errors.
func (f *File) Build(reg *Registry) *diagnostic.Diagnostics {
	diags := &diagnostic.Diagnostics{}
	if f == nil {
		diags.AddError("schema_is_nil", "schema file is nil", "", "")
		return diags
	}

	if reg == nil {
		diags.AddError("registry_is_nil", "class registry is nil", "", "")
		return diags
	}

	work := &Registry{classes: maps.Clone(reg.classes)}
	pending := make([]pendingClass, 0, len(f.Classes))

	// Register every class first so requirements may refer forward.
	for i := range f.Classes {
		def := &f.Classes[i]
		if def.Name == "" {
			diags.AddError("empty_class_name", fmt.Sprintf("class #%d has no name", i), "", "")
			continue
		}

		kind, err := ParseKind(def.Kind)
		if err != nil {
			diags.AddError("invalid_kind", err.Error(), def.Name, "")
			continue
		}

		class := &Class{Name: def.Name, Collection: def.Collection, Kind: kind, Requirements: Requirements{}}
		if err := work.Register(class); err != nil {
			diags.AddError("duplicate_class", err.Error(), def.Name, "")
			continue
		}

		pending = append(pending, pendingClass{def: def, class: class})
	}

	for _, p := range pending {
		for _, key := range slices.Sorted(maps.Keys(p.def.Requirements)) {
			if _, err := docpath.Parse(key); err != nil {
				diags.AddError("invalid_requirement_key", err.Error(), p.class.Name, key)
				continue
			}

			req, ok := buildRequirement(work, p.class.Name, key, p.def.Requirements[key], diags)
			if ok {
				p.class.Requirements[key] = req
			}
		}

		checkWildcards(p.class, diags)
	}

	if !diags.HasErrors() {
		reg.classes = work.classes
	}

	return diags
}

func buildRequirement(
	reg *Registry, className, key string, def RequirementDef, diags *diagnostic.Diagnostics,
) (Requirement, bool) {
	ok := true
	req := Requirement{
		AsReference: def.AsReference,
		HasID:       def.HasID,
		Required:    def.Required,
	}

	if def.Document != "" {
		class, found := reg.Lookup(def.Document)
		if !found {
			diags.AddError("unknown_class",
				fmt.Sprintf("class %q is not registered%s", def.Document, suggest.Hint(def.Document, reg.Names())),
				className, key)

			ok = false
		}

		req.Class = class
	}

	if req.AsReference && req.Class != nil && !req.Class.HasCollection() {
		diags.AddWarning("reference_without_collection",
			fmt.Sprintf("class %q has no collection; new documents cannot be stored as references", req.Class.Name),
			className, key)
	}

	for _, vd := range def.Validators {
		v, err := validate.Build(validate.Declaration{
			Name:  vd.Name,
			Field: vd.Field,
			Args:  vd.Args,
			Limit: vd.Value,
		})
		if err != nil {
			diags.AddError("invalid_validator", err.Error(), className, key)

			ok = false

			continue
		}

		req.Validators = append(req.Validators, v)
	}

	return req, ok
}

// checkWildcards warns about element schemas that cannot take effect: a "$"
// key whose owner is not a set, or a set whose element class is not a document.
func checkWildcards(class *Class, diags *diagnostic.Diagnostics) {
	for _, key := range class.Requirements.Keys() {
		owner, _, found := strings.Cut(key, docpath.Wildcard)
		if !found {
			continue
		}

		owner = strings.TrimSuffix(owner, docpath.Separator)

		if owner == "" {
			if class.Kind != KindDocumentSet {
				diags.AddWarning("wildcard_outside_set",
					"dynamic index used on a class that is not a set", class.Name, key)
			}
		} else if !strings.Contains(owner, docpath.Wildcard) {
			ownerReq := class.Requirements.Get(owner)
			if ownerReq.Class == nil || ownerReq.Class.Kind != KindDocumentSet {
				diags.AddWarning("wildcard_outside_set",
					fmt.Sprintf("field %q is not declared as a document set", owner), class.Name, key)
			}
		}

		if strings.HasSuffix(key, docpath.Wildcard) {
			elem := class.Requirements.Get(key)
			if elem.Class != nil && elem.Class.Kind == KindDocumentSet && elem.AsReference {
				diags.AddWarning("set_element_reference",
					fmt.Sprintf("elements of class %q are sets and cannot be stored as references", elem.Class.Name), class.Name, key)
			}
		}
	}
}
