package schema

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"docmap/internal/diagnostic"
)

// hclSchemaFile is the top-level structure of an HCL schema file.
type hclSchemaFile struct {
	Version string      `hcl:"version,optional"`
	Classes []*hclClass `hcl:"class,block"`
}

type hclClass struct {
	Name         string            `hcl:"name,label"`
	Collection   string            `hcl:"collection,optional"`
	Kind         string            `hcl:"kind,optional"`
	Requirements []*hclRequirement `hcl:"requirement,block"`
}

type hclRequirement struct {
	Key         string          `hcl:"key,label"`
	Document    string          `hcl:"document,optional"`
	AsReference bool            `hcl:"as_reference,optional"`
	HasID       bool            `hcl:"has_id,optional"`
	Required    bool            `hcl:"required,optional"`
	Validators  []*hclValidator `hcl:"validator,block"`
}

type hclValidator struct {
	Name  string    `hcl:"name,label"`
	Field string    `hcl:"field,optional"`
	Args  []string  `hcl:"args,optional"`
	Value cty.Value `hcl:"value,optional"`
}

// ParseHCL parses HCL data into a File. filename is used in diagnostics only.
func ParseHCL(data []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()

	hclFile, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL schema %s: %w", filename, diagnostic.FromHCL(diags).Error())
	}

	var parsed hclSchemaFile

	diags = gohcl.DecodeBody(hclFile.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL schema %s: %w", filename, diagnostic.FromHCL(diags).Error())
	}

	f := &File{Version: parsed.Version}

	for _, hc := range parsed.Classes {
		def := ClassDef{
			Name:         hc.Name,
			Collection:   hc.Collection,
			Kind:         hc.Kind,
			Requirements: make(map[string]RequirementDef, len(hc.Requirements)),
		}

		for _, hr := range hc.Requirements {
			if _, dup := def.Requirements[hr.Key]; dup {
				return nil, fmt.Errorf("%s: class %q declares requirement %q twice", filename, hc.Name, hr.Key)
			}

			rd := RequirementDef{
				Document:    hr.Document,
				AsReference: hr.AsReference,
				HasID:       hr.HasID,
				Required:    hr.Required,
			}

			for _, hv := range hr.Validators {
				limit, err := ctyInt(hv.Value)
				if err != nil {
					return nil, fmt.Errorf("%s: class %q requirement %q validator %q: %w",
						filename, hc.Name, hr.Key, hv.Name, err)
				}

				rd.Validators = append(rd.Validators, ValidatorDef{
					Name:  hv.Name,
					Field: hv.Field,
					Args:  hv.Args,
					Value: limit,
				})
			}

			def.Requirements[hr.Key] = rd
		}

		f.Classes = append(f.Classes, def)
	}

	applyDefaults(f)

	return f, nil
}

// ctyInt converts an optional numeric attribute. Absent or null yields 0.
func ctyInt(v cty.Value) (int, error) {
	if v.IsNull() {
		return 0, nil
	}

	if !v.IsWhollyKnown() {
		return 0, errors.New("value must be known")
	}

	var n int
	if err := gocty.FromCtyValue(v, &n); err != nil {
		return 0, fmt.Errorf("value must be a whole number: %w", err)
	}

	return n, nil
}
