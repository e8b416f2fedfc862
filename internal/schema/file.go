package schema

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"docmap/internal/common"
	"docmap/internal/suggest"
	"docmap/internal/validate"
)

// File is the root of a schema declaration file.
type File struct {
	// Version of the schema format (for future compatibility).
	Version string `yaml:"version,omitempty"`

	// Classes declares document classes in dependency-free order; classes may
	// refer to each other regardless of position.
	Classes []ClassDef `yaml:"classes"`
}

// ClassDef declares one document class.
type ClassDef struct {
	Name string `yaml:"name"`

	// Collection is where documents of this class are stored. Leave empty for
	// classes that are only embedded.
	Collection string `yaml:"collection,omitempty"`

	// Kind is "document" (default) or "set".
	Kind string `yaml:"kind,omitempty"`

	// Requirements keyed by field path, see the package documentation.
	Requirements map[string]RequirementDef `yaml:"requirements,omitempty"`
}

// RequirementDef declares the constraints of one requirement key.
// YAML formats supported:
//   - Mapping: {document: Comment, as_reference: true}
//   - Flag list: [Document:Comment, AsReference, HasId, Required]
//   - Single flag: DocumentSet
type RequirementDef struct {
	Document    string         `yaml:"document,omitempty"`
	AsReference bool           `yaml:"as_reference,omitempty"`
	HasID       bool           `yaml:"has_id,omitempty"`
	Required    bool           `yaml:"required,omitempty"`
	Validators  []ValidatorDef `yaml:"validators,omitempty"`
}

// ValidatorDef declares one validator by name.
type ValidatorDef struct {
	Name  string        `yaml:"name"`
	Field string        `yaml:"field,omitempty"`
	Args  StringOrArray `yaml:"args,omitempty"`
	Value int           `yaml:"value,omitempty"`
}

// StringOrArray accepts either a single string or a list of strings.
type StringOrArray []string

// --- StringOrArray YAML methods ---

// UnmarshalYAML implements custom YAML unmarshaling for StringOrArray.
func (s *StringOrArray) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var str string

		err := node.Decode(&str)
		if err != nil {
			return err
		}

		if str != "" {
			*s = StringOrArray{str}
		} else {
			*s = StringOrArray{}
		}

		return nil

	case yaml.SequenceNode:
		var arr []string

		err := node.Decode(&arr)
		if err != nil {
			return err
		}

		*s = arr

		return nil

	default:
		return fmt.Errorf("expected string or array, got %v", node.Kind)
	}
}

// MarshalYAML outputs a single string if length is 1, otherwise an array.
func (s StringOrArray) MarshalYAML() (any, error) {
	if len(s) == 1 {
		return s[0], nil
	}

	return []string(s), nil
}

// First returns the first element or empty string if empty.
func (s StringOrArray) First() string {
	if v, ok := common.First(s); ok {
		return v
	}

	return ""
}

// Contains returns true if the array contains the given string.
func (s StringOrArray) Contains(str string) bool {
	return slices.Contains(s, str)
}

// --- RequirementDef YAML methods ---

// requirementFields mirrors RequirementDef without its UnmarshalYAML method.
type requirementFields RequirementDef

// UnmarshalYAML accepts the mapping form or the flag-list shorthand.
func (r *RequirementDef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		var f requirementFields

		err := node.Decode(&f)
		if err != nil {
			return err
		}

		*r = RequirementDef(f)

		return nil

	case yaml.ScalarNode, yaml.SequenceNode:
		var flags StringOrArray

		err := node.Decode(&flags)
		if err != nil {
			return err
		}

		def, err := parseFlags(flags)
		if err != nil {
			return err
		}

		*r = def

		return nil

	default:
		return fmt.Errorf("expected mapping or flag list, got %v", node.Kind)
	}
}

// knownFlags lists every name accepted in the flag-list shorthand.
func knownFlags() []string {
	return append([]string{"Document", "DocumentSet", "AsReference", "HasId", "Required"}, validate.Names()...)
}

// parseFlags reads the flag-list shorthand, e.g. [Document:Comment, AsReference].
func parseFlags(flags []string) (RequirementDef, error) {
	var def RequirementDef

	for _, flag := range flags {
		name, arg, hasArg := strings.Cut(flag, ":")

		switch strings.ToLower(name) {
		case "document":
			if !hasArg || arg == "" {
				return RequirementDef{}, errors.New("flag 'Document' needs a class name, e.g. Document:Comment")
			}

			def.Document = arg
		case "documentset":
			def.Document = BaseDocumentSet
			if hasArg && arg != "" {
				def.Document = arg
			}
		case "asreference":
			def.AsReference = true
		case "hasid":
			def.HasID = true
		case "required":
			def.Required = true
		default:
			if !validate.Known(name) {
				return RequirementDef{}, fmt.Errorf("unknown requirement flag %q%s", flag, suggest.Hint(name, knownFlags()))
			}

			def.Validators = append(def.Validators, ValidatorDef{Name: name, Args: splitArgs(arg, hasArg)})
		}
	}

	return def, nil
}

func splitArgs(arg string, hasArg bool) StringOrArray {
	if !hasArg || arg == "" {
		return nil
	}

	return strings.Split(arg, ",")
}
