// Package validate implements the validator service used to gate values
// assigned into documents and document sets.
package validate

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"
)

// Subject is what document validators inspect. Documents implement it.
type Subject interface {
	ClassName() string
	Field(name string) (any, bool)
}

// Validator checks a single value and returns one message per problem found.
type Validator interface {
	Name() string
	Validate(v any) []string
}

// Chain runs validators in order and keeps the messages of the last run.
type Chain struct {
	validators []Validator
	messages   []string
}

// NewChain creates a chain from the given validators.
func NewChain(validators ...Validator) *Chain {
	return &Chain{validators: slices.Clone(validators)}
}

// Add appends a validator.
func (c *Chain) Add(v Validator) {
	c.validators = append(c.validators, v)
}

// Len returns the number of validators in the chain.
func (c *Chain) Len() int {
	return len(c.validators)
}

// IsValid runs every validator, collecting all messages rather than stopping
// at the first failure.
func (c *Chain) IsValid(v any) bool {
	c.messages = c.messages[:0]

	for _, val := range c.validators {
		c.messages = append(c.messages, val.Validate(v)...)
	}

	return len(c.messages) == 0
}

// Messages returns the messages from the most recent IsValid call.
func (c *Chain) Messages() []string {
	return slices.Clone(c.messages)
}

// Declaration describes a validator by name, as declared in a schema file.
type Declaration struct {
	Name  string
	Field string
	Args  []string
	Limit int
}

// Builder constructs a validator from its declaration.
type Builder func(decl Declaration) (Validator, error)

var builders = map[string]Builder{
	"required": func(d Declaration) (Validator, error) {
		fields := d.Args
		if d.Field != "" {
			fields = append([]string{d.Field}, fields...)
		}

		if len(fields) == 0 {
			return nil, fmt.Errorf("validator %q needs at least one field", d.Name)
		}

		return Required(fields...), nil
	},
	"class": func(d Declaration) (Validator, error) {
		if len(d.Args) == 0 {
			return nil, fmt.Errorf("validator %q needs at least one class name", d.Name)
		}

		return Class(d.Args...), nil
	},
	"maxlen": func(d Declaration) (Validator, error) {
		if d.Field == "" || d.Limit < 0 {
			return nil, fmt.Errorf("validator %q needs a field and a non-negative value", d.Name)
		}

		return MaxLen(d.Field, d.Limit), nil
	},
	"minlen": func(d Declaration) (Validator, error) {
		if d.Field == "" || d.Limit < 0 {
			return nil, fmt.Errorf("validator %q needs a field and a non-negative value", d.Name)
		}

		return MinLen(d.Field, d.Limit), nil
	},
	"oneof": func(d Declaration) (Validator, error) {
		if d.Field == "" || len(d.Args) == 0 {
			return nil, fmt.Errorf("validator %q needs a field and allowed values", d.Name)
		}

		return OneOf(d.Field, d.Args...), nil
	},
}

// Build constructs a validator from a declaration.
func Build(decl Declaration) (Validator, error) {
	b, ok := builders[strings.ToLower(decl.Name)]
	if !ok {
		return nil, fmt.Errorf("unknown validator %q", decl.Name)
	}

	return b(decl)
}

// Known reports whether a validator name can be built.
func Known(name string) bool {
	_, ok := builders[strings.ToLower(name)]
	return ok
}

// Names returns the names of the built-in validators, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(builders))
}

// Func adapts a function into a Validator.
func Func(name string, fn func(v any) []string) Validator {
	return funcValidator{name: name, fn: fn}
}

type funcValidator struct {
	name string
	fn   func(v any) []string
}

func (f funcValidator) Name() string            { return f.name }
func (f funcValidator) Validate(v any) []string { return f.fn(v) }

// Required checks that each named field is present and non-nil.
func Required(fields ...string) Validator {
	return Func("required", func(v any) []string {
		s, ok := v.(Subject)
		if !ok {
			return []string{fmt.Sprintf("expected a document, got %T", v)}
		}

		var msgs []string

		for _, f := range fields {
			if val, ok := s.Field(f); !ok || val == nil {
				msgs = append(msgs, fmt.Sprintf("field %q is required", f))
			}
		}

		return msgs
	})
}

// Class checks the document's class name against the allowed names.
func Class(names ...string) Validator {
	return Func("class", func(v any) []string {
		s, ok := v.(Subject)
		if !ok {
			return []string{fmt.Sprintf("expected a document, got %T", v)}
		}

		if slices.Contains(names, s.ClassName()) {
			return nil
		}

		return []string{fmt.Sprintf("document of class %q is not a %s", s.ClassName(), strings.Join(names, " or "))}
	})
}

// MaxLen limits the rune length of a string field. Absent fields pass.
func MaxLen(field string, limit int) Validator {
	return stringField("maxlen", field, func(s string) string {
		if n := utf8.RuneCountInString(s); n > limit {
			return fmt.Sprintf("field %q is %d characters long, at most %d allowed", field, n, limit)
		}

		return ""
	})
}

// MinLen requires a minimum rune length of a string field. Absent fields pass.
func MinLen(field string, limit int) Validator {
	return stringField("minlen", field, func(s string) string {
		if n := utf8.RuneCountInString(s); n < limit {
			return fmt.Sprintf("field %q is %d characters long, at least %d required", field, n, limit)
		}

		return ""
	})
}

// OneOf restricts a string field to the allowed values. Absent fields pass.
func OneOf(field string, allowed ...string) Validator {
	return stringField("oneof", field, func(s string) string {
		if slices.Contains(allowed, s) {
			return ""
		}

		return fmt.Sprintf("field %q must be one of %s, got %q", field, strings.Join(allowed, ", "), s)
	})
}

func stringField(name, field string, check func(string) string) Validator {
	return Func(name, func(v any) []string {
		s, ok := v.(Subject)
		if !ok {
			return []string{fmt.Sprintf("expected a document, got %T", v)}
		}

		raw, ok := s.Field(field)
		if !ok || raw == nil {
			return nil
		}

		str, ok := raw.(string)
		if !ok {
			return []string{fmt.Sprintf("field %q must be a string, got %T", field, raw)}
		}

		if msg := check(str); msg != "" {
			return []string{msg}
		}

		return nil
	})
}
