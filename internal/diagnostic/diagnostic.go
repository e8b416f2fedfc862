package diagnostic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hashicorp/hcl/v2"

	"docmap/internal/common"
	"docmap/internal/ctxlog"
)

// Severity ranks a diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return common.UnknownStr
	}
}

// Diagnostic is a single problem found in a schema.
type Diagnostic struct {
	Severity Severity
	// Code identifies the kind of problem, e.g. "unknown_class".
	Code    string
	Message string
	// Class and Key locate the problem in the schema, when known.
	Class string
	Key   string
	// Source is a file position such as "blog.hcl:3,5-9", when known.
	Source string
}

// String renders the diagnostic as "source: [Class] key: [code] message".
func (d Diagnostic) String() string {
	var b strings.Builder

	if d.Source != "" {
		b.WriteString(d.Source)
		b.WriteString(": ")
	}

	if d.Class != "" {
		fmt.Fprintf(&b, "[%s] ", d.Class)
	}

	if d.Key != "" {
		b.WriteString(d.Key)
		b.WriteString(": ")
	}

	if d.Code != "" {
		fmt.Fprintf(&b, "[%s] ", d.Code)
	}

	b.WriteString(d.Message)

	return b.String()
}

// Diagnostics groups diagnostics by severity, each in the order reported.
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
	Infos    []Diagnostic
}

// Add records diag under its severity.
func (d *Diagnostics) Add(diag Diagnostic) {
	switch diag.Severity {
	case SeverityError:
		d.Errors = append(d.Errors, diag)
	case SeverityWarning:
		d.Warnings = append(d.Warnings, diag)
	default:
		d.Infos = append(d.Infos, diag)
	}
}

// AddError reports a problem that prevents the schema from loading.
func (d *Diagnostics) AddError(code, message, class, key string) {
	d.Add(Diagnostic{Severity: SeverityError, Code: code, Message: message, Class: class, Key: key})
}

// AddWarning reports a declaration that loads but will not behave as written.
func (d *Diagnostics) AddWarning(code, message, class, key string) {
	d.Add(Diagnostic{Severity: SeverityWarning, Code: code, Message: message, Class: class, Key: key})
}

// AddInfo reports a note.
func (d *Diagnostics) AddInfo(code, message, class, key string) {
	d.Add(Diagnostic{Severity: SeverityInfo, Code: code, Message: message, Class: class, Key: key})
}

// HasErrors reports whether any error was recorded.
func (d *Diagnostics) HasErrors() bool {
	return len(d.Errors) > 0
}

// Merge appends every diagnostic of other.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if other == nil {
		return
	}

	d.Errors = append(d.Errors, other.Errors...)
	d.Warnings = append(d.Warnings, other.Warnings...)
	d.Infos = append(d.Infos, other.Infos...)
}

// Error joins the errors into one, or returns nil when there are none.
func (d *Diagnostics) Error() error {
	if !d.HasErrors() {
		return nil
	}

	parts := make([]string, len(d.Errors))
	for i, e := range d.Errors {
		parts[i] = e.String()
	}

	return errors.New(strings.Join(parts, "; "))
}

// Codes returns the error codes in the order reported.
func (d *Diagnostics) Codes() []string {
	codes := make([]string, len(d.Errors))
	for i, e := range d.Errors {
		codes[i] = e.Code
	}

	return codes
}

// Log writes warnings and infos to the context logger. Errors are left to
// the caller, which gets them from Error.
func (d *Diagnostics) Log(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)

	for _, group := range []struct {
		level slog.Level
		diags []Diagnostic
	}{
		{slog.LevelWarn, d.Warnings},
		{slog.LevelInfo, d.Infos},
	} {
		for _, diag := range group.diags {
			logger.Log(ctx, group.level, diag.Message,
				"code", diag.Code, "class", diag.Class, "key", diag.Key, "source", diag.Source)
		}
	}
}

// FromHCL converts diagnostics reported by the HCL parser and decoder.
func FromHCL(diags hcl.Diagnostics) *Diagnostics {
	out := &Diagnostics{}

	for _, hd := range diags {
		sev := SeverityWarning
		if hd.Severity == hcl.DiagError {
			sev = SeverityError
		}

		msg := hd.Summary
		if hd.Detail != "" {
			msg += ": " + hd.Detail
		}

		diag := Diagnostic{Severity: sev, Code: "hcl", Message: msg}
		if hd.Subject != nil {
			diag.Source = hd.Subject.String()
		}

		out.Add(diag)
	}

	return out
}
