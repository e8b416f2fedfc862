package diagnostic

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docmap/internal/ctxlog"
)

func TestDiagnostics_ErrorJoinsErrorsOnly(t *testing.T) {
	var d Diagnostics
	assert.False(t, d.HasErrors())
	assert.NoError(t, d.Error())

	d.AddWarning("reference_without_collection", "no collection", "Post", "tags.$")
	d.AddInfo("note", "fyi", "", "")
	assert.NoError(t, d.Error())

	d.AddError("unknown_class", `class "Tag" is not registered`, "Post", "tags.$")
	d.AddError("empty_class_name", "class #2 has no name", "", "")

	assert.True(t, d.HasErrors())
	assert.EqualError(t, d.Error(),
		`[Post] tags.$: [unknown_class] class "Tag" is not registered; [empty_class_name] class #2 has no name`)
	assert.Equal(t, []string{"unknown_class", "empty_class_name"}, d.Codes())
}

func TestDiagnostics_Merge(t *testing.T) {
	var a, b Diagnostics

	a.AddError("x", "x", "", "")
	b.AddError("y", "y", "", "")
	b.AddWarning("z", "z", "", "")

	a.Merge(&b)
	a.Merge(nil)

	assert.Equal(t, []string{"x", "y"}, a.Codes())
	assert.Len(t, a.Warnings, 1)
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "info", SeverityInfo.String())
	assert.Equal(t, "warning", SeverityWarning.String())
	assert.Equal(t, "error", SeverityError.String())
	assert.Equal(t, "unknown", Severity(42).String())
}

func TestFromHCL(t *testing.T) {
	subject := &hcl.Range{
		Filename: "blog.hcl",
		Start:    hcl.Pos{Line: 3, Column: 5, Byte: 20},
		End:      hcl.Pos{Line: 3, Column: 11, Byte: 26},
	}

	d := FromHCL(hcl.Diagnostics{
		{Severity: hcl.DiagError, Summary: "Unsupported argument", Detail: `An argument named "colour" is not expected here.`, Subject: subject},
		{Severity: hcl.DiagWarning, Summary: "Deprecated"},
	})

	require.Len(t, d.Errors, 1)
	require.Len(t, d.Warnings, 1)

	assert.Equal(t, "blog.hcl:3,5-11", d.Errors[0].Source)
	assert.Equal(t,
		`blog.hcl:3,5-11: [hcl] Unsupported argument: An argument named "colour" is not expected here.`,
		d.Errors[0].String())
	assert.Equal(t, "[hcl] Deprecated", d.Warnings[0].String())
}

func TestDiagnostics_Log(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	var d Diagnostics
	d.AddError("unknown_class", "not logged", "", "")
	d.AddWarning("wildcard_outside_set", "dynamic index used on a class that is not a set", "Post", "$")
	d.AddInfo("note", "just so you know", "", "")

	d.Log(ctx)

	out := buf.String()
	assert.Contains(t, out, `level=WARN msg="dynamic index used on a class that is not a set" code=wildcard_outside_set class=Post key=$`)
	assert.Contains(t, out, `level=INFO msg="just so you know" code=note`)
	assert.NotContains(t, out, "not logged")
}
