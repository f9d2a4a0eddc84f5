package schema_test

import (
	"testing"

	"github.com/orneryd/hyperstore/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccessor struct {
	id, schemaID string
	props        map[string]any
}

func (f *fakeAccessor) ElementID() string       { return f.id }
func (f *fakeAccessor) ElementSchemaID() string { return f.schemaID }
func (f *fakeAccessor) PropertyValue(name string) (any, bool) {
	v, ok := f.props[name]
	return v, ok
}

func TestRunChecks_ErrorFlagReturnsAbortingConstraint(t *testing.T) {
	el := schema.NewElement(schema.Info{ID: "d:Book", SimpleName: "Book", Kind: schema.KindEntity})
	require.NoError(t, el.AddConstraint(schema.Constraint{
		Kind:      schema.Check,
		Property:  "title",
		Message:   "title must not be empty",
		ErrorFlag: true,
		Condition: func(ctx *schema.ConstraintContext) bool {
			v, ok := ctx.Element.PropertyValue("title")
			return ok && v != ""
		},
	}))

	accessor := &fakeAccessor{id: "d:1", schemaID: "d:Book", props: map[string]any{"title": ""}}
	diags := &schema.Diagnostics{}

	aborting := schema.RunChecks(el, accessor, "title", diags)
	require.NotNil(t, aborting)
	assert.Len(t, diags.Entries(), 1)
	assert.Equal(t, "title must not be empty", diags.Entries()[0].Message)
}

func TestRunChecks_NonErrorFlagDoesNotAbort(t *testing.T) {
	el := schema.NewElement(schema.Info{ID: "d:Book", SimpleName: "Book", Kind: schema.KindEntity})
	require.NoError(t, el.AddConstraint(schema.Constraint{
		Kind:     schema.Check,
		Property: "title",
		Condition: func(ctx *schema.ConstraintContext) bool {
			return false
		},
	}))

	accessor := &fakeAccessor{id: "d:1", schemaID: "d:Book"}
	diags := &schema.Diagnostics{}
	aborting := schema.RunChecks(el, accessor, "title", diags)
	assert.Nil(t, aborting)
	assert.Len(t, diags.Entries(), 1)
}

func TestRunValidations_NeverAborts(t *testing.T) {
	el := schema.NewElement(schema.Info{ID: "d:Book", SimpleName: "Book", Kind: schema.KindEntity})
	require.NoError(t, el.AddConstraint(schema.Constraint{
		Kind:      schema.Validate,
		Message:   "isbn should be 13 digits",
		Condition: func(ctx *schema.ConstraintContext) bool { return false },
	}))

	accessor := &fakeAccessor{id: "d:1", schemaID: "d:Book"}
	diags := &schema.Diagnostics{}
	schema.RunValidations(el, accessor, diags)
	require.Len(t, diags.Entries(), 1)
	assert.Equal(t, schema.Validate, diags.Entries()[0].Kind)
}
