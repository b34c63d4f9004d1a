package actions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factotum/internal/expressions"
	"factotum/pkg/schema"
)

func TestTemplateHandler_ResolvesReferences(t *testing.T) {
	scope := expressions.NewRunScope()
	scope.SetVariable("env", "prod")
	scope.AddStepOutputs("deploy", map[string]any{"endpoint": "https://x/"})

	h := &TemplateHandler{}
	step := &schema.Step{
		Action:   schema.ActionTemplate,
		Template: "Deployed to ${env} at ${deploy.endpoint}",
		Outputs:  map[string]string{"report": "", "summary": ""},
	}

	result := h.Execute(context.Background(), step, scope)
	require.True(t, result.Success)
	assert.Equal(t, "Deployed to prod at https://x/", result.Outputs["report"])
	assert.Equal(t, result.Outputs["report"], result.Outputs["summary"], "all outputs bind the same text")
}

func TestTemplateHandler_NoOutputs(t *testing.T) {
	h := &TemplateHandler{}
	step := &schema.Step{Action: schema.ActionTemplate, Template: "static"}

	result := h.Execute(context.Background(), step, expressions.NewRunScope())
	require.True(t, result.Success)
	assert.Empty(t, result.Outputs)
}

func TestRegistry_RegisterAndDispatch(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&TemplateHandler{}))

	h, ok := reg.Get(schema.ActionTemplate)
	require.True(t, ok)
	assert.Equal(t, schema.ActionTemplate, h.Kind())

	_, ok = reg.Get("unknown")
	assert.False(t, ok)
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&TemplateHandler{}))
	assert.Error(t, reg.Register(&TemplateHandler{}))
}

func TestRegisterBuiltins_AllKinds(t *testing.T) {
	reg := NewRegistry()
	run := func(_ context.Context, _ *schema.Step, _ *expressions.RunScope) *Result {
		return Succeed(nil)
	}
	require.NoError(t, RegisterBuiltins(reg, nil, 0, run))

	for _, kind := range schema.ActionKinds() {
		assert.True(t, reg.Has(kind), kind)
	}
}
