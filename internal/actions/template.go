package actions

import (
	"context"

	"factotum/internal/expressions"
	"factotum/pkg/schema"
)

// TemplateHandler executes the template action: the template string is
// resolved against the current scope and every declared output name is bound
// to the same resolved text.
type TemplateHandler struct{}

func (h *TemplateHandler) Kind() string { return schema.ActionTemplate }

func (h *TemplateHandler) Execute(_ context.Context, step *schema.Step, scope *expressions.RunScope) *Result {
	resolved := scope.Substitute(step.Template)

	outputs := make(map[string]any, len(step.Outputs))
	for name := range step.Outputs {
		outputs[name] = resolved
	}
	return Succeed(outputs)
}
