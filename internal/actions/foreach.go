package actions

import (
	"context"

	"factotum/internal/expressions"
	"factotum/pkg/schema"
)

// defaultLoopVar is the loop variable name when a foreach step omits "as".
const defaultLoopVar = "item"

// StepRunner executes a single step and returns its result envelope. The
// engine injects its step executor here so foreach bodies run through the
// same dispatch and failure boundary as top-level steps.
type StepRunner func(ctx context.Context, step *schema.Step, scope *expressions.RunScope) *Result

// ForeachHandler executes the foreach action: for each item of the resolved
// collection it binds the loop variable, runs the nested steps sequentially,
// and accumulates every successful nested step's outputs into a result list.
// Nested step outputs are not written into the step-output scope; only the
// accumulated list is exposed, through the foreach step's own outputs.
type ForeachHandler struct {
	run StepRunner
}

// NewForeachHandler creates a ForeachHandler delegating nested steps to run.
func NewForeachHandler(run StepRunner) *ForeachHandler {
	return &ForeachHandler{run: run}
}

func (h *ForeachHandler) Kind() string { return schema.ActionForeach }

func (h *ForeachHandler) Execute(ctx context.Context, step *schema.Step, scope *expressions.RunScope) *Result {
	value, _ := resolveRef(scope, step.Collection)
	collection := coerceSequence(value)

	loopVar := step.As
	if loopVar == "" {
		loopVar = defaultLoopVar
	}

	results := make([]any, 0, len(collection))

	for _, item := range collection {
		restore := scope.PushLoopVar(loopVar, item)
		for i := range step.Steps {
			result := h.run(ctx, &step.Steps[i], scope)
			if result.Success {
				results = append(results, result.Outputs)
			}
		}
		restore()
	}

	outputs := make(map[string]any, len(step.Outputs))
	for name, expr := range step.Outputs {
		// The historical format allowed a "flatten" marker in the output
		// expression, but it never flattened anything. The non-behavior is
		// preserved: every output binds the accumulated list as-is.
		_ = expr
		outputs[name] = results
	}
	return Succeed(outputs)
}
