package actions

import (
	"context"
	"strings"

	"factotum/internal/expressions"
	"factotum/pkg/schema"
)

// logicPriorityMatch is the only recognized evaluate logic type.
const logicPriorityMatch = "priority_match"

// EvaluateHandler executes the evaluate action with priority_match logic: it
// scans a source sequence for the first item whose match field contains a
// priority token. The outer loop is priority precedence, the inner loop is
// source order, so an item matching a higher priority wins regardless of its
// position in the source.
type EvaluateHandler struct{}

func (h *EvaluateHandler) Kind() string { return schema.ActionEvaluate }

func (h *EvaluateHandler) Execute(_ context.Context, step *schema.Step, scope *expressions.RunScope) *Result {
	logic := step.Logic
	if logic == nil || logic.Type != logicPriorityMatch {
		logicType := ""
		if logic != nil {
			logicType = logic.Type
		}
		return Fail("Unknown logic type: %s", logicType)
	}

	value, _ := resolveRef(scope, logic.Source)
	source := coerceSequence(value)

	for _, priority := range logic.Priorities {
		for _, item := range source {
			fieldValue, _ := expressions.Nested(item, logic.MatchField)
			if containsFold(expressions.Stringify(fieldValue), priority) {
				outputs := make(map[string]any, len(step.Outputs))
				for name, path := range step.Outputs {
					extracted, _ := expressions.Nested(item, strings.TrimPrefix(path, "$."))
					outputs[name] = extracted
				}
				return Succeed(outputs)
			}
		}
	}

	return Fail("No matching item found")
}

// containsFold reports whether s contains substr, case-insensitively.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
