package actions

import (
	"context"
	"fmt"
	"strings"

	"factotum/internal/expressions"
	"factotum/pkg/schema"
)

// Handler executes one action kind. Implementations receive the raw step and
// the run scope, resolve whatever parameters they need through the scope, and
// return a uniform result envelope. Handlers never return Go errors: every
// fault is folded into a failed Result so a single step can never crash the
// engine loop.
type Handler interface {
	Kind() string
	Execute(ctx context.Context, step *schema.Step, scope *expressions.RunScope) *Result
}

// Result is the uniform outcome envelope shared by all handlers.
type Result struct {
	Success bool           `json:"success"`
	Outputs map[string]any `json:"outputs,omitempty"`
	Err     string         `json:"error,omitempty"`
}

// Succeed builds a successful result carrying the given outputs.
func Succeed(outputs map[string]any) *Result {
	if outputs == nil {
		outputs = map[string]any{}
	}
	return &Result{Success: true, Outputs: outputs}
}

// Fail builds a failed result with a formatted error message.
func Fail(format string, args ...any) *Result {
	return &Result{Success: false, Err: fmt.Sprintf(format, args...), Outputs: map[string]any{}}
}

// resolveRef resolves a collection/source reference against the scope. The
// reference is normally a bare dotted path ("discover.resources") but a
// ${...}-wrapped form is tolerated.
func resolveRef(scope *expressions.RunScope, ref string) (any, bool) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "${") && strings.HasSuffix(ref, "}") {
		ref = ref[2 : len(ref)-1]
	}
	if ref == "" {
		return nil, false
	}
	return scope.Lookup(ref)
}

// coerceSequence wraps a non-sequence value as a single-element sequence, or
// an empty one when the value is falsy.
func coerceSequence(value any) []any {
	if seq, ok := value.([]any); ok {
		return seq
	}
	if isFalsy(value) {
		return []any{}
	}
	return []any{value}
}

// isFalsy mirrors the document format's notion of emptiness: nil, empty
// string, empty containers, zero, and false are all falsy.
func isFalsy(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case float64:
		return v == 0
	case int:
		return v == 0
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}
