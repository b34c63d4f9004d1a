package expressions

import (
	"strconv"
	"strings"
)

// RunScope holds the two name scopes visible to variable resolution during a
// single workflow run: declared variables and per-step outputs. It is created
// empty at the start of a run and discarded at the end; the engine is strictly
// single-threaded, so no locking is needed.
//
// Resolution order for a reference head is step outputs first, then variables.
type RunScope struct {
	variables   map[string]any
	stepOutputs map[string]map[string]any
}

// NewRunScope creates an empty RunScope.
func NewRunScope() *RunScope {
	return &RunScope{
		variables:   make(map[string]any),
		stepOutputs: make(map[string]map[string]any),
	}
}

// SetVariable binds a variable in the variable scope.
func (s *RunScope) SetVariable(name string, value any) {
	s.variables[name] = value
}

// Variable returns the current value of a variable.
func (s *RunScope) Variable(name string) (any, bool) {
	v, ok := s.variables[name]
	return v, ok
}

// Variables returns a shallow copy of the variable scope, for display.
func (s *RunScope) Variables() map[string]any {
	cp := make(map[string]any, len(s.variables))
	for k, v := range s.variables {
		cp[k] = v
	}
	return cp
}

// AddStepOutputs registers a completed step's outputs under its ID. The
// step-output scope is append-only within a run: the first write for a step ID
// wins, even across repeated executions inside a foreach body.
func (s *RunScope) AddStepOutputs(stepID string, outputs map[string]any) {
	if _, exists := s.stepOutputs[stepID]; exists {
		return
	}
	if outputs == nil {
		outputs = map[string]any{}
	}
	s.stepOutputs[stepID] = outputs
}

// StepOutputs returns the recorded outputs for a step ID.
func (s *RunScope) StepOutputs(stepID string) (map[string]any, bool) {
	out, ok := s.stepOutputs[stepID]
	return out, ok
}

// PushLoopVar binds a foreach loop variable in the variable scope and returns
// a restore function that reinstates the previous binding (or removes it).
// Calling restore after the loop makes loop-variable leakage an explicit
// choice rather than an accident.
func (s *RunScope) PushLoopVar(name string, value any) func() {
	prev, had := s.variables[name]
	s.variables[name] = value
	return func() {
		if had {
			s.variables[name] = prev
		} else {
			delete(s.variables, name)
		}
	}
}

// Lookup resolves a dotted reference like "step_id.output_name" or
// "variable_name.field" against the scope. The head segment is checked against
// step outputs first, then variables. Tail segments are walked through nested
// maps; any miss yields (nil, false) rather than an error — resolution is
// lenient by design.
func (s *RunScope) Lookup(ref string) (any, bool) {
	parts := strings.Split(ref, ".")

	if outputs, ok := s.stepOutputs[parts[0]]; ok {
		return walkMaps(outputs, parts[1:])
	}
	if value, ok := s.variables[parts[0]]; ok {
		if len(parts) == 1 {
			return value, true
		}
		container, isMap := value.(map[string]any)
		if !isMap {
			return nil, false
		}
		return walkMaps(container, parts[1:])
	}
	return nil, false
}

// walkMaps follows key segments through nested maps.
func walkMaps(root map[string]any, segments []string) (any, bool) {
	var current any = root
	for _, seg := range segments {
		m, isMap := current.(map[string]any)
		if !isMap {
			return nil, false
		}
		next, ok := m[seg]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Nested gets a value from an arbitrary object using dot notation. Unlike
// Lookup it starts from a given root rather than the scope, and supports
// numeric indices into slices. Used by the evaluate handler to extract fields
// from matched items. An empty path returns the object itself.
func Nested(obj any, path string) (any, bool) {
	if path == "" {
		return obj, true
	}
	current := obj
	for _, seg := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[seg]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			current = v[idx]
		default:
			return nil, false
		}
	}
	return current, true
}
