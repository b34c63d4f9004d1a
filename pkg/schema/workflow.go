package schema

import (
	"encoding/json"
	"fmt"
)

// Workflow is the JSON-serializable automation playbook format.
// Agents provide one by file name (from the workflows directory) or inline.
type Workflow struct {
	Name        string              `json:"name,omitempty"`
	Description string              `json:"description,omitempty"`
	Version     string              `json:"version,omitempty"`
	Author      string              `json:"author,omitempty"`
	Variables   map[string]Variable `json:"variables,omitempty"`
	Steps       []Step              `json:"steps"`
	OnComplete  *OnComplete         `json:"on_complete,omitempty"`
	OnError     *ErrorPolicy        `json:"on_error,omitempty"`
}

// Action kinds. The set is closed: dispatch is a tagged switch, not duck typing.
// An unrecognized kind is a runtime step failure, never a load error.
const (
	ActionCommand        = "az_command"
	ActionUpdateJSONFile = "update_json_file"
	ActionTemplate       = "template"
	ActionEvaluate       = "evaluate"
	ActionForeach        = "foreach"
)

// ActionKinds lists all recognized action kinds.
func ActionKinds() []string {
	return []string{ActionCommand, ActionUpdateJSONFile, ActionTemplate, ActionEvaluate, ActionForeach}
}

// Step describes a single unit of work in a workflow.
// Beyond the common fields, each action kind reads only its own parameters:
// command (az_command), file_path+updates (update_json_file), template
// (template), logic (evaluate), collection+as+steps (foreach).
type Step struct {
	ID          string            `json:"id,omitempty"`
	Name        string            `json:"name,omitempty"`
	Action      string            `json:"action,omitempty"`
	Description string            `json:"description,omitempty"`
	Command     string            `json:"command,omitempty"`
	FilePath    string            `json:"file_path,omitempty"`
	Updates     map[string]any    `json:"updates,omitempty"`
	Template    string            `json:"template,omitempty"`
	Logic       *Logic            `json:"logic,omitempty"`
	Collection  string            `json:"collection,omitempty"`
	As          string            `json:"as,omitempty"`
	Steps       []Step            `json:"steps,omitempty"`
	Outputs     map[string]string `json:"outputs,omitempty"`
	Sensitive   bool              `json:"sensitive,omitempty"`
	Validation  *Validation       `json:"validation,omitempty"`
	OnError     *ErrorPolicy      `json:"on_error,omitempty"`
}

// EffectiveID returns the step's declared ID, or a positional one
// (step_<ordinal>, 1-based) when none is declared.
func (s *Step) EffectiveID(ordinal int) string {
	if s.ID != "" {
		return s.ID
	}
	return fmt.Sprintf("step_%d", ordinal)
}

// DisplayName returns the human label for the step, defaulting to its ID.
func (s *Step) DisplayName(ordinal int) string {
	if s.Name != "" {
		return s.Name
	}
	return s.EffectiveID(ordinal)
}

// Logic configures the evaluate action. Only priority_match is recognized.
type Logic struct {
	Type       string   `json:"type,omitempty"`
	Source     string   `json:"source,omitempty"`
	Priorities []string `json:"priorities,omitempty"`
	MatchField string   `json:"match_field,omitempty"`
}

// Validation is a post-success check on a step. Abort defaults to true.
type Validation struct {
	Condition    string `json:"condition,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Abort        *bool  `json:"abort,omitempty"`
}

// ShouldAbort reports whether a failed validation terminates the run.
func (v *Validation) ShouldAbort() bool {
	return v == nil || v.Abort == nil || *v.Abort
}

// ErrorPolicy controls abort-vs-continue after a failed step. Abort defaults to true.
type ErrorPolicy struct {
	Abort   *bool  `json:"abort,omitempty"`
	Message string `json:"message,omitempty"`
}

// ShouldAbort reports whether a failure terminates the run. A nil policy aborts.
func (p *ErrorPolicy) ShouldAbort() bool {
	return p == nil || p.Abort == nil || *p.Abort
}

// AbortMessage returns the configured message, or the fallback when unset.
func (p *ErrorPolicy) AbortMessage(fallback string) string {
	if p != nil && p.Message != "" {
		return p.Message
	}
	return fallback
}

// OnComplete is the completion directive, evaluated after the last executed step.
type OnComplete struct {
	Action string `json:"action,omitempty"`
	Value  string `json:"value,omitempty"`
}

// Variable is one entry in the workflow's variables map. A variable may be
// declared either as a bare literal value or as a declaration object
// {type, default, description}; any JSON object is treated as a declaration.
type Variable struct {
	Literal any
	Decl    *VariableDecl
}

// VariableDecl is the long-form variable declaration.
type VariableDecl struct {
	Type        string `json:"type,omitempty"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

// Default returns the variable's starting value: the declaration default, or
// the bare literal.
func (v Variable) Default() any {
	if v.Decl != nil {
		return v.Decl.Default
	}
	return v.Literal
}

// TypeName returns the declared type, or the JSON type name of the literal.
func (v Variable) TypeName() string {
	if v.Decl != nil {
		if v.Decl.Type != "" {
			return v.Decl.Type
		}
		return "any"
	}
	switch v.Literal.(type) {
	case string:
		return "string"
	case float64, json.Number:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case nil:
		return "null"
	default:
		return "any"
	}
}

// Description returns the declared description, or "".
func (v Variable) Description() string {
	if v.Decl != nil {
		return v.Decl.Description
	}
	return ""
}

func (v *Variable) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if _, isObject := raw.(map[string]any); isObject {
		var decl VariableDecl
		if err := json.Unmarshal(data, &decl); err != nil {
			return err
		}
		v.Decl = &decl
		return nil
	}
	v.Literal = raw
	return nil
}

func (v Variable) MarshalJSON() ([]byte, error) {
	if v.Decl != nil {
		return json.Marshal(v.Decl)
	}
	return json.Marshal(v.Literal)
}
