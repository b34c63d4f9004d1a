package workflow

import (
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"factotum/pkg/schema"
)

// Report is the outcome of validating a workflow document. Errors mean the
// document would not run; warnings flag things worth fixing that the engine
// tolerates.
type Report struct {
	Errors   []string
	Warnings []string
}

// Valid reports whether the document passed without errors.
func (r *Report) Valid() bool { return len(r.Errors) == 0 }

func (r *Report) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validator checks workflow documents before execution. The structural pass
// produces hard errors; the JSON Schema pass is advisory and only contributes
// warnings. Safe for concurrent use.
type Validator struct {
	workflowSchema *jsonschema.Schema
}

// NewValidator creates a Validator with the workflow schema pre-compiled.
func NewValidator() (*Validator, error) {
	compiled, err := compileWorkflowSchema()
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "workflow schema unavailable").WithCause(err)
	}
	return &Validator{workflowSchema: compiled}, nil
}

// Validate runs the structural and advisory checks over a parsed workflow.
func (v *Validator) Validate(wf *schema.Workflow) *Report {
	report := &Report{}
	if wf == nil {
		report.addError("workflow document is nil")
		return report
	}

	if wf.Name == "" {
		report.addWarning("Missing 'name' field")
	}
	if len(wf.Steps) == 0 {
		report.addError("Missing or empty 'steps' array")
	}

	seen := make(map[string]struct{}, len(wf.Steps))
	for i := range wf.Steps {
		step := &wf.Steps[i]
		stepID := step.EffectiveID(i + 1)

		if _, dup := seen[stepID]; dup {
			report.addError("Duplicate step ID: %s", stepID)
		}
		seen[stepID] = struct{}{}

		validateStep(report, step, stepID)
	}

	v.schemaWarnings(report, wf)
	return report
}

// validateStep checks the fields each action kind requires. Unknown action
// kinds fail at execution, not here. ${...} references are not resolvable
// until run time, so they pass untouched, forward references included.
func validateStep(report *Report, step *schema.Step, stepID string) {
	if step.Action == "" {
		report.addError("Step '%s' missing 'action' field", stepID)
		return
	}

	switch step.Action {
	case schema.ActionCommand:
		if step.Command == "" {
			report.addError("Step '%s' (%s) missing 'command' field", stepID, step.Action)
		}
	case schema.ActionUpdateJSONFile:
		if step.FilePath == "" {
			report.addError("Step '%s' (%s) missing 'file_path' field", stepID, step.Action)
		}
		if len(step.Updates) == 0 {
			report.addError("Step '%s' (%s) missing 'updates' field", stepID, step.Action)
		}
	case schema.ActionTemplate:
		if step.Template == "" {
			report.addError("Step '%s' (%s) missing 'template' field", stepID, step.Action)
		}
	case schema.ActionEvaluate:
		if step.Logic == nil {
			report.addError("Step '%s' (%s) missing 'logic' field", stepID, step.Action)
		}
	case schema.ActionForeach:
		if step.Collection == "" {
			report.addError("Step '%s' (%s) missing 'collection' field", stepID, step.Action)
		}
		if len(step.Steps) == 0 {
			report.addError("Step '%s' (%s) missing nested 'steps'", stepID, step.Action)
		}
		for j := range step.Steps {
			nested := &step.Steps[j]
			validateStep(report, nested, nested.EffectiveID(j+1))
		}
	}
}

// schemaWarnings runs the advisory JSON Schema pass. Serialization problems
// and schema violations both become warnings; this pass never blocks a run.
func (v *Validator) schemaWarnings(report *Report, wf *schema.Workflow) {
	doc, err := toJSONValue(wf)
	if err != nil {
		report.addWarning("schema check skipped: %s", err.Error())
		return
	}

	err = v.workflowSchema.Validate(doc)
	if err == nil {
		return
	}

	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		report.addWarning("schema: %s", err.Error())
		return
	}
	for _, violation := range collectViolations(verr) {
		report.addWarning("schema: %s", violation)
	}
}
