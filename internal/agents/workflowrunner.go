package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"factotum/internal/diagram"
	"factotum/internal/engine"
	"factotum/internal/expressions"
	"factotum/internal/workflow"
	"factotum/pkg/schema"
)

// WorkflowRunner executes JSON automation playbooks: listing, describing,
// validating, dry-running, and running them with variable overrides.
type WorkflowRunner struct {
	loader    *workflow.Loader
	validator *workflow.Validator
	engine    *engine.Engine
	logger    *slog.Logger
}

// NewWorkflowRunner assembles the workflow runner agent.
func NewWorkflowRunner(loader *workflow.Loader, validator *workflow.Validator, eng *engine.Engine, logger *slog.Logger) *WorkflowRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkflowRunner{loader: loader, validator: validator, engine: eng, logger: logger}
}

func (a *WorkflowRunner) Name() string { return "workflowrunner" }

func (a *WorkflowRunner) Metadata() Metadata {
	return Metadata{
		Name: a.Name(),
		Description: `Workflow Runner Agent - Executes structured workflow transcripts.

ACTIONS:
- 'run': Execute a workflow from file or inline JSON
- 'list': List available workflows in the workflows/ directory
- 'validate': Validate a workflow without executing
- 'dry_run': Show what would happen without executing
- 'describe': Show detailed info about a workflow

This agent can run automation playbooks defined as JSON, with full variable substitution and error handling.`,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action": map[string]any{
					"type":        "string",
					"description": "Action to perform",
					"enum":        []string{"run", "list", "validate", "dry_run", "describe"},
				},
				"workflow_name": map[string]any{
					"type":        "string",
					"description": "Name of workflow file (without .json) in the workflows directory",
				},
				"workflow_json": map[string]any{
					"type":        "object",
					"description": "Inline workflow definition (alternative to workflow_name)",
				},
				"variables": map[string]any{
					"type":        "object",
					"description": "Runtime variable overrides, e.g., {'function_app_name': 'my-app'}",
				},
				"start_from_step": map[string]any{
					"type":        "string",
					"description": "Step ID to start from (skip earlier steps)",
				},
				"stop_at_step": map[string]any{
					"type":        "string",
					"description": "Step ID to stop at (skip later steps)",
				},
			},
			"required": []string{"action"},
		},
	}
}

func (a *WorkflowRunner) Perform(ctx context.Context, params map[string]any) (string, error) {
	action := stringParam(params, "action")
	if action == "" {
		action = "list"
	}

	switch action {
	case "list":
		return a.list()
	case "describe":
		return a.describe(params)
	case "validate":
		return a.validate(params)
	case "dry_run":
		return a.dryRun(ctx, params)
	case "run":
		return a.run(ctx, params)
	default:
		return fmt.Sprintf("Unknown action: %s", action), nil
	}
}

// load resolves the workflow from workflow_json or workflow_name.
func (a *WorkflowRunner) load(params map[string]any) (*schema.Workflow, error) {
	if inline := mapParam(params, "workflow_json"); inline != nil {
		return a.loader.LoadInline(inline)
	}
	name := stringParam(params, "workflow_name")
	if name == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "workflow_name or workflow_json required")
	}
	return a.loader.Load(name)
}

func (a *WorkflowRunner) list() (string, error) {
	summaries, err := a.loader.List()
	if err != nil {
		return "", err
	}
	if len(summaries) == 0 {
		return fmt.Sprintf("No workflows found in %s/", a.loader.Dir()), nil
	}

	var b strings.Builder
	b.WriteString("# 📋 Available Workflows\n\n")
	for _, s := range summaries {
		if s.ReadError {
			fmt.Fprintf(&b, "### %s (error reading)\n\n", s.File)
			continue
		}
		fmt.Fprintf(&b, "### %s\n", s.File)
		fmt.Fprintf(&b, "- **Name:** %s\n", s.Name)
		fmt.Fprintf(&b, "- **Description:** %s\n", s.Description)
		fmt.Fprintf(&b, "- **Steps:** %d\n\n", s.StepCount)
	}
	b.WriteString("\n**Run a workflow:**\n")
	b.WriteString("```\naction: \"run\"\nworkflow_name: \"iq_boost_workflow\"\n```")
	return b.String(), nil
}

func (a *WorkflowRunner) describe(params map[string]any) (string, error) {
	wf, err := a.load(params)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# 📖 Workflow: %s\n\n", orDefault(wf.Name, "Unnamed"))
	fmt.Fprintf(&b, "**Description:** %s\n", orDefault(wf.Description, "No description"))
	fmt.Fprintf(&b, "**Version:** %s\n", orDefault(wf.Version, "N/A"))
	fmt.Fprintf(&b, "**Author:** %s\n\n", orDefault(wf.Author, "Unknown"))

	if len(wf.Variables) > 0 {
		b.WriteString("## Variables\n\n")
		b.WriteString(variableTable(wf.Variables))
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "## Steps (%d)\n\n", len(wf.Steps))
	for i := range wf.Steps {
		step := &wf.Steps[i]
		ordinal := i + 1
		fmt.Fprintf(&b, "### %d. %s\n", ordinal, step.DisplayName(ordinal))
		fmt.Fprintf(&b, "- **ID:** `%s`\n", step.EffectiveID(ordinal))
		fmt.Fprintf(&b, "- **Action:** `%s`\n", orDefault(step.Action, "unknown"))
		if step.Description != "" {
			fmt.Fprintf(&b, "- **Description:** %s\n", clip(step.Description, 60))
		}
		if len(step.Outputs) > 0 {
			names := make([]string, 0, len(step.Outputs))
			for name := range step.Outputs {
				names = append(names, name)
			}
			fmt.Fprintf(&b, "- **Outputs:** %s\n", strings.Join(sortedStrings(names), ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Flow\n\n```mermaid\n")
	b.WriteString(diagram.RenderMermaid(wf))
	b.WriteString("```\n")
	return b.String(), nil
}

// variableTable renders the declared variables as a markdown table.
func variableTable(variables map[string]schema.Variable) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Name", "Type", "Default", "Description"})

	names := make([]string, 0, len(variables))
	for name := range variables {
		names = append(names, name)
	}
	for _, name := range sortedStrings(names) {
		v := variables[name]
		t.AppendRow(table.Row{
			name,
			v.TypeName(),
			clip(expressions.Stringify(v.Default()), 30),
			clip(v.Description(), 40),
		})
	}
	return t.RenderMarkdown()
}

func (a *WorkflowRunner) validate(params map[string]any) (string, error) {
	wf, err := a.load(params)
	if err != nil {
		return "", err
	}

	report := a.validator.Validate(wf)

	var b strings.Builder
	fmt.Fprintf(&b, "# ✅ Workflow Validation: %s\n\n", orDefault(wf.Name, "Unnamed"))

	if len(report.Errors) > 0 {
		b.WriteString("## ❌ Errors\n")
		for _, e := range report.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
		b.WriteString("\n")
	}
	if len(report.Warnings) > 0 {
		b.WriteString("## ⚠️ Warnings\n")
		for _, w := range report.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}

	switch {
	case report.Valid() && len(report.Warnings) == 0:
		b.WriteString("✅ Workflow is valid!\n\n")
	case report.Valid():
		b.WriteString("✅ Workflow is valid (with warnings)\n\n")
	default:
		b.WriteString("❌ Workflow has errors\n\n")
	}

	fmt.Fprintf(&b, "**Steps:** %d\n", len(wf.Steps))
	fmt.Fprintf(&b, "**Variables:** %d\n", len(wf.Variables))
	return b.String(), nil
}

func (a *WorkflowRunner) dryRun(ctx context.Context, params map[string]any) (string, error) {
	wf, err := a.load(params)
	if err != nil {
		return "", err
	}
	return a.engine.DryRun(ctx, wf, mapParam(params, "variables")), nil
}

func (a *WorkflowRunner) run(ctx context.Context, params map[string]any) (string, error) {
	wf, err := a.load(params)
	if err != nil {
		return "", err
	}

	opts := engine.Options{
		Variables:     mapParam(params, "variables"),
		StartFromStep: stringParam(params, "start_from_step"),
		StopAtStep:    stringParam(params, "stop_at_step"),
	}
	return a.engine.Run(ctx, wf, opts), nil
}

func orDefault(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
