package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"factotum/internal/actions"
	"factotum/internal/expressions"
	"factotum/internal/logging"
	"factotum/pkg/schema"
)

// Config configures an Engine.
type Config struct {
	// Fs is the filesystem used by the update_json_file handler.
	Fs afero.Fs
	// CommandTimeout bounds each az_command execution. Zero means the
	// handler default (60s).
	CommandTimeout time.Duration
	Logger         *slog.Logger
}

// Options tune a single run.
type Options struct {
	// Variables are runtime overrides for declared workflow variables.
	// Names not declared by the document are ignored.
	Variables map[string]any
	// StartFromStep skips every step before the matching step ID.
	StartFromStep string
	// StopAtStep halts the run before the matching step executes.
	StopAtStep string
}

// Engine runs workflow documents. It owns no state between invocations: the
// variable and step-output scopes live for exactly one run. Execution is
// single-threaded and synchronous; foreach bodies run one item at a time in
// source order.
type Engine struct {
	registry *actions.Registry
	exec     *executor
	logger   *slog.Logger
}

// New creates an Engine with the five builtin handlers registered.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := actions.NewRegistry()
	exec := &executor{registry: registry, logger: logger}

	if err := actions.RegisterBuiltins(registry, cfg.Fs, cfg.CommandTimeout, exec.stepRunner()); err != nil {
		return nil, err
	}

	return &Engine{registry: registry, exec: exec, logger: logger}, nil
}

// Run executes the workflow and returns the transcript. Failures are part of
// the transcript, never raised: an aborting step ends the run with the
// transcript accumulated so far.
func (e *Engine) Run(ctx context.Context, wf *schema.Workflow, opts Options) string {
	runID := uuid.New().String()
	ctx = logging.WithRunID(ctx, runID)
	e.logger.InfoContext(ctx, "workflow run starting", slog.String("workflow", wf.Name))

	scope := expressions.NewRunScope()
	seedVariables(scope, wf, opts.Variables)

	var t strings.Builder
	fmt.Fprintf(&t, "# 🚀 Running: %s\n\n", displayName(wf))

	started := opts.StartFromStep == ""

	for i := range wf.Steps {
		step := &wf.Steps[i]
		ordinal := i + 1
		stepID := step.EffectiveID(ordinal)
		stepName := step.DisplayName(ordinal)

		if !started {
			if stepID == opts.StartFromStep {
				started = true
			} else {
				fmt.Fprintf(&t, "⏭️ Skipping: %s\n", stepName)
				continue
			}
		}

		// stop_at_step halts before the matching step runs. This is a clean
		// completion point, not an abort.
		if opts.StopAtStep != "" && stepID == opts.StopAtStep {
			fmt.Fprintf(&t, "\n⏹️ Stopping at: %s\n", stepName)
			break
		}

		fmt.Fprintf(&t, "\n## Step %d: %s\n", ordinal, stepName)

		stepCtx := logging.WithStepID(ctx, stepID)
		result := e.exec.executeStep(stepCtx, step, scope)
		scope.AddStepOutputs(stepID, result.Outputs)

		if result.Success {
			t.WriteString("✅ Success\n")
			writeOutputs(&t, result.Outputs, step.Sensitive)
		} else {
			fmt.Fprintf(&t, "❌ Error: %s\n", result.Err)
			if step.OnError.ShouldAbort() {
				fmt.Fprintf(&t, "\n**Workflow aborted:** %s\n", step.OnError.AbortMessage(result.Err))
				e.logger.WarnContext(stepCtx, "workflow aborted", slog.String("error", result.Err))
				return t.String()
			}
			t.WriteString("   (continuing despite error)\n")
		}

		// Validation conditions run only after a successful step and can
		// independently abort.
		if result.Success && step.Validation != nil {
			resolved := scope.Substitute(step.Validation.Condition)
			if !EvalCondition(resolved) {
				msg := step.Validation.ErrorMessage
				if msg == "" {
					msg = "Validation failed"
				}
				fmt.Fprintf(&t, "⚠️ Validation failed: %s\n", msg)
				if step.Validation.ShouldAbort() {
					return t.String()
				}
			}
		}
	}

	if wf.OnComplete != nil && wf.OnComplete.Action == "return" {
		final := scope.Substitute(wf.OnComplete.Value)
		fmt.Fprintf(&t, "\n---\n\n%s", final)
	}

	e.logger.InfoContext(ctx, "workflow run finished", slog.String("workflow", wf.Name))
	return t.String()
}

// DryRun resolves and prints the would-be operations per step without
// invoking any handler. Step outputs are simulated as <step_id.output>
// placeholders so later steps show their references wired up.
func (e *Engine) DryRun(ctx context.Context, wf *schema.Workflow, variables map[string]any) string {
	scope := expressions.NewRunScope()
	seedVariables(scope, wf, variables)

	var t strings.Builder
	fmt.Fprintf(&t, "# 🔍 Dry Run: %s\n\n", displayName(wf))
	t.WriteString("**This shows what would happen without making changes.**\n\n")

	t.WriteString("## Variables\n")
	vars := scope.Variables()
	for _, name := range sortedKeys(vars) {
		fmt.Fprintf(&t, "- `%s`: %s\n", name, truncate(expressions.Stringify(vars[name]), 50))
	}
	t.WriteString("\n## Execution Plan\n\n")

	for i := range wf.Steps {
		step := &wf.Steps[i]
		ordinal := i + 1
		stepID := step.EffectiveID(ordinal)

		fmt.Fprintf(&t, "### Step %d: %s\n", ordinal, step.DisplayName(ordinal))
		fmt.Fprintf(&t, "- **Action:** `%s`\n", step.Action)

		switch step.Action {
		case schema.ActionCommand:
			fmt.Fprintf(&t, "- **Command:** `%s`\n", scope.Substitute(step.Command))
		case schema.ActionUpdateJSONFile:
			fmt.Fprintf(&t, "- **File:** `%s`\n", scope.Substitute(step.FilePath))
			fmt.Fprintf(&t, "- **Updates:** %s\n", strings.Join(sortedKeys(step.Updates), ", "))
		case schema.ActionTemplate:
			t.WriteString("- **Template:** (generates report)\n")
		}

		if len(step.Outputs) > 0 {
			names := make([]string, 0, len(step.Outputs))
			simulated := make(map[string]any, len(step.Outputs))
			for name := range step.Outputs {
				names = append(names, name)
				simulated[name] = fmt.Sprintf("<%s.%s>", stepID, name)
			}
			sort.Strings(names)
			fmt.Fprintf(&t, "- **Outputs:** %s\n", strings.Join(names, ", "))
			scope.AddStepOutputs(stepID, simulated)
		}

		t.WriteString("\n")
	}

	t.WriteString("---\n")
	t.WriteString("**To execute:** use `action: \"run\"`\n")
	return t.String()
}

// seedVariables initializes the variable scope from declared variables,
// with caller-supplied runtime values taking precedence over defaults.
func seedVariables(scope *expressions.RunScope, wf *schema.Workflow, runtime map[string]any) {
	for name, variable := range wf.Variables {
		if value, ok := runtime[name]; ok {
			scope.SetVariable(name, value)
		} else {
			scope.SetVariable(name, variable.Default())
		}
	}
}

// writeOutputs echoes step outputs into the transcript, masking sensitive
// values. Masked values are still stored in scope at full fidelity; only the
// transcript hides them.
func writeOutputs(t *strings.Builder, outputs map[string]any, sensitive bool) {
	for _, name := range sortedKeys(outputs) {
		display := "********"
		if !sensitive {
			display = truncate(expressions.Stringify(outputs[name]), 100)
		}
		fmt.Fprintf(t, "   - `%s`: %s\n", name, display)
	}
}

func displayName(wf *schema.Workflow) string {
	if wf.Name != "" {
		return wf.Name
	}
	return "Unnamed"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
