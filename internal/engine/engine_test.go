package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factotum/pkg/schema"
)

func newTestEngine(t *testing.T) (*Engine, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	eng, err := New(Config{
		Fs:     fs,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return eng, fs
}

func boolPtr(b bool) *bool { return &b }

func TestEngine_HelloWorld(t *testing.T) {
	eng, _ := newTestEngine(t)

	wf := &schema.Workflow{
		Name: "Greeting",
		Variables: map[string]schema.Variable{
			"name": {Decl: &schema.VariableDecl{Type: "string", Default: "World"}},
		},
		Steps: []schema.Step{
			{
				ID:       "greet",
				Name:     "Build greeting",
				Action:   schema.ActionTemplate,
				Template: "Hello, ${name}!",
				Outputs:  map[string]string{"greeting": ""},
			},
		},
		OnComplete: &schema.OnComplete{Action: "return", Value: "${greet.greeting}"},
	}

	transcript := eng.Run(context.Background(), wf, Options{})
	assert.Contains(t, transcript, "# 🚀 Running: Greeting")
	assert.Contains(t, transcript, "## Step 1: Build greeting")
	assert.Contains(t, transcript, "✅ Success")
	assert.Contains(t, transcript, "Hello, World!")
}

func TestEngine_RuntimeVariableOverride(t *testing.T) {
	eng, _ := newTestEngine(t)

	wf := &schema.Workflow{
		Name: "Override",
		Variables: map[string]schema.Variable{
			"name": {Literal: "default"},
		},
		Steps: []schema.Step{
			{ID: "s1", Action: schema.ActionTemplate, Template: "${name} ${undeclared}", Outputs: map[string]string{"out": ""}},
		},
		OnComplete: &schema.OnComplete{Action: "return", Value: "${s1.out}"},
	}

	transcript := eng.Run(context.Background(), wf, Options{Variables: map[string]any{
		"name":       "overridden",
		"undeclared": "ignored",
	}})
	assert.Contains(t, transcript, "overridden")
	assert.Contains(t, transcript, "${undeclared}", "undeclared overrides are not seeded")
}

func TestEngine_AbortOnFailureByDefault(t *testing.T) {
	eng, _ := newTestEngine(t)

	wf := &schema.Workflow{
		Name: "Abort",
		Steps: []schema.Step{
			{ID: "fail", Action: schema.ActionCommand, Command: "exit 1"},
			{ID: "after", Action: schema.ActionTemplate, Template: "unreachable"},
		},
	}

	transcript := eng.Run(context.Background(), wf, Options{})
	assert.Contains(t, transcript, "❌ Error:")
	assert.Contains(t, transcript, "**Workflow aborted:**")
	assert.NotContains(t, transcript, "Step 2", "steps after an abort never run")
}

func TestEngine_ContinueWhenAbortDisabled(t *testing.T) {
	eng, _ := newTestEngine(t)

	wf := &schema.Workflow{
		Name: "Continue",
		Steps: []schema.Step{
			{
				ID:      "fail",
				Action:  schema.ActionCommand,
				Command: "exit 1",
				OnError: &schema.ErrorPolicy{Abort: boolPtr(false)},
			},
			{ID: "after", Action: schema.ActionTemplate, Template: "ran anyway", Outputs: map[string]string{"out": ""}},
		},
	}

	transcript := eng.Run(context.Background(), wf, Options{})
	assert.Contains(t, transcript, "(continuing despite error)")
	assert.Contains(t, transcript, "## Step 2:")
	assert.Contains(t, transcript, "ran anyway")
}

func TestEngine_CustomAbortMessage(t *testing.T) {
	eng, _ := newTestEngine(t)

	wf := &schema.Workflow{
		Name: "Message",
		Steps: []schema.Step{
			{
				ID:      "fail",
				Action:  schema.ActionCommand,
				Command: "exit 1",
				OnError: &schema.ErrorPolicy{Message: "deployment prerequisites missing"},
			},
		},
	}

	transcript := eng.Run(context.Background(), wf, Options{})
	assert.Contains(t, transcript, "**Workflow aborted:** deployment prerequisites missing")
}

func TestEngine_UnknownActionFailsStep(t *testing.T) {
	eng, _ := newTestEngine(t)

	wf := &schema.Workflow{
		Name:  "Unknown",
		Steps: []schema.Step{{ID: "s1", Action: "teleport"}},
	}

	transcript := eng.Run(context.Background(), wf, Options{})
	assert.Contains(t, transcript, "Unknown action: teleport")
	assert.Contains(t, transcript, "**Workflow aborted:**")
}

func TestEngine_ValidationAborts(t *testing.T) {
	eng, _ := newTestEngine(t)

	wf := &schema.Workflow{
		Name: "Validation",
		Steps: []schema.Step{
			{
				ID:      "count",
				Action:  schema.ActionCommand,
				Command: `echo '[1]'`,
				Outputs: map[string]string{"n": "$.length"},
				Validation: &schema.Validation{
					Condition:    "${count.n} > 5",
					ErrorMessage: "expected more than five items",
				},
			},
			{ID: "after", Action: schema.ActionTemplate, Template: "unreachable"},
		},
	}

	transcript := eng.Run(context.Background(), wf, Options{})
	assert.Contains(t, transcript, "⚠️ Validation failed: expected more than five items")
	assert.NotContains(t, transcript, "Step 2")
}

func TestEngine_ValidationContinuesWhenAbortDisabled(t *testing.T) {
	eng, _ := newTestEngine(t)

	wf := &schema.Workflow{
		Name: "ValidationSoft",
		Steps: []schema.Step{
			{
				ID:      "count",
				Action:  schema.ActionCommand,
				Command: `echo '[1]'`,
				Outputs: map[string]string{"n": "$.length"},
				Validation: &schema.Validation{
					Condition: "${count.n} > 5",
					Abort:     boolPtr(false),
				},
			},
			{ID: "after", Action: schema.ActionTemplate, Template: "still here", Outputs: map[string]string{"out": ""}},
		},
	}

	transcript := eng.Run(context.Background(), wf, Options{})
	assert.Contains(t, transcript, "⚠️ Validation failed:")
	assert.Contains(t, transcript, "still here")
}

func TestEngine_StopAtStepHaltsBefore(t *testing.T) {
	eng, _ := newTestEngine(t)

	wf := &schema.Workflow{
		Name: "Stop",
		Steps: []schema.Step{
			{ID: "first", Action: schema.ActionTemplate, Template: "one", Outputs: map[string]string{"out": ""}},
			{ID: "second", Action: schema.ActionTemplate, Template: "two", Outputs: map[string]string{"out": ""}},
		},
	}

	transcript := eng.Run(context.Background(), wf, Options{StopAtStep: "second"})
	assert.Contains(t, transcript, "## Step 1:")
	assert.Contains(t, transcript, "⏹️ Stopping at:")
	assert.NotContains(t, transcript, "## Step 2:", "stop_at_step halts before the matching step")
}

func TestEngine_StartFromStepSkipsEarlier(t *testing.T) {
	eng, _ := newTestEngine(t)

	wf := &schema.Workflow{
		Name: "Start",
		Steps: []schema.Step{
			{ID: "first", Action: schema.ActionTemplate, Template: "one"},
			{ID: "second", Action: schema.ActionTemplate, Template: "two", Outputs: map[string]string{"out": ""}},
		},
	}

	transcript := eng.Run(context.Background(), wf, Options{StartFromStep: "second"})
	assert.Contains(t, transcript, "⏭️ Skipping:")
	assert.NotContains(t, transcript, "## Step 1:")
	assert.Contains(t, transcript, "## Step 2:")
}

func TestEngine_SensitiveOutputsMaskedButStored(t *testing.T) {
	eng, _ := newTestEngine(t)

	wf := &schema.Workflow{
		Name: "Secrets",
		Steps: []schema.Step{
			{
				ID:        "key",
				Action:    schema.ActionTemplate,
				Template:  "super-secret-key",
				Outputs:   map[string]string{"api_key": ""},
				Sensitive: true,
			},
			{
				ID:       "use",
				Action:   schema.ActionTemplate,
				Template: "using ${key.api_key}",
				Outputs:  map[string]string{"out": ""},
			},
		},
	}

	transcript := eng.Run(context.Background(), wf, Options{})
	assert.Contains(t, transcript, "`api_key`: ********")
	assert.Contains(t, transcript, "using super-secret-key", "masking affects the transcript only")
}

func TestEngine_LongOutputTruncated(t *testing.T) {
	eng, _ := newTestEngine(t)

	long := make([]byte, 150)
	for i := range long {
		long[i] = 'x'
	}

	wf := &schema.Workflow{
		Name: "Truncate",
		Steps: []schema.Step{
			{ID: "s1", Action: schema.ActionTemplate, Template: string(long), Outputs: map[string]string{"out": ""}},
		},
	}

	transcript := eng.Run(context.Background(), wf, Options{})
	assert.Contains(t, transcript, string(long[:100])+"...")
	assert.NotContains(t, transcript, string(long))
}

func TestEngine_ForeachThroughEngine(t *testing.T) {
	eng, _ := newTestEngine(t)

	wf := &schema.Workflow{
		Name: "Loop",
		Variables: map[string]schema.Variable{
			"targets": {Literal: []any{"alpha", "beta"}},
		},
		Steps: []schema.Step{
			{
				ID:         "fan",
				Action:     schema.ActionForeach,
				Collection: "targets",
				As:         "target",
				Steps: []schema.Step{
					{ID: "echo", Action: schema.ActionTemplate, Template: "${target}", Outputs: map[string]string{"value": ""}},
				},
				Outputs: map[string]string{"results": ""},
			},
			{
				ID:       "report",
				Action:   schema.ActionTemplate,
				Template: "collected: ${fan.results}",
				Outputs:  map[string]string{"out": ""},
			},
		},
		OnComplete: &schema.OnComplete{Action: "return", Value: "${report.out}"},
	}

	transcript := eng.Run(context.Background(), wf, Options{})
	assert.Contains(t, transcript, `collected: [{"value":"alpha"},{"value":"beta"}]`)
}

func TestEngine_DryRunResolvesPlan(t *testing.T) {
	eng, _ := newTestEngine(t)

	wf := &schema.Workflow{
		Name: "Plan",
		Variables: map[string]schema.Variable{
			"resource": {Literal: "my-resource"},
		},
		Steps: []schema.Step{
			{
				ID:      "show",
				Action:  schema.ActionCommand,
				Command: "az show --name ${resource}",
				Outputs: map[string]string{"details": "$"},
			},
			{
				ID:       "report",
				Action:   schema.ActionTemplate,
				Template: "${show.details}",
			},
		},
	}

	transcript := eng.DryRun(context.Background(), wf, nil)
	assert.Contains(t, transcript, "# 🔍 Dry Run: Plan")
	assert.Contains(t, transcript, "az show --name my-resource", "commands are resolved in the plan")
	assert.Contains(t, transcript, "`resource`: my-resource")
	assert.Contains(t, transcript, "**Outputs:** details")
	assert.NotContains(t, transcript, "✅ Success", "nothing executes in a dry run")
}
