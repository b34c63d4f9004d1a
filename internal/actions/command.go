package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"factotum/internal/expressions"
	"factotum/pkg/schema"
)

const defaultCommandTimeout = 60 * time.Second

// commandSafeValue is the allow-list for values substituted into command
// templates. Anything outside it (quotes, semicolons, pipes, redirects,
// backticks, dollar signs) could alter the command structure and is rejected.
var commandSafeValue = regexp.MustCompile(`^[A-Za-z0-9 ._:/@+=,\-]*$`)

// CommandHandler executes the az_command action: it resolves the command
// template, runs it through the shell with a bounded timeout, and extracts
// declared outputs from the captured stdout.
type CommandHandler struct {
	Timeout time.Duration
}

// NewCommandHandler creates a CommandHandler. A non-positive timeout falls
// back to the 60s default.
func NewCommandHandler(timeout time.Duration) *CommandHandler {
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	return &CommandHandler{Timeout: timeout}
}

func (h *CommandHandler) Kind() string { return schema.ActionCommand }

func (h *CommandHandler) Execute(ctx context.Context, step *schema.Step, scope *expressions.RunScope) *Result {
	resolved, err := SubstituteCommand(scope, step.Command)
	if err != nil {
		return Fail("%s", err.Error())
	}

	execCtx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "/bin/sh", "-c", resolved)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if execCtx.Err() == context.DeadlineExceeded {
		return Fail("Command timed out")
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return Fail("%s", runErr.Error())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "Command failed with code " + expressions.Stringify(exitErr.ExitCode())
		}
		return Fail("%s", msg)
	}

	data := parseStdout(stdout.String())
	return Succeed(extractOutputs(data, step.Outputs))
}

// parseStdout attempts to parse command output as JSON, falling back to
// trimmed plain text. Empty output yields an empty mapping.
func parseStdout(stdout string) any {
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		return map[string]any{}
	}
	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		return parsed
	}
	return trimmed
}

// extractOutputs binds each declared output name to a slice of the parsed
// command output. Supported paths: "$" (whole value), "$.length" (array
// length, 0 for non-arrays), "$.<key>" (top-level field, or the whole value
// when it is not a mapping). Any other path binds the whole value verbatim —
// only one level of field extraction is supported.
func extractOutputs(data any, defs map[string]string) map[string]any {
	outputs := make(map[string]any, len(defs))
	for name, path := range defs {
		switch {
		case path == "$":
			outputs[name] = data
		case path == "$.length":
			if arr, ok := data.([]any); ok {
				outputs[name] = len(arr)
			} else {
				outputs[name] = 0
			}
		case strings.HasPrefix(path, "$."):
			if m, ok := data.(map[string]any); ok {
				outputs[name] = m[path[2:]]
			} else {
				outputs[name] = data
			}
		default:
			outputs[name] = data
		}
	}
	return outputs
}

// SubstituteCommand resolves ${...} references in a command template. Unlike
// plain substitution, every resolved value must pass the command allow-list:
// a value carrying shell metacharacters fails the step instead of silently
// rewriting the command. Unresolved references stay as literal tokens.
func SubstituteCommand(scope *expressions.RunScope, template string) (string, error) {
	var result strings.Builder
	result.Grow(len(template))

	i := 0
	for i < len(template) {
		idx := strings.Index(template[i:], "${")
		if idx == -1 {
			result.WriteString(template[i:])
			break
		}

		result.WriteString(template[i : i+idx])
		start := i + idx + 2

		end := strings.Index(template[start:], "}")
		if end == -1 {
			result.WriteString(template[i+idx:])
			break
		}
		end += start

		ref := template[start:end]
		value, ok := scope.Lookup(ref)
		if ok && value != nil {
			text := expressions.Stringify(value)
			if !commandSafeValue.MatchString(text) {
				return "", schema.NewErrorf(schema.ErrCodeValidation,
					"value of ${%s} contains characters not allowed in commands", ref)
			}
			result.WriteString(text)
		} else {
			result.WriteString(template[i+idx : end+1])
		}

		i = end + 1
	}

	return result.String(), nil
}
