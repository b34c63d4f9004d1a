package engine

import (
	"context"
	"fmt"
	"log/slog"

	"factotum/internal/actions"
	"factotum/internal/expressions"
	"factotum/internal/logging"
	"factotum/pkg/schema"
)

// executor dispatches a step to the handler registered for its action kind
// and normalizes whatever comes back into a Result. It is the failure
// boundary of the engine: unrecognized kinds and handler panics both become
// failed results, so a single step's fault can never crash the run loop.
type executor struct {
	registry *actions.Registry
	logger   *slog.Logger
}

func (e *executor) executeStep(ctx context.Context, step *schema.Step, scope *expressions.RunScope) (result *actions.Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "handler panic recovered", slog.Any("panic", r))
			result = actions.Fail("%s", fmt.Sprint(r))
		}
	}()

	handler, ok := e.registry.Get(step.Action)
	if !ok {
		return actions.Fail("Unknown action: %s", step.Action)
	}

	result = handler.Execute(ctx, step, scope)
	if result == nil {
		return actions.Fail("handler %q returned no result", step.Action)
	}

	if result.Success {
		e.logger.DebugContext(ctx, "step succeeded", slog.String("action", step.Action))
	} else {
		e.logger.DebugContext(ctx, "step failed",
			slog.String("action", step.Action), slog.String("error", result.Err))
	}
	return result
}

// stepRunner exposes the executor as the callback foreach bodies run through.
func (e *executor) stepRunner() actions.StepRunner {
	return func(ctx context.Context, step *schema.Step, scope *expressions.RunScope) *actions.Result {
		ctx = logging.WithStepID(ctx, step.ID)
		return e.executeStep(ctx, step, scope)
	}
}
