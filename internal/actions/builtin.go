package actions

import (
	"time"

	"github.com/spf13/afero"
)

// RegisterBuiltins registers the five builtin action handlers in the given
// registry. The foreach handler delegates nested steps back through run.
func RegisterBuiltins(reg *Registry, fs afero.Fs, commandTimeout time.Duration, run StepRunner) error {
	all := []Handler{
		NewCommandHandler(commandTimeout),
		NewJSONFileHandler(fs),
		&TemplateHandler{},
		&EvaluateHandler{},
		NewForeachHandler(run),
	}

	for _, h := range all {
		if err := reg.Register(h); err != nil {
			return err
		}
	}
	return nil
}
