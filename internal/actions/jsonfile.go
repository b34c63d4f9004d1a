package actions

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"factotum/internal/expressions"
	"factotum/pkg/schema"
)

// JSONFileHandler executes the update_json_file action: it loads structured
// content from the resolved file path (or starts from an empty mapping), walks
// or creates intermediate levels for each dotted key path, records the
// pre-update value, writes the resolved new value, and persists the whole
// structure back.
type JSONFileHandler struct {
	fs afero.Fs
}

// NewJSONFileHandler creates a JSONFileHandler over the given filesystem.
func NewJSONFileHandler(fs afero.Fs) *JSONFileHandler {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &JSONFileHandler{fs: fs}
}

func (h *JSONFileHandler) Kind() string { return schema.ActionUpdateJSONFile }

func (h *JSONFileHandler) Execute(_ context.Context, step *schema.Step, scope *expressions.RunScope) *Result {
	path := scope.Substitute(step.FilePath)

	data := map[string]any{}
	exists, err := afero.Exists(h.fs, path)
	if err != nil {
		return Fail("%s", err.Error())
	}
	if exists {
		raw, readErr := afero.ReadFile(h.fs, path)
		if readErr != nil {
			return Fail("%s", readErr.Error())
		}
		if unmarshalErr := json.Unmarshal(raw, &data); unmarshalErr != nil {
			return Fail("%s: %s", path, unmarshalErr.Error())
		}
	}

	outputs := map[string]any{"updated": true}

	// Key paths are applied in sorted order so repeated runs are deterministic.
	keyPaths := make([]string, 0, len(step.Updates))
	for kp := range step.Updates {
		keyPaths = append(keyPaths, kp)
	}
	sort.Strings(keyPaths)

	for _, keyPath := range keyPaths {
		resolved := scope.Substitute(expressions.Stringify(step.Updates[keyPath]))
		keys := strings.Split(keyPath, ".")

		outputs["previous_"+strings.ReplaceAll(keyPath, ".", "_")] = previousValue(data, keys)

		if err := setNested(data, keys, resolved); err != nil {
			return Fail("%s", err.Error())
		}
	}

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return Fail("%s", err.Error())
	}
	if err := afero.WriteFile(h.fs, path, encoded, 0o644); err != nil {
		return Fail("%s", err.Error())
	}

	return Succeed(outputs)
}

// previousValue walks the key path and returns the current leaf value, or nil
// when any level is absent.
func previousValue(data map[string]any, keys []string) any {
	current := any(data)
	for _, k := range keys[:len(keys)-1] {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[k]
	}
	m, ok := current.(map[string]any)
	if !ok {
		return nil
	}
	return m[keys[len(keys)-1]]
}

// setNested writes value at the key path, creating intermediate mappings.
func setNested(data map[string]any, keys []string, value any) error {
	current := data
	for _, k := range keys[:len(keys)-1] {
		next, ok := current[k]
		if !ok {
			created := map[string]any{}
			current[k] = created
			current = created
			continue
		}
		m, isMap := next.(map[string]any)
		if !isMap {
			return schema.NewErrorf(schema.ErrCodeExecution,
				"cannot set %q: %q is not an object", strings.Join(keys, "."), k)
		}
		current = m
	}
	current[keys[len(keys)-1]] = value
	return nil
}
