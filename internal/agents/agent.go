package agents

import (
	"context"
	"sort"
)

// Metadata describes an agent to callers: its name, what it does, and a JSON
// Schema for the parameters its Perform accepts.
type Metadata struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Agent is a named capability the assistant can invoke. Perform receives the
// caller's parameters and returns a markdown transcript. Operational failures
// belong in the transcript; an error return means the agent itself could not
// run at all.
type Agent interface {
	Name() string
	Metadata() Metadata
	Perform(ctx context.Context, params map[string]any) (string, error)
}

// Param helpers tolerate the loosely typed parameter maps that arrive over
// the wire.

func stringParam(params map[string]any, key string) string {
	v, _ := params[key].(string)
	return v
}

func boolParam(params map[string]any, key string) bool {
	v, _ := params[key].(bool)
	return v
}

func mapParam(params map[string]any, key string) map[string]any {
	v, _ := params[key].(map[string]any)
	return v
}

func sliceParam(params map[string]any, key string) []any {
	v, _ := params[key].([]any)
	return v
}

func sortedStrings(s []string) []string {
	sort.Strings(s)
	return s
}
