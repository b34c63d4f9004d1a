package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// workflowSchemaJSON is the JSON Schema for workflow documents. Embedded as a
// constant to avoid filesystem dependencies. The schema is deliberately
// permissive about unknown fields: violations it reports are advisory and
// surface as warnings, never as hard errors.
const workflowSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://factotum.dev/schemas/workflow.json",
  "type": "object",
  "required": ["steps"],
  "properties": {
    "name": { "type": "string" },
    "description": { "type": "string" },
    "version": { "type": "string" },
    "author": { "type": "string" },
    "variables": { "type": "object" },
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": { "$ref": "#/$defs/step" }
    },
    "on_complete": {
      "type": "object",
      "properties": {
        "action": { "type": "string" },
        "value": { "type": "string" }
      }
    },
    "on_error": { "type": "object" }
  },
  "$defs": {
    "step": {
      "type": "object",
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "name": { "type": "string" },
        "action": { "type": "string", "minLength": 1 },
        "command": { "type": "string" },
        "file_path": { "type": "string" },
        "updates": { "type": "object" },
        "template": { "type": "string" },
        "logic": { "type": "object" },
        "collection": { "type": "string" },
        "as": { "type": "string" },
        "steps": {
          "type": "array",
          "items": { "$ref": "#/$defs/step" }
        },
        "outputs": {
          "type": "object",
          "additionalProperties": { "type": "string" }
        },
        "sensitive": { "type": "boolean" },
        "validation": {
          "type": "object",
          "properties": {
            "condition": { "type": "string" },
            "error_message": { "type": "string" },
            "abort": { "type": "boolean" }
          }
        },
        "on_error": {
          "type": "object",
          "properties": {
            "abort": { "type": "boolean" },
            "message": { "type": "string" }
          }
        }
      }
    }
  }
}`

func compileWorkflowSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(workflowSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal workflow schema: %w", err)
	}
	if err := c.AddResource("https://factotum.dev/schemas/workflow.json", doc); err != nil {
		return nil, fmt.Errorf("add workflow schema resource: %w", err)
	}

	compiled, err := c.Compile("https://factotum.dev/schemas/workflow.json")
	if err != nil {
		return nil, fmt.Errorf("compile workflow schema: %w", err)
	}
	return compiled, nil
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// collectViolations walks a ValidationError tree and collects leaf error
// messages with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
