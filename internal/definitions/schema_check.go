package definitions

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/railcar-dev/railcar/pkg/schema"
)

// workflowSchemaJSON is the JSON Schema for workflow documents.
// Embedded as a constant to avoid filesystem dependencies.
const workflowSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://railcar.dev/schemas/workflow.json",
  "type": "object",
  "required": ["name", "steps"],
  "properties": {
    "name": {
      "type": "string",
      "minLength": 1
    },
    "description": { "type": "string" },
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": { "$ref": "#/$defs/step" }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "step": {
      "type": "object",
      "required": ["id", "kind"],
      "properties": {
        "id": {
          "type": "string",
          "minLength": 1
        },
        "kind": {
          "type": "string",
          "enum": ["agent", "prompt", "shell"]
        },
        "agent": { "type": "string" },
        "prompt": { "type": "string" },
        "command": { "type": "string" },
        "input": { "type": "string" },
        "capture_as": {
          "type": "string",
          "pattern": "^[A-Za-z0-9_]+$"
        },
        "capture_filter": { "type": "string" },
        "expect": { "type": "string" },
        "failure_policy": {
          "type": "string",
          "pattern": "^(abort|continue|retry\\(\\s*max:\\s*[0-9]+\\s*(,\\s*delay:\\s*[0-9]+(\\.[0-9]+)?(ns|us|µs|ms|s|m|h)\\s*)?\\))$"
        },
        "condition": { "type": "string" },
        "cwd": { "type": "string" },
        "env": {
          "type": "object",
          "additionalProperties": { "type": "string" }
        },
        "description": { "type": "string" }
      },
      "additionalProperties": false
    }
  }
}`

// SchemaValidator validates workflow documents against the embedded JSON
// Schema Draft 2020-12. It is safe for concurrent use after construction.
type SchemaValidator struct {
	workflowSchema *jsonschema.Schema
}

// NewSchemaValidator compiles the embedded workflow schema.
func NewSchemaValidator() (*SchemaValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(workflowSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal workflow schema: %w", err)
	}
	if err := c.AddResource("https://railcar.dev/schemas/workflow.json", schemaDoc); err != nil {
		return nil, fmt.Errorf("add workflow schema resource: %w", err)
	}

	compiled, err := c.Compile("https://railcar.dev/schemas/workflow.json")
	if err != nil {
		return nil, fmt.Errorf("compile workflow schema: %w", err)
	}

	return &SchemaValidator{workflowSchema: compiled}, nil
}

// Validate checks a workflow document against the schema. It accepts
// either the parsed struct or the raw decoded YAML document; validating
// the raw form is what catches unknown fields, since struct decoding
// silently drops them.
func (v *SchemaValidator) Validate(doc any) error {
	if doc == nil {
		return schema.NewError(schema.ErrCodeValidation, "workflow document is empty")
	}

	val, err := toJSONValue(doc)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize workflow document").WithCause(err)
	}

	if err := v.workflowSchema.Validate(val); err != nil {
		return toRailcarError(err)
	}
	return nil
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

// toRailcarError converts a jsonschema.ValidationError into a typed error
// whose message lists the leaf violations with their locations.
func toRailcarError(err error) *schema.RailcarError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}
	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0])
	}
	return schema.NewErrorf(schema.ErrCodeValidation, "validation failed with %d errors: %s",
		len(violations), strings.Join(violations, "; "))
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
