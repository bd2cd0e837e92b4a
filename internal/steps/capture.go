package steps

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/itchyny/gojq"

	"github.com/railcar-dev/railcar/pkg/schema"
)

// captureValue computes what a step stores under its capture_as variable:
// prompt output is de-fenced first, then the optional capture_filter jq
// expression is applied. Filter problems leave the text as-is — capture
// refinement must never turn a passed step into a failed one.
func (d *Dispatcher) captureValue(step schema.StepDefinition, output string) string {
	if step.CaptureAs == "" {
		return ""
	}

	text := output
	if step.Kind == schema.StepKindPrompt {
		text = defence(text)
	}

	if step.CaptureFilter != "" {
		if filtered, err := applyFilter(step.CaptureFilter, text); err == nil {
			text = filtered
		}
	}
	return text
}

// filterCache holds compiled jq programs; capture filters repeat across
// runs of the same workflow.
var filterCache sync.Map // string -> *gojq.Code

// applyFilter runs a jq expression over text. The input is the parsed
// JSON document when text is valid JSON, the raw string otherwise.
// Multiple outputs are joined with newlines; string results are emitted
// without JSON quoting.
func applyFilter(expr, text string) (string, error) {
	code, err := compileFilter(expr)
	if err != nil {
		return "", err
	}

	var input any = text
	if json.Valid([]byte(text)) {
		var parsed any
		if err := json.Unmarshal([]byte(text), &parsed); err == nil {
			input = parsed
		}
	}

	iter := code.Run(input)
	var parts []string
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return "", schema.NewErrorf(schema.ErrCodeExecution,
				"capture_filter %q: %s", expr, err.Error()).WithCause(err)
		}
		parts = append(parts, stringify(v))
	}
	return strings.Join(parts, "\n"), nil
}

func compileFilter(expr string) (*gojq.Code, error) {
	if cached, ok := filterCache.Load(expr); ok {
		return cached.(*gojq.Code), nil
	}

	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"invalid capture_filter %q: %s", expr, err.Error()).WithCause(err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"invalid capture_filter %q: %s", expr, err.Error()).WithCause(err)
	}

	filterCache.Store(expr, code)
	return code, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
