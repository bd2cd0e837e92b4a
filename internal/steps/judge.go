package steps

import (
	"strings"

	"github.com/railcar-dev/railcar/pkg/schema"
)

// DefaultPassMarker is the marker agent personas are instructed to end
// with; it is the judge's expectation when a step declares none.
const DefaultPassMarker = "RESULT: PASS"

// judge applies the expected-substring contract: when expect is non-empty
// its presence in output is required; an empty expectation passes anything
// that executed without throwing.
func judge(output, expect string) *schema.RailcarError {
	if expect == "" {
		return nil
	}
	if strings.Contains(output, expect) {
		return nil
	}
	return schema.NewErrorf(schema.ErrCodeExpectation,
		"expected substring %q not found in output", expect)
}

// agentExpectation is what the judge looks for in an agent response.
func agentExpectation(step schema.StepDefinition) string {
	if step.Expect != "" {
		return step.Expect
	}
	return DefaultPassMarker
}

// defence strips one leading/trailing code-fence wrapper (``` with an
// optional language tag) or a single-backtick wrapper from model output,
// so captured text can be consumed by shell steps as-is.
func defence(s string) string {
	t := strings.TrimSpace(s)

	if strings.HasPrefix(t, "```") {
		rest := t[3:]
		// Drop an optional language tag up to the first newline.
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			body := rest[nl+1:]
			if strings.HasSuffix(body, "```") {
				return strings.TrimSpace(strings.TrimSuffix(body, "```"))
			}
		}
		return t
	}

	if len(t) >= 2 && strings.HasPrefix(t, "`") && strings.HasSuffix(t, "`") && !strings.Contains(t[1:len(t)-1], "`") {
		return t[1 : len(t)-1]
	}

	return t
}
