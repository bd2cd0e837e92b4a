package schema

import (
	"regexp"
	"strconv"
	"time"
)

// PolicyMode is what the runner does after a step's final failed attempt.
type PolicyMode string

const (
	PolicyAbort    PolicyMode = "abort"
	PolicyContinue PolicyMode = "continue"
	PolicyRetry    PolicyMode = "retry"
)

// FailurePolicy is the parsed form of a step's failure_policy string.
// Retry policies still abort the run once attempts are exhausted; only
// "continue" lets the run proceed past a failed step.
type FailurePolicy struct {
	Mode       PolicyMode
	MaxRetries int           // extra attempts beyond the first (retry mode only)
	Delay      time.Duration // base delay between attempts, doubled per retry
}

var retryPolicyRe = regexp.MustCompile(`^retry\(\s*max:\s*(\d+)\s*(?:,\s*delay:\s*([0-9]+(?:\.[0-9]+)?(?:ns|us|µs|ms|s|m|h))\s*)?\)$`)

// DefaultFailurePolicy is applied when a step declares no policy.
var DefaultFailurePolicy = FailurePolicy{Mode: PolicyAbort}

// ParseFailurePolicy parses "abort", "continue", or "retry(max: N[, delay: D])".
// An empty string yields the default (abort).
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "":
		return DefaultFailurePolicy, nil
	case "abort":
		return FailurePolicy{Mode: PolicyAbort}, nil
	case "continue":
		return FailurePolicy{Mode: PolicyContinue}, nil
	}

	m := retryPolicyRe.FindStringSubmatch(s)
	if m == nil {
		return FailurePolicy{}, NewErrorf(ErrCodeValidation, "invalid failure_policy %q", s)
	}

	max, err := strconv.Atoi(m[1])
	if err != nil {
		return FailurePolicy{}, NewErrorf(ErrCodeValidation, "invalid failure_policy %q: %s", s, err.Error())
	}

	policy := FailurePolicy{Mode: PolicyRetry, MaxRetries: max}
	if m[2] != "" {
		d, err := time.ParseDuration(m[2])
		if err != nil {
			return FailurePolicy{}, NewErrorf(ErrCodeValidation, "invalid failure_policy delay %q: %s", m[2], err.Error())
		}
		policy.Delay = d
	}
	return policy, nil
}

// Attempts returns the total number of dispatch attempts the policy allows.
func (p FailurePolicy) Attempts() int {
	if p.Mode == PolicyRetry {
		return p.MaxRetries + 1
	}
	return 1
}

// AbortsRun reports whether a still-failed step terminates the run.
func (p FailurePolicy) AbortsRun() bool {
	return p.Mode != PolicyContinue
}
