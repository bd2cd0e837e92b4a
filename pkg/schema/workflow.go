package schema

import (
	"fmt"
	"strings"
)

// WorkflowDefinition is the parsed form of one pipeline document.
// Definitions are immutable once loaded and re-parsed fresh for each run.
type WorkflowDefinition struct {
	Name        string           `yaml:"name" json:"name"`
	Description string           `yaml:"description,omitempty" json:"description,omitempty"`
	Steps       []StepDefinition `yaml:"steps" json:"steps"`
}

// StepDefinition describes a single step in a workflow.
type StepDefinition struct {
	ID            string            `yaml:"id" json:"id"`
	Kind          StepKind          `yaml:"kind" json:"kind"`
	Agent         string            `yaml:"agent,omitempty" json:"agent,omitempty"`     // persona document name (kind: agent)
	Prompt        string            `yaml:"prompt,omitempty" json:"prompt,omitempty"`   // prompt template name (kind: prompt)
	Command       string            `yaml:"command,omitempty" json:"command,omitempty"` // shell command (kind: shell)
	Input         string            `yaml:"input,omitempty" json:"input,omitempty"`     // built-in source | {{var}} | literal
	CaptureAs     string            `yaml:"capture_as,omitempty" json:"capture_as,omitempty"`
	CaptureFilter string            `yaml:"capture_filter,omitempty" json:"capture_filter,omitempty"` // jq expression applied before capture
	Expect        string            `yaml:"expect,omitempty" json:"expect,omitempty"`                 // required substring for the step to pass
	FailurePolicy string            `yaml:"failure_policy,omitempty" json:"failure_policy,omitempty"` // abort | continue | retry(max: N[, delay: D])
	Condition     string            `yaml:"condition,omitempty" json:"condition,omitempty"`
	Cwd           string            `yaml:"cwd,omitempty" json:"cwd,omitempty"` // working directory for shell steps
	Env           map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Description   string            `yaml:"description,omitempty" json:"description,omitempty"`
}

// StepKind enumerates the kinds of steps in a workflow.
type StepKind string

const (
	StepKindAgent  StepKind = "agent"
	StepKindPrompt StepKind = "prompt"
	StepKindShell  StepKind = "shell"
)

// Validate checks the structural invariants of a definition: a non-empty
// name, at least one step, unique step IDs, a known kind per step with its
// required reference field, and parseable failure policies. Conditions are
// syntax-checked here so broken expressions surface at load time rather
// than as silent skips.
func (d *WorkflowDefinition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return NewError(ErrCodeValidation, "workflow name is required")
	}
	if len(d.Steps) == 0 {
		return NewErrorf(ErrCodeValidation, "workflow %q has no steps", d.Name)
	}

	seen := make(map[string]bool, len(d.Steps))
	for i := range d.Steps {
		step := &d.Steps[i]
		if strings.TrimSpace(step.ID) == "" {
			return NewErrorf(ErrCodeValidation, "workflow %q: step %d has no id", d.Name, i)
		}
		if seen[step.ID] {
			return NewErrorf(ErrCodeValidation, "workflow %q: duplicate step id %q", d.Name, step.ID)
		}
		seen[step.ID] = true

		if err := step.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s *StepDefinition) validate() error {
	switch s.Kind {
	case StepKindAgent:
		if s.Agent == "" {
			return NewErrorf(ErrCodeValidation, "step %q: kind agent requires 'agent'", s.ID).WithStep(s.ID)
		}
	case StepKindPrompt:
		if s.Prompt == "" {
			return NewErrorf(ErrCodeValidation, "step %q: kind prompt requires 'prompt'", s.ID).WithStep(s.ID)
		}
	case StepKindShell:
		if s.Command == "" {
			return NewErrorf(ErrCodeValidation, "step %q: kind shell requires 'command'", s.ID).WithStep(s.ID)
		}
	default:
		return NewErrorf(ErrCodeValidation, "step %q: unknown kind %q", s.ID, s.Kind).WithStep(s.ID)
	}

	if s.FailurePolicy != "" {
		if _, err := ParseFailurePolicy(s.FailurePolicy); err != nil {
			return NewErrorf(ErrCodeValidation, "step %q: %s", s.ID, err.Error()).WithStep(s.ID)
		}
	}
	return nil
}

// String returns a short human-readable identity for log lines.
func (s *StepDefinition) String() string {
	return fmt.Sprintf("%s(%s)", s.ID, s.Kind)
}
