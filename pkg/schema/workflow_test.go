package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDefinition() *WorkflowDefinition {
	return &WorkflowDefinition{
		Name: "pre-push",
		Steps: []StepDefinition{
			{ID: "review", Kind: StepKindAgent, Agent: "reviewer"},
			{ID: "push", Kind: StepKindShell, Command: "git push"},
		},
	}
}

func TestValidateAcceptsWellFormedDefinition(t *testing.T) {
	require.NoError(t, validDefinition().Validate())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WorkflowDefinition)
		wantMsg string
	}{
		{"empty name", func(d *WorkflowDefinition) { d.Name = "  " }, "name is required"},
		{"no steps", func(d *WorkflowDefinition) { d.Steps = nil }, "has no steps"},
		{"blank step id", func(d *WorkflowDefinition) { d.Steps[0].ID = "" }, "has no id"},
		{"duplicate step id", func(d *WorkflowDefinition) { d.Steps[1].ID = "review" }, "duplicate step id"},
		{"agent without persona", func(d *WorkflowDefinition) { d.Steps[0].Agent = "" }, "requires 'agent'"},
		{"shell without command", func(d *WorkflowDefinition) { d.Steps[1].Command = "" }, "requires 'command'"},
		{"unknown kind", func(d *WorkflowDefinition) { d.Steps[0].Kind = "cron" }, "unknown kind"},
		{"bad failure policy", func(d *WorkflowDefinition) { d.Steps[1].FailurePolicy = "retry(forever)" }, "failure_policy"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			def := validDefinition()
			tc.mutate(def)

			err := def.Validate()
			require.Error(t, err)
			re, ok := err.(*RailcarError)
			require.True(t, ok)
			assert.Equal(t, ErrCodeValidation, re.Code)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestValidatePromptStepRequiresTemplate(t *testing.T) {
	def := &WorkflowDefinition{
		Name:  "notes",
		Steps: []StepDefinition{{ID: "draft", Kind: StepKindPrompt}},
	}
	err := def.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires 'prompt'")
}

func TestStepString(t *testing.T) {
	s := StepDefinition{ID: "review", Kind: StepKindAgent}
	assert.Equal(t, "review(agent)", s.String())
}

func TestRunResultStepLookup(t *testing.T) {
	r := &RunResult{Steps: []StepResult{
		{ID: "a", Passed: true},
		{ID: "b", Passed: false},
	}}

	got := r.Step("b")
	require.NotNil(t, got)
	assert.False(t, got.Passed)
	assert.Nil(t, r.Step("never-ran"))
}
