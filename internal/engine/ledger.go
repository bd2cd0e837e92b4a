package engine

import "github.com/railcar-dev/railcar/pkg/schema"

// runLedger holds step results in execution order with by-id lookup. It
// satisfies the condition evaluator's Ledger interface: a step with no
// entry (not yet executed) reads as undefined, so forward references in
// conditions evaluate to false.
type runLedger struct {
	order []string
	byID  map[string]schema.StepResult
}

func newRunLedger() *runLedger {
	return &runLedger{byID: make(map[string]schema.StepResult)}
}

func (l *runLedger) append(r schema.StepResult) {
	if _, seen := l.byID[r.ID]; !seen {
		l.order = append(l.order, r.ID)
	}
	l.byID[r.ID] = r
}

// Step implements conditions.Ledger.
func (l *runLedger) Step(id string) (schema.StepResult, bool) {
	r, ok := l.byID[id]
	return r, ok
}

func (l *runLedger) results() []schema.StepResult {
	out := make([]schema.StepResult, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.byID[id])
	}
	return out
}
