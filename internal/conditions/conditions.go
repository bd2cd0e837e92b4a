// Package conditions evaluates the restricted boolean expression language
// that gates step execution: terminals steps.<id>.passed / steps.<id>.skipped
// and the literals true/false, combined with &&, ||, ! and parentheses.
//
// Expressions originate from pipeline documents that may not be fully
// trusted, so evaluation is a hand-written recursive-descent parser over
// exactly this grammar — never a general expression engine. Anything
// outside the grammar (or referencing a step with no ledger entry, which
// includes forward references) evaluates to false.
package conditions

import (
	"strings"

	"github.com/railcar-dev/railcar/pkg/schema"
)

// Ledger is the read view of prior step outcomes the evaluator needs.
// Satisfied by the runner's ledger and by plain maps in tests.
type Ledger interface {
	Step(id string) (schema.StepResult, bool)
}

// MapLedger adapts a map of step results to the Ledger interface.
type MapLedger map[string]schema.StepResult

func (m MapLedger) Step(id string) (schema.StepResult, bool) {
	r, ok := m[id]
	return r, ok
}

// Eval evaluates expr against the ledger. A blank expression is true (no
// gate). Any lexical, syntactic, or reference error yields false — a
// malformed condition must never run its step.
func Eval(expr string, ledger Ledger) bool {
	ok, err := EvalStrict(expr, ledger)
	if err != nil {
		return false
	}
	return ok
}

// EvalStrict is Eval with the error surfaced, for load-time syntax checks
// and for progress reporting of why a step was skipped.
func EvalStrict(expr string, ledger Ledger) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true, nil
	}
	if err := checkCharset(expr); err != nil {
		return false, err
	}

	p := &parser{input: expr, ledger: ledger}
	v, err := p.parseOr()
	if err != nil {
		return false, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return false, schema.NewErrorf(schema.ErrCodeValidation,
			"condition %q: unexpected trailing input at offset %d", expr, p.pos)
	}
	return v, nil
}

// checkCharset rejects expressions containing characters the grammar can
// never produce, before any parsing happens.
func checkCharset(expr string) error {
	for _, r := range expr {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-' || r == '.' || r == ' ' || r == '\t':
		case r == '&' || r == '|' || r == '!' || r == '(' || r == ')':
		default:
			return schema.NewErrorf(schema.ErrCodeValidation,
				"condition contains disallowed character %q", r)
		}
	}
	return nil
}

// Grammar:
//
//	or     := and ( "||" and )*
//	and    := unary ( "&&" unary )*
//	unary  := "!" unary | primary
//	primary:= "(" or ")" | "true" | "false" | "steps" "." id "." field
type parser struct {
	input  string
	pos    int
	ledger Ledger
}

func (p *parser) parseOr() (bool, error) {
	left, err := p.parseAnd()
	if err != nil {
		return false, err
	}
	for p.consume("||") {
		right, err := p.parseAnd()
		if err != nil {
			return false, err
		}
		left = left || right
	}
	return left, nil
}

func (p *parser) parseAnd() (bool, error) {
	left, err := p.parseUnary()
	if err != nil {
		return false, err
	}
	for p.consume("&&") {
		right, err := p.parseUnary()
		if err != nil {
			return false, err
		}
		left = left && right
	}
	return left, nil
}

func (p *parser) parseUnary() (bool, error) {
	if p.consume("!") {
		v, err := p.parseUnary()
		if err != nil {
			return false, err
		}
		return !v, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (bool, error) {
	if p.consume("(") {
		v, err := p.parseOr()
		if err != nil {
			return false, err
		}
		if !p.consume(")") {
			return false, schema.NewErrorf(schema.ErrCodeValidation,
				"condition %q: missing closing parenthesis", p.input)
		}
		return v, nil
	}

	word := p.readWord()
	switch {
	case word == "true":
		return true, nil
	case word == "false":
		return false, nil
	case strings.HasPrefix(word, "steps."):
		return p.resolveStepRef(word)
	case word == "":
		return false, schema.NewErrorf(schema.ErrCodeValidation,
			"condition %q: expected term at offset %d", p.input, p.pos)
	default:
		return false, schema.NewErrorf(schema.ErrCodeValidation,
			"condition %q: unknown term %q", p.input, word)
	}
}

// resolveStepRef evaluates steps.<id>.passed or steps.<id>.skipped.
// Step ids may themselves contain dots, so the field is the last segment.
func (p *parser) resolveStepRef(ref string) (bool, error) {
	rest := strings.TrimPrefix(ref, "steps.")
	dot := strings.LastIndex(rest, ".")
	if dot <= 0 {
		return false, schema.NewErrorf(schema.ErrCodeValidation,
			"condition %q: expected steps.<id>.passed or steps.<id>.skipped", ref)
	}
	id, field := rest[:dot], rest[dot+1:]

	result, ok := p.ledger.Step(id)
	if !ok {
		// Undefined or forward reference: false, by contract.
		return false, nil
	}
	switch field {
	case "passed":
		// Skipped steps carry passed=true, so gating on both fields is
		// possible: steps.x.passed && !steps.x.skipped.
		return result.Passed, nil
	case "skipped":
		return result.Skipped, nil
	default:
		return false, schema.NewErrorf(schema.ErrCodeValidation,
			"condition: unknown step field %q (want passed or skipped)", field)
	}
}

// --- lexer helpers ---

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

// consume matches tok at the current position, advancing past it on success.
func (p *parser) consume(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.input[p.pos:], tok) {
		// "!" must not swallow the start of an identifier like "!=" (the
		// charset check already bans '=', but keep the match exact).
		p.pos += len(tok)
		return true
	}
	return false
}

// readWord consumes a run of identifier characters and dots.
func (p *parser) readWord() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
			c == '_' || c == '-' || c == '.' {
			p.pos++
			continue
		}
		break
	}
	return p.input[start:p.pos]
}

// Check verifies expr parses against an empty ledger, without caring about
// its value. Used by the definition loader for load-time validation.
func Check(expr string) error {
	_, err := EvalStrict(expr, MapLedger{})
	return err
}
