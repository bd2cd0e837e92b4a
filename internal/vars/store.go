// Package vars holds the run-scoped variable store used for output capture
// and {{name}} interpolation across steps.
package vars

import (
	"sort"
	"strings"
)

// Built-in variable names seeded at run start from repository context.
const (
	VarRemoteURL   = "remote_url"
	VarBranch      = "branch"
	VarPlatform    = "platform"
	VarPushCommand = "push_command"
	VarRecentLog   = "recent_log"
)

// Store is a key→string mapping owned by exactly one in-flight run.
// Keys are unique; last write wins. Not safe for concurrent use — the
// runner executes steps strictly in sequence.
type Store struct {
	values map[string]string
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

// Set stores a value under name, replacing any previous value.
func (s *Store) Set(name, value string) {
	s.values[name] = value
}

// Get returns the value for name and whether it is set.
func (s *Store) Get(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Names returns the set variable names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of stored variables.
func (s *Store) Len() int { return len(s.values) }

// Interpolate replaces every {{identifier}} occurrence in text with the
// store's current value. Unset identifiers are left as-is so a
// misconfigured pipeline shows its placeholders instead of silently
// blanking them. Substitution is single-pass: values containing {{...}}
// are never re-expanded.
func (s *Store) Interpolate(text string) string {
	if !strings.Contains(text, "{{") {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	i := 0
	for i < len(text) {
		open := strings.Index(text[i:], "{{")
		if open == -1 {
			b.WriteString(text[i:])
			break
		}
		open += i

		close := strings.Index(text[open+2:], "}}")
		if close == -1 {
			b.WriteString(text[i:])
			break
		}
		close += open + 2

		name := strings.TrimSpace(text[open+2 : close])
		if val, ok := s.values[name]; ok && isIdentifier(name) {
			b.WriteString(text[i:open])
			b.WriteString(val)
		} else {
			// Unknown variable or malformed name: keep the raw token.
			b.WriteString(text[i : close+2])
		}
		i = close + 2
	}

	return b.String()
}

// IsReference reports whether text is exactly one {{name}} token, and
// returns the referenced name.
func IsReference(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "{{") || !strings.HasSuffix(t, "}}") {
		return "", false
	}
	name := strings.TrimSpace(t[2 : len(t)-2])
	if !isIdentifier(name) {
		return "", false
	}
	return name, true
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}
