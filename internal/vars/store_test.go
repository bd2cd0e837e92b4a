package vars

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpolate(t *testing.T) {
	s := NewStore()
	s.Set("branch", "main")
	s.Set("remote_url", "git@github.com:acme/app.git")
	s.Set("nested", "outer {{branch}} inner")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no placeholders unchanged", "plain text", "plain text"},
		{"single", "push to {{branch}}", "push to main"},
		{"multiple", "{{branch}} at {{remote_url}}", "main at git@github.com:acme/app.git"},
		{"unset left visible", "value: {{missing}}", "value: {{missing}}"},
		{"mixed", "{{branch}}/{{missing}}", "main/{{missing}}"},
		{"unterminated", "broken {{branch", "broken {{branch"},
		{"whitespace in braces", "{{ branch }}", "main"},
		{"empty braces kept", "{{}}", "{{}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Interpolate(tt.in))
		})
	}
}

func TestInterpolateSinglePass(t *testing.T) {
	// A captured value containing {{...}} must not be re-expanded.
	s := NewStore()
	s.Set("branch", "main")
	s.Set("evil", "{{branch}}")

	assert.Equal(t, "{{branch}}", s.Interpolate("{{evil}}"))
}

func TestIsReference(t *testing.T) {
	name, ok := IsReference("{{diff}}")
	assert.True(t, ok)
	assert.Equal(t, "diff", name)

	name, ok = IsReference("  {{ diff }}  ")
	assert.True(t, ok)
	assert.Equal(t, "diff", name)

	for _, in := range []string{"diff", "{{a}} b", "{{a b}}", "{{}}", "prefix {{a}}"} {
		_, ok := IsReference(in)
		assert.False(t, ok, "input %q", in)
	}
}

func TestStoreLastWriteWins(t *testing.T) {
	s := NewStore()
	s.Set("x", "one")
	s.Set("x", "two")

	v, ok := s.Get("x")
	assert.True(t, ok)
	assert.Equal(t, "two", v)
	assert.Equal(t, []string{"x"}, s.Names())
	assert.Equal(t, 1, s.Len())
}
