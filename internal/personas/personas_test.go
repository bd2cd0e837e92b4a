package personas

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWithFrontMatter(t *testing.T) {
	doc := Parse("reviewer", "---\nmodel: sonnet\ndescription: code reviewer\n---\nYou review diffs.\nBe strict.")
	assert.Equal(t, "reviewer", doc.Name)
	assert.Equal(t, "You review diffs.\nBe strict.", doc.Body)
	assert.Equal(t, "sonnet", doc.ModelHint)
}

func TestParseWithoutFrontMatter(t *testing.T) {
	doc := Parse("plain", "Just instructions.\n")
	assert.Equal(t, "Just instructions.", doc.Body)
	assert.Empty(t, doc.ModelHint)
}

func TestParseUnterminatedFrontMatter(t *testing.T) {
	content := "---\nmodel: sonnet\nno closing delimiter"
	doc := Parse("broken", content)
	assert.Equal(t, content, doc.Body)
	assert.Empty(t, doc.ModelHint)
}

func TestParseMalformedYAMLFrontMatter(t *testing.T) {
	doc := Parse("odd", "---\n: [not yaml\n---\nbody text")
	assert.Equal(t, "body text", doc.Body)
	assert.Empty(t, doc.ModelHint)
}

func TestDirResolver(t *testing.T) {
	dir := t.TempDir()
	content := "---\nmodel: haiku\n---\nSummarize the change."
	require.NoError(t, os.WriteFile(filepath.Join(dir, "summarizer.md"), []byte(content), 0o644))

	r := NewDirResolver(dir)
	doc, err := r.Resolve("summarizer")
	require.NoError(t, err)
	assert.Equal(t, "Summarize the change.", doc.Body)
	assert.Equal(t, "haiku", doc.ModelHint)

	_, err = r.Resolve("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")

	_, err = r.Resolve("../escape")
	require.Error(t, err)
}

func TestMapResolver(t *testing.T) {
	r := MapResolver{"greeter": "Say hello."}
	doc, err := r.Resolve("greeter")
	require.NoError(t, err)
	assert.Equal(t, "Say hello.", doc.Body)

	_, err = r.Resolve("absent")
	assert.Error(t, err)
}
