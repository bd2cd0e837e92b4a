// Package personas resolves named persona and prompt-template documents:
// markdown files whose optional YAML front matter is stripped before the
// body is used as instructions. The front matter may carry a model hint
// that is forwarded to the LLM boundary.
package personas

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/railcar-dev/railcar/pkg/schema"
)

// Document is a resolved persona or prompt template.
type Document struct {
	Name      string
	Body      string // front matter stripped
	ModelHint string // optional model family hint from front matter
}

// Resolver maps a document name to its content.
type Resolver interface {
	Resolve(name string) (Document, error)
}

// DirResolver reads documents from <dir>/<name>.md.
type DirResolver struct {
	Dir string
}

// NewDirResolver creates a resolver rooted at dir.
func NewDirResolver(dir string) *DirResolver {
	return &DirResolver{Dir: dir}
}

// Resolve loads and parses the named document. Unknown names are a
// configuration error naming the missing resource.
func (r *DirResolver) Resolve(name string) (Document, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return Document{}, schema.NewErrorf(schema.ErrCodeConfig, "invalid document name %q", name)
	}

	path := filepath.Join(r.Dir, name+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, schema.NewErrorf(schema.ErrCodeConfig,
			"document %q not found in %s", name, r.Dir).WithCause(err)
	}

	return Parse(name, string(data)), nil
}

// frontMatter is the subset of document metadata the engine reads.
type frontMatter struct {
	Model string `yaml:"model"`
}

// Parse splits optional YAML front matter from content and extracts the
// model hint. Malformed front matter is treated as absent: the document
// body is used verbatim rather than failing the step.
func Parse(name, content string) Document {
	body, meta := splitFrontMatter(content)

	doc := Document{Name: name, Body: strings.TrimSpace(body)}
	if meta != "" {
		var fm frontMatter
		if err := yaml.Unmarshal([]byte(meta), &fm); err == nil {
			doc.ModelHint = fm.Model
		}
	}
	return doc
}

// splitFrontMatter separates a leading "---\n...\n---" block from the rest
// of the document. Returns the body and the raw metadata block (empty when
// there is none).
func splitFrontMatter(content string) (body, meta string) {
	trimmed := strings.TrimLeft(content, "\uFEFF") // tolerate a BOM
	if !strings.HasPrefix(trimmed, "---\n") && trimmed != "---" && !strings.HasPrefix(trimmed, "---\r\n") {
		return content, ""
	}

	rest := trimmed[strings.Index(trimmed, "\n")+1:]
	for _, delim := range []string{"\n---\n", "\n---\r\n"} {
		if idx := strings.Index(rest, delim); idx >= 0 {
			return rest[idx+len(delim):], rest[:idx]
		}
	}
	// Closing delimiter at end of file without trailing newline.
	if strings.HasSuffix(rest, "\n---") {
		return "", strings.TrimSuffix(rest, "\n---")
	}
	// Unterminated front matter: treat the whole document as body.
	return content, ""
}

// MapResolver is an in-memory Resolver for tests and embedded defaults.
type MapResolver map[string]string

func (m MapResolver) Resolve(name string) (Document, error) {
	content, ok := m[name]
	if !ok {
		return Document{}, schema.NewErrorf(schema.ErrCodeConfig, "document %q not found", name)
	}
	return Parse(name, content), nil
}
