// Package definitions loads workflow documents: YAML files in a single
// directory, one workflow per file. Documents are validated at load time
// (JSON Schema, structural invariants, condition syntax) and re-read on
// every access so edits take effect without restarting anything.
package definitions

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/railcar-dev/railcar/internal/conditions"
	"github.com/railcar-dev/railcar/pkg/schema"
)

// Loader reads workflow documents from Dir.
type Loader struct {
	Dir       string
	Logger    *slog.Logger
	validator *SchemaValidator
}

// NewLoader creates a Loader rooted at dir.
func NewLoader(dir string) (*Loader, error) {
	v, err := NewSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &Loader{Dir: dir, validator: v}, nil
}

// Summary is the catalog entry for one loadable workflow.
type Summary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	StepCount   int    `json:"step_count"`
	File        string `json:"file"`
}

// List returns the catalog of valid workflow documents in the directory,
// sorted by name. Files that fail to parse or validate are skipped with
// a warning — one broken document must not hide the rest.
func (l *Loader) List() ([]Summary, error) {
	files, err := l.documentFiles()
	if err != nil {
		return nil, err
	}

	var out []Summary
	for _, path := range files {
		def, err := l.parseFile(path)
		if err != nil {
			l.logger().Warn("skipping workflow document",
				slog.String("file", filepath.Base(path)),
				slog.String("error", err.Error()))
			continue
		}
		out = append(out, Summary{
			Name:        def.Name,
			Description: def.Description,
			StepCount:   len(def.Steps),
			File:        filepath.Base(path),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Load returns the validated definition for name: first the document
// whose name field matches, then a file whose stem matches.
func (l *Loader) Load(name string) (*schema.WorkflowDefinition, error) {
	files, err := l.documentFiles()
	if err != nil {
		return nil, err
	}

	var fallback string
	for _, path := range files {
		if stem(path) == name {
			fallback = path
		}
		def, err := l.parseFile(path)
		if err != nil {
			continue
		}
		if def.Name == name {
			return def, nil
		}
	}

	if fallback != "" {
		return l.parseFile(fallback)
	}
	return nil, schema.NewErrorf(schema.ErrCodeNotFound, "workflow %q not found in %s", name, l.Dir)
}

// parseFile reads, parses, and fully validates one document.
func (l *Loader) parseFile(path string) (*schema.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeConfig, "read %s: %s", filepath.Base(path), err.Error()).WithCause(err)
	}

	// Schema-check the raw document first: struct decoding drops unknown
	// fields, so typos like "retires" would otherwise vanish silently.
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "parse %s: %s", filepath.Base(path), err.Error()).WithCause(err)
	}
	if err := l.validator.Validate(raw); err != nil {
		return nil, err
	}

	var def schema.WorkflowDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "parse %s: %s", filepath.Base(path), err.Error()).WithCause(err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	for i := range def.Steps {
		step := &def.Steps[i]
		if step.Condition == "" {
			continue
		}
		if err := conditions.Check(step.Condition); err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeValidation,
				"step %q: %s", step.ID, err.Error()).WithStep(step.ID).WithCause(err)
		}
	}
	return &def, nil
}

func (l *Loader) documentFiles() ([]string, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeConfig, "read workflow directory %s: %s", l.Dir, err.Error()).WithCause(err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(l.Dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
