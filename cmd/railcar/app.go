package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/railcar-dev/railcar/internal/definitions"
	"github.com/railcar-dev/railcar/internal/engine"
	"github.com/railcar-dev/railcar/internal/exec"
	"github.com/railcar-dev/railcar/internal/llm"
	"github.com/railcar-dev/railcar/internal/logging"
	"github.com/railcar-dev/railcar/internal/personas"
	"github.com/railcar-dev/railcar/internal/store"
	"github.com/railcar-dev/railcar/internal/streaming"
)

// app wires the engine and its collaborators from configuration.
type app struct {
	cfg    Config
	logger *slog.Logger
	loader *definitions.Loader
	engine *engine.Engine

	history store.Store // nil when the history DB is unavailable
	closer  func() error
}

func newApp(cfg Config) (*app, error) {
	logger := newLogger(cfg)

	loader, err := definitions.NewLoader(cfg.WorkflowsDir)
	if err != nil {
		return nil, err
	}
	loader.Logger = logger

	a := &app{cfg: cfg, logger: logger, loader: loader}

	// Run history is optional: a database that cannot be opened degrades
	// to a run without persistence, it never blocks the run itself.
	var events *store.EventLog
	if cfg.DBPath != "" {
		if s, err := openHistory(cfg.DBPath); err != nil {
			logger.Warn("run history unavailable",
				slog.String("db_path", cfg.DBPath),
				slog.String("error", err.Error()))
		} else {
			a.history = s
			a.closer = s.Close
			events = store.NewEventLog(s)
		}
	}

	a.engine = &engine.Engine{
		Exec:     exec.NewShellRunner(),
		LLM:      llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel),
		Personas: personas.NewDirResolver(cfg.PersonasDir),
		Prompts:  personas.NewDirResolver(cfg.PromptsDir),
		Hub:      streaming.NewMemoryHub(),
		History:  a.history,
		Events:   events,
		Logger:   logger,
		WorkDir:  cfg.WorkDir,
	}
	return a, nil
}

func newLogger(cfg Config) *slog.Logger {
	text := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})
	return slog.New(logging.NewCorrelationHandler(text))
}

func openHistory(dbPath string) (*store.LibSQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	s, err := store.NewLibSQLStore("file:" + dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(context.Background()); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases held resources. Safe to call once, always.
func (a *app) Close() error {
	if a.closer != nil {
		return a.closer()
	}
	return nil
}

// RunWorkflow loads and executes a workflow by name; used by the
// scheduler, so progress is discarded and the outcome becomes an error
// only when the run did not pass.
func (a *app) RunWorkflow(ctx context.Context, name string) error {
	def, err := a.loader.Load(name)
	if err != nil {
		return err
	}
	result, err := a.engine.Run(ctx, *def, streaming.NopSink{})
	if err != nil {
		return err
	}
	if !result.Passed {
		return fmt.Errorf("run %s finished %s", result.RunID, result.Status)
	}
	return nil
}
