// Package scheduler triggers recurring workflow runs from cron
// expressions. Entries are static configuration; the scheduler only
// decides when to fire, the runner decides what a run means.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// WorkflowRunner is the interface the scheduler uses to start runs.
// Satisfied by the engine-backed service (avoids an import cycle).
type WorkflowRunner interface {
	RunWorkflow(ctx context.Context, name string) error
}

// Entry binds a workflow name to a cron expression.
type Entry struct {
	Workflow string `json:"workflow"`
	Cron     string `json:"cron"`
}

type scheduledEntry struct {
	Entry
	schedule cron.Schedule
	nextRun  time.Time
}

// Scheduler fires workflow runs when their cron entries come due.
type Scheduler struct {
	runner  WorkflowRunner
	parser  cron.Parser
	logger  *slog.Logger
	entries []*scheduledEntry

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	inflightMu sync.Mutex
	inflight   map[string]struct{} // workflows currently executing (dedup)
}

// NewScheduler validates the entries' cron expressions and builds a
// scheduler over them. An invalid expression fails construction: a
// schedule that can never fire is a configuration error, not a warning.
func NewScheduler(entries []Entry, runner WorkflowRunner, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		runner:   runner,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		logger:   logger,
		inflight: make(map[string]struct{}),
	}

	now := time.Now().UTC()
	for _, e := range entries {
		schedule, err := s.parser.Parse(e.Cron)
		if err != nil {
			return nil, fmt.Errorf("schedule for workflow %q: parse cron expression %q: %w", e.Workflow, e.Cron, err)
		}
		s.entries = append(s.entries, &scheduledEntry{
			Entry:    e,
			schedule: schedule,
			nextRun:  schedule.Next(now),
		})
	}
	return s, nil
}

// Start launches the background scheduling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}

	schedCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(schedCtx)
	s.logger.Info("scheduler started", slog.Int("entries", len(s.entries)))
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, time.Now().UTC())
		}
	}
}

// tick fires every entry that has come due and advances its next run.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	for _, e := range s.entries {
		if e.nextRun.After(now) {
			continue
		}
		e.nextRun = e.schedule.Next(now)

		if !s.tryAcquire(e.Workflow) {
			s.logger.Warn("skipping scheduled run, previous run still in flight",
				slog.String("workflow", e.Workflow))
			continue
		}

		go func(workflow string) {
			defer s.release(workflow)
			s.logger.Info("running scheduled workflow", slog.String("workflow", workflow))
			if err := s.runner.RunWorkflow(ctx, workflow); err != nil {
				s.logger.Error("scheduled run failed",
					slog.String("workflow", workflow),
					slog.String("error", err.Error()))
			}
		}(e.Workflow)
	}
}

// tryAcquire marks the workflow as in-flight unless it already is.
func (s *Scheduler) tryAcquire(workflow string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, ok := s.inflight[workflow]; ok {
		return false
	}
	s.inflight[workflow] = struct{}{}
	return true
}

func (s *Scheduler) release(workflow string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, workflow)
}

// CalculateNextRun computes the next fire time for a cron expression.
func (s *Scheduler) CalculateNextRun(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := s.parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return schedule.Next(from), nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}

	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	s.logger.Info("scheduler stopped")
	return nil
}
