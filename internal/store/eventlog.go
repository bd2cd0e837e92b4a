package store

import (
	"context"
	"fmt"
	"time"

	"github.com/railcar-dev/railcar/pkg/schema"
)

// EventLog provides ordered event appends on top of a LibSQLStore: each
// event gets a monotonically increasing per-run sequence number.
type EventLog struct {
	store *LibSQLStore
}

// NewEventLog wraps a LibSQLStore to provide ordered event appends.
func NewEventLog(s *LibSQLStore) *EventLog {
	return &EventLog{store: s}
}

// AppendEvent appends an event with a monotonically increasing per-run
// sequence. The transaction acquires the write lock up front so concurrent
// writers cannot interleave sequence reads and inserts.
func (el *EventLog) AppendEvent(ctx context.Context, event *Event) error {
	db := el.store.DB()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// In WAL mode BeginTx alone may start a deferred transaction; a
	// write-intent statement forces lock acquisition before the read.
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_version (version, name) VALUES (-1, '_lock_noop')`); err != nil {
		return fmt.Errorf("acquire write lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM schema_version WHERE version = -1`); err != nil {
		return fmt.Errorf("cleanup write lock: %w", err)
	}

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) + 1 FROM run_events WHERE run_id = ?`, event.RunID,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("get next sequence: %w", err)
	}
	event.Sequence = seq

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO run_events (run_id, step_id, event_type, detail, timestamp, sequence)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.RunID, nullStr(event.StepID), event.Type, nullStr(event.Detail), event.Timestamp, seq,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit event: %w", err)
	}
	return nil
}

// GetEvents returns events for a run with sequence > since, ordered by sequence ASC.
func (el *EventLog) GetEvents(ctx context.Context, runID string, since int64) ([]*Event, error) {
	return el.store.GetEvents(ctx, runID, since)
}

// ReplaySteps replays a run's event log and returns the reconstructed
// step statuses in first-seen order. Returns an error on sequence gaps.
func (el *EventLog) ReplaySteps(ctx context.Context, runID string) (map[string]schema.StepStatus, error) {
	events, err := el.store.GetEvents(ctx, runID, 0)
	if err != nil {
		return nil, fmt.Errorf("get events for replay: %w", err)
	}

	statuses := make(map[string]schema.StepStatus)
	for i, e := range events {
		expected := int64(i + 1)
		if e.Sequence != expected {
			return nil, schema.NewErrorf(schema.ErrCodeStore,
				"sequence gap in run %s: expected %d, got %d", runID, expected, e.Sequence)
		}
		if e.StepID == "" {
			continue
		}
		switch e.Type {
		case schema.EventStepStarted:
			statuses[e.StepID] = schema.StepStatusRunning
		case schema.EventStepRetrying:
			statuses[e.StepID] = schema.StepStatusRetrying
		case schema.EventStepPassed:
			statuses[e.StepID] = schema.StepStatusPassed
		case schema.EventStepFailed:
			statuses[e.StepID] = schema.StepStatusFailed
		case schema.EventStepSkipped:
			statuses[e.StepID] = schema.StepStatusSkipped
		}
	}
	return statuses, nil
}
