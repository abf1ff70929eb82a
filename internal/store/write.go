package store

import (
	"context"
	"fmt"
)

// WriteRun inserts a run and its trace in one transaction.
//
// Writing a run whose ID already exists fails; runs are never updated.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	params, err := marshalParams(run.Params)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	output, err := marshalOutput(run.Output)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	status := run.Status
	if status == "" {
		status = StatusOK
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, program, params, status, error, cycles, events, output)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Program, params, status, run.Error, run.Cycles, len(run.Events), output)
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trace_events
		(run_id, idx, cycle, kind, seq, machine, machine_kind, type, emitter, destination,
		 recipients, ack, from_state, to_state, vars, value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write run %s: prepare: %w", run.ID, err)
	}
	defer stmt.Close()

	for _, ev := range run.Events {
		recipients, err := marshalRecipients(ev.Recipients)
		if err != nil {
			return fmt.Errorf("write run %s: event %d: %w", run.ID, ev.Index, err)
		}
		value, err := marshalValue(ev.Value)
		if err != nil {
			return fmt.Errorf("write run %s: event %d: %w", run.ID, ev.Index, err)
		}
		_, err = stmt.ExecContext(ctx,
			run.ID,
			ev.Index,
			ev.Cycle,
			string(ev.Kind),
			ev.Seq,
			uint64(ev.Machine),
			ev.MachineKind,
			ev.Type,
			uint64(ev.Emitter),
			uint64(ev.Destination),
			recipients,
			ev.Ack,
			string(ev.From),
			string(ev.To),
			ev.Vars,
			value,
		)
		if err != nil {
			return fmt.Errorf("write run %s: event %d: %w", run.ID, ev.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run %s: commit: %w", run.ID, err)
	}
	return nil
}
