package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/eventsim/internal/engine"
	"github.com/roach88/eventsim/internal/trace"
)

// ReadRun returns a run and its full trace.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var (
		run    Run
		params string
		output string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, program, params, status, error, cycles, output
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.ID, &run.Program, &params, &run.Status, &run.Error, &run.Cycles, &output)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}

	if run.Params, err = unmarshalParams(params); err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	if run.Output, err = unmarshalOutput(output); err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	if run.Events, err = s.readTrace(ctx, id, trace.Filter{}); err != nil {
		return Run{}, err
	}
	return run, nil
}

// ListRuns returns every stored run in insertion order.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, program, status, cycles, events
		FROM runs
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Program, &r.Status, &r.Cycles, &r.Events); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadTrace returns a run's trace events matching filter, ordered by index.
func (s *Store) ReadTrace(ctx context.Context, id string, filter trace.Filter) ([]trace.Event, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read trace %s: %w", id, err)
	}
	return s.readTrace(ctx, id, filter)
}

func (s *Store) readTrace(ctx context.Context, id string, filter trace.Filter) ([]trace.Event, error) {
	where := []string{"run_id = ?"}
	args := []any{id}
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.Machine != engine.NoMachine {
		where = append(where, "(machine = ? OR emitter = ?)")
		args = append(args, uint64(filter.Machine), uint64(filter.Machine))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, cycle, kind, seq, machine, machine_kind, type, emitter, destination,
		       recipients, ack, from_state, to_state, vars, value
		FROM trace_events
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY idx ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query trace %s: %w", id, err)
	}
	defer rows.Close()

	events := []trace.Event{}
	for rows.Next() {
		ev, err := scanTraceEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("read trace %s: %w", id, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace %s: %w", id, err)
	}
	return events, nil
}

func scanTraceEvent(rows *sql.Rows) (trace.Event, error) {
	var (
		ev                     trace.Event
		kind, from, to         string
		machine, emitter, dest uint64
		recipients, value      string
	)
	err := rows.Scan(
		&ev.Index, &ev.Cycle, &kind, &ev.Seq, &machine, &ev.MachineKind, &ev.Type,
		&emitter, &dest, &recipients, &ev.Ack, &from, &to, &ev.Vars, &value,
	)
	if err != nil {
		return trace.Event{}, fmt.Errorf("scan trace event: %w", err)
	}

	ev.Kind = trace.Kind(kind)
	ev.Machine = engine.MachineID(machine)
	ev.Emitter = engine.MachineID(emitter)
	ev.Destination = engine.MachineID(dest)
	ev.From = engine.StateID(from)
	ev.To = engine.StateID(to)

	if ev.Recipients, err = unmarshalRecipients(recipients); err != nil {
		return trace.Event{}, err
	}
	if ev.Value, err = unmarshalValue(value); err != nil {
		return trace.Event{}, err
	}
	return ev, nil
}
