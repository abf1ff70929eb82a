package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/eventsim/internal/engine"
	"github.com/roach88/eventsim/internal/programs"
	"github.com/roach88/eventsim/internal/trace"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// recordRun executes a catalog program and packages it as a Run.
func recordRun(t *testing.T, id, program string, overrides map[string]int) Run {
	t.Helper()

	prog, err := programs.Lookup(program)
	if err != nil {
		t.Fatalf("Lookup(%q) failed: %v", program, err)
	}
	params, err := prog.Resolve(overrides)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	rec := trace.NewRecorder()
	out := programs.NewOutput(nil)
	ctl := engine.New(
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithObserver(rec),
	)
	if err := ctl.Run(context.Background(), prog.Build(params, out)); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	return Run{
		ID:      id,
		Program: program,
		Params:  params,
		Status:  StatusOK,
		Cycles:  ctl.Cycles(),
		Output:  out.Lines(),
		Events:  rec.Snapshot(),
	}
}
