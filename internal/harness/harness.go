package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/eventsim/internal/engine"
	"github.com/roach88/eventsim/internal/programs"
	"github.com/roach88/eventsim/internal/trace"
)

// Run executes a test scenario and returns the result.
//
// Infrastructure problems (unknown program, bad params) are returned as
// errors. A run that fails at runtime, for example by exceeding its cycle
// bound, produces a failing Result with the partial trace.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	prog, err := programs.Lookup(scenario.Program)
	if err != nil {
		return nil, err
	}
	params, err := prog.Resolve(scenario.Params)
	if err != nil {
		return nil, err
	}

	maxCycles := scenario.MaxCycles
	if maxCycles == 0 {
		maxCycles = DefaultMaxCycles
	}

	rec := trace.NewRecorder()
	out := programs.NewOutput(nil)
	ctl := engine.New(
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
		engine.WithObserver(rec),
		engine.WithMaxCycles(maxCycles),
	)

	result := NewResult()
	runErr := ctl.Run(ctx, prog.Build(params, out))

	result.Trace = rec.Snapshot()
	result.Output = out.Lines()
	result.Cycles = ctl.Cycles()

	if runErr != nil {
		result.AddError(fmt.Sprintf("run failed: %v", runErr))
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}
