package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/eventsim/internal/engine"
	"github.com/roach88/eventsim/internal/store"
	"github.com/roach88/eventsim/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Type     string // optional - filter to one event type
	Kind     string // optional - filter to one trace kind
	Machine  uint64 // optional - filter to one machine (0 = all)
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID   string        `json:"run_id"`
	Program string        `json:"program"`
	Status  string        `json:"status"`
	Error   string        `json:"error,omitempty"`
	Cycles  int64         `json:"cycles"`
	Events  []trace.Event `json:"events"`
	Stats   TraceStats    `json:"stats"`
}

// TraceStats counts the selected events per kind.
type TraceStats struct {
	Total   int `json:"total"`
	Starts  int `json:"starts"`
	Emits   int `json:"emits"`
	Deliver int `json:"deliveries"`
	Drops   int `json:"drops"`
	Steps   int `json:"steps"`
	Halts   int `json:"halts"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the stored trace of a run",
		Long: `Show the trace of a run stored with "run --db".

The trace lists, in order, every machine start, emission, delivery, dropped
event, state step and halt. Filters narrow it down by event type, trace
kind or machine (as actor or emitter).

Examples:
  eventsim trace --db ./traces.db --run <id>
  eventsim trace --db ./traces.db --run <id> --type ping
  eventsim trace --db ./traces.db --run <id> --kind step --machine 3
  eventsim trace --db ./traces.db --run <id> --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to show (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().StringVar(&opts.Type, "type", "", "filter to one event type")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one trace kind (start|emit|deliver|drop|step|halt)")
	cmd.Flags().Uint64Var(&opts.Machine, "machine", 0, "filter to one machine ID")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Kind != "" && !slices.Contains(trace.Kinds, trace.Kind(opts.Kind)) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid kind %q: must be one of %v", opts.Kind, trace.Kinds))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, opts.RunID)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			_ = opts.formatter(cmd).Error(ErrCodeRunNotFound, fmt.Sprintf("no run with ID %s", opts.RunID), nil)
		}
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	filter := trace.Filter{
		Kind:    trace.Kind(opts.Kind),
		Type:    opts.Type,
		Machine: engine.MachineID(opts.Machine),
	}
	events, err := st.ReadTrace(ctx, opts.RunID, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	result := TraceResult{
		RunID:   run.ID,
		Program: run.Program,
		Status:  run.Status,
		Error:   run.Error,
		Cycles:  run.Cycles,
		Events:  events,
		Stats:   traceStats(events),
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result, RunID: run.ID})
	}

	return outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
}

func traceStats(events []trace.Event) TraceStats {
	stats := TraceStats{Total: len(events)}
	for _, ev := range events {
		switch ev.Kind {
		case trace.KindStart:
			stats.Starts++
		case trace.KindEmit:
			stats.Emits++
		case trace.KindDeliver:
			stats.Deliver++
		case trace.KindDrop:
			stats.Drops++
		case trace.KindStep:
			stats.Steps++
		case trace.KindHalt:
			stats.Halts++
		}
	}
	return stats
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Trace for Run: %s\n", result.RunID)
	fmt.Fprintf(w, "Program: %s\n", result.Program)
	status := result.Status
	if result.Error != "" {
		status += " (" + result.Error + ")"
	}
	fmt.Fprintf(w, "Status: %s, %d cycles\n", status, result.Cycles)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Events) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, ev := range result.Events {
		fmt.Fprintf(w, "  [%d] c%d %s\n", ev.Index, ev.Cycle, formatTraceEvent(ev))
		if verbose && ev.Kind == trace.KindStep && ev.Vars != "" {
			fmt.Fprintf(w, "       Vars: %s\n", ev.Vars)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Events:     %d\n", result.Stats.Total)
	fmt.Fprintf(w, "  Starts:     %d\n", result.Stats.Starts)
	fmt.Fprintf(w, "  Emits:      %d\n", result.Stats.Emits)
	fmt.Fprintf(w, "  Deliveries: %d\n", result.Stats.Deliver)
	fmt.Fprintf(w, "  Drops:      %d\n", result.Stats.Drops)
	fmt.Fprintf(w, "  Steps:      %d\n", result.Stats.Steps)
	fmt.Fprintf(w, "  Halts:      %d\n", result.Stats.Halts)

	return nil
}

// formatTraceEvent renders one trace event on a single line.
func formatTraceEvent(ev trace.Event) string {
	switch ev.Kind {
	case trace.KindStart:
		return fmt.Sprintf("START %s %s (context %s, init %s)", ev.MachineKind, ev.Machine, ev.Emitter, ev.To)
	case trace.KindHalt:
		return fmt.Sprintf("HALT %s %s", ev.MachineKind, ev.Machine)
	case trace.KindStep:
		s := fmt.Sprintf("STEP %s %s: %s -> %s", ev.MachineKind, ev.Machine, ev.From, ev.To)
		if ev.Type != "" {
			s += fmt.Sprintf(" on %s from %s", ev.Type, ev.Emitter)
		}
		return s
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s -> %s", strings.ToUpper(string(ev.Kind)), ev.Type, ev.Emitter, destination(ev.Destination))
	if ev.Value != nil {
		fmt.Fprintf(&b, " value=%v", ev.Value)
	}
	if ev.Ack {
		b.WriteString(" ack")
	}
	if ev.Kind == trace.KindDeliver {
		ids := make([]string, len(ev.Recipients))
		for i, id := range ev.Recipients {
			ids[i] = id.String()
		}
		fmt.Fprintf(&b, " to [%s]", strings.Join(ids, " "))
	}
	return b.String()
}

func destination(id engine.MachineID) string {
	if id == engine.NoMachine {
		return "*"
	}
	return id.String()
}
