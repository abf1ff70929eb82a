package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/eventsim/internal/engine"
	"github.com/roach88/eventsim/internal/programs"
	"github.com/roach88/eventsim/internal/store"
	"github.com/roach88/eventsim/internal/trace"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string
}

// ReplayResult holds the replay result for one run.
type ReplayResult struct {
	RunID         string `json:"run_id"`
	Program       string `json:"program"`
	Events        int    `json:"events"`
	ReplayEvents  int    `json:"replay_events"`
	Cycles        int64  `json:"cycles"`
	Deterministic bool   `json:"deterministic"`
	OutputMatches bool   `json:"output_matches"`

	// Divergence is the index of the first differing trace line, or -1.
	Divergence int    `json:"divergence"`
	Stored     string `json:"stored,omitempty"`
	Replayed   string `json:"replayed,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-execute a stored run and verify determinism",
		Long: `Re-execute a stored run's program with the same parameters and compare
the new trace against the stored one, line by line in canonical form.

The replay is bounded by the stored run's cycle count, so a run that
stopped on its cycle quota stops at the same point again.

Exit codes:
  0 - The replay reproduced the stored trace and output
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, unknown run, etc.)

Examples:
  eventsim replay --db ./traces.db --run <id>
  eventsim replay --db ./traces.db --run <id> --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to replay (required)")
	_ = cmd.MarkFlagRequired("run")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
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

	result, err := replayRun(ctx, opts, run)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", run.ID), err)
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result)
}

// replayRun re-executes run's program and compares canonical traces.
func replayRun(ctx context.Context, opts *ReplayOptions, run store.Run) (ReplayResult, error) {
	prog, err := programs.Lookup(run.Program)
	if err != nil {
		return ReplayResult{}, err
	}
	params, err := prog.Resolve(run.Params)
	if err != nil {
		return ReplayResult{}, err
	}

	rec := trace.NewRecorder()
	out := programs.NewOutput(nil)
	ctl := engine.New(
		engine.WithLogger(opts.logger()),
		engine.WithObserver(rec),
		engine.WithMaxCycles(run.Cycles),
	)
	if err := ctl.Run(ctx, prog.Build(params, out)); err != nil {
		opts.logger().Debug("replay ended with error", "run_id", run.ID, "error", err)
	}

	stored, err := canonicalLines(run.Events)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("stored trace: %w", err)
	}
	replayed, err := canonicalLines(rec.Snapshot())
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replayed trace: %w", err)
	}

	result := ReplayResult{
		RunID:         run.ID,
		Program:       run.Program,
		Events:        len(stored),
		ReplayEvents:  len(replayed),
		Cycles:        ctl.Cycles(),
		OutputMatches: slices.Equal(run.Output, out.Lines()),
		Divergence:    -1,
	}

	for i := 0; i < max(len(stored), len(replayed)); i++ {
		var s, r []byte
		if i < len(stored) {
			s = stored[i]
		}
		if i < len(replayed) {
			r = replayed[i]
		}
		if !bytes.Equal(s, r) {
			result.Divergence = i
			result.Stored = string(s)
			result.Replayed = string(r)
			break
		}
	}

	result.Deterministic = result.Divergence < 0 && result.OutputMatches
	return result, nil
}

// canonicalLines encodes each event as canonical JSON.
func canonicalLines(events []trace.Event) ([][]byte, error) {
	lines := make([][]byte, len(events))
	for i, ev := range events {
		line, err := trace.CanonicalEvent(ev)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", ev.Index, err)
		}
		lines[i] = line
	}
	return lines, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
		RunID:  result.RunID,
	}

	if !result.Deterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDeterminism,
			Message: "determinism verification failed",
		}
	}

	if err := writeJSON(cmd.OutOrStdout(), response); err != nil {
		return err
	}

	if !result.Deterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult) error {
	w := cmd.OutOrStdout()

	status := "✓"
	if !result.Deterministic {
		status = "✗"
	}
	fmt.Fprintf(w, "%s Run: %s (%s)\n", status, result.RunID, result.Program)
	fmt.Fprintf(w, "  Events: %d stored, %d replayed\n", result.Events, result.ReplayEvents)
	fmt.Fprintf(w, "  Cycles: %d\n", result.Cycles)

	if result.Divergence >= 0 {
		fmt.Fprintf(w, "  First divergence at trace line %d:\n", result.Divergence)
		fmt.Fprintf(w, "    stored:   %s\n", orNone(result.Stored))
		fmt.Fprintf(w, "    replayed: %s\n", orNone(result.Replayed))
	}
	if !result.OutputMatches {
		fmt.Fprintln(w, "  Program output differs")
	}
	fmt.Fprintln(w)

	if result.Deterministic {
		fmt.Fprintln(w, "✓ Replay verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
