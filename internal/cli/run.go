package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/eventsim/internal/engine"
	"github.com/roach88/eventsim/internal/programs"
	"github.com/roach88/eventsim/internal/store"
	"github.com/roach88/eventsim/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Params    []string
	Debug     bool
	Step      bool
	MaxCycles int64
	Database  string

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs store.RunIDGenerator
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	RunID   string         `json:"run_id,omitempty"`
	Program string         `json:"program"`
	Params  map[string]int `json:"params"`
	Status  string         `json:"status"`
	Error   string         `json:"error,omitempty"`
	Cycles  int64          `json:"cycles"`
	Events  int            `json:"events"`
	Output  []string       `json:"output"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <program>",
		Short: "Run a program from the catalog",
		Long: `Run a catalog program to completion and print its output.

Parameters override the program's defaults. With --debug every step is
reported: the machine, the state it ran, its variables, the events it
emitted and the state it moves to. With --step the run pauses for enter
between cycles. With --db the full trace is stored for the trace and
replay commands.

Flags not given fall back to EVENTSIM_DEBUG, EVENTSIM_MAX_CYCLES and
EVENTSIM_TRACE_DB.

Exit codes:
  0 - Every machine halted
  1 - Runtime error (cycle quota exceeded, undefined state)
  2 - Command error (unknown program, invalid parameter, database error)

Examples:
  eventsim run pingpong
  eventsim run sieve --param limit=100
  eventsim run cascade --param children=2 --debug --step
  eventsim run countdown --db ./traces.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "program parameter as name=value (repeatable)")
	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "print every step")
	cmd.Flags().BoolVar(&opts.Step, "step", false, "wait for enter between cycles")
	cmd.Flags().Int64Var(&opts.MaxCycles, "max-cycles", 0, "stop after this many cycles (0 = unlimited)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "store the trace in this SQLite database")

	return cmd
}

func runProgram(opts *RunOptions, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	opts.applyConfig(cmd)

	prog, err := programs.Lookup(name)
	if err != nil {
		_ = formatter.Error(ErrCodeUnknownProgram, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to look up program", err)
	}

	overrides, err := parseParams(opts.Params)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidParam, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid parameters", err)
	}
	params, err := prog.Resolve(overrides)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidParam, err.Error(), prog.Usage())
		return WrapExitError(ExitCommandError, "invalid parameters", err)
	}
	if opts.MaxCycles < 0 {
		return NewExitError(ExitCommandError, "max-cycles must be non-negative")
	}

	// In JSON mode the program's lines are part of the response instead.
	var echo io.Writer
	if opts.Format != "json" {
		echo = cmd.OutOrStdout()
	}
	out := programs.NewOutput(echo)

	rec := trace.NewRecorder()
	observers := trace.Multi{rec}
	if opts.Step {
		observers = append(observers, trace.NewStepper(cmd.InOrStdin(), cmd.ErrOrStderr()))
	}
	if opts.Debug {
		w := cmd.OutOrStdout()
		if opts.Format == "json" {
			w = cmd.ErrOrStderr()
		}
		observers = append(observers, trace.NewPrinter(w))
	}

	ctl := engine.New(
		engine.WithLogger(opts.logger()),
		engine.WithObserver(observers),
		engine.WithMaxCycles(opts.MaxCycles),
	)

	ctx, stop := signalContext(cmd)
	defer stop()

	runErr := ctl.Run(ctx, prog.Build(params, out))

	result := RunResult{
		Program: prog.Name,
		Params:  params,
		Status:  store.StatusOK,
		Cycles:  ctl.Cycles(),
		Events:  rec.Len(),
		Output:  out.Lines(),
	}
	if runErr != nil {
		result.Status = store.StatusFailed
		result.Error = runErr.Error()
	}

	if opts.Database != "" {
		id, err := storeRun(cmd.Context(), opts, result, rec.Snapshot())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to store run", err)
		}
		result.RunID = id
	}

	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result, RunID: result.RunID}
		if runErr != nil {
			response.Status = "error"
			response.Error = &CLIError{Code: ErrCodeRunFailed, Message: runErr.Error()}
		}
		if err := writeJSON(cmd.OutOrStdout(), response); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		if result.RunID != "" {
			fmt.Fprintf(w, "Run ID: %s\n", result.RunID)
		}
		formatter.VerboseLog("%s finished: %s, %d cycles, %d trace events",
			result.Program, result.Status, result.Cycles, result.Events)
	}

	if runErr != nil {
		return WrapExitError(ExitFailure, "run failed", runErr)
	}
	return nil
}

// applyConfig fills flags the user did not set from the loaded config.
func (o *RunOptions) applyConfig(cmd *cobra.Command) {
	cfg := o.Config
	if !cmd.Flags().Changed("debug") && cfg.Debug {
		o.Debug = true
	}
	if !cmd.Flags().Changed("max-cycles") && cfg.MaxCycles > 0 {
		o.MaxCycles = cfg.MaxCycles
	}
	if !cmd.Flags().Changed("db") && cfg.TraceDB != "" {
		o.Database = cfg.TraceDB
	}
}

// storeRun writes a finished run and its trace, returning the new run ID.
func storeRun(ctx context.Context, opts *RunOptions, result RunResult, events []trace.Event) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			opts.logger().Error("error closing database", "error", closeErr)
		}
	}()

	gen := opts.RunIDs
	if gen == nil {
		gen = store.UUIDv7Generator{}
	}

	run := store.Run{
		ID:      gen.Generate(),
		Program: result.Program,
		Params:  result.Params,
		Status:  result.Status,
		Error:   result.Error,
		Cycles:  result.Cycles,
		Output:  result.Output,
		Events:  events,
	}
	if err := st.WriteRun(ctx, run); err != nil {
		return "", err
	}
	opts.logger().Info("run stored", "run_id", run.ID, "db", opts.Database, "events", len(events))
	return run.ID, nil
}

// parseParams turns name=value flags into overrides.
func parseParams(raw []string) (map[string]int, error) {
	overrides := make(map[string]int, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q is not name=value", programs.ErrInvalidParam, kv)
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer, got %q", programs.ErrInvalidParam, name, value)
		}
		overrides[name] = n
	}
	return overrides, nil
}

// signalContext derives a context from the command's that is cancelled on
// SIGINT or SIGTERM. The engine checks it between cycles.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
