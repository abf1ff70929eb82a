package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/eventsim/internal/programs"
	"github.com/roach88/eventsim/internal/store"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Database string
}

// ProgramInfo describes one catalog entry in JSON output.
type ProgramInfo struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []ParamInfo `json:"params"`
}

// ParamInfo describes one program parameter in JSON output.
type ParamInfo struct {
	Name    string `json:"name"`
	Default int    `json:"default"`
	Min     int    `json:"min"`
	Usage   string `json:"usage"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List programs, or stored runs",
		Long: `List the programs in the catalog with their parameters and defaults.

With --db, list the runs stored in that database instead, oldest first.

Examples:
  eventsim list
  eventsim list --db ./traces.db
  eventsim list --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Database != "" {
				return listRuns(opts, cmd)
			}
			return listPrograms(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "list runs stored in this SQLite database")

	return cmd
}

func listPrograms(opts *ListOptions, cmd *cobra.Command) error {
	catalog := programs.Catalog()

	if opts.Format == "json" {
		infos := make([]ProgramInfo, 0, len(catalog))
		for _, p := range catalog {
			info := ProgramInfo{Name: p.Name, Description: p.Description, Params: []ParamInfo{}}
			for _, param := range p.Params {
				info.Params = append(info.Params, ParamInfo(param))
			}
			infos = append(infos, info)
		}
		return opts.formatter(cmd).Success(infos)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROGRAM\tPARAMS\tDESCRIPTION")
	for _, p := range catalog {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, p.Usage(), p.Description)
	}
	return tw.Flush()
}

func listRuns(opts *ListOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).Success(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found in database.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tPROGRAM\tSTATUS\tCYCLES\tEVENTS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", r.ID, r.Program, r.Status, r.Cycles, r.Events)
	}
	return tw.Flush()
}
