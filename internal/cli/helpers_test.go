package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventsim/internal/testutil"
)

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// newTestRunCommand returns a run command whose run IDs are test-0001,
// test-0002, ...
func newTestRunCommand(opts *RunOptions) *cobra.Command {
	if opts == nil {
		opts = &RunOptions{}
	}
	if opts.RootOptions == nil {
		opts.RootOptions = &RootOptions{Format: "text"}
	}
	opts.RunIDs = testutil.NewSequentialRunIDs("test")
	return newRunCommand(opts)
}

// storeTestRun runs a program into dbPath and fails the test on error.
// The first run stored in a database gets ID test-0001.
func storeTestRun(t *testing.T, dbPath string, args ...string) {
	t.Helper()
	_, _, err := execute(newTestRunCommand(nil), append(args, "--db", dbPath)...)
	require.NoError(t, err)
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "traces.db")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}
