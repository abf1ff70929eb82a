package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "eventsim", cmd.Use)
	assert.Contains(t, cmd.Long, "reproducible")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"run", "list", "trace", "replay", "test", "validate"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	for _, name := range []string{"param", "debug", "step", "max-cycles", "db"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), "flag %s", name)
	}
	assert.Equal(t, "p", runCmd.Flags().Lookup("param").Shorthand)
}

func TestRoot_InvalidFormat(t *testing.T) {
	t.Setenv("EVENTSIM_FORMAT", "text")

	_, _, err := execute(NewRootCommand(), "list", "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRoot_FormatFromEnvironment(t *testing.T) {
	t.Setenv("EVENTSIM_FORMAT", "json")

	out, _, err := execute(NewRootCommand(), "list")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestRoot_FlagOverridesEnvironment(t *testing.T) {
	t.Setenv("EVENTSIM_FORMAT", "json")

	out, _, err := execute(NewRootCommand(), "list", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "PROGRAM")
}

func TestRoot_InvalidConfig(t *testing.T) {
	t.Setenv("EVENTSIM_MAX_CYCLES", "lots")

	_, _, err := execute(NewRootCommand(), "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestRoot_VerboseLogsToStderr(t *testing.T) {
	t.Setenv("EVENTSIM_FORMAT", "text")

	out, errOut, err := execute(NewRootCommand(), "run", "countdown", "--param", "from=1", "--verbose")
	require.NoError(t, err)
	assert.Equal(t, "1\nliftoff\n", out)
	assert.Contains(t, errOut, "run starting")
	assert.Contains(t, errOut, "machine stepped")
	assert.Contains(t, errOut, "countdown finished: ok")
}
