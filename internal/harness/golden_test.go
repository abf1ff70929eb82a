package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRunWithGolden_CountdownZero pins the complete trace of the smallest
// program run. To regenerate:
//
//	go test ./internal/harness -run TestRunWithGolden -update
func TestRunWithGolden_CountdownZero(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/countdown-zero.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestSnapshot_Header(t *testing.T) {
	scenario := &Scenario{
		Name:    "countdown-one",
		Program: "countdown",
		Params:  map[string]int{"from": 1},
		Assertions: []Assertion{
			{Type: AssertOutput, Lines: []string{"1", "liftoff"}},
		},
	}
	result, err := Run(scenario)
	require.NoError(t, err)

	snapshot, err := Snapshot(scenario, result)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(snapshot), "\n"), "\n")
	require.Len(t, lines, len(result.Trace)+1)
	assert.Equal(t,
		`{"cycles":5,"output":["1","liftoff"],"params":{"from":1},"program":"countdown","scenario":"countdown-one"}`,
		lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `{"cycle":0,`))
}

func TestGoldenPath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "pingpong.golden"),
		GoldenPath(filepath.Join("scenarios", "pingpong.yaml")))
	assert.Equal(t,
		filepath.Join("golden", "cascade.golden"),
		GoldenPath("cascade.cue"))
}

func TestWriteAndCompareGolden(t *testing.T) {
	file := filepath.Join(t.TempDir(), "demo.yaml")

	_, err := CompareGolden(file, []byte("x\n"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, WriteGolden(file, []byte("x\n")))

	same, err := CompareGolden(file, []byte("x\n"))
	require.NoError(t, err)
	assert.True(t, same)

	same, err = CompareGolden(file, []byte("y\n"))
	require.NoError(t, err)
	assert.False(t, same)
}
