package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs every scenario under testdata/scenarios.
func TestScenarios(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios", "")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(file, func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_CollectsResult(t *testing.T) {
	scenario := &Scenario{
		Name:        "countdown",
		Description: "count from two",
		Program:     "countdown",
		Params:      map[string]int{"from": 2},
		Assertions: []Assertion{
			{Type: AssertOutput, Lines: []string{"2", "1", "liftoff"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []string{"2", "1", "liftoff"}, result.Output)
	assert.NotEmpty(t, result.Trace)
	assert.Positive(t, result.Cycles)
	assert.Empty(t, result.Errors)
}

func TestRun_AssertionFailure(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong-output",
		Description: "expects the wrong output",
		Program:     "countdown",
		Params:      map[string]int{"from": 1},
		Assertions: []Assertion{
			{Type: AssertOutput, Lines: []string{"liftoff"}},
			{Type: AssertTraceContains, Event: "tick"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "assertions[0]")
	assert.Contains(t, result.Errors[0], "output")
}

func TestRun_MaxCyclesExceeded(t *testing.T) {
	scenario := &Scenario{
		Name:        "runaway",
		Description: "cycle bound smaller than the program needs",
		Program:     "countdown",
		Params:      map[string]int{"from": 100},
		MaxCycles:   5,
		Assertions: []Assertion{
			{Type: AssertTraceContains, Event: "tick"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Equal(t, int64(5), result.Cycles)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "run failed")
	// The partial trace is still available to the assertions.
	assert.Len(t, result.Errors, 1)
}

func TestRun_UnknownProgram(t *testing.T) {
	_, err := Run(&Scenario{Name: "x", Program: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown program")
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/pingpong.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
