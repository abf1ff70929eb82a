package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/eventsim/internal/trace"
)

// Snapshot renders a scenario's result as canonical JSON lines: a header
// object, then one line per trace event.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	params := make(map[string]any, len(scenario.Params))
	for k, v := range scenario.Params {
		params[k] = v
	}
	output := make([]any, len(result.Output))
	for i, line := range result.Output {
		output[i] = line
	}

	header, err := trace.MarshalCanonical(map[string]any{
		"scenario": scenario.Name,
		"program":  scenario.Program,
		"params":   params,
		"output":   output,
		"cycles":   result.Cycles,
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot header: %w", err)
	}

	lines, err := trace.MarshalTrace(result.Trace)
	if err != nil {
		return nil, fmt.Errorf("snapshot trace: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(header)
	buf.WriteByte('\n')
	buf.Write(lines)
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	snapshot, err := Snapshot(scenario, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snapshot)

	return result, nil
}

// GoldenPath returns the golden file for a scenario file: a sibling
// golden/ directory, named after the scenario file.
func GoldenPath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// WriteGolden stores the snapshot as the scenario file's golden file.
func WriteGolden(scenarioFile string, snapshot []byte) error {
	path := GoldenPath(scenarioFile)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create golden dir: %w", err)
	}
	if err := os.WriteFile(path, snapshot, 0644); err != nil {
		return fmt.Errorf("write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether snapshot matches the scenario file's golden
// file. The bool result is meaningless if err is non-nil; a missing golden
// file is reported with an error satisfying os.IsNotExist.
func CompareGolden(scenarioFile string, snapshot []byte) (bool, error) {
	want, err := os.ReadFile(GoldenPath(scenarioFile))
	if err != nil {
		return false, err
	}
	return bytes.Equal(want, snapshot), nil
}
