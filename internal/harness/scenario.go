package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/eventsim/internal/programs"
	"github.com/roach88/eventsim/internal/trace"
)

// Scenario defines one program run and the assertions it must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// Program is a catalog name (see programs.Catalog).
	Program string `yaml:"program" json:"program"`

	// Params override the program's defaults.
	Params map[string]int `yaml:"params,omitempty" json:"params,omitempty"`

	// MaxCycles bounds the run. Zero uses DefaultMaxCycles.
	MaxCycles int64 `yaml:"max_cycles,omitempty" json:"max_cycles,omitempty"`

	// Assertions validate the trace, output and cycle count.
	Assertions []Assertion `yaml:"assertions" json:"assertions"`
}

// DefaultMaxCycles bounds scenario runs that don't set max_cycles, so a
// program that never halts fails instead of hanging the test run.
const DefaultMaxCycles = 100_000

// Assertion validates one property of a run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type" json:"type"`

	// Kind selects the trace event kind. Defaults to "emit".
	Kind string `yaml:"kind,omitempty" json:"kind,omitempty"`

	// Event selects the event type (e.g. "ping", "halt").
	Event string `yaml:"event,omitempty" json:"event,omitempty"`

	// MachineKind selects the machine's kind; for bus events, the emitter's.
	MachineKind string `yaml:"machine_kind,omitempty" json:"machine_kind,omitempty"`

	// From and To select step transitions.
	From string `yaml:"from,omitempty" json:"from,omitempty"`
	To   string `yaml:"to,omitempty" json:"to,omitempty"`

	// Value selects the event value (compared as canonical JSON).
	Value any `yaml:"value,omitempty" json:"value,omitempty"`

	// Count is the expected number of matches (trace_count).
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// Events is the expected first-appearance order (trace_order).
	Events []string `yaml:"events,omitempty" json:"events,omitempty"`

	// Lines is the expected program output (output).
	Lines []string `yaml:"lines,omitempty" json:"lines,omitempty"`

	// Max is the cycle ceiling (cycles_max).
	Max int64 `yaml:"max,omitempty" json:"max,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertOutput        = "output"
	AssertCyclesMax     = "cycles_max"
)

// LoadScenario reads and parses a scenario file. The format follows the
// extension: .yaml/.yml or .cue.
//
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario *Scenario
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		scenario, err = parseYAML(data)
	case ".cue":
		scenario, err = parseCUE(path, data)
	default:
		return nil, fmt.Errorf("unsupported scenario format: %s", path)
	}
	if err != nil {
		return nil, err
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return scenario, nil
}

func parseYAML(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// parseCUE evaluates a CUE file to concrete JSON and decodes that strictly,
// so CUE scenarios reject unknown fields the same way YAML ones do.
func parseCUE(path string, data []byte) (*Scenario, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE: %w", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("CUE scenario is not concrete: %w", err)
	}

	raw, err := value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to export CUE: %w", err)
	}

	var scenario Scenario
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	decoder.UseNumber()
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to decode CUE scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Program == "" {
		return fmt.Errorf("program is required")
	}

	prog, err := programs.Lookup(s.Program)
	if err != nil {
		return err
	}
	if _, err := prog.Resolve(s.Params); err != nil {
		return err
	}

	if s.MaxCycles < 0 {
		return fmt.Errorf("max_cycles must be non-negative")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	if a.Kind != "" && !validKind(a.Kind) {
		return fmt.Errorf("assertions[%d]: unknown trace kind %q", index, a.Kind)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Event == "" && a.MachineKind == "" && a.From == "" && a.To == "" {
			return fmt.Errorf("assertions[%d]: trace_contains needs at least one of event, machine_kind, from, to", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertOutput:
		if a.Lines == nil {
			return fmt.Errorf("assertions[%d]: lines is required for output (use [] for no output)", index)
		}
	case AssertCyclesMax:
		if a.Max <= 0 {
			return fmt.Errorf("assertions[%d]: max must be positive for cycles_max", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func validKind(kind string) bool {
	for _, k := range trace.Kinds {
		if string(k) == kind {
			return true
		}
	}
	return false
}

// FindScenarios returns scenario files under dir, sorted by path.
// If pattern is non-empty, only files whose base name (without extension)
// matches the glob are returned.
func FindScenarios(dir, pattern string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" && ext != ".cue" {
			return nil
		}
		if pattern != "" {
			base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			ok, err := filepath.Match(pattern, base)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
