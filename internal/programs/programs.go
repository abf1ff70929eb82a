// Package programs holds the catalog of runnable machine programs.
//
// A program is a root behavior plus the behaviors it starts. Programs write
// their observable results to an Output, which the CLI prints and the
// harness asserts on.
package programs

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/eventsim/internal/engine"
)

// ErrUnknownProgram is returned by Lookup for names not in the catalog.
var ErrUnknownProgram = errors.New("unknown program")

// ErrInvalidParam is returned by Resolve for unknown or out-of-range params.
var ErrInvalidParam = errors.New("invalid parameter")

// Params are a program's resolved integer parameters.
type Params map[string]int

// Param describes one program parameter.
type Param struct {
	Name    string
	Default int
	Min     int
	Usage   string
}

// Program is one catalog entry.
type Program struct {
	Name        string
	Description string
	Params      []Param

	build func(p Params, out *Output) engine.Behavior
}

// Build returns the root behavior for the given params.
func (p Program) Build(params Params, out *Output) engine.Behavior {
	return p.build(params, out)
}

// Resolve merges overrides into the defaults and validates them.
func (p Program) Resolve(overrides map[string]int) (Params, error) {
	resolved := make(Params, len(p.Params))
	for _, param := range p.Params {
		resolved[param.Name] = param.Default
	}

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		idx := slices.IndexFunc(p.Params, func(param Param) bool { return param.Name == name })
		if idx < 0 {
			return nil, fmt.Errorf("%w: program %q has no parameter %q", ErrInvalidParam, p.Name, name)
		}
		value := overrides[name]
		if lo := p.Params[idx].Min; value < lo {
			return nil, fmt.Errorf("%w: %s=%d is below minimum %d", ErrInvalidParam, name, value, lo)
		}
		resolved[name] = value
	}
	return resolved, nil
}

// Usage renders the parameter list as "name=default" pairs.
func (p Program) Usage() string {
	parts := make([]string, len(p.Params))
	for i, param := range p.Params {
		parts[i] = fmt.Sprintf("%s=%d", param.Name, param.Default)
	}
	return strings.Join(parts, " ")
}

var catalog = []Program{
	{
		Name:        "pingpong",
		Description: "directed ping with acknowledgement between two machines",
		Params:      []Param{{Name: "rounds", Default: 3, Min: 0, Usage: "number of ping rounds"}},
		build:       newPinger,
	},
	{
		Name:        "countdown",
		Description: "a machine counting down through self-addressed events",
		Params:      []Param{{Name: "from", Default: 5, Min: 0, Usage: "starting value"}},
		build:       newCountdown,
	},
	{
		Name:        "cascade",
		Description: "a parent waits for its workers to report, then halts them all",
		Params:      []Param{{Name: "children", Default: 3, Min: 0, Usage: "number of workers"}},
		build:       newSupervisor,
	},
	{
		Name:        "sieve",
		Description: "prime sieve built from a chain of filter machines",
		Params:      []Param{{Name: "limit", Default: 30, Min: 2, Usage: "largest candidate"}},
		build:       newGenerator,
	},
	{
		Name:        "broadcast",
		Description: "a broadcast with acknowledgement to several peers",
		Params:      []Param{{Name: "peers", Default: 3, Min: 1, Usage: "number of peers"}},
		build:       newAnnouncer,
	},
}

// Catalog returns every program, sorted by name.
func Catalog() []Program {
	out := slices.Clone(catalog)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup finds a program by name.
func Lookup(name string) (Program, error) {
	for _, p := range catalog {
		if p.Name == name {
			return p, nil
		}
	}
	return Program{}, fmt.Errorf("%w: %q", ErrUnknownProgram, name)
}

// Output collects the lines a program prints.
type Output struct {
	lines []string
	w     io.Writer
}

// NewOutput creates an Output that also echoes each line to w, if non-nil.
func NewOutput(w io.Writer) *Output {
	return &Output{w: w}
}

// Printf appends one formatted line.
func (o *Output) Printf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	o.lines = append(o.lines, line)
	if o.w != nil {
		fmt.Fprintln(o.w, line)
	}
}

// Lines returns a copy of the printed lines.
func (o *Output) Lines() []string {
	return slices.Clone(o.lines)
}
