package harness

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/eventsim/internal/engine"
	"github.com/roach88/eventsim/internal/trace"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Trace    []trace.Event // Matching-kind events for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTrace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", ev.Index, describe(ev))
		}
	}

	return buf.String()
}

// describe renders one trace event on a single line.
func describe(ev trace.Event) string {
	switch ev.Kind {
	case trace.KindStep:
		s := fmt.Sprintf("cycle %d: %s %s %s -> %s", ev.Cycle, ev.MachineKind, ev.Machine, ev.From, ev.To)
		if ev.Type != "" {
			s += fmt.Sprintf(" on %s from %s", ev.Type, ev.Emitter)
		}
		return s
	case trace.KindStart, trace.KindHalt:
		return fmt.Sprintf("cycle %d: %s %s %s", ev.Cycle, ev.Kind, ev.MachineKind, ev.Machine)
	default:
		return fmt.Sprintf("cycle %d: %s %s %s -> %s value=%v", ev.Cycle, ev.Kind, ev.Type, ev.Emitter, ev.Destination, ev.Value)
	}
}

// selectorKind returns the trace kind an assertion looks at.
func selectorKind(a Assertion) trace.Kind {
	if a.Kind == "" {
		return trace.KindEmit
	}
	return trace.Kind(a.Kind)
}

// matches reports whether ev satisfies every set selector field of a.
func matches(ev trace.Event, a Assertion) bool {
	if ev.Kind != selectorKind(a) {
		return false
	}
	if a.Event != "" && ev.Type != a.Event {
		return false
	}
	if a.MachineKind != "" && ev.MachineKind != a.MachineKind {
		return false
	}
	if a.From != "" && ev.From != engine.StateID(a.From) {
		return false
	}
	if a.To != "" && ev.To != engine.StateID(a.To) {
		return false
	}
	if a.Value != nil && !sameValue(ev.Value, a.Value) {
		return false
	}
	return true
}

// sameValue compares values by their canonical JSON form, so an int from
// YAML equals a json.Number from CUE equals an int from a program.
func sameValue(got, want any) bool {
	g, err := trace.MarshalCanonical(got)
	if err != nil {
		return false
	}
	w, err := trace.MarshalCanonical(want)
	if err != nil {
		return false
	}
	return bytes.Equal(g, w)
}

func selectorDesc(a Assertion) string {
	parts := []string{"kind=" + string(selectorKind(a))}
	if a.Event != "" {
		parts = append(parts, "event="+a.Event)
	}
	if a.MachineKind != "" {
		parts = append(parts, "machine_kind="+a.MachineKind)
	}
	if a.From != "" {
		parts = append(parts, "from="+a.From)
	}
	if a.To != "" {
		parts = append(parts, "to="+a.To)
	}
	if a.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", a.Value))
	}
	return strings.Join(parts, " ")
}

// assertTraceContains checks that at least one trace event matches.
func assertTraceContains(events []trace.Event, a Assertion) error {
	for _, ev := range events {
		if matches(ev, a) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: selectorDesc(a),
		Actual:   "not found in trace",
		Trace:    trace.Select(events, trace.Filter{Kind: selectorKind(a)}),
	}
}

// assertTraceOrder checks that event types first appear in the given order.
// Intervening events are allowed.
func assertTraceOrder(events []trace.Event, a Assertion) error {
	kind := selectorKind(a)
	positions := make(map[string]int)

	for i, ev := range events {
		if ev.Kind != kind {
			continue
		}
		if _, seen := positions[ev.Type]; !seen && slices.Contains(a.Events, ev.Type) {
			positions[ev.Type] = i
		}
	}

	for _, typ := range a.Events {
		if _, ok := positions[typ]; !ok {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all events present: %v", a.Events),
				Actual:   fmt.Sprintf("missing event: %s", typ),
				Trace:    trace.Select(events, trace.Filter{Kind: kind}),
			}
		}
	}

	for i := 1; i < len(a.Events); i++ {
		prev, curr := a.Events[i-1], a.Events[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Events),
				Actual: fmt.Sprintf("%s (index %d) should be before %s (index %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace.Select(events, trace.Filter{Kind: kind}),
			}
		}
	}

	return nil
}

// assertTraceCount checks that exactly Count trace events match.
func assertTraceCount(events []trace.Event, a Assertion) error {
	count := 0
	for _, ev := range events {
		if matches(ev, a) {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d events matching %s", a.Count, selectorDesc(a)),
			Actual:   fmt.Sprintf("%d events", count),
		}
	}
	return nil
}

// assertOutput checks the program's printed lines exactly.
func assertOutput(output []string, a Assertion) error {
	if slices.Equal(output, a.Lines) {
		return nil
	}
	return &AssertionError{
		Type:     AssertOutput,
		Expected: fmt.Sprintf("%q", a.Lines),
		Actual:   fmt.Sprintf("%q", output),
	}
}

// assertCyclesMax checks the run's cycle count against a ceiling.
func assertCyclesMax(cycles int64, a Assertion) error {
	if cycles <= a.Max {
		return nil
	}
	return &AssertionError{
		Type:     AssertCyclesMax,
		Expected: fmt.Sprintf("at most %d cycles", a.Max),
		Actual:   fmt.Sprintf("%d cycles", cycles),
	}
}

// EvaluateAssertions runs every assertion against the result and returns
// one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertOutput:
			err = assertOutput(result.Output, a)
		case AssertCyclesMax:
			err = assertCyclesMax(result.Cycles, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}
