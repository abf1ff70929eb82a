// Package harness runs scenario files against the program catalog.
//
// # Scenario Format
//
// Scenarios are YAML (or CUE) files with the following structure:
//
//	name: pingpong-two-rounds
//	description: "ponger answers every ping"
//	program: pingpong
//	params: { rounds: 2 }
//	max_cycles: 1000
//	assertions:
//	  - type: trace_contains
//	    event: ping_ack
//	    machine_kind: Ponger
//	  - type: trace_order
//	    events: [ping, ping_ack]
//	  - type: trace_count
//	    kind: step
//	    to: pong
//	    count: 2
//	  - type: output
//	    lines: ["ping 1", "pong 1", ...]
//	  - type: cycles_max
//	    max: 200
//
// # Assertion Types
//
//   - trace_contains: some trace event matches the selector
//   - trace_order: event types first appear in the listed order
//   - trace_count: exactly count trace events match the selector
//   - output: the program printed exactly these lines
//   - cycles_max: the run took at most max cycles
//
// A selector is the assertion's kind (default "emit"), event, machine_kind,
// from, to and value fields; unset fields match anything.
//
// # Golden Files
//
// Each run can be snapshotted as canonical JSON lines: a header with the
// program, params, output and cycle count, then one line per trace event.
// RunWithGolden compares the snapshot against testdata/golden/{name}.golden.
package harness
