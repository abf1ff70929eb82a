// Package engine implements the eventsim machine runtime.
//
// Machines are independent state machines that talk only through events.
// A Control owns every machine, the event bus and the reaction registries,
// and runs them deterministically on a single goroutine.
//
// ARCHITECTURE:
//
// Cycle:
// 1. Flush: every event on the bus is moved to inboxes (fixed point)
// 2. The machine at the head of the schedule takes exactly one state step
// 3. That machine rotates to the tail unless the step halted it
//
// Run repeats cycles until no machine is left.
//
// Routing:
//   - Directed events reach their destination if it is still alive, and are
//     dropped otherwise.
//   - Broadcast events reach every live machine except the emitter.
//
// Reactions:
// A machine in the built-in Listen state pops one inbox event per step and
// asks the Control for a reaction. Reactions are registered by type (any
// emitter) or by (type, emitter); the type table wins when both match. An
// event without a reaction is dropped. If the event asked for an
// acknowledgement, Listen emits <type>_ack to the emitter before the
// reaction's state runs.
//
// Lifecycle:
// StartMachine subscribes every new machine to its context's "start" (go to
// the init state) and "halt" (go to Halt). The built-in Halt state
// broadcasts "halt" and leaves the schedule, so halting a parent halts its
// children on their next turns.
//
// DETERMINISM:
//
// Events are stamped from a logical Clock, the schedule is a strict
// round-robin ring, and broadcast delivery follows schedule order. The same
// program always produces the same trace.
package engine
