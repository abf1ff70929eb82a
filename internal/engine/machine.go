package engine

import (
	"fmt"
	"strings"
)

// StateID names a state of a machine.
type StateID string

// Built-in states shared by every machine. They are resolved before the
// behavior's own table, so a behavior cannot override them.
const (
	Listen StateID = "listen"
	Halt   StateID = "halt"
)

// StateFunc is one state of a machine. It returns the next state, or ""
// to fall back to Listen.
type StateFunc func(m *Machine) StateID

// States is a machine kind's dispatch table.
type States map[StateID]StateFunc

// Behavior is a concrete machine kind.
//
// Init runs once while the machine is constructed. It typically calls
// SetInitState and may register reactions. A machine whose Init never sets
// an init state halts as soon as it is started.
type Behavior interface {
	Init(m *Machine)
	States() States
}

// Named lets a behavior report its kind name for diagnostics.
type Named interface {
	Kind() string
}

// Var is one formatted variable in a machine's diagnostic report.
type Var struct {
	Name  string
	Value any
}

// String renders the variable as name=value.
func (v Var) String() string {
	return fmt.Sprintf("%s=%v", v.Name, v.Value)
}

// Inspectable lets a behavior expose variables for debug output.
type Inspectable interface {
	Vars() []Var
}

// FormatVars joins variables into a comma-separated string.
func FormatVars(vars []Var) string {
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

// Machine is one running instance of a Behavior.
//
// A machine is alive while it is in its Control's schedule. The inbox is
// appended only by the Control and consumed only by the machine itself.
type Machine struct {
	id       MachineID
	ctl      *Control
	context  MachineID
	kind     string
	behavior Behavior
	states   States

	current StateID
	init    StateID
	inbox   *eventQueue

	event   *Event // last event popped by listen
	reacted *Event // last event a reaction fired for
}

func newMachine(ctl *Control, id, context MachineID, b Behavior) *Machine {
	m := &Machine{
		id:       id,
		ctl:      ctl,
		context:  context,
		kind:     kindOf(b),
		behavior: b,
		current:  Listen,
		init:     Halt,
		inbox:    newEventQueue(),
	}
	if b != nil {
		m.states = b.States()
		b.Init(m)
	}
	return m
}

func kindOf(b Behavior) string {
	if b == nil {
		return "unconfigured"
	}
	if n, ok := b.(Named); ok {
		return n.Kind()
	}
	name := fmt.Sprintf("%T", b)
	name = strings.TrimPrefix(name, "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// ID returns the machine's identity.
func (m *Machine) ID() MachineID { return m.id }

// Context returns the machine that started this one.
func (m *Machine) Context() MachineID { return m.context }

// Kind returns the behavior's kind name.
func (m *Machine) Kind() string { return m.kind }

// Behavior returns the machine's behavior.
func (m *Machine) Behavior() Behavior { return m.behavior }

// State returns the current state.
func (m *Machine) State() StateID { return m.current }

// InitState returns the state entered on the "start" event.
func (m *Machine) InitState() StateID { return m.init }

// SetInitState sets the state entered on the "start" event. It only has an
// effect during Init, before the start reaction is registered.
func (m *Machine) SetInitState(state StateID) { m.init = state }

// Event returns the event most recently taken from the inbox. States
// reached through a reaction see the event that triggered them.
func (m *Machine) Event() (Event, bool) {
	if m.event == nil {
		return Event{}, false
	}
	return *m.event, true
}

// LastReacted returns the event the last listen step reacted to.
func (m *Machine) LastReacted() (Event, bool) {
	if m.reacted == nil {
		return Event{}, false
	}
	return *m.reacted, true
}

// InboxLen returns the number of queued events.
func (m *Machine) InboxLen() int { return m.inbox.Len() }

// Inbox returns a copy of the queued events, oldest first.
func (m *Machine) Inbox() []Event { return m.inbox.Snapshot() }

// Vars returns the behavior's diagnostic variables, if it exposes any.
func (m *Machine) Vars() []Var {
	if in, ok := m.behavior.(Inspectable); ok {
		return in.Vars()
	}
	return nil
}

// Alive reports whether the machine is still scheduled.
func (m *Machine) Alive() bool { return m.ctl.Active(m.id) }

// step runs the current state and moves to the next one.
//
// Halt is terminal: once entered, the machine stays in Halt whatever the
// state returns, and a machine that has already left the schedule does not
// run it again.
func (m *Machine) step() error {
	if m.current == Halt {
		if m.ctl.Active(m.id) {
			m.halt()
		}
		return nil
	}

	next, err := m.run(m.current)
	if err != nil {
		return err
	}
	if next == "" {
		next = Listen
	}
	if !m.defines(next) {
		return NewUnknownStateError(m, next)
	}
	m.current = next
	return nil
}

func (m *Machine) run(state StateID) (StateID, error) {
	if state == Listen {
		return m.listen(), nil
	}
	fn, ok := m.states[state]
	if !ok {
		return "", NewUnknownStateError(m, state)
	}
	return fn(m), nil
}

func (m *Machine) defines(state StateID) bool {
	if state == Listen || state == Halt {
		return true
	}
	_, ok := m.states[state]
	return ok
}

// listen is the built-in Listen state.
func (m *Machine) listen() StateID {
	ev, ok := m.inbox.TryDequeue()
	if !ok {
		m.reacted = nil
		return ""
	}
	m.event = &ev

	state, ok := m.ctl.FilterReaction(m, ev)
	if !ok {
		m.reacted = nil
		return ""
	}
	m.reacted = &ev

	// The acknowledgement goes out before anything the target state emits.
	if ev.Ack {
		m.EmitTo(ev.Emitter, AckType(ev.Type), ev.Value)
	}

	return state
}

// halt is the built-in Halt state: announce, then leave the schedule.
// Children started by this machine react to the broadcast and halt too.
func (m *Machine) halt() {
	m.Emit(EventHalt, nil)
	m.ctl.Halt(m)
}

// EmitOption configures EmitTo.
type EmitOption func(*emitConfig)

type emitConfig struct {
	ackState StateID
}

// WithAck requests an acknowledgement. When the receiver's listen step
// consumes the event it emits <type>_ack back, and the emitter transitions
// to state on receiving it.
func WithAck(state StateID) EmitOption {
	return func(c *emitConfig) {
		c.ackState = state
	}
}

// Emit broadcasts an event to every other active machine.
func (m *Machine) Emit(typ string, value any) {
	m.EmitTo(NoMachine, typ, value)
}

// EmitTo sends an event to dest, or broadcasts it when dest is NoMachine.
//
// With WithAck, the matching reaction is registered as well: for a directed
// event it fires only on dest's <type>_ack; for a broadcast, on any
// machine's <type>_ack. Registering again for the same key overwrites, so
// concurrent handshakes of the same type collapse into one pending reaction.
func (m *Machine) EmitTo(dest MachineID, typ string, value any, opts ...EmitOption) {
	var cfg emitConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	m.ctl.Emit(Event{
		Type:        typ,
		Emitter:     m.id,
		Destination: dest,
		Value:       value,
		Ack:         cfg.ackState != "",
	})

	if cfg.ackState == "" {
		return
	}
	if dest == NoMachine {
		m.When(AckType(typ), cfg.ackState)
	} else {
		m.WhenMachineEmits(AckType(typ), dest, cfg.ackState)
	}
}

// StartMachine starts a child machine with this machine as its context.
func (m *Machine) StartMachine(b Behavior) *Machine {
	return m.ctl.StartMachine(m.id, b)
}

// When reacts to any machine emitting typ by moving to state.
func (m *Machine) When(typ string, state StateID) {
	m.ctl.AddTypeReaction(typ, m.id, state)
}

// WhenMachineEmits reacts to emitter emitting typ by moving to state.
func (m *Machine) WhenMachineEmits(typ string, emitter MachineID, state StateID) {
	m.ctl.AddSourceReaction(typ, emitter, m.id, state)
}

// IgnoreWhen removes the reaction registered with When and discards queued
// events of that type.
func (m *Machine) IgnoreWhen(typ string) {
	m.ctl.RemoveTypeReaction(typ, m.id)
	m.inbox.Filter(func(ev Event) bool {
		return ev.Type != typ
	})
}

// IgnoreWhenMachineEmits removes the reaction registered with
// WhenMachineEmits and discards queued events of that type from emitter.
func (m *Machine) IgnoreWhenMachineEmits(typ string, emitter MachineID) {
	m.ctl.RemoveSourceReaction(typ, emitter, m.id)
	m.inbox.Filter(func(ev Event) bool {
		return ev.Type != typ || ev.Emitter != emitter
	})
}
