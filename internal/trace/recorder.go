package trace

import (
	"github.com/roach88/eventsim/internal/engine"
)

// Kind classifies a trace event.
type Kind string

const (
	KindStart   Kind = "start"
	KindEmit    Kind = "emit"
	KindDeliver Kind = "deliver"
	KindDrop    Kind = "drop"
	KindStep    Kind = "step"
	KindHalt    Kind = "halt"
)

// Kinds lists every trace kind in a stable order.
var Kinds = []Kind{KindStart, KindEmit, KindDeliver, KindDrop, KindStep, KindHalt}

// Event is one entry in a run's trace.
//
// Which fields are set depends on Kind:
//   - start/halt: Machine, MachineKind, Emitter (the context), To (init state)
//   - emit: Seq, Type, Emitter, Destination, Value, Ack, and MachineKind
//     of the emitter
//   - deliver/drop: as emit, plus Recipients
//   - step: Machine, MachineKind, From, To, Vars, and Type/Emitter/Seq of
//     the event reacted to, if any
type Event struct {
	Index       int                `json:"index"`
	Cycle       int64              `json:"cycle"`
	Kind        Kind               `json:"kind"`
	Seq         int64              `json:"seq,omitempty"`
	Machine     engine.MachineID   `json:"machine,omitempty"`
	MachineKind string             `json:"machine_kind,omitempty"`
	Type        string             `json:"type,omitempty"`
	Emitter     engine.MachineID   `json:"emitter,omitempty"`
	Destination engine.MachineID   `json:"destination,omitempty"`
	Recipients  []engine.MachineID `json:"recipients,omitempty"`
	Ack         bool               `json:"ack,omitempty"`
	From        engine.StateID     `json:"from,omitempty"`
	To          engine.StateID     `json:"to,omitempty"`
	Vars        string             `json:"vars,omitempty"`
	Value       any                `json:"value,omitempty"`
}

// Recorder is an engine.Observer that keeps every notification in order.
type Recorder struct {
	events []Event
	cycle  int64
	kinds  map[engine.MachineID]string
}

var _ engine.Observer = (*Recorder)(nil)

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{kinds: make(map[engine.MachineID]string)}
}

func (r *Recorder) add(ev Event) {
	ev.Index = len(r.events)
	ev.Cycle = r.cycle
	r.events = append(r.events, ev)
}

func (r *Recorder) BeforeCycle(cycle int64) {
	r.cycle = cycle
}

func (r *Recorder) MachineStarted(info engine.MachineInfo) {
	r.kinds[info.ID] = info.Kind
	r.add(Event{
		Kind:        KindStart,
		Machine:     info.ID,
		MachineKind: info.Kind,
		Emitter:     info.Context,
		To:          info.Init,
	})
}

func (r *Recorder) Emitted(ev engine.Event) {
	r.add(r.fromEngineEvent(KindEmit, ev))
}

func (r *Recorder) Distributed(ev engine.Event, recipients []engine.MachineID) {
	kind := KindDeliver
	if len(recipients) == 0 {
		kind = KindDrop
	}
	rec := r.fromEngineEvent(kind, ev)
	if len(recipients) > 0 {
		rec.Recipients = append([]engine.MachineID(nil), recipients...)
	}
	r.add(rec)
}

func (r *Recorder) Stepped(step engine.StepRecord) {
	rec := Event{
		Kind:        KindStep,
		Machine:     step.Machine,
		MachineKind: step.Kind,
		From:        step.From,
		To:          step.To,
	}
	if len(step.Vars) > 0 {
		rec.Vars = engine.FormatVars(step.Vars)
	}
	if step.Reacted != nil {
		rec.Seq = step.Reacted.Seq
		rec.Type = step.Reacted.Type
		rec.Emitter = step.Reacted.Emitter
	}
	r.add(rec)
}

func (r *Recorder) Halted(info engine.MachineInfo) {
	r.add(Event{
		Kind:        KindHalt,
		Machine:     info.ID,
		MachineKind: info.Kind,
		Emitter:     info.Context,
	})
}

// Snapshot returns a copy of the trace so far.
func (r *Recorder) Snapshot() []Event {
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	return len(r.events)
}

func (r *Recorder) fromEngineEvent(kind Kind, ev engine.Event) Event {
	return Event{
		Kind:        kind,
		MachineKind: r.kinds[ev.Emitter],
		Seq:         ev.Seq,
		Type:        ev.Type,
		Emitter:     ev.Emitter,
		Destination: ev.Destination,
		Ack:         ev.Ack,
		Value:       ev.Value,
	}
}

// Filter selects trace events. Zero fields match everything.
type Filter struct {
	Kind    Kind
	Type    string
	Machine engine.MachineID
}

// Match reports whether ev satisfies every set field of f.
func (f Filter) Match(ev Event) bool {
	if f.Kind != "" && ev.Kind != f.Kind {
		return false
	}
	if f.Type != "" && ev.Type != f.Type {
		return false
	}
	if f.Machine != engine.NoMachine && ev.Machine != f.Machine && ev.Emitter != f.Machine {
		return false
	}
	return true
}

// Select returns the events matching f, in order.
func Select(events []Event, f Filter) []Event {
	var out []Event
	for _, ev := range events {
		if f.Match(ev) {
			out = append(out, ev)
		}
	}
	return out
}
