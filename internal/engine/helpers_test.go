package engine

import (
	"io"
	"log/slog"
	"testing"
)

// scripted is a test behavior assembled from closures.
type scripted struct {
	kind   string
	init   StateID
	states States
	setup  func(m *Machine)
}

func (s *scripted) Init(m *Machine) {
	if s.init != "" {
		m.SetInitState(s.init)
	}
	if s.setup != nil {
		s.setup(m)
	}
}

func (s *scripted) States() States {
	if s.states == nil {
		return States{}
	}
	return s.states
}

func (s *scripted) Kind() string {
	if s.kind == "" {
		return "scripted"
	}
	return s.kind
}

// idle starts into a state that immediately falls back to Listen.
func idle(kind string) *scripted {
	return &scripted{
		kind: kind,
		init: "idle",
		states: States{
			"idle": func(m *Machine) StateID { return "" },
		},
	}
}

// recorder captures observer notifications.
type recorder struct {
	NopObserver
	emitted     []Event
	distributed []distribution
	steps       []StepRecord
	halted      []MachineID
	started     []MachineInfo
}

type distribution struct {
	ev         Event
	recipients []MachineID
}

func (r *recorder) MachineStarted(info MachineInfo) { r.started = append(r.started, info) }
func (r *recorder) Emitted(ev Event)                { r.emitted = append(r.emitted, ev) }
func (r *recorder) Stepped(rec StepRecord)          { r.steps = append(r.steps, rec) }
func (r *recorder) Halted(info MachineInfo)         { r.halted = append(r.halted, info.ID) }

func (r *recorder) Distributed(ev Event, recipients []MachineID) {
	cp := make([]MachineID, len(recipients))
	copy(cp, recipients)
	r.distributed = append(r.distributed, distribution{ev: ev, recipients: cp})
}

// stepsOf returns the step records of one machine, in order.
func (r *recorder) stepsOf(id MachineID) []StepRecord {
	var out []StepRecord
	for _, s := range r.steps {
		if s.Machine == id {
			out = append(out, s)
		}
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestControl(t *testing.T, opts ...Option) (*Control, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts = append([]Option{WithLogger(quietLogger()), WithObserver(rec)}, opts...)
	return New(opts...), rec
}

// flush drains the bus like the first half of a cycle.
func flush(c *Control) {
	for c.distributeOne() {
	}
}
