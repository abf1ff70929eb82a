package trace

import "github.com/roach88/eventsim/internal/engine"

// Multi forwards every notification to each observer in order.
type Multi []engine.Observer

var _ engine.Observer = Multi(nil)

func (m Multi) MachineStarted(info engine.MachineInfo) {
	for _, o := range m {
		o.MachineStarted(info)
	}
}

func (m Multi) Emitted(ev engine.Event) {
	for _, o := range m {
		o.Emitted(ev)
	}
}

func (m Multi) Distributed(ev engine.Event, recipients []engine.MachineID) {
	for _, o := range m {
		o.Distributed(ev, recipients)
	}
}

func (m Multi) Stepped(rec engine.StepRecord) {
	for _, o := range m {
		o.Stepped(rec)
	}
}

func (m Multi) Halted(info engine.MachineInfo) {
	for _, o := range m {
		o.Halted(info)
	}
}

func (m Multi) BeforeCycle(cycle int64) {
	for _, o := range m {
		o.BeforeCycle(cycle)
	}
}
