package programs

import "github.com/roach88/eventsim/internal/engine"

type supervisor struct {
	out      *Output
	children int
	ready    int
}

func newSupervisor(p Params, out *Output) engine.Behavior {
	return &supervisor{out: out, children: p["children"]}
}

func (s *supervisor) Kind() string { return "Supervisor" }

func (s *supervisor) Init(m *engine.Machine) {
	m.SetInitState("spawn")
	m.When("ready", "count")
}

func (s *supervisor) States() engine.States {
	return engine.States{
		"spawn": func(m *engine.Machine) engine.StateID {
			for i := 0; i < s.children; i++ {
				m.StartMachine(&worker{out: s.out})
			}
			if s.children == 0 {
				return "finish"
			}
			return ""
		},
		"count": func(m *engine.Machine) engine.StateID {
			ev, _ := m.Event()
			s.ready++
			s.out.Printf("ready from %s (%d/%d)", ev.Emitter, s.ready, s.children)
			if s.ready < s.children {
				return ""
			}
			return "finish"
		},
		"finish": func(m *engine.Machine) engine.StateID {
			s.out.Printf("all %d workers ready, halting", s.children)
			return engine.Halt
		},
	}
}

func (s *supervisor) Vars() []engine.Var {
	return []engine.Var{{Name: "ready", Value: s.ready}, {Name: "children", Value: s.children}}
}

// worker reports once and then waits for its supervisor's halt.
type worker struct {
	out *Output
}

func (w *worker) Kind() string { return "Worker" }

func (w *worker) Init(m *engine.Machine) {
	m.SetInitState("report")
}

func (w *worker) States() engine.States {
	return engine.States{
		"report": func(m *engine.Machine) engine.StateID {
			m.EmitTo(m.Context(), "ready", nil)
			return ""
		},
	}
}
