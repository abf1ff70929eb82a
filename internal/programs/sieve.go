package programs

import "github.com/roach88/eventsim/internal/engine"

// generator feeds candidates into the first filter, one per acknowledgement.
type generator struct {
	out   *Output
	limit int
	next  int
	first engine.MachineID
}

func newGenerator(p Params, out *Output) engine.Behavior {
	return &generator{out: out, limit: p["limit"], next: 2}
}

func (g *generator) Kind() string { return "Generator" }

func (g *generator) Init(m *engine.Machine) {
	m.SetInitState("begin")
}

func (g *generator) States() engine.States {
	return engine.States{
		"begin": func(m *engine.Machine) engine.StateID {
			g.first = m.StartMachine(&filter{out: g.out}).ID()
			return "feed"
		},
		"feed": func(m *engine.Machine) engine.StateID {
			if g.next > g.limit {
				return engine.Halt
			}
			m.EmitTo(g.first, "number", g.next, engine.WithAck("fed"))
			g.next++
			return ""
		},
		"fed": func(m *engine.Machine) engine.StateID {
			return "feed"
		},
	}
}

func (g *generator) Vars() []engine.Var {
	return []engine.Var{{Name: "next", Value: g.next}}
}

// filter keeps the first number it sees as its prime and forwards every
// number not divisible by it, starting the next filter on demand.
//
// Events on each link arrive in order, so by the time the halt cascade
// reaches a filter it has already received everything upstream sent it.
type filter struct {
	out   *Output
	prime int
	next  engine.MachineID
}

func (f *filter) Kind() string { return "Filter" }

func (f *filter) Init(m *engine.Machine) {
	m.SetInitState("wait")
	m.WhenMachineEmits("number", m.Context(), "number")
}

func (f *filter) States() engine.States {
	return engine.States{
		"wait": func(m *engine.Machine) engine.StateID { return "" },
		"number": func(m *engine.Machine) engine.StateID {
			ev, _ := m.Event()
			n, _ := ev.Value.(int)
			if f.prime == 0 {
				f.prime = n
				f.out.Printf("prime %d", n)
				return ""
			}
			if n%f.prime == 0 {
				return ""
			}
			if f.next == engine.NoMachine {
				f.next = m.StartMachine(&filter{out: f.out}).ID()
			}
			m.EmitTo(f.next, "number", n, engine.WithAck("forwarded"))
			return ""
		},
		"forwarded": func(m *engine.Machine) engine.StateID { return "" },
	}
}

func (f *filter) Vars() []engine.Var {
	return []engine.Var{{Name: "prime", Value: f.prime}}
}
