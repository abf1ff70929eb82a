package programs

import "github.com/roach88/eventsim/internal/engine"

type pinger struct {
	out    *Output
	rounds int
	round  int
	ponger engine.MachineID
}

func newPinger(p Params, out *Output) engine.Behavior {
	return &pinger{out: out, rounds: p["rounds"]}
}

func (p *pinger) Kind() string { return "Pinger" }

func (p *pinger) Init(m *engine.Machine) {
	m.SetInitState("begin")
}

func (p *pinger) States() engine.States {
	return engine.States{
		"begin": func(m *engine.Machine) engine.StateID {
			p.ponger = m.StartMachine(&ponger{out: p.out}).ID()
			return "serve"
		},
		"serve": func(m *engine.Machine) engine.StateID {
			if p.round == p.rounds {
				p.out.Printf("pinger done after %d rounds", p.round)
				return engine.Halt
			}
			p.round++
			p.out.Printf("ping %d", p.round)
			m.EmitTo(p.ponger, "ping", p.round, engine.WithAck("returned"))
			return ""
		},
		"returned": func(m *engine.Machine) engine.StateID {
			ev, _ := m.Event()
			p.out.Printf("ack %v", ev.Value)
			return "serve"
		},
	}
}

func (p *pinger) Vars() []engine.Var {
	return []engine.Var{{Name: "round", Value: p.round}, {Name: "rounds", Value: p.rounds}}
}

type ponger struct {
	out   *Output
	count int
}

func (p *ponger) Kind() string { return "Ponger" }

func (p *ponger) Init(m *engine.Machine) {
	m.SetInitState("ready")
	m.WhenMachineEmits("ping", m.Context(), "pong")
}

func (p *ponger) States() engine.States {
	return engine.States{
		"ready": func(m *engine.Machine) engine.StateID { return "" },
		"pong": func(m *engine.Machine) engine.StateID {
			ev, _ := m.Event()
			p.count++
			p.out.Printf("pong %v", ev.Value)
			return ""
		},
	}
}

func (p *ponger) Vars() []engine.Var {
	return []engine.Var{{Name: "count", Value: p.count}}
}
