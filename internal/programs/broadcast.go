package programs

import "github.com/roach88/eventsim/internal/engine"

// announcer broadcasts with acknowledgement. Every peer acks, but the ack
// reaction is a single registration, so only the first ack is handled.
type announcer struct {
	out   *Output
	peers int
}

func newAnnouncer(p Params, out *Output) engine.Behavior {
	return &announcer{out: out, peers: p["peers"]}
}

func (a *announcer) Kind() string { return "Announcer" }

func (a *announcer) Init(m *engine.Machine) {
	m.SetInitState("announce")
}

func (a *announcer) States() engine.States {
	return engine.States{
		"announce": func(m *engine.Machine) engine.StateID {
			for i := 0; i < a.peers; i++ {
				m.StartMachine(&peer{out: a.out})
			}
			a.out.Printf("announcing to %d peers", a.peers)
			m.EmitTo(engine.NoMachine, "news", "hello", engine.WithAck("heard"))
			return ""
		},
		"heard": func(m *engine.Machine) engine.StateID {
			ev, _ := m.Event()
			a.out.Printf("first ack from %s", ev.Emitter)
			return engine.Halt
		},
	}
}

type peer struct {
	out  *Output
	read bool
}

func (p *peer) Kind() string { return "Peer" }

func (p *peer) Init(m *engine.Machine) {
	m.SetInitState("idle")
	m.When("news", "read")
}

func (p *peer) States() engine.States {
	return engine.States{
		"idle": func(m *engine.Machine) engine.StateID { return "" },
		"read": func(m *engine.Machine) engine.StateID {
			ev, _ := m.Event()
			p.read = true
			p.out.Printf("%s read %v", m.ID(), ev.Value)
			return ""
		},
	}
}

func (p *peer) Vars() []engine.Var {
	return []engine.Var{{Name: "read", Value: p.read}}
}
