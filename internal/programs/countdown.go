package programs

import "github.com/roach88/eventsim/internal/engine"

// countdown loops by addressing "tick" to itself; a state never loops.
type countdown struct {
	out *Output
	n   int
}

func newCountdown(p Params, out *Output) engine.Behavior {
	return &countdown{out: out, n: p["from"]}
}

func (c *countdown) Kind() string { return "Countdown" }

func (c *countdown) Init(m *engine.Machine) {
	m.SetInitState("tick")
	m.WhenMachineEmits("tick", m.ID(), "tick")
}

func (c *countdown) States() engine.States {
	return engine.States{
		"tick": func(m *engine.Machine) engine.StateID {
			if c.n == 0 {
				c.out.Printf("liftoff")
				return engine.Halt
			}
			c.out.Printf("%d", c.n)
			c.n--
			m.EmitTo(m.ID(), "tick", c.n)
			return ""
		},
	}
}

func (c *countdown) Vars() []engine.Var {
	return []engine.Var{{Name: "n", Value: c.n}}
}
