package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainBehavior struct{}

func (plainBehavior) Init(m *Machine) {}
func (plainBehavior) States() States  { return nil }

type inspectable struct {
	plainBehavior
	count int
}

func (i *inspectable) Vars() []Var {
	return []Var{{Name: "count", Value: i.count}, {Name: "label", Value: "x"}}
}

func TestMachine_KindName(t *testing.T) {
	c, _ := newTestControl(t)

	assert.Equal(t, "named", c.StartMachine(RootID, idle("named")).Kind())
	assert.Equal(t, "plainBehavior", c.StartMachine(RootID, plainBehavior{}).Kind())
	assert.Equal(t, "inspectable", c.StartMachine(RootID, &inspectable{}).Kind())
	assert.Equal(t, "unconfigured", c.StartMachine(RootID, nil).Kind())
}

func TestMachine_Vars(t *testing.T) {
	c, _ := newTestControl(t)

	m := c.StartMachine(RootID, &inspectable{count: 3})
	vars := m.Vars()

	require.Len(t, vars, 2)
	assert.Equal(t, "count=3, label=x", FormatVars(vars))
	assert.Nil(t, c.StartMachine(RootID, idle("plain")).Vars())
}

func TestMachine_ListenEmptyInbox(t *testing.T) {
	c, _ := newTestControl(t)

	m := c.StartMachine(RootID, idle("a"))
	flush(c)
	require.NoError(t, m.step()) // consumes start
	require.NoError(t, m.step()) // idle -> listen

	require.NoError(t, m.step())
	assert.Equal(t, Listen, m.State())
	_, ok := m.LastReacted()
	assert.False(t, ok)
}

func TestMachine_ListenDropsUnmatched(t *testing.T) {
	c, rec := newTestControl(t)

	a := c.StartMachine(RootID, idle("a"))
	b := c.StartMachine(RootID, idle("b"))
	flush(c)
	require.NoError(t, b.step()) // start -> idle
	require.NoError(t, b.step()) // idle -> listen

	c.Emit(Event{Type: "unwanted", Emitter: a.ID(), Destination: b.ID()})
	flush(c)
	emittedBefore := len(rec.emitted)

	require.NoError(t, b.step())
	assert.Equal(t, Listen, b.State())
	assert.Equal(t, 0, b.InboxLen(), "unmatched event is consumed, not requeued")
	assert.Len(t, rec.emitted, emittedBefore)

	ev, ok := b.Event()
	require.True(t, ok)
	assert.Equal(t, "unwanted", ev.Type)
	_, ok = b.LastReacted()
	assert.False(t, ok)
}

func TestMachine_AckRoundTrip(t *testing.T) {
	c, rec := newTestControl(t)

	var gotAck bool
	var receiver MachineID

	server := &scripted{
		kind: "server",
		init: "serving",
		states: States{
			"serving": func(m *Machine) StateID { return "" },
			"handle": func(m *Machine) StateID {
				m.Emit("side-effect", nil)
				return ""
			},
		},
		setup: func(m *Machine) {
			m.When("ping", "handle")
		},
	}

	client := &scripted{
		kind: "client",
		init: "send",
		states: States{
			"send": func(m *Machine) StateID {
				receiver = m.StartMachine(server).ID()
				m.EmitTo(receiver, "ping", 7, WithAck("acked"))
				return ""
			},
			"acked": func(m *Machine) StateID {
				gotAck = true
				ev, ok := m.Event()
				if ok && ev.Type == "ping_ack" {
					return Halt
				}
				return ""
			},
		},
	}

	require.NoError(t, c.Run(context.Background(), client))
	assert.True(t, gotAck)

	var ackIdx, sideIdx = -1, -1
	for i, ev := range rec.emitted {
		switch ev.Type {
		case "ping":
			assert.True(t, ev.Ack)
			assert.Equal(t, receiver, ev.Destination)
		case "ping_ack":
			ackIdx = i
			assert.Equal(t, receiver, ev.Emitter)
			assert.Equal(t, MachineID(2), ev.Destination)
			assert.Equal(t, 7, ev.Value)
			assert.False(t, ev.Ack)
		case "side-effect":
			sideIdx = i
		}
	}
	require.GreaterOrEqual(t, ackIdx, 0)
	require.GreaterOrEqual(t, sideIdx, 0)
	assert.Less(t, ackIdx, sideIdx, "ack precedes the reaction's own emissions")
}

func TestMachine_AckBeforeOtherEmissionsInSameStep(t *testing.T) {
	c, rec := newTestControl(t)

	a := c.StartMachine(RootID, idle("a"))
	b := c.StartMachine(RootID, idle("b"))
	b.When("job", "idle")
	flush(c)
	require.NoError(t, b.step()) // start -> idle
	require.NoError(t, b.step()) // idle -> listen

	a.EmitTo(b.ID(), "job", "payload", WithAck("done"))
	flush(c)
	rec.emitted = nil

	require.NoError(t, b.step())
	assert.Equal(t, StateID("idle"), b.State())

	require.Len(t, rec.emitted, 1)
	ack := rec.emitted[0]
	assert.Equal(t, "job_ack", ack.Type)
	assert.Equal(t, b.ID(), ack.Emitter)
	assert.Equal(t, a.ID(), ack.Destination)
	assert.Equal(t, "payload", ack.Value)

	reacted, ok := b.LastReacted()
	require.True(t, ok)
	assert.Equal(t, "job", reacted.Type)

	// The emitter reacts to the ack from b, and only from b.
	state, ok := c.FilterReaction(a, ack)
	require.True(t, ok)
	assert.Equal(t, StateID("done"), state)
	_, ok = c.FilterReaction(a, Event{Type: "job_ack", Emitter: RootID})
	assert.False(t, ok)
}

// A broadcast with ack transitions the emitter on any peer's ack.
func TestMachine_BroadcastAckExample(t *testing.T) {
	c, rec := newTestControl(t)

	var q *Machine
	peer := &scripted{
		kind: "Q",
		init: "ready",
		states: States{
			"ready": func(m *Machine) StateID { return "" },
			"pong":  func(m *Machine) StateID { return "" },
		},
		setup: func(m *Machine) { m.When("ping", "pong") },
	}

	var reachedS2 bool
	r := &scripted{
		kind: "R",
		init: "S1",
		states: States{
			"S1": func(m *Machine) StateID {
				q = m.StartMachine(peer)
				m.EmitTo(NoMachine, "ping", 7, WithAck("S2"))
				return ""
			},
			"S2": func(m *Machine) StateID {
				reachedS2 = true
				return Halt
			},
		},
	}

	require.NoError(t, c.Run(context.Background(), r))
	require.True(t, reachedS2)

	var pingRecipients, ackRecipients []MachineID
	for _, d := range rec.distributed {
		switch d.ev.Type {
		case "ping":
			pingRecipients = d.recipients
		case "ping_ack":
			ackRecipients = d.recipients
		}
	}
	assert.Equal(t, []MachineID{q.ID()}, pingRecipients)
	assert.Equal(t, []MachineID{MachineID(2)}, ackRecipients, "ack goes to R only")

	rSteps := rec.stepsOf(2)
	var sawTransition bool
	for _, s := range rSteps {
		if s.From == Listen && s.To == "S2" {
			sawTransition = true
			require.NotNil(t, s.Reacted)
			assert.Equal(t, "ping_ack", s.Reacted.Type)
			assert.Equal(t, q.ID(), s.Reacted.Emitter)
		}
	}
	assert.True(t, sawTransition)

	// Q was halted by R's halt broadcast.
	assert.Contains(t, rec.halted, q.ID())
}

func TestMachine_IgnoreWhenPurgesInbox(t *testing.T) {
	c, rec := newTestControl(t)

	a := c.StartMachine(RootID, idle("a"))
	b := c.StartMachine(RootID, idle("b"))
	flush(c)
	require.NoError(t, b.step()) // start -> idle
	require.NoError(t, b.step()) // idle -> listen

	b.When("x", "idle")
	a.EmitTo(b.ID(), "x", 1)
	a.EmitTo(b.ID(), "y", 2)
	a.EmitTo(b.ID(), "x", 3)
	flush(c)
	require.Equal(t, 3, b.InboxLen())

	b.IgnoreWhen("x")

	inbox := b.Inbox()
	require.Len(t, inbox, 1)
	assert.Equal(t, "y", inbox[0].Type)

	_, ok := c.FilterReaction(b, Event{Type: "x", Emitter: a.ID()})
	assert.False(t, ok)

	rec.steps = nil
	require.NoError(t, b.step())
	assert.Equal(t, Listen, b.State(), "no reaction fires for the revoked type")
}

func TestMachine_IgnoreWhenMachineEmitsPurgesOnlyThatEmitter(t *testing.T) {
	c, _ := newTestControl(t)

	a := c.StartMachine(RootID, idle("a"))
	other := c.StartMachine(RootID, idle("other"))
	b := c.StartMachine(RootID, idle("b"))
	flush(c)
	require.NoError(t, b.step())

	b.WhenMachineEmits("x", a.ID(), "idle")
	a.EmitTo(b.ID(), "x", 1)
	other.EmitTo(b.ID(), "x", 2)
	a.EmitTo(b.ID(), "z", 3)
	flush(c)

	b.IgnoreWhenMachineEmits("x", a.ID())

	inbox := b.Inbox()
	require.Len(t, inbox, 2)
	assert.Equal(t, other.ID(), inbox[0].Emitter)
	assert.Equal(t, "z", inbox[1].Type)

	_, ok := c.FilterReaction(b, Event{Type: "x", Emitter: a.ID()})
	assert.False(t, ok)
}

func TestMachine_IgnoreWhenAbsentIsNoop(t *testing.T) {
	c, _ := newTestControl(t)

	a := c.StartMachine(RootID, idle("a"))
	flush(c)

	assert.NotPanics(t, func() {
		a.IgnoreWhen("nothing")
		a.IgnoreWhenMachineEmits("nothing", RootID)
	})
	assert.Equal(t, 1, a.InboxLen(), "start event untouched")
}

func TestMachine_CascadingHalt(t *testing.T) {
	c, rec := newTestControl(t)

	const children = 3
	var kids []MachineID

	parent := &scripted{
		kind: "parent",
		init: "spawn",
		states: States{
			"spawn": func(m *Machine) StateID {
				for i := 0; i < children; i++ {
					kids = append(kids, m.StartMachine(idle("child")).ID())
				}
				return "wait"
			},
			"wait": func(m *Machine) StateID { return Halt },
		},
	}

	require.NoError(t, c.Run(context.Background(), parent))
	require.Len(t, kids, children)
	assert.Equal(t, 0, c.Len())

	var parentHaltCycle int64
	for _, s := range rec.stepsOf(2) {
		if s.From == Halt {
			parentHaltCycle = s.Cycle
		}
	}
	require.NotZero(t, parentHaltCycle)

	// Each child moves to Halt on its first turn after the parent's halt,
	// and is gone within the following rotation.
	var last int64
	for _, kid := range kids {
		var after []StepRecord
		for _, s := range rec.stepsOf(kid) {
			if s.Cycle > parentHaltCycle {
				after = append(after, s)
			}
		}
		require.Len(t, after, 2, "child %s", kid)
		assert.Equal(t, Listen, after[0].From)
		assert.Equal(t, Halt, after[0].To)
		require.NotNil(t, after[0].Reacted)
		assert.Equal(t, EventHalt, after[0].Reacted.Type)
		assert.Equal(t, MachineID(2), after[0].Reacted.Emitter)
		assert.Equal(t, Halt, after[1].From)
		if after[1].Cycle > last {
			last = after[1].Cycle
		}
	}
	assert.LessOrEqual(t, last-parentHaltCycle, int64(2*children))
	assert.ElementsMatch(t, append([]MachineID{2}, kids...), rec.halted)
}

func TestMachine_StepOnHaltedMachineIsIdempotent(t *testing.T) {
	c, rec := newTestControl(t)

	b := &scripted{
		kind: "quick",
		init: "go",
		states: States{
			"go": func(m *Machine) StateID { return Halt },
		},
	}
	var m *Machine
	b.setup = func(mm *Machine) { m = mm }

	require.NoError(t, c.Run(context.Background(), b))
	require.NotNil(t, m)
	require.Equal(t, Halt, m.State())
	require.False(t, m.Alive())

	emitted := len(rec.emitted)
	for i := 0; i < 3; i++ {
		require.NoError(t, m.step())
		assert.Equal(t, Halt, m.State())
	}
	assert.Len(t, rec.emitted, emitted, "no further halt broadcasts")
	assert.Equal(t, 0, c.BusLen())
	assert.Len(t, rec.halted, 1)
}

func TestMachine_HaltGuardIgnoresReturnedState(t *testing.T) {
	c, _ := newTestControl(t)

	m := c.StartMachine(RootID, idle("a"))
	m.current = Halt

	require.NoError(t, m.step())
	assert.Equal(t, Halt, m.State())
	assert.False(t, c.Active(m.ID()))

	// The halt broadcast is queued from the halted machine.
	require.Equal(t, 2, c.BusLen())
}

func TestMachine_StateReturningEmptyFallsBackToListen(t *testing.T) {
	c, _ := newTestControl(t)

	m := c.StartMachine(RootID, idle("a"))
	flush(c)

	require.NoError(t, m.step())
	assert.Equal(t, StateID("idle"), m.State())

	require.NoError(t, m.step())
	assert.Equal(t, Listen, m.State())
}

func TestMachine_SelfAddressedEvent(t *testing.T) {
	c, _ := newTestControl(t)

	ticks := 0
	b := &scripted{
		kind: "ticker",
		init: "tick",
		states: States{
			"tick": func(m *Machine) StateID {
				ticks++
				if ticks == 3 {
					return Halt
				}
				m.EmitTo(m.ID(), "tick", ticks)
				return ""
			},
		},
		setup: func(m *Machine) {
			m.WhenMachineEmits("tick", m.ID(), "tick")
		},
	}

	require.NoError(t, c.Run(context.Background(), b))
	assert.Equal(t, 3, ticks)
}
