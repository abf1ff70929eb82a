package engine

import (
	"context"
	"fmt"
	"log/slog"
)

// Control is the scheduler and router for a set of machines.
//
// Control owns the schedule, the event bus and both reaction registries;
// machines reach them only through Control's methods. Everything runs on
// the caller's goroutine: a Control must not be shared between goroutines.
//
// INVARIANTS:
//   - A machine is alive iff it is in the schedule.
//   - The bus is drained before every machine step, so an event is never
//     delivered and reacted to in the same cycle.
//   - Each cycle steps exactly one machine, then rotates it to the tail.
type Control struct {
	machines  *schedule
	bus       *eventQueue
	reactions *reactionRegistry
	clock     *Clock
	quota     *CycleQuota
	observers []Observer
	logger    *slog.Logger

	root   *Machine
	nextID MachineID
	cycles int64
}

// Option configures a Control.
type Option func(*Control)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Control) {
		c.logger = logger
	}
}

// WithObserver attaches observers, notified in the order given.
func WithObserver(obs ...Observer) Option {
	return func(c *Control) {
		c.observers = append(c.observers, obs...)
	}
}

// WithMaxCycles stops Run with a CyclesExceededError after n cycles.
// Zero (the default) means unlimited.
func WithMaxCycles(n int64) Option {
	return func(c *Control) {
		c.quota = NewCycleQuota(n)
	}
}

// WithClock sets the logical clock used to stamp events.
func WithClock(clock *Clock) Option {
	return func(c *Control) {
		c.clock = clock
	}
}

// New creates a Control with its synthetic root context in place.
func New(opts ...Option) *Control {
	c := &Control{
		machines:  newSchedule(),
		bus:       newEventQueue(),
		reactions: newReactionRegistry(),
		clock:     NewClock(),
		quota:     NewCycleQuota(0),
		logger:    slog.Default(),
		nextID:    RootID,
	}

	for _, opt := range opts {
		opt(c)
	}

	// The root has no behavior and is never scheduled; it only exists so
	// the first machine has a context to receive "start" from.
	c.root = newMachine(c, RootID, NoMachine, nil)
	c.root.kind = "root"
	c.nextID = RootID + 1

	return c
}

// Root returns the synthetic root context.
func (c *Control) Root() *Machine {
	return c.root
}

// Run starts b under the root context and cycles until no machines remain.
//
// Run returns nil once every machine has halted. It returns ctx.Err() if
// the context is cancelled between cycles, a *CyclesExceededError if the
// cycle quota runs out, and a *RuntimeError if a machine moves to a state
// its behavior does not define.
func (c *Control) Run(ctx context.Context, b Behavior) error {
	first := c.StartMachine(RootID, b)
	c.logger.Info("run starting", "machine", first.id, "kind", first.kind)

	for {
		if err := ctx.Err(); err != nil {
			c.logger.Info("run stopping: context cancelled", "cycles", c.cycles)
			return err
		}

		more, err := c.Cycle()
		if err != nil {
			c.logger.Error("run failed", "cycles", c.cycles, "error", err)
			return err
		}
		if !more {
			break
		}
	}

	c.logger.Info("run finished", "cycles", c.cycles, "events", c.clock.Current())
	return nil
}

// StartMachine constructs a machine for b with parent as its context, schedules
// it, subscribes it to the parent's "start" and "halt", and queues the
// directed "start" event.
//
// A nil behavior yields a machine with no states of its own; it halts as
// soon as it starts.
func (c *Control) StartMachine(parent MachineID, b Behavior) *Machine {
	m := newMachine(c, c.nextID, parent, b)
	c.nextID++

	c.machines.Append(m)

	c.reactions.addSource(EventStart, parent, m.id, m.init)
	c.reactions.addSource(EventHalt, parent, m.id, Halt)

	c.logger.Debug("machine started",
		"machine", m.id,
		"kind", m.kind,
		"context", parent,
		"init", m.init,
	)
	c.notify(func(o Observer) {
		o.MachineStarted(MachineInfo{ID: m.id, Context: parent, Kind: m.kind, Init: m.init})
	})

	c.Emit(Event{Type: EventStart, Emitter: parent, Destination: m.id})

	return m
}

// Emit stamps an event and places it on the bus.
func (c *Control) Emit(ev Event) {
	ev.Seq = c.clock.Next()
	c.bus.Enqueue(ev)
	c.notify(func(o Observer) { o.Emitted(ev) })
}

// Cycle flushes the bus, then steps the machine at the head of the
// schedule and rotates it to the tail.
//
// Returns false when no machines remain.
func (c *Control) Cycle() (bool, error) {
	c.notify(func(o Observer) { o.BeforeCycle(c.cycles + 1) })

	// Distribution never runs machine code, so this terminates after at
	// most the number of events currently queued.
	for c.distributeOne() {
	}

	if c.machines.Len() == 0 {
		return false, nil
	}

	if err := c.quota.Check(); err != nil {
		return false, err
	}

	m, _ := c.machines.PopHead()
	c.cycles++

	from := m.current
	err := m.step()
	c.machines.Requeue()
	if err != nil {
		return false, fmt.Errorf("cycle %d: %w", c.cycles, err)
	}

	if len(c.observers) > 0 {
		rec := StepRecord{
			Cycle:   c.cycles,
			Machine: m.id,
			Kind:    m.kind,
			From:    from,
			To:      m.current,
			Vars:    m.Vars(),
		}
		if from == Listen && m.reacted != nil {
			ev := *m.reacted
			rec.Reacted = &ev
		}
		c.notify(func(o Observer) { o.Stepped(rec) })
	}

	c.logger.Debug("machine stepped",
		"cycle", c.cycles,
		"machine", m.id,
		"kind", m.kind,
		"from", from,
		"to", m.current,
	)

	return true, nil
}

// distributeOne moves one event from the bus to inboxes.
//
// A directed event goes to its destination if that machine is still
// active and is dropped otherwise. A broadcast goes to every active machine
// except its emitter. Returns false only if the bus was empty.
func (c *Control) distributeOne() bool {
	ev, ok := c.bus.TryDequeue()
	if !ok {
		return false
	}

	var recipients []MachineID

	if !ev.Broadcast() {
		if m, ok := c.machines.Get(ev.Destination); ok {
			m.inbox.Enqueue(ev)
			recipients = append(recipients, m.id)
		} else {
			c.logger.Debug("dead letter dropped",
				"type", ev.Type,
				"emitter", ev.Emitter,
				"destination", ev.Destination,
			)
		}
	} else {
		c.machines.Each(func(m *Machine) {
			if m.id == ev.Emitter {
				return
			}
			m.inbox.Enqueue(ev)
			recipients = append(recipients, m.id)
		})
	}

	c.notify(func(o Observer) { o.Distributed(ev, recipients) })
	return true
}

// FilterReaction returns the state m should move to for ev, if any.
// Reactions by type take precedence over reactions by (type, emitter).
func (c *Control) FilterReaction(m *Machine, ev Event) (StateID, bool) {
	return c.reactions.lookup(m.id, ev)
}

// AddTypeReaction makes reactor move to state when any machine emits typ.
func (c *Control) AddTypeReaction(typ string, reactor MachineID, state StateID) {
	c.reactions.addType(typ, reactor, state)
}

// RemoveTypeReaction undoes AddTypeReaction. Absent entries are ignored.
func (c *Control) RemoveTypeReaction(typ string, reactor MachineID) {
	c.reactions.removeType(typ, reactor)
}

// AddSourceReaction makes reactor move to state when emitter emits typ.
func (c *Control) AddSourceReaction(typ string, emitter, reactor MachineID, state StateID) {
	c.reactions.addSource(typ, emitter, reactor, state)
}

// RemoveSourceReaction undoes AddSourceReaction. Absent entries are ignored.
func (c *Control) RemoveSourceReaction(typ string, emitter, reactor MachineID) {
	c.reactions.removeSource(typ, emitter, reactor)
}

// Halt removes m from the schedule and drops the reactions m registered.
// Halting a machine that is not active is a no-op.
func (c *Control) Halt(m *Machine) {
	if !c.machines.Remove(m.id) {
		return
	}
	purged := c.reactions.Forget(m.id)

	c.logger.Debug("machine halted",
		"machine", m.id,
		"kind", m.kind,
		"reactions_purged", purged,
		"remaining", c.machines.Len(),
	)
	c.notify(func(o Observer) {
		o.Halted(MachineInfo{ID: m.id, Context: m.context, Kind: m.kind, Init: m.init})
	})
}

// Active reports whether id is a live machine.
func (c *Control) Active(id MachineID) bool {
	return c.machines.Contains(id)
}

// Machine returns the live machine with the given id.
func (c *Control) Machine(id MachineID) (*Machine, bool) {
	return c.machines.Get(id)
}

// Machines returns live machine IDs in schedule order.
func (c *Control) Machines() []MachineID {
	return c.machines.IDs()
}

// Len returns the number of live machines.
func (c *Control) Len() int {
	return c.machines.Len()
}

// BusLen returns the number of events waiting on the bus.
func (c *Control) BusLen() int {
	return c.bus.Len()
}

// Reactions returns the number of registered reactions.
func (c *Control) Reactions() int {
	return c.reactions.Size()
}

// Cycles returns the number of machine steps executed so far.
func (c *Control) Cycles() int64 {
	return c.cycles
}

// Clock returns the logical clock.
func (c *Control) Clock() *Clock {
	return c.clock
}

func (c *Control) notify(fn func(Observer)) {
	for _, o := range c.observers {
		fn(o)
	}
}
