package engine

// MachineInfo describes a machine to observers.
type MachineInfo struct {
	ID      MachineID
	Context MachineID
	Kind    string
	Init    StateID
}

// StepRecord describes one machine step.
type StepRecord struct {
	Cycle   int64
	Machine MachineID
	Kind    string
	From    StateID
	To      StateID

	// Reacted is the event matched by the listen step, if From is Listen
	// and a reaction fired.
	Reacted *Event

	// Vars is the machine's variable report after the step.
	Vars []Var
}

// Observer receives read-only notifications from a Control.
//
// Observers run synchronously inside the scheduler and must not call back
// into the Control or the machines; they exist for tracing, debug output
// and interactive stepping.
type Observer interface {
	// MachineStarted fires when a machine joins the schedule.
	MachineStarted(info MachineInfo)

	// Emitted fires when an event is placed on the bus.
	Emitted(ev Event)

	// Distributed fires after an event leaves the bus. An empty recipient
	// list means the event was dropped.
	Distributed(ev Event, recipients []MachineID)

	// Stepped fires after a machine step.
	Stepped(rec StepRecord)

	// Halted fires when a machine leaves the schedule.
	Halted(info MachineInfo)

	// BeforeCycle fires at the cycle boundary, before the flush.
	BeforeCycle(cycle int64)
}

// NopObserver implements Observer with no-ops. Embed it to implement only
// the notifications you need.
type NopObserver struct{}

func (NopObserver) MachineStarted(MachineInfo)     {}
func (NopObserver) Emitted(Event)                  {}
func (NopObserver) Distributed(Event, []MachineID) {}
func (NopObserver) Stepped(StepRecord)             {}
func (NopObserver) Halted(MachineInfo)             {}
func (NopObserver) BeforeCycle(int64)              {}
