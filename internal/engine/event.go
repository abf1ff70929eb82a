package engine

import "fmt"

// MachineID identifies a machine within one Control.
//
// IDs are assigned in creation order and never reused, so a stale ID held
// after a halt simply fails the liveness check.
type MachineID uint64

const (
	// NoMachine is the zero ID. As an event destination it means broadcast.
	NoMachine MachineID = 0

	// RootID is the synthetic root context that anchors the first machine.
	// It is addressable but never scheduled.
	RootID MachineID = 1
)

// String renders the ID for logs and traces.
func (id MachineID) String() string {
	switch id {
	case NoMachine:
		return "none"
	case RootID:
		return "root"
	}
	return fmt.Sprintf("m%d", uint64(id))
}

// Built-in event types.
const (
	EventStart = "start"
	EventHalt  = "halt"

	// AckSuffix is appended to an event type to form its acknowledgement.
	AckSuffix = "_ack"
)

// AckType returns the acknowledgement type for typ.
func AckType(typ string) string {
	return typ + AckSuffix
}

// Event is a message between machines.
//
// Events are passed by value: once emitted, every inbox holds its own copy
// and nothing can alter what another recipient sees. Value is an opaque
// payload and is passed through verbatim.
type Event struct {
	Type        string
	Emitter     MachineID
	Destination MachineID // NoMachine means broadcast
	Value       any
	Ack         bool

	// Seq is stamped from the run's logical clock at emission.
	Seq int64
}

// Broadcast reports whether the event has no explicit destination.
func (e Event) Broadcast() bool {
	return e.Destination == NoMachine
}

// String implements fmt.Stringer.
func (e Event) String() string {
	return fmt.Sprintf("<Event:type=%s,emitter=%s,destination=%s,ack=%t>",
		e.Type, e.Emitter, e.Destination, e.Ack)
}
