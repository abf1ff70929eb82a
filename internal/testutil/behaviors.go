package testutil

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/eventsim/internal/engine"
)

// EchoValue is the payload Echo sends. It is not ASCII so that encoders
// see a multi-byte string.
const EchoValue = "héllo"

// Echo starts a Responder, pings it once with an ack and halts on the ack.
// Its child halts by cascade.
type Echo struct{}

func (Echo) Kind() string { return "Echo" }

func (Echo) Init(m *engine.Machine) { m.SetInitState("begin") }

func (Echo) States() engine.States {
	return engine.States{
		"begin": func(m *engine.Machine) engine.StateID {
			child := m.StartMachine(Responder{})
			m.EmitTo(child.ID(), "ping", EchoValue, engine.WithAck("done"))
			return ""
		},
		"done": func(m *engine.Machine) engine.StateID { return engine.Halt },
	}
}

// Responder listens for "ping" from its context and does nothing else.
type Responder struct{}

func (Responder) Kind() string { return "Responder" }

func (Responder) Init(m *engine.Machine) {
	m.SetInitState("ready")
	m.WhenMachineEmits("ping", m.Context(), "ready")
}

func (Responder) States() engine.States {
	return engine.States{
		"ready": func(m *engine.Machine) engine.StateID { return "" },
	}
}

// QuietLogger returns a logger that discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Run runs b to completion with the given observers and a quiet logger,
// failing the test if the run returns an error.
func Run(t *testing.T, b engine.Behavior, obs ...engine.Observer) *engine.Control {
	t.Helper()
	ctl := engine.New(
		engine.WithLogger(QuietLogger()),
		engine.WithObserver(obs...),
	)
	require.NoError(t, ctl.Run(context.Background(), b))
	return ctl
}
