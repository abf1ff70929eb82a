package trace

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventsim/internal/engine"
	"github.com/roach88/eventsim/internal/testutil"
)

func TestPrinter_PlainStepBlock(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, WithPlain())

	ack := engine.Event{Type: "ping_ack", Emitter: 2, Destination: 3}
	p.BeforeCycle(4)
	p.Emitted(ack)
	p.Stepped(engine.StepRecord{
		Cycle:   4,
		Machine: 2,
		Kind:    "Responder",
		From:    engine.Listen,
		To:      "ready",
		Reacted: &engine.Event{Type: "ping", Emitter: 3, Destination: 2, Ack: true},
		Vars:    []engine.Var{{Name: "count", Value: 1}},
	})

	want := strings.Join([]string{
		"Responder",
		"State: listen",
		"Vars: count=1",
		"Emitting event: <Event:type=ping_ack,emitter=m2,destination=m3,ack=false>",
		"Event: <Event:type=ping,emitter=m3,destination=m2,ack=true>",
		"=> ready",
		"",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestPrinter_EmissionsBeforeFirstCycle(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, WithPlain())

	p.Emitted(engine.Event{Type: "start", Emitter: engine.RootID, Destination: 2})
	assert.Empty(t, buf.String(), "held until the cycle begins")

	p.BeforeCycle(1)
	assert.Equal(t, "Emitting event: <Event:type=start,emitter=root,destination=m2,ack=false>\n", buf.String())
}

func TestPrinter_FullRun(t *testing.T) {
	var buf bytes.Buffer
	ctl := testutil.Run(t, testutil.Echo{}, NewPrinter(&buf, WithPlain()))

	out := buf.String()
	assert.Equal(t, int(ctl.Cycles()), strings.Count(out, "=> "))
	assert.Contains(t, out, "Echo\nState: listen\n")
	assert.Contains(t, out, "=> done")
	assert.Contains(t, out, "type=halt")
}

func TestPrinter_Styled(t *testing.T) {
	var buf bytes.Buffer
	testutil.Run(t, testutil.Echo{}, NewPrinter(&buf))

	require.NotEmpty(t, buf.String())
	assert.Contains(t, buf.String(), "Echo")
}

func TestStepper_PromptsBetweenCycles(t *testing.T) {
	var out bytes.Buffer
	s := NewStepper(strings.NewReader("\n\n"), &out)

	s.BeforeCycle(1)
	assert.Empty(t, out.String(), "no pause before the first cycle")

	s.BeforeCycle(2)
	s.BeforeCycle(3)
	assert.Equal(t, StepPrompt+StepPrompt, out.String())

	// Input exhausted: prompt once more, then stop pausing.
	s.BeforeCycle(4)
	s.BeforeCycle(5)
	assert.Equal(t, StepPrompt+StepPrompt+StepPrompt+"\n", out.String())
}

func TestMulti_FansOut(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	testutil.Run(t, testutil.Echo{}, Multi{a, b})

	assert.Equal(t, a.Snapshot(), b.Snapshot())
	assert.Positive(t, a.Len())
}
