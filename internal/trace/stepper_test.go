package trace

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepper_PromptsFromSecondCycle(t *testing.T) {
	var out bytes.Buffer
	s := NewStepper(strings.NewReader("\n\n\n"), &out)

	s.BeforeCycle(1)
	assert.Empty(t, out.String())

	s.BeforeCycle(2)
	s.BeforeCycle(3)
	assert.Equal(t, strings.Repeat(StepPrompt, 2), out.String())
}

func TestStepper_StopsWhenInputExhausted(t *testing.T) {
	var out bytes.Buffer
	s := NewStepper(strings.NewReader("\n"), &out)

	s.BeforeCycle(2)
	s.BeforeCycle(3) // EOF: prompt once more, then stop
	s.BeforeCycle(4)
	s.BeforeCycle(5)

	assert.Equal(t, StepPrompt+StepPrompt+"\n", out.String())
}
