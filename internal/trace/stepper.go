package trace

import (
	"bufio"
	"fmt"
	"io"

	"github.com/roach88/eventsim/internal/engine"
)

// StepPrompt is written before waiting for input.
const StepPrompt = "Press enter to step..."

// Stepper pauses between cycles until a line is read from its input.
// Once the input is exhausted it stops pausing.
type Stepper struct {
	engine.NopObserver

	in   *bufio.Reader
	out  io.Writer
	done bool
}

// NewStepper creates a Stepper reading from in and prompting on out.
func NewStepper(in io.Reader, out io.Writer) *Stepper {
	return &Stepper{in: bufio.NewReader(in), out: out}
}

func (s *Stepper) BeforeCycle(cycle int64) {
	if cycle <= 1 || s.done {
		return
	}
	fmt.Fprint(s.out, StepPrompt)
	if _, err := s.in.ReadString('\n'); err != nil {
		s.done = true
		fmt.Fprintln(s.out)
	}
}
