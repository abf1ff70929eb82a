package harness

import "github.com/roach88/eventsim/internal/trace"

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Trace contains every recorded trace event in order.
	Trace []trace.Event `json:"trace"`

	// Output is what the program printed.
	Output []string `json:"output"`

	// Cycles is the number of machine steps executed.
	Cycles int64 `json:"cycles"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []trace.Event{},
		Output: []string{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
