package store

import (
	"errors"

	"github.com/roach88/eventsim/internal/trace"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Run status values.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one recorded execution of a program.
type Run struct {
	ID      string
	Program string
	Params  map[string]int
	Status  string
	Error   string
	Cycles  int64
	Output  []string
	Events  []trace.Event
}

// RunSummary is a Run without its trace.
type RunSummary struct {
	ID      string `json:"id"`
	Program string `json:"program"`
	Status  string `json:"status"`
	Cycles  int64  `json:"cycles"`
	Events  int    `json:"events"`
}
