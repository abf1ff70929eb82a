package engine

import (
	"errors"
	"fmt"
)

// CycleQuota bounds the number of cycles a run may execute.
//
// A machine listening for an event that never comes spins forever; the
// scheduler has no timeout of its own. The quota is opt-in (WithMaxCycles)
// and a zero limit means unlimited.
type CycleQuota struct {
	limit   int64
	current int64
}

// NewCycleQuota creates a quota with the given limit. limit <= 0 disables it.
func NewCycleQuota(limit int64) *CycleQuota {
	return &CycleQuota{limit: limit}
}

// Check counts one cycle and validates it against the limit.
func (q *CycleQuota) Check() error {
	q.current++
	if q.limit > 0 && q.current > q.limit {
		return &CyclesExceededError{
			Cycles: q.current,
			Limit:  q.limit,
		}
	}
	return nil
}

// Current returns the number of cycles counted so far.
func (q *CycleQuota) Current() int64 {
	return q.current
}

// Limit returns the configured limit (0 = unlimited).
func (q *CycleQuota) Limit() int64 {
	if q.limit < 0 {
		return 0
	}
	return q.limit
}

// CyclesExceededError is returned by Run when the cycle quota is exhausted.
// The machines still alive at that point are left as they were.
type CyclesExceededError struct {
	Cycles int64
	Limit  int64
}

// Error implements the error interface.
func (e *CyclesExceededError) Error() string {
	return fmt.Sprintf("run exceeded cycle quota: %d cycles > %d limit", e.Cycles, e.Limit)
}

// RuntimeError returns the error type name for matching.
func (e *CyclesExceededError) RuntimeError() string {
	return "CyclesExceededError"
}

// IsCyclesExceeded returns true if err is a CyclesExceededError.
func IsCyclesExceeded(err error) bool {
	var ce *CyclesExceededError
	return errors.As(err, &ce)
}
