// Package upsafe provides the uniprocessor exclusive-access cell that guards
// all mutable scheduler state. A Cell is not a mutex: there is only one flow
// of control per core, so a second acquisition while one is outstanding is a
// bug in the caller rather than contention, and panics instead of blocking.
package upsafe

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrHeld is returned (and used as the panic value) for a re-entrant
	// acquisition.
	ErrHeld = errors.New("upsafe: cell already held")

	// ErrIdle is the panic value for releasing a cell nobody holds.
	ErrIdle = errors.New("upsafe: cell not held")
)

// Cell is a single-permit guard. The zero value is an unheld cell.
type Cell struct {
	held int32
}

// TryAcquire takes the cell, reporting ErrHeld if it is already taken.
func (c *Cell) TryAcquire() error {
	if !atomic.CompareAndSwapInt32(&c.held, 0, 1) {
		return ErrHeld
	}

	return nil
}

// Acquire takes the cell. The caller must release it before issuing any
// context switch; a cell held across a switch is never released, because the
// flow that would release it is suspended.
func (c *Cell) Acquire() {
	if err := c.TryAcquire(); err != nil {
		panic(err)
	}
}

// Release returns the cell.
func (c *Cell) Release() {
	if !atomic.CompareAndSwapInt32(&c.held, 1, 0) {
		panic(ErrIdle)
	}
}
