package timer

import "sync/atomic"

// Clock supplies kernel time in milliseconds. Implementations must be
// monotonic: NowMillis never decreases.
type Clock interface {
	NowMillis() int64
}

// System returns the host's monotonic clock.
func System() Clock {
	return systemClock{}
}

// Manual is a hand-driven Clock for tests and simulations. The zero value
// reads as time zero.
type Manual struct {
	ms atomic.Int64
}

func (m *Manual) NowMillis() int64 {
	return m.ms.Load()
}

// Set moves the clock to an absolute time. Moving it backwards panics.
func (m *Manual) Set(ms int64) {
	for {
		cur := m.ms.Load()
		if ms < cur {
			panic("timer: manual clock moved backwards")
		}

		if m.ms.CompareAndSwap(cur, ms) {
			return
		}
	}
}

// Advance moves the clock forward.
func (m *Manual) Advance(ms int64) {
	if ms < 0 {
		panic("timer: manual clock moved backwards")
	}

	m.ms.Add(ms)
}
