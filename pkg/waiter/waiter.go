// Package waiter delivers edge-triggered event notifications to registered
// channels. Receivers are expected to re-check the condition they wait on
// after every signal; a slow receiver misses signals rather than blocking
// the notifier.
package waiter

import (
	"sync"

	"github.com/evanphx/atlantis/log"
	"github.com/evanphx/atlantis/pkg/ilist"
)

type EventType uint64

// Event is one registration, handed back to Unregister.
type Event struct {
	ilist.Entry

	mask EventType
	c    chan struct{}
}

// Set holds the registrations for one event source. The zero value is ready
// to use.
type Set struct {
	mu sync.Mutex

	count  int
	events ilist.List
}

// RegisterChannel signals c whenever an event overlapping mask fires. c
// should have capacity for at least one pending signal.
func (s *Set) RegisterChannel(mask EventType, c chan struct{}) *Event {
	e := &Event{mask: mask, c: c}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	s.events.PushBack(e)

	return e
}

func (s *Set) Unregister(e *Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count--
	s.events.Remove(e)
}

// Notify signals every registration whose mask overlaps mask.
func (s *Set) Notify(mask EventType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.L.Trace("waiter-notify", "mask", mask, "count", s.count)

	for it := s.events.Front(); it != nil; it = it.Next() {
		e := it.(*Event)
		if e.mask&mask == 0 {
			continue
		}

		select {
		case e.c <- struct{}{}:
		default:
		}
	}
}
