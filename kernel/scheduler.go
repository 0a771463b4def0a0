package kernel

import (
	"github.com/evanphx/atlantis/pkg/ilist"
	"github.com/evanphx/atlantis/pkg/upsafe"
)

// Scheduler is the ready queue. Strictly FIFO: Add pushes the tail, Fetch
// pops the head. It belongs to the core flow; its cell enforces that.
type Scheduler struct {
	cell  upsafe.Cell
	ready ilist.List
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Add enqueues a runnable task.
func (s *Scheduler) Add(t *Task) {
	s.cell.Acquire()
	defer s.cell.Release()

	s.ready.PushBack(t)
}

// Fetch pops the next runnable task, or nil when nothing is ready.
func (s *Scheduler) Fetch() *Task {
	s.cell.Acquire()
	defer s.cell.Release()

	front := s.ready.Front()
	if front == nil {
		return nil
	}

	t := front.(*Task)
	s.ready.Remove(t)

	return t
}

// Len reports how many tasks are queued.
func (s *Scheduler) Len() int {
	s.cell.Acquire()
	defer s.cell.Release()

	n := 0
	for it := s.ready.Front(); it != nil; it = it.Next() {
		n++
	}

	return n
}
