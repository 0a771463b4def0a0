package kernel

import (
	"sync/atomic"

	"github.com/evanphx/atlantis/abi"
	"github.com/evanphx/atlantis/memory"
	"github.com/evanphx/atlantis/pkg/ilist"
	"github.com/evanphx/atlantis/pkg/upsafe"
	"github.com/evanphx/atlantis/pkg/waiter"
	"github.com/evanphx/atlantis/swtch"
	"github.com/evanphx/atlantis/trap"
)

type TaskStatus int

const (
	Ready TaskStatus = iota
	Running
	Blocked
	Zombie
)

func (s TaskStatus) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Blocked:
		return "Blocked"
	case Zombie:
		return "Zombie"
	}

	return "Unknown"
}

const (
	_ waiter.EventType = iota
	TaskExited
)

// Task is one task control block. Everything mutable lives in the inner
// half and is reached only through ExclusiveInner.
type Task struct {
	Pid  int
	Name string

	// Used by the scheduler to queue the task. Protected by the
	// scheduler's cell.
	ilist.Entry

	cell  upsafe.Cell
	inner TaskInner

	exited waiter.Set

	// Published once at the zombie transition so reapers on other flows
	// never touch the cell.
	zombie   int32
	exitCode int32
}

// TaskInner is the mutable half of a task control block.
type TaskInner struct {
	Status TaskStatus

	// TaskCx is the task's resumable flow; TrapCx its user registers at
	// the last kernel entry.
	TaskCx *swtch.Context
	TrapCx *trap.Context

	Space *memory.AddressSpace

	SyscallCounts [abi.MaxSyscallNum]uint32
	SyscallTotal  uint64

	// FirstScheduled is the epoch for elapsed-time accounting, in clock
	// milliseconds. Negative until the first dispatch sets it, exactly
	// once.
	FirstScheduled int64

	ExitCode int
}

func newTask(space *memory.AddressSpace, trapCx *trap.Context) *Task {
	t := &Task{}

	t.inner = TaskInner{
		Status:         Ready,
		TaskCx:         swtch.New(),
		TrapCx:         trapCx,
		Space:          space,
		FirstScheduled: -1,
	}

	return t
}

// ExclusiveInner takes the task's exclusive guard and hands back the
// mutable state plus the release. Acquiring while another acquisition is
// outstanding panics with upsafe.ErrHeld; the release must happen before
// any context switch.
func (t *Task) ExclusiveInner() (*TaskInner, func()) {
	t.cell.Acquire()

	return &t.inner, t.cell.Release
}

func (t *Task) publishExit(code int) {
	atomic.StoreInt32(&t.exitCode, int32(code))
	atomic.StoreInt32(&t.zombie, 1)
}

func (t *Task) reapExit() (int, bool) {
	if atomic.LoadInt32(&t.zombie) == 0 {
		return 0, false
	}

	return int(atomic.LoadInt32(&t.exitCode)), true
}
