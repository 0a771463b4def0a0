package kernel

import (
	"errors"

	"github.com/evanphx/atlantis/trap"
)

// ErrNoCurrentTask is the panic value for any current-task operation made
// while the processor slot is empty. That can only mean a broken
// scheduling invariant, so there is no error return to recover through.
var ErrNoCurrentTask = errors.New("kernel: no current task")

// TakeCurrentTask moves the current task out of the processor slot,
// leaving the slot empty until the next dispatch or restore.
func (k *Kernel) TakeCurrentTask() *Task {
	return k.proc.takeCurrent()
}

// CurrentTask returns the current task, or nil, without disturbing the
// slot.
func (k *Kernel) CurrentTask() *Task {
	return k.proc.currentTask()
}

func (k *Kernel) mustCurrent() *Task {
	t := k.proc.currentTask()
	if t == nil {
		panic(ErrNoCurrentTask)
	}

	return t
}

// CurrentUserToken returns the address-space token of the current task.
// Panics when no task is current.
func (k *Kernel) CurrentUserToken() uint64 {
	t := k.mustCurrent()

	inner, release := t.ExclusiveInner()
	defer release()

	return inner.Space.Token()
}

// CurrentTrapContext returns the current task's trap context. The pointer
// stays good while the task remains current. Panics when no task is
// current.
func (k *Kernel) CurrentTrapContext() *trap.Context {
	t := k.mustCurrent()

	inner, release := t.ExclusiveInner()
	defer release()

	return inner.TrapCx
}
