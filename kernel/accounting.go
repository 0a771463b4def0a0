package kernel

import (
	"errors"

	"github.com/evanphx/atlantis/abi"
	"github.com/evanphx/atlantis/log"
	"github.com/evanphx/atlantis/memory"
)

// CurrentTaskCostedTime returns the milliseconds the current task has
// been on the books: now minus its first dispatch. Panics when no task is
// current.
func (k *Kernel) CurrentTaskCostedTime() int64 {
	t := k.mustCurrent()

	inner, release := t.ExclusiveInner()
	defer release()

	return k.clock.NowMillis() - inner.FirstScheduled
}

// CountSyscall increments the current task's counter for id by exactly
// one. id must already be decoded into [0, abi.MaxSyscallNum); the bounds
// are the caller's problem.
func (k *Kernel) CountSyscall(id int) {
	t := k.mustCurrent()

	inner, release := t.ExclusiveInner()
	defer release()

	inner.SyscallCounts[id]++
	inner.SyscallTotal++
}

// CurrentTaskSyscallCounts returns a copy of the full counter vector.
func (k *Kernel) CurrentTaskSyscallCounts() [abi.MaxSyscallNum]uint32 {
	t := k.mustCurrent()

	inner, release := t.ExclusiveInner()
	defer release()

	return inner.SyscallCounts
}

// TaskInfo is the accounting snapshot the task_info syscall reports.
type TaskInfo struct {
	Status        TaskStatus
	SyscallCounts [abi.MaxSyscallNum]uint32
	CostedTime    int64
}

func (k *Kernel) CurrentTaskInfo() TaskInfo {
	t := k.mustCurrent()

	inner, release := t.ExclusiveInner()
	defer release()

	return TaskInfo{
		Status:        inner.Status,
		SyscallCounts: inner.SyscallCounts,
		CostedTime:    k.clock.NowMillis() - inner.FirstScheduled,
	}
}

// Mmap delegates to the current task's address space and reports its
// verdict as the raw syscall status: 0 on success, a negated errno on
// failure. Nothing here aborts; a bad request is the task's own problem.
func (k *Kernel) Mmap(start, length, port uint64) int64 {
	t := k.mustCurrent()

	inner, release := t.ExclusiveInner()
	defer release()

	if err := inner.Space.Mmap(start, length, port); err != nil {
		log.L.Debug("mmap refused", "pid", t.Pid, "error", err)
		return -memoryErrno(err)
	}

	return 0
}

// Munmap mirrors Mmap for the unmap side.
func (k *Kernel) Munmap(start, length uint64) int64 {
	t := k.mustCurrent()

	inner, release := t.ExclusiveInner()
	defer release()

	if err := inner.Space.Munmap(start, length); err != nil {
		log.L.Debug("munmap refused", "pid", t.Pid, "error", err)
		return -memoryErrno(err)
	}

	return 0
}

func memoryErrno(err error) int64 {
	switch {
	case errors.Is(err, memory.ErrOverlap):
		return abi.ENOMEM
	case errors.Is(err, memory.ErrBadAccess):
		return abi.EPERM
	}

	return abi.EINVAL
}
