package kernel

import (
	"io"

	"github.com/davecgh/go-spew/spew"

	"github.com/evanphx/atlantis/abi"
)

// TaskDump is the debug snapshot of one task, shaped for printing rather
// than for the scheduler.
type TaskDump struct {
	Pid            int
	Name           string
	Status         string
	ExitCode       int
	FirstScheduled int64
	MappedBytes    uint64
	Syscalls       map[string]uint32
}

func (k *Kernel) dumpTask(t *Task) TaskDump {
	inner, release := t.ExclusiveInner()
	defer release()

	calls := make(map[string]uint32)
	for id, n := range inner.SyscallCounts {
		if n > 0 {
			calls[abi.SyscallName(id)] = n
		}
	}

	return TaskDump{
		Pid:            t.Pid,
		Name:           t.Name,
		Status:         inner.Status.String(),
		ExitCode:       inner.ExitCode,
		FirstScheduled: inner.FirstScheduled,
		MappedBytes:    inner.Space.MappedBytes(),
		Syscalls:       calls,
	}
}

// DumpTasks writes a spewed snapshot of every task the manager still
// knows. Debug aid only; call it from a quiesced kernel.
func (k *Kernel) DumpTasks(w io.Writer) {
	var dumps []TaskDump

	for _, pid := range k.tasks.Pids() {
		if t, ok := k.tasks.Lookup(pid); ok {
			dumps = append(dumps, k.dumpTask(t))
		}
	}

	spew.Fdump(w, dumps)
}

// Snapshot returns the dump records without printing them, for callers
// that want to format the accounting themselves.
func (k *Kernel) Snapshot() []TaskDump {
	var dumps []TaskDump

	for _, pid := range k.tasks.Pids() {
		if t, ok := k.tasks.Lookup(pid); ok {
			dumps = append(dumps, k.dumpTask(t))
		}
	}

	return dumps
}
