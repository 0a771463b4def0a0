package kernel

import (
	"context"
	"runtime"

	"github.com/evanphx/atlantis/log"
	"github.com/evanphx/atlantis/pkg/upsafe"
	"github.com/evanphx/atlantis/swtch"
)

// Processor is the per-core dispatch state: the task owning the core and
// the saved context of the idle flow. At most one task is current at any
// time.
type Processor struct {
	cell upsafe.Cell

	current *Task
	idleCx  *swtch.Context
}

func newProcessor() *Processor {
	return &Processor{
		idleCx: swtch.New(),
	}
}

func (p *Processor) takeCurrent() *Task {
	p.cell.Acquire()
	defer p.cell.Release()

	t := p.current
	p.current = nil

	return t
}

func (p *Processor) currentTask() *Task {
	p.cell.Acquire()
	defer p.cell.Release()

	return p.current
}

func (p *Processor) idle() *swtch.Context {
	p.cell.Acquire()
	defer p.cell.Release()

	return p.idleCx
}

// RunTasks is the dispatch loop and the whole life of the idle flow: pop
// a ready task, mark it Running, install it as current, switch into it,
// and go around again when the core comes back. An empty queue is polled,
// not waited on. The loop gives up only when ctx is canceled, and it
// notices that between dispatches.
func (k *Kernel) RunTasks(ctx context.Context) error {
	k.L.Info("dispatch loop running", "quantum", k.quantum)

	for {
		if err := ctx.Err(); err != nil {
			k.L.Info("dispatch loop stopping")
			return err
		}

		k.proc.cell.Acquire()

		task := k.sched.Fetch()
		if task == nil {
			k.proc.cell.Release()
			runtime.Gosched()
			continue
		}

		idleCx := k.proc.idleCx

		inner, release := task.ExclusiveInner()

		taskCx := inner.TaskCx
		inner.Status = Running

		if inner.FirstScheduled < 0 {
			inner.FirstScheduled = k.clock.NowMillis()
		}

		release()

		k.proc.current = task
		k.proc.cell.Release()

		log.L.Trace("task-dispatch", "pid", task.Pid)

		swtch.Switch(idleCx, taskCx)
	}
}

// Schedule suspends the calling flow into slot and resumes the dispatch
// loop. It returns when a later dispatch switches back into slot. The
// caller must hold no exclusive cell across the call.
func (k *Kernel) Schedule(slot *swtch.Context) {
	idleCx := k.proc.idle()

	swtch.Switch(slot, idleCx)
}
