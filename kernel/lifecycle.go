package kernel

import (
	"context"
	"runtime"

	"github.com/pkg/errors"

	"github.com/evanphx/atlantis/loader"
	"github.com/evanphx/atlantis/log"
	"github.com/evanphx/atlantis/memory"
	"github.com/evanphx/atlantis/swtch"
	"github.com/evanphx/atlantis/trap"
)

var ErrUnknownApp = errors.New("unknown app")

// Spawn loads the named app, builds its address space and first trap
// context, parks its body on a fresh task context, and enqueues it Ready.
// Call it from the boot flow before RunTasks starts, or from the core
// flow itself (the spawn syscall); it must not race the dispatch loop
// from a third flow.
func (k *Kernel) Spawn(name string) (*Task, error) {
	app, ok := k.registry.Lookup(name)
	if !ok {
		return nil, errors.Wrap(ErrUnknownApp, name)
	}

	img, err := k.loader.Load(app.Blob)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", name)
	}

	space := memory.New()

	layout, err := img.Apply(space)
	if err != nil {
		return nil, errors.Wrapf(err, "placing %s", name)
	}

	task := newTask(space, trap.AppInit(layout.Entry, layout.StackTop))
	task.Name = name

	k.tasks.AssignPid(task)
	k.startBody(task, app.Body)
	k.sched.Add(task)

	k.L.Info("spawned task", "pid", task.Pid, "name", name)

	return task, nil
}

// startBody parks body on the task's context. The goroutine is the task's
// whole flow of control: it first runs when a dispatch switches into the
// task context, and it only ever runs between that switch and the next
// switch out.
func (k *Kernel) startBody(task *Task, body loader.Body) {
	inner, release := task.ExclusiveInner()
	taskCx := inner.TaskCx
	release()

	env := taskEnv{k: k}

	go func() {
		taskCx.Enter()

		if body != nil {
			body(env)
		}

		// falling off the end is a clean exit
		k.ExitCurrent(0)
	}()
}

// SuspendCurrent takes the running task off the processor, marks it
// Ready, re-enqueues it, and yields to the dispatch loop. It returns when
// the task is next dispatched.
func (k *Kernel) SuspendCurrent() {
	task := k.TakeCurrentTask()
	if task == nil {
		panic(ErrNoCurrentTask)
	}

	inner, release := task.ExclusiveInner()
	slot := inner.TaskCx
	inner.Status = Ready
	release()

	k.sched.Add(task)

	log.L.Trace("task-suspend", "pid", task.Pid)

	k.Schedule(slot)
}

// ExitCurrent takes the running task off the processor, marks it Zombie
// with code, wakes its reapers, and hands the core back to the dispatch
// loop for good. It never returns: the calling flow ends here, saved
// nowhere.
func (k *Kernel) ExitCurrent(code int) {
	task := k.TakeCurrentTask()
	if task == nil {
		panic(ErrNoCurrentTask)
	}

	idleCx := k.proc.idle()

	inner, release := task.ExclusiveInner()
	inner.Status = Zombie
	inner.ExitCode = code
	release()

	log.L.Trace("task-exit", "pid", task.Pid, "code", code)

	task.publishExit(code)
	task.exited.Notify(TaskExited)

	swtch.Handoff(idleCx)
	runtime.Goexit()
}

// WaitExited blocks until task is a zombie and returns its exit code.
// Meant for flows outside the core, like the boot path collecting its
// spawns; it reads only state published at exit, never the task's cell.
// The task stays in the manager for accounting.
func (k *Kernel) WaitExited(ctx context.Context, task *Task) (int, error) {
	c := make(chan struct{}, 1)
	ev := task.exited.RegisterChannel(TaskExited, c)
	defer task.exited.Unregister(ev)

	for {
		if code, ok := task.reapExit(); ok {
			return code, nil
		}

		log.L.Trace("task-waiting-reap", "pid", task.Pid)

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-c:
		}
	}
}

// MaybePreempt yields the core when the current task has spent its
// syscall quantum, standing in for a timer tick. With no quantum, or no
// current task, it is a no-op. The suspended task returns from here once
// dispatched again.
func (k *Kernel) MaybePreempt() {
	if k.quantum == 0 {
		return
	}

	task := k.CurrentTask()
	if task == nil {
		return
	}

	inner, release := task.ExclusiveInner()
	due := inner.SyscallTotal%k.quantum == 0
	release()

	if !due {
		return
	}

	log.L.Trace("task-preempt", "pid", task.Pid)

	k.SuspendCurrent()
}
