// Package kernel implements the single-core processor: the dispatch loop,
// the yield primitive, and the accessors the rest of the kernel uses to
// reach whatever task currently owns the core.
package kernel

import (
	hclog "github.com/hashicorp/go-hclog"

	"github.com/evanphx/atlantis/loader"
	"github.com/evanphx/atlantis/log"
	"github.com/evanphx/atlantis/timer"
)

// Dispatcher decodes and executes one syscall on behalf of the current
// task. Implemented by the syscalls package; attached at boot.
type Dispatcher interface {
	Dispatch(id uint64, args [3]uint64) int64
}

type Kernel struct {
	L hclog.Logger

	clock timer.Clock

	proc  *Processor
	sched *Scheduler
	tasks *TaskManager

	loader   *loader.Loader
	registry *loader.Registry

	dispatcher Dispatcher

	// syscalls per time slice; 0 disables preemption
	quantum uint64
}

type Config struct {
	Clock    timer.Clock
	Registry *loader.Registry
	Quantum  uint64
}

func NewKernel(cfg Config) (*Kernel, error) {
	if cfg.Clock == nil {
		cfg.Clock = timer.System()
	}

	if cfg.Registry == nil {
		cfg.Registry = loader.NewRegistry()
	}

	k := &Kernel{
		L:        log.L.Named("kernel"),
		clock:    cfg.Clock,
		proc:     newProcessor(),
		sched:    NewScheduler(),
		tasks:    NewTaskManager(),
		loader:   loader.NewLoader(loader.NewCache()),
		registry: cfg.Registry,
		quantum:  cfg.Quantum,
	}

	return k, nil
}

// SetDispatcher attaches the syscall layer. Must happen before any task
// body issues a syscall.
func (k *Kernel) SetDispatcher(d Dispatcher) {
	k.dispatcher = d
}

func (k *Kernel) Registry() *loader.Registry {
	return k.registry
}

func (k *Kernel) Clock() timer.Clock {
	return k.clock
}

// taskEnv is the surface task bodies trap through. Bodies only ever run
// while their task owns the core, so the dispatcher resolves "current"
// to the right task without the env naming one.
type taskEnv struct {
	k *Kernel
}

func (e taskEnv) Syscall(id uint64, args [3]uint64) int64 {
	if e.k.dispatcher == nil {
		panic("kernel: no syscall dispatcher attached")
	}

	return e.k.dispatcher.Dispatch(id, args)
}
