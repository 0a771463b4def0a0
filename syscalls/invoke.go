package syscalls

import (
	"io"
	"os"

	"github.com/evanphx/atlantis/abi"
	"github.com/evanphx/atlantis/kernel"
	"github.com/evanphx/atlantis/log"
)

// Invoker is the kernel's syscall dispatcher. It owns the console the io
// handlers talk to.
type Invoker struct {
	Kernel  *kernel.Kernel
	Console io.ReadWriter
}

// NewInvoker builds the dispatcher and attaches it to k. A nil console
// means host stdio.
func NewInvoker(k *kernel.Kernel, console io.ReadWriter) *Invoker {
	if console == nil {
		console = stdio{}
	}

	i := &Invoker{
		Kernel:  k,
		Console: console,
	}

	k.SetDispatcher(i)

	return i
}

type stdio struct{}

func (stdio) Read(b []byte) (int, error)  { return os.Stdin.Read(b) }
func (stdio) Write(b []byte) (int, error) { return os.Stdout.Write(b) }

// Dispatch implements kernel.Dispatcher. It does the trap-entry
// bookkeeping the same way for every call: the request lands in the trap
// context, the pc steps over the trap, the call is counted, and only then
// does the handler run. The return value also lands in the trap context,
// except for calls that never come back.
func (i *Invoker) Dispatch(id uint64, args [3]uint64) int64 {
	k := i.Kernel

	cx := k.CurrentTrapContext()
	cx.SetSyscall(id, args)
	cx.StepPC()

	if id >= abi.MaxSyscallNum {
		log.L.Error("syscall id out of range", "id", id)
		cx.SetReturn(-abi.ENOSYS)
		return -abi.ENOSYS
	}

	k.CountSyscall(int(id))

	ret := int64(-abi.ENOSYS)

	if f := Syscalls[id]; f != nil {
		log.L.Trace("syscall", "id", id, "name", abi.SyscallName(int(id)))

		ret = f(log.L, i, SysArgs{
			Id:   id,
			Args: SyscallRequest{R0: args[0], R1: args[1], R2: args[2]},
		})
	} else {
		log.L.Error("unhandled syscall", "id", id, "name", abi.SyscallName(int(id)))
	}

	cx.SetReturn(ret)

	k.MaybePreempt()

	return ret
}
