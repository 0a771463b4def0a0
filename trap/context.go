// Package trap holds the saved user-mode register state captured when a task
// enters the kernel.
package trap

// Register indexes used by the RISC-V syscall convention.
const (
	RegSP = 2
	RegA0 = 10
	RegA1 = 11
	RegA2 = 12
	RegA7 = 17
)

// sstatus bits this kernel cares about.
const (
	SstatusSPIE = 1 << 5 // interrupts enabled after the return to user mode
	SstatusSPP  = 1 << 8 // previous privilege level; clear means user
)

// Context is the register file of a task at its last trap entry. It stays
// reachable, and mutable, for as long as the task remains current.
type Context struct {
	X       [32]uint64
	Sstatus uint64
	Sepc    uint64
}

// AppInit builds the context a brand-new task first returns to user mode
// with: pc at the image entry point, stack pointer at the top of the user
// stack, previous-privilege bits naming user mode.
func AppInit(entry, sp uint64) *Context {
	cx := &Context{
		Sstatus: SstatusSPIE,
		Sepc:    entry,
	}
	cx.X[RegSP] = sp

	return cx
}

func (c *Context) SP() uint64 {
	return c.X[RegSP]
}

func (c *Context) PC() uint64 {
	return c.Sepc
}

// SetSyscall loads a syscall request into the register file, the way trap
// entry would find it.
func (c *Context) SetSyscall(id uint64, args [3]uint64) {
	c.X[RegA7] = id
	c.X[RegA0] = args[0]
	c.X[RegA1] = args[1]
	c.X[RegA2] = args[2]
}

func (c *Context) SyscallID() uint64 {
	return c.X[RegA7]
}

// Arg returns the n-th syscall argument, n in [0, 2].
func (c *Context) Arg(n int) uint64 {
	return c.X[RegA0+n]
}

// SetReturn stores a syscall return value where user code reads it.
func (c *Context) SetReturn(v int64) {
	c.X[RegA0] = uint64(v)
}

// StepPC advances past the ecall instruction.
func (c *Context) StepPC() {
	c.Sepc += 4
}
