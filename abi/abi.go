package abi

// MaxSyscallNum is the width of the per-task syscall counter vector. Ids at
// or above it are rejected before dispatch and are never counted.
const MaxSyscallNum = 500

// RISC-V linux syscall numbers understood by this kernel.
const (
	SysRead     = 63
	SysWrite    = 64
	SysExit     = 93
	SysYield    = 124
	SysGetTime  = 169
	SysGetPid   = 172
	SysMunmap   = 215
	SysMmap     = 222
	SysSpawn    = 400
	SysTaskInfo = 410
)

// Errno values. Handlers report failure as the negated errno.
const (
	EPERM  = 1
	ENOENT = 2
	EIO    = 5
	EBADF  = 9
	ENOMEM = 12
	EFAULT = 14
	EINVAL = 22
	ENOSYS = 38
)

// PageSize is the only mapping granularity the address space knows.
const PageSize = 4096

// Mapping permission bits, as passed in the third mmap argument.
const (
	ProtRead  = 1 << 0
	ProtWrite = 1 << 1
	ProtExec  = 1 << 2

	ProtMask = ProtRead | ProtWrite | ProtExec
)

var syscallNames = map[int]string{
	SysRead:     "read",
	SysWrite:    "write",
	SysExit:     "exit",
	SysYield:    "sched_yield",
	SysGetTime:  "gettimeofday",
	SysGetPid:   "getpid",
	SysMunmap:   "munmap",
	SysMmap:     "mmap",
	SysSpawn:    "spawn",
	SysTaskInfo: "task_info",
}

// SyscallName resolves an id for log output.
func SyscallName(id int) string {
	if name, ok := syscallNames[id]; ok {
		return name
	}

	return "unknown"
}
