package syscalls

import (
	"errors"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/evanphx/atlantis/abi"
	"github.com/evanphx/atlantis/kernel"
)

func sysExit(l hclog.Logger, i *Invoker, args SysArgs) int64 {
	var (
		code = int(int32(args.Args.R0))
	)

	l.Debug("application exited", "pid", i.Kernel.CurrentTask().Pid, "code", code)

	i.Kernel.ExitCurrent(code)

	return 0
}

func sysYield(l hclog.Logger, i *Invoker, args SysArgs) int64 {
	i.Kernel.SuspendCurrent()

	return 0
}

func sysGetPid(l hclog.Logger, i *Invoker, args SysArgs) int64 {
	return int64(i.Kernel.CurrentTask().Pid)
}

func sysSpawn(l hclog.Logger, i *Invoker, args SysArgs) int64 {
	var (
		ptr = args.Args.R0
	)

	name, err := readCString(i.Kernel, ptr)
	if err != nil {
		l.Error("error reading spawn path", "error", err, "ptr", ptr)
		return -abi.EFAULT
	}

	task, err := i.Kernel.Spawn(name)
	if err != nil {
		if errors.Is(err, kernel.ErrUnknownApp) {
			return -abi.ENOENT
		}

		l.Error("error spawning app", "error", err, "name", name)
		return -abi.EINVAL
	}

	return int64(task.Pid)
}

// userTaskInfo is the task_info payload as user code sees it.
type userTaskInfo struct {
	Status        uint32
	SyscallCounts [abi.MaxSyscallNum]uint32
	CostedTimeMs  int64
}

func sysTaskInfo(l hclog.Logger, i *Invoker, args SysArgs) int64 {
	var (
		ptr = args.Args.R0
	)

	info := i.Kernel.CurrentTaskInfo()

	out := userTaskInfo{
		Status:        uint32(info.Status),
		SyscallCounts: info.SyscallCounts,
		CostedTimeMs:  info.CostedTime,
	}

	if err := copyOut(i.Kernel, ptr, out); err != nil {
		l.Error("error writing task info", "error", err, "ptr", ptr)
		return -abi.EFAULT
	}

	return 0
}

func init() {
	Syscalls[abi.SysExit] = sysExit
	Syscalls[abi.SysYield] = sysYield
	Syscalls[abi.SysGetPid] = sysGetPid
	Syscalls[abi.SysSpawn] = sysSpawn
	Syscalls[abi.SysTaskInfo] = sysTaskInfo
}
