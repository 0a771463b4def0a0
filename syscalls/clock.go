package syscalls

import (
	hclog "github.com/hashicorp/go-hclog"

	"github.com/evanphx/atlantis/abi"
)

type timeval struct {
	Sec  int64
	Usec int64
}

func sysGetTime(l hclog.Logger, i *Invoker, args SysArgs) int64 {
	var (
		ptr = args.Args.R0
	)

	ms := i.Kernel.Clock().NowMillis()

	// a null pointer asks for the raw millisecond count
	if ptr == 0 {
		return ms
	}

	tv := timeval{
		Sec:  ms / 1000,
		Usec: (ms % 1000) * 1000,
	}

	if err := copyOut(i.Kernel, ptr, tv); err != nil {
		l.Error("error writing timeval", "error", err, "ptr", ptr)
		return -abi.EFAULT
	}

	return 0
}

func init() {
	Syscalls[abi.SysGetTime] = sysGetTime
}
