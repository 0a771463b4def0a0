package syscalls

import (
	hclog "github.com/hashicorp/go-hclog"

	"github.com/evanphx/atlantis/abi"
)

func sysMmap(l hclog.Logger, i *Invoker, args SysArgs) int64 {
	var (
		start = args.Args.R0
		sz    = args.Args.R1
		port  = args.Args.R2
	)

	return i.Kernel.Mmap(start, sz, port)
}

func sysMunmap(l hclog.Logger, i *Invoker, args SysArgs) int64 {
	var (
		start = args.Args.R0
		sz    = args.Args.R1
	)

	return i.Kernel.Munmap(start, sz)
}

func init() {
	Syscalls[abi.SysMmap] = sysMmap
	Syscalls[abi.SysMunmap] = sysMunmap
}
