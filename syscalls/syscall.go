// Package syscalls decodes and executes syscalls on behalf of whatever
// task currently owns the core. Handlers register themselves into a fixed
// table; ids outside it, or without a handler, report ENOSYS rather than
// aborting.
package syscalls

import (
	hclog "github.com/hashicorp/go-hclog"

	"github.com/evanphx/atlantis/abi"
)

type SysArgs struct {
	Id   uint64
	Args SyscallRequest
}

type SyscallRequest struct {
	R0, R1, R2 uint64
}

var Syscalls [abi.MaxSyscallNum]func(hclog.Logger, *Invoker, SysArgs) int64
