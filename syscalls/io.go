package syscalls

import (
	"io"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/evanphx/atlantis/abi"
	"github.com/evanphx/atlantis/memory"
)

const (
	fdStdin  = 0
	fdStdout = 1
	fdStderr = 2
)

func sysWrite(l hclog.Logger, i *Invoker, args SysArgs) int64 {
	var (
		fd  = args.Args.R0
		ptr = args.Args.R1
		sz  = args.Args.R2
	)

	if fd != fdStdout && fd != fdStderr {
		return -abi.EBADF
	}

	frags, err := userView(i.Kernel, ptr, sz, memory.PermRead)
	if err != nil {
		l.Error("error reading data from userspace", "error", err, "ptr", ptr, "size", sz)
		return -abi.EFAULT
	}

	var n int64

	for _, frag := range frags {
		wrote, err := i.Console.Write(frag)
		n += int64(wrote)

		if err != nil {
			l.Error("error writing to console", "error", err)
			return -abi.EIO
		}
	}

	return n
}

func sysRead(l hclog.Logger, i *Invoker, args SysArgs) int64 {
	var (
		fd  = args.Args.R0
		ptr = args.Args.R1
		sz  = args.Args.R2
	)

	if fd != fdStdin {
		return -abi.EBADF
	}

	frags, err := userView(i.Kernel, ptr, sz, memory.PermWrite)
	if err != nil {
		l.Error("error mapping read buffer", "error", err, "ptr", ptr, "size", sz)
		return -abi.EFAULT
	}

	tmp := make([]byte, sz)

	n, err := i.Console.Read(tmp)
	if err != nil {
		if err == io.EOF {
			return 0
		}

		if n == 0 || err != io.ErrUnexpectedEOF {
			l.Error("error reading from console", "error", err)
			return -abi.EIO
		}
	}

	data := tmp[:n]
	for _, frag := range frags {
		if len(data) == 0 {
			break
		}

		c := copy(frag, data)
		data = data[c:]
	}

	return int64(n)
}

func init() {
	Syscalls[abi.SysWrite] = sysWrite
	Syscalls[abi.SysRead] = sysRead
}
