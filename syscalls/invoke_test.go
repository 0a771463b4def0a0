package syscalls

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evanphx/atlantis/abi"
	"github.com/evanphx/atlantis/kernel"
	"github.com/evanphx/atlantis/loader"
	"github.com/evanphx/atlantis/timer"
)

type stack struct {
	k     *kernel.Kernel
	inv   *Invoker
	clock *timer.Manual
}

func newStack(t *testing.T, console *bytes.Buffer, quantum uint64) *stack {
	t.Helper()

	clock := &timer.Manual{}

	k, err := kernel.NewKernel(kernel.Config{Clock: clock, Quantum: quantum})
	require.NoError(t, err)

	return &stack{
		k:     k,
		inv:   NewInvoker(k, console),
		clock: clock,
	}
}

func registerApp(t *testing.T, k *kernel.Kernel, name string, body loader.Body) {
	t.Helper()

	blob, err := loader.Build(&loader.Image{
		Entry:      0x10000,
		StackPages: 1,
		Segments: []loader.Segment{
			{
				Vaddr:   0x10000,
				MemSize: abi.PageSize,
				Port:    abi.ProtRead | abi.ProtExec,
				Data:    []byte{0x73, 0x00, 0x00, 0x00},
			},
		},
	})
	require.NoError(t, err)

	err = k.Registry().Register(loader.App{Name: name, Blob: blob, Body: body})
	require.NoError(t, err)
}

func startLoop(t *testing.T, k *kernel.Kernel) func() {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- k.RunTasks(ctx)
	}()

	return func() {
		cancel()
		require.ErrorIs(t, <-done, context.Canceled)
	}
}

// seed writes data into the current task's space, standing in for user
// code that stored it there.
func seed(k *kernel.Kernel, addr uint64, data []byte) {
	inner, release := k.CurrentTask().ExclusiveInner()
	defer release()

	if err := inner.Space.Populate(addr, data); err != nil {
		panic(err)
	}
}

// peek reads back from the current task's space.
func peek(k *kernel.Kernel, addr uint64, n int) []byte {
	inner, release := k.CurrentTask().ExclusiveInner()
	defer release()

	tail, err := inner.Space.Translate(addr)
	if err != nil {
		panic(err)
	}

	out := make([]byte, n)
	copy(out, tail)

	return out
}

func TestWrite(t *testing.T) {
	t.Run("copies user bytes to the console", func(t *testing.T) {
		console := &bytes.Buffer{}
		s := newStack(t, console, 0)

		type probe struct {
			mmap, write, badFd, fault int64
			trapId                    uint64
			trapPc                    uint64
			trapRet                   int64
		}

		res := make(chan probe, 1)

		registerApp(t, s.k, "writer", func(env loader.Env) {
			var p probe

			p.mmap = env.Syscall(abi.SysMmap, [3]uint64{0x40000, abi.PageSize, 3})

			cx := s.k.CurrentTrapContext()
			p.trapId = cx.SyscallID()
			p.trapPc = cx.PC()
			p.trapRet = int64(cx.Arg(0))

			seed(s.k, 0x40000, []byte("hi kernel\n"))

			p.write = env.Syscall(abi.SysWrite, [3]uint64{1, 0x40000, 10})
			p.badFd = env.Syscall(abi.SysWrite, [3]uint64{7, 0x40000, 10})
			p.fault = env.Syscall(abi.SysWrite, [3]uint64{1, 0x70000, 4})

			res <- p

			env.Syscall(abi.SysExit, [3]uint64{3})
		})

		task, err := s.k.Spawn("writer")
		require.NoError(t, err)

		stop := startLoop(t, s.k)
		defer stop()

		code, err := s.k.WaitExited(context.Background(), task)
		require.NoError(t, err)
		require.Equal(t, 3, code)

		p := <-res
		require.Equal(t, int64(0), p.mmap)
		require.Equal(t, uint64(abi.SysMmap), p.trapId)
		require.Equal(t, uint64(0x10004), p.trapPc)
		require.Equal(t, int64(0), p.trapRet)
		require.Equal(t, int64(10), p.write)
		require.Equal(t, int64(-abi.EBADF), p.badFd)
		require.Equal(t, int64(-abi.EFAULT), p.fault)

		require.Equal(t, "hi kernel\n", console.String())
	})
}

func TestRead(t *testing.T) {
	t.Run("fills the user buffer from the console", func(t *testing.T) {
		console := bytes.NewBufferString("ping")
		s := newStack(t, console, 0)

		type probe struct {
			mmap, read, eof, badFd int64
			data                   []byte
		}

		res := make(chan probe, 1)

		registerApp(t, s.k, "reader", func(env loader.Env) {
			var p probe

			p.mmap = env.Syscall(abi.SysMmap, [3]uint64{0x40000, abi.PageSize, 3})
			p.read = env.Syscall(abi.SysRead, [3]uint64{0, 0x40000, 16})
			p.data = peek(s.k, 0x40000, 4)

			p.eof = env.Syscall(abi.SysRead, [3]uint64{0, 0x40000, 16})
			p.badFd = env.Syscall(abi.SysRead, [3]uint64{3, 0x40000, 16})

			res <- p

			env.Syscall(abi.SysExit, [3]uint64{0})
		})

		task, err := s.k.Spawn("reader")
		require.NoError(t, err)

		stop := startLoop(t, s.k)
		defer stop()

		_, err = s.k.WaitExited(context.Background(), task)
		require.NoError(t, err)

		p := <-res
		require.Equal(t, int64(0), p.mmap)
		require.Equal(t, int64(4), p.read)
		require.Equal(t, []byte("ping"), p.data)
		require.Equal(t, int64(0), p.eof, "reads at eof report no bytes")
		require.Equal(t, int64(-abi.EBADF), p.badFd)
	})
}

func TestDispatchTable(t *testing.T) {
	t.Run("counts decodable ids and rejects the rest", func(t *testing.T) {
		s := newStack(t, &bytes.Buffer{}, 0)

		type probe struct {
			unhandled int64
			outside   int64
			pid       int64
			count99   uint32
		}

		res := make(chan probe, 1)

		registerApp(t, s.k, "prober", func(env loader.Env) {
			var p probe

			p.unhandled = env.Syscall(99, [3]uint64{})
			p.count99 = s.k.CurrentTaskSyscallCounts()[99]

			p.outside = env.Syscall(abi.MaxSyscallNum+7, [3]uint64{})

			p.pid = env.Syscall(abi.SysGetPid, [3]uint64{})

			res <- p

			env.Syscall(abi.SysExit, [3]uint64{0})
		})

		task, err := s.k.Spawn("prober")
		require.NoError(t, err)

		stop := startLoop(t, s.k)
		defer stop()

		_, err = s.k.WaitExited(context.Background(), task)
		require.NoError(t, err)

		p := <-res
		require.Equal(t, int64(-abi.ENOSYS), p.unhandled)
		require.Equal(t, uint32(1), p.count99)
		require.Equal(t, int64(-abi.ENOSYS), p.outside)
		require.Equal(t, int64(task.Pid), p.pid)
	})

	t.Run("yield interleaves two writers", func(t *testing.T) {
		console := &bytes.Buffer{}
		s := newStack(t, console, 0)

		mkBody := func(mark string) loader.Body {
			return func(env loader.Env) {
				env.Syscall(abi.SysMmap, [3]uint64{0x40000, abi.PageSize, 3})
				seed(s.k, 0x40000, []byte(mark))

				for n := 0; n < 2; n++ {
					env.Syscall(abi.SysWrite, [3]uint64{1, 0x40000, 1})
					env.Syscall(abi.SysYield, [3]uint64{})
				}

				env.Syscall(abi.SysExit, [3]uint64{0})
			}
		}

		registerApp(t, s.k, "a", mkBody("a"))
		registerApp(t, s.k, "b", mkBody("b"))

		ta, err := s.k.Spawn("a")
		require.NoError(t, err)

		tb, err := s.k.Spawn("b")
		require.NoError(t, err)

		stop := startLoop(t, s.k)
		defer stop()

		_, err = s.k.WaitExited(context.Background(), ta)
		require.NoError(t, err)

		_, err = s.k.WaitExited(context.Background(), tb)
		require.NoError(t, err)

		require.Equal(t, "abab", console.String())
	})
}

func TestClock(t *testing.T) {
	t.Run("reports kernel time raw and as a timeval", func(t *testing.T) {
		s := newStack(t, &bytes.Buffer{}, 0)
		s.clock.Set(1234)

		type probe struct {
			raw, viaPtr int64
			tv          timeval
		}

		res := make(chan probe, 1)

		registerApp(t, s.k, "timekeeper", func(env loader.Env) {
			var p probe

			p.raw = env.Syscall(abi.SysGetTime, [3]uint64{0})

			env.Syscall(abi.SysMmap, [3]uint64{0x40000, abi.PageSize, 3})
			p.viaPtr = env.Syscall(abi.SysGetTime, [3]uint64{0x40000})

			buf := peek(s.k, 0x40000, 16)
			binary.Read(bytes.NewReader(buf), binary.LittleEndian, &p.tv)

			res <- p

			env.Syscall(abi.SysExit, [3]uint64{0})
		})

		task, err := s.k.Spawn("timekeeper")
		require.NoError(t, err)

		stop := startLoop(t, s.k)
		defer stop()

		_, err = s.k.WaitExited(context.Background(), task)
		require.NoError(t, err)

		p := <-res
		require.Equal(t, int64(1234), p.raw)
		require.Equal(t, int64(0), p.viaPtr)
		require.Equal(t, timeval{Sec: 1, Usec: 234000}, p.tv)
	})
}

func TestTaskInfo(t *testing.T) {
	t.Run("snapshots status, counters, and costed time", func(t *testing.T) {
		s := newStack(t, &bytes.Buffer{}, 0)
		s.clock.Set(100)

		res := make(chan userTaskInfo, 1)

		registerApp(t, s.k, "introspect", func(env loader.Env) {
			env.Syscall(abi.SysGetPid, [3]uint64{})
			env.Syscall(abi.SysGetPid, [3]uint64{})
			env.Syscall(abi.SysMmap, [3]uint64{0x40000, abi.PageSize, 3})

			s.clock.Set(150)

			if ret := env.Syscall(abi.SysTaskInfo, [3]uint64{0x40000}); ret != 0 {
				panic(ret)
			}

			var got userTaskInfo
			buf := peek(s.k, 0x40000, binary.Size(got))
			binary.Read(bytes.NewReader(buf), binary.LittleEndian, &got)

			res <- got

			env.Syscall(abi.SysExit, [3]uint64{0})
		})

		task, err := s.k.Spawn("introspect")
		require.NoError(t, err)

		stop := startLoop(t, s.k)
		defer stop()

		_, err = s.k.WaitExited(context.Background(), task)
		require.NoError(t, err)

		got := <-res
		require.Equal(t, uint32(1), got.Status) // Running
		require.Equal(t, uint32(2), got.SyscallCounts[abi.SysGetPid])
		require.Equal(t, uint32(1), got.SyscallCounts[abi.SysMmap])
		require.Equal(t, uint32(1), got.SyscallCounts[abi.SysTaskInfo])
		require.Equal(t, int64(50), got.CostedTimeMs)
	})
}

func TestSpawn(t *testing.T) {
	t.Run("spawns a registered app by user-memory name", func(t *testing.T) {
		console := &bytes.Buffer{}
		s := newStack(t, console, 0)

		registerApp(t, s.k, "child", func(env loader.Env) {
			env.Syscall(abi.SysMmap, [3]uint64{0x40000, abi.PageSize, 3})
			seed(s.k, 0x40000, []byte("c"))
			env.Syscall(abi.SysWrite, [3]uint64{1, 0x40000, 1})
			env.Syscall(abi.SysExit, [3]uint64{0})
		})

		type probe struct {
			child, ghost, fault int64
		}

		res := make(chan probe, 1)

		registerApp(t, s.k, "parent", func(env loader.Env) {
			var p probe

			env.Syscall(abi.SysMmap, [3]uint64{0x40000, abi.PageSize, 3})

			seed(s.k, 0x40000, []byte("child\x00"))
			p.child = env.Syscall(abi.SysSpawn, [3]uint64{0x40000})

			seed(s.k, 0x40000, []byte("ghost\x00"))
			p.ghost = env.Syscall(abi.SysSpawn, [3]uint64{0x40000})

			p.fault = env.Syscall(abi.SysSpawn, [3]uint64{0x70000})

			// give the child its turn before we go
			env.Syscall(abi.SysYield, [3]uint64{})

			res <- p

			env.Syscall(abi.SysExit, [3]uint64{0})
		})

		parent, err := s.k.Spawn("parent")
		require.NoError(t, err)

		stop := startLoop(t, s.k)
		defer stop()

		_, err = s.k.WaitExited(context.Background(), parent)
		require.NoError(t, err)

		p := <-res
		require.Equal(t, int64(2), p.child)
		require.Equal(t, int64(-abi.ENOENT), p.ghost)
		require.Equal(t, int64(-abi.EFAULT), p.fault)

		require.Equal(t, "c", console.String())
	})
}
