package trap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContext(t *testing.T) {
	t.Run("app init lands at the entry point on the user stack", func(t *testing.T) {
		cx := AppInit(0x1000, 0x8000)

		require.Equal(t, uint64(0x1000), cx.PC())
		require.Equal(t, uint64(0x8000), cx.SP())
		require.Equal(t, uint64(SstatusSPIE), cx.Sstatus)
		require.Zero(t, cx.Sstatus&SstatusSPP)
	})

	t.Run("round-trips a syscall through the register file", func(t *testing.T) {
		cx := AppInit(0x1000, 0x8000)

		cx.SetSyscall(124, [3]uint64{7, 8, 9})

		require.Equal(t, uint64(124), cx.SyscallID())
		require.Equal(t, uint64(7), cx.Arg(0))
		require.Equal(t, uint64(8), cx.Arg(1))
		require.Equal(t, uint64(9), cx.Arg(2))

		cx.SetReturn(-38)
		require.Equal(t, int64(-38), int64(cx.Arg(0)))
	})

	t.Run("steps over the trapping instruction", func(t *testing.T) {
		cx := AppInit(0x1000, 0x8000)

		cx.StepPC()
		cx.StepPC()

		require.Equal(t, uint64(0x1008), cx.PC())
	})
}
