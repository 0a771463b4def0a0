package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evanphx/atlantis/memory"
	"github.com/evanphx/atlantis/trap"
)

func bareTask() *Task {
	return newTask(memory.New(), trap.AppInit(0x10000, 0x20000))
}

func TestScheduler(t *testing.T) {
	t.Run("fetches in fifo order", func(t *testing.T) {
		s := NewScheduler()

		a, b, c := bareTask(), bareTask(), bareTask()

		s.Add(a)
		s.Add(b)
		s.Add(c)

		require.Equal(t, 3, s.Len())

		require.Same(t, a, s.Fetch())
		require.Same(t, b, s.Fetch())
		require.Same(t, c, s.Fetch())
		require.Nil(t, s.Fetch())
	})

	t.Run("requeued tasks go to the back", func(t *testing.T) {
		s := NewScheduler()

		a, b := bareTask(), bareTask()

		s.Add(a)
		s.Add(b)

		got := s.Fetch()
		require.Same(t, a, got)

		s.Add(got)

		require.Same(t, b, s.Fetch())
		require.Same(t, a, s.Fetch())
	})
}

func TestTaskManager(t *testing.T) {
	t.Run("reuses the lowest freed pid", func(t *testing.T) {
		m := NewTaskManager()

		a, b, c := bareTask(), bareTask(), bareTask()

		require.Equal(t, 1, m.AssignPid(a))
		require.Equal(t, 2, m.AssignPid(b))
		require.Equal(t, 3, m.AssignPid(c))

		m.RemoveTask(b)

		d := bareTask()
		require.Equal(t, 2, m.AssignPid(d))

		e := bareTask()
		require.Equal(t, 4, m.AssignPid(e))
	})

	t.Run("looks up live pids", func(t *testing.T) {
		m := NewTaskManager()

		a := bareTask()
		m.AssignPid(a)

		got, ok := m.Lookup(a.Pid)
		require.True(t, ok)
		require.Same(t, a, got)

		_, ok = m.Lookup(99)
		require.False(t, ok)

		require.Equal(t, []int{1}, m.Pids())
	})
}

func TestExclusiveInner(t *testing.T) {
	t.Run("detects a re-entrant acquisition", func(t *testing.T) {
		task := bareTask()

		_, release := task.ExclusiveInner()
		defer release()

		require.Panics(t, func() { task.ExclusiveInner() })
	})
}
