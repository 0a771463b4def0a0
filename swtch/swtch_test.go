package swtch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSwitch(t *testing.T) {
	t.Run("round-trips between two flows", func(t *testing.T) {
		idle := New()
		task := New()

		var trace []string
		done := make(chan struct{})

		go func() {
			task.Enter()
			trace = append(trace, "task-first")

			Switch(task, idle)
			trace = append(trace, "task-second")

			Handoff(idle)
			close(done)
		}()

		Switch(idle, task)
		trace = append(trace, "idle-after-yield")

		Switch(idle, task)
		<-done

		require.Equal(t, []string{"task-first", "idle-after-yield", "task-second"}, trace)
	})

	t.Run("banks a resume issued before the flow parks", func(t *testing.T) {
		c := New()

		Handoff(c)

		entered := make(chan struct{})
		go func() {
			c.Enter()
			close(entered)
		}()

		select {
		case <-entered:
		case <-time.After(2 * time.Second):
			t.Fatal("flow never saw the banked resume")
		}
	})

	t.Run("detects a double resume", func(t *testing.T) {
		c := New()

		Handoff(c)

		require.PanicsWithValue(t, ErrDoubleResume, func() {
			Handoff(c)
		})
	})

	t.Run("detects a self switch", func(t *testing.T) {
		c := New()

		require.PanicsWithValue(t, ErrSelfSwitch, func() {
			Switch(c, c)
		})
	})
}
