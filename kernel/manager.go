package kernel

import (
	"sort"
	"sync"
)

// TaskManager tracks every live task by pid. Unlike the scheduler it is
// reachable from outside the core flow (boot-path spawns, reapers), so it
// carries a real lock.
type TaskManager struct {
	mu        sync.RWMutex
	highWater int
	tasks     map[int]*Task
}

func NewTaskManager() *TaskManager {
	return &TaskManager{
		tasks: make(map[int]*Task),
	}
}

// AssignPid gives t the lowest free pid and registers it.
func (m *TaskManager) AssignPid(t *Task) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 1; i <= m.highWater; i++ {
		if _, ok := m.tasks[i]; !ok {
			t.Pid = i
			m.tasks[i] = t
			return i
		}
	}

	m.highWater++
	pid := m.highWater
	m.tasks[pid] = t
	t.Pid = pid

	return pid
}

func (m *TaskManager) RemoveTask(t *Task) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tasks, t.Pid)
}

func (m *TaskManager) Lookup(pid int) (*Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[pid]

	return t, ok
}

// Pids lists the live pids in order.
func (m *TaskManager) Pids() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pids := make([]int, 0, len(m.tasks))
	for pid := range m.tasks {
		pids = append(pids, pid)
	}

	sort.Ints(pids)

	return pids
}
