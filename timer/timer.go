// timer/timer.go
package timer

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Task is a scheduled callback. Interval > 0 makes it repeat.
type Task struct {
	ID       int64
	Execute  time.Time
	Interval time.Duration
	Callback func()
	index    int
}

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	return q[i].Execute.Before(q[j].Execute)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	task := x.(*Task)
	task.index = len(*q)
	*q = append(*q, task)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	task.index = -1
	*q = old[0 : n-1]
	return task
}

// Manager runs callbacks at scheduled times on their own goroutines.
type Manager struct {
	queue  taskQueue
	byID   map[int64]*Task
	mutex  sync.Mutex
	nextID int64
	wake   chan struct{}
	stop   chan struct{}
	once   sync.Once
}

func NewManager() *Manager {
	m := &Manager{
		queue:  make(taskQueue, 0),
		byID:   make(map[int64]*Task),
		nextID: 1,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
	heap.Init(&m.queue)
	go m.process()
	return m
}

// AddTimer schedules callback after delay, repeating every interval if
// interval > 0. It returns an id for RemoveTimer.
func (m *Manager) AddTimer(delay, interval time.Duration, callback func()) int64 {
	m.mutex.Lock()
	task := &Task{
		ID:       m.nextID,
		Execute:  time.Now().Add(delay),
		Interval: interval,
		Callback: callback,
	}
	m.nextID++
	heap.Push(&m.queue, task)
	m.byID[task.ID] = task
	m.mutex.Unlock()

	m.poke()
	return task.ID
}

// After schedules a one-shot callback.
func (m *Manager) After(delay time.Duration, callback func()) int64 {
	return m.AddTimer(delay, 0, callback)
}

// RemoveTimer cancels a pending task. It reports false if the task already
// fired (one-shot) or never existed.
func (m *Manager) RemoveTimer(id int64) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	task, ok := m.byID[id]
	if !ok {
		return false
	}
	delete(m.byID, id)
	if task.index >= 0 {
		heap.Remove(&m.queue, task.index)
	}
	return true
}

// Sleep waits for delay on the manager's clock or until ctx is done.
func (m *Manager) Sleep(ctx context.Context, delay time.Duration) error {
	done := make(chan struct{})
	id := m.After(delay, func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		m.RemoveTimer(id)
		return ctx.Err()
	}
}

// Pending returns the number of scheduled tasks.
func (m *Manager) Pending() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.queue.Len()
}

// Stop halts the manager. Pending tasks never fire.
func (m *Manager) Stop() {
	m.once.Do(func() { close(m.stop) })
}

func (m *Manager) poke() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) process() {
	t := time.NewTimer(time.Hour)
	defer t.Stop()

	for {
		m.mutex.Lock()
		now := time.Now()
		for m.queue.Len() > 0 {
			task := m.queue[0]
			if task.Execute.After(now) {
				break
			}
			heap.Pop(&m.queue)
			go task.Callback()

			if task.Interval > 0 {
				task.Execute = now.Add(task.Interval)
				heap.Push(&m.queue, task)
			} else {
				delete(m.byID, task.ID)
			}
		}
		wait := time.Hour
		if m.queue.Len() > 0 {
			wait = time.Until(m.queue[0].Execute)
		}
		m.mutex.Unlock()

		if !t.Stop() {
			select {
			case <-t.C:
			default:
			}
		}
		t.Reset(wait)

		select {
		case <-t.C:
		case <-m.wake:
		case <-m.stop:
			return
		}
	}
}
