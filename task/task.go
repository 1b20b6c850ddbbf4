// Package task implements the bounded task manager spec §5 describes:
// "Parallel threads coordinated through a task manager that caps
// concurrently-running tasks." Long-lived tasks (SSDP listener,
// announcement, housekeeping, event publishing) are modelled as abortable
// loops; short-lived tasks (HTTP requests) run through a bounded
// semaphore so the whole stack never spawns unbounded goroutines under
// load. The teacher has no equivalent — grounded on golang.org/x/sync's
// presence across the pack (rclone, navidrome) rather than on teacher
// code, which starts bare goroutines.
package task

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Manager caps concurrently-running short-lived tasks and tracks
// long-lived ones for bulk cancellation.
type Manager struct {
	sem *semaphore.Weighted

	mu    sync.Mutex
	tasks map[*Task]struct{}
}

// NewManager creates a Manager allowing at most maxConcurrent short-lived
// tasks (Run) to execute at once. Long-lived tasks (Spawn) are not
// counted against this limit — they are expected to be few and
// long-running, not a pool to size.
func NewManager(maxConcurrent int64) *Manager {
	return &Manager{
		sem:   semaphore.NewWeighted(maxConcurrent),
		tasks: make(map[*Task]struct{}),
	}
}

// Run executes fn, blocking the caller until a concurrency slot is free or
// ctx is cancelled (spec §5: short-lived HTTP client requests — the
// caller's own goroutine is suspended on the semaphore, not spawned
// anew).
func (m *Manager) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer m.sem.Release(1)
	return fn(ctx)
}

// Task is a long-lived, abortable unit of work (spec §5: "Tasks are
// cancelled by setting an abort flag and closing the underlying socket").
// The loop function must return promptly once ctx is done.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Spawn starts fn in its own goroutine with a cancellable context,
// tracked by the manager so Manager.StopAll can cancel every long-lived
// task at once (used on control-point/host shutdown).
func (m *Manager) Spawn(parent context.Context, fn func(ctx context.Context)) *Task {
	ctx, cancel := context.WithCancel(parent)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	m.tasks[t] = struct{}{}
	m.mu.Unlock()

	go func() {
		defer close(t.done)
		defer func() {
			m.mu.Lock()
			delete(m.tasks, t)
			m.mu.Unlock()
		}()
		fn(ctx)
	}()

	return t
}

// Stop cancels the task and waits for its loop to return.
func (t *Task) Stop() {
	t.cancel()
	<-t.done
}

// Done reports a channel closed once the task's loop has returned, without
// requesting cancellation.
func (t *Task) Done() <-chan struct{} { return t.done }

// StopAll cancels every task currently tracked by the manager and waits
// for each to finish — used for control-point abort and device-host
// shutdown (spec §5 "Cancellation").
func (m *Manager) StopAll() {
	m.mu.Lock()
	tasks := make([]*Task, 0, len(m.tasks))
	for t := range m.tasks {
		tasks = append(tasks, t)
	}
	m.mu.Unlock()

	for _, t := range tasks {
		t.Stop()
	}
}
