package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunBounded(t *testing.T) {
	m := NewManager(1)
	var running int32
	var maxSeen int32

	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		go func() {
			m.Run(context.Background(), func(ctx context.Context) error {
				n := atomic.AddInt32(&running, 1)
				if n > atomic.LoadInt32(&maxSeen) {
					atomic.StoreInt32(&maxSeen, n)
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil
			})
			done <- struct{}{}
		}()
	}
	<-done
	<-done

	if atomic.LoadInt32(&maxSeen) > 1 {
		t.Fatalf("expected at most 1 concurrent task, saw %d", maxSeen)
	}
}

func TestSpawnAndStop(t *testing.T) {
	m := NewManager(4)
	var stopped int32
	task := m.Spawn(context.Background(), func(ctx context.Context) {
		<-ctx.Done()
		atomic.StoreInt32(&stopped, 1)
	})

	task.Stop()
	if atomic.LoadInt32(&stopped) != 1 {
		t.Fatal("expected loop to observe cancellation before Stop returns")
	}
}

func TestStopAll(t *testing.T) {
	m := NewManager(4)
	for i := 0; i < 3; i++ {
		m.Spawn(context.Background(), func(ctx context.Context) {
			<-ctx.Done()
		})
	}
	m.StopAll()
	m.mu.Lock()
	remaining := len(m.tasks)
	m.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expected 0 tasks after StopAll, got %d", remaining)
	}
}

func TestSleepCancellable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	err := Sleep(ctx, 5*time.Second)
	if err == nil {
		t.Fatal("expected Sleep to return early on cancellation")
	}
}
