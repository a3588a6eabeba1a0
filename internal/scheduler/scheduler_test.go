package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func countingTask(name string, calls *atomic.Int32) Task {
	return Task{Name: name, Run: func(_ context.Context) error {
		calls.Add(1)
		return nil
	}}
}

func failingTask(name string, calls *atomic.Int32) Task {
	return Task{Name: name, Run: func(_ context.Context) error {
		calls.Add(1)
		return errors.New("task failed")
	}}
}

func TestRun_CancelReturnsPromptly(t *testing.T) {
	var calls atomic.Int32
	s := NewScheduler([]Task{countingTask("collect", &calls)}, time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on cancel, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not return within 2s after cancel")
	}
}

func TestRun_ImmediateCycleThenTicks(t *testing.T) {
	var calls atomic.Int32
	s := NewScheduler([]Task{countingTask("collect", &calls)}, 100*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	// Allow time for at least two full passes (run → sleep interval → run).
	time.Sleep(250 * time.Millisecond)
	cancel()
	<-done

	if got := calls.Load(); got < 2 {
		t.Errorf("task calls = %d, want >= 2", got)
	}
}

func TestRun_FailedTaskDoesNotStopCycle(t *testing.T) {
	var failCalls, okCalls atomic.Int32
	tasks := []Task{
		failingTask("broken", &failCalls),
		countingTask("healthy", &okCalls),
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(tasks, time.Hour, discardLogger())

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	// One pass: broken fails, healthy runs 1s later (inter-task pause).
	time.Sleep(1500 * time.Millisecond)
	cancel()
	<-done

	if got := failCalls.Load(); got < 1 {
		t.Errorf("failing task calls = %d, want >= 1", got)
	}
	if got := okCalls.Load(); got < 1 {
		t.Errorf("healthy task calls = %d, want >= 1 (cycle should continue past a failure)", got)
	}
}

func TestRun_TasksRunInOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(name string) Task {
		return Task{Name: name, Run: func(_ context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler([]Task{record("collect"), record("score")}, time.Hour, discardLogger())

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	// One full pass: collect, then 1s pause, then score.
	time.Sleep(1500 * time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	got := append([]string(nil), order...)
	mu.Unlock()

	want := []string{"collect", "score"}
	if len(got) != len(want) {
		t.Fatalf("task order length = %d, want %d (order: %v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("task order = %v, want %v", got, want)
			break
		}
	}
}
