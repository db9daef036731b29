package inflight

import (
	"context"
	"testing"
	"time"
)

func TestLoopRunsFuncsInDispatchOrder(t *testing.T) {
	t.Parallel()
	loop := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	got := make(chan int, 3)
	for i := 1; i <= 3; i++ {
		loop.Dispatch(func() { got <- i })
	}
	for want := 1; want <= 3; want++ {
		select {
		case v := <-got:
			if v != want {
				t.Fatalf("unexpected order: got=%d want=%d", v, want)
			}
		case <-time.After(testWait):
			t.Fatal("dispatched func did not run")
		}
	}
}

func TestLoopDropsFuncsAfterClose(t *testing.T) {
	t.Parallel()
	loop := NewLoop()
	ran := make(chan struct{}, 1)
	loop.Dispatch(func() { ran <- struct{}{} })
	loop.Close()
	loop.Dispatch(func() { ran <- struct{}{} })

	go loop.Run(context.Background())
	select {
	case <-loop.Stopped():
	case <-time.After(testWait):
		t.Fatal("closed loop must stop")
	}
	select {
	case <-ran:
		t.Fatal("funcs queued before or after close must be dropped")
	default:
	}
}

func TestLoopStopsWhenContextEnds(t *testing.T) {
	t.Parallel()
	loop := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	cancel()
	select {
	case <-loop.Stopped():
	case <-time.After(testWait):
		t.Fatal("loop must stop when its context ends")
	}
}

func TestCoordinatorDeliversThroughLoop(t *testing.T) {
	t.Parallel()
	loop := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	client := newFakeClient()
	c, err := New[string, string](client, Options{Dispatcher: loop})
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}
	obs := newCountingObserver()
	if _, err := c.Submit(context.Background(), "formA", obs); err != nil {
		t.Fatalf("submit: %v", err)
	}
	client.nextCall(t).release <- fakeResult{err: context.DeadlineExceeded}
	obs.wait(t)
	if got := obs.failed.Load(); got != 1 {
		t.Fatalf("expected failure delivered on loop, got=%d", got)
	}
}

func TestObserverFuncsSkipNilCallbacks(t *testing.T) {
	called := false
	ObserverFuncs{Failed: func() { called = true }}.OnFailed()
	ObserverFuncs{}.OnSucceeded()
	if !called {
		t.Fatal("expected Failed callback to run")
	}
}

func TestStateString(t *testing.T) {
	if StateSubmitting.String() != "submitting" || State(42).String() != "unknown" {
		t.Fatalf("unexpected state names: %s %s", StateSubmitting, State(42))
	}
}
