package futurelock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWakerFunc(t *testing.T) {
	var n int32
	var w Waker = WakerFunc(func() { atomic.AddInt32(&n, 1) })
	w.Wake()
	w.Wake()
	if atomic.LoadInt32(&n) != 2 {
		t.Fatalf("calls = %d, want 2", n)
	}
}

func TestChanWaker_Idempotent(t *testing.T) {
	w := newChanWaker()

	// Redundant wakes must never block, even with no waiter.
	for range 10 {
		w.Wake()
	}

	select {
	case <-w.ch:
	default:
		t.Fatal("no pending signal after Wake")
	}
	select {
	case <-w.ch:
		t.Fatal("redundant wakes queued more than one signal")
	default:
	}
}

func TestChanWaker_AnyThread(t *testing.T) {
	w := newChanWaker()

	var wg sync.WaitGroup
	wg.Add(8)
	for range 8 {
		go func() {
			defer wg.Done()
			w.Wake()
		}()
	}
	wg.Wait()

	select {
	case <-w.ch:
	case <-time.After(time.Second):
		t.Fatal("signal lost")
	}
}

func TestSemaWaker(t *testing.T) {
	w := new(semaWaker)

	done := make(chan struct{})
	go func() {
		w.wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("wait returned before Wake")
	case <-time.After(10 * time.Millisecond):
	}

	w.Wake()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait not released by Wake")
	}

	// A wake with no waiter is banked and released as a spurious
	// return from the next wait, which callers tolerate.
	w.Wake()
	w.wait()
}
