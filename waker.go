package futurelock

import (
	"github.com/Karrq/future-parking-lot/internal/opt"
)

// Waker is the resume callback a suspended task leaves behind when it
// registers for a wakeup.
//
// Wake must be safe to call from any goroutine, more than once, and
// after the task it belongs to has been abandoned; every call beyond
// the first is a harmless no-op at worst and a spurious retry of the
// task's try-acquire at best. Exactly one call is sufficient to
// guarantee the task's eventual progress.
type Waker interface {
	Wake()
}

// WakerFunc adapts a plain function to the Waker interface.
type WakerFunc func()

func (f WakerFunc) Wake() { f() }

// chanWaker resumes a task parked on a select. The cap-1 buffer makes
// Wake a non-blocking latch: redundant wakes collapse into one pending
// signal, and a wake after the waiter gave up (context cancellation)
// lands in the buffer and is garbage collected with it.
type chanWaker struct {
	ch chan struct{}
}

func newChanWaker() *chanWaker {
	return &chanWaker{ch: make(chan struct{}, 1)}
}

func (w *chanWaker) Wake() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

// semaWaker resumes a task parked on the runtime semaphore. Redundant
// wakes accumulate as semaphore credit and surface as tolerated
// spurious returns from wait.
type semaWaker struct {
	sema opt.Sema
}

func (w *semaWaker) Wake() { w.sema.Release() }

func (w *semaWaker) wait() { w.sema.Acquire() }
