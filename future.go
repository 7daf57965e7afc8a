package futurelock

import (
	"sync/atomic"
	"unsafe"

	"github.com/gammazero/deque"

	"github.com/Karrq/future-parking-lot/internal/opt"
)

// FutureRawRWLock wraps a synchronous RawRWLock and collects the Wakers
// of suspended acquirers so they can be resumed when the lock is
// released. It implements the same capability set as the inner lock, so
// it is a drop-in replacement wherever a RawRWLock is expected.
//
// The waker FIFO is created lazily on first use and guarded by a
// bit-spinlock whose critical section is a single push or pop; it is
// never held across delegation to the inner lock or across a Wake call.
// Serializing RegisterWaker's push and the release path's pop through
// that one spinlock is what rules out the missed wakeup:
//
//   - if a release's pop runs first, the registering task had not queued
//     its waker yet, but the wrapper retries its try-acquire right after
//     registering and observes the freed capacity;
//   - if the push runs first, the waker is in the queue when the release
//     pops, and is delivered.
//
// In both interleavings the task either sees a fresh chance to acquire
// or receives a wakeup, never neither.
type FutureRawRWLock[R RawRWLock] struct {
	_       noCopy
	wakers  atomic.Pointer[deque.Deque[Waker]]
	locking uint32
	// Keep the notification bookkeeping and the inner lock state on
	// separate cache lines; they are hammered by different goroutines.
	_     [(opt.CacheLineSize - (unsafe.Sizeof(uintptr(0))+4)%opt.CacheLineSize) % opt.CacheLineSize]byte
	inner R
}

// NewFutureRawRWLock wraps inner in a FutureRawRWLock.
func NewFutureRawRWLock[R RawRWLock](inner R) *FutureRawRWLock[R] {
	return &FutureRawRWLock[R]{inner: inner}
}

// queue returns the waker FIFO, creating it at most once. Concurrent
// creators race through a single CAS; the loser's allocation is
// discarded.
func (f *FutureRawRWLock[R]) queue() *deque.Deque[Waker] {
	q := f.wakers.Load()
	if q == nil {
		q = new(deque.Deque[Waker])
		if !f.wakers.CompareAndSwap(nil, q) {
			q = f.wakers.Load()
		}
	}
	return q
}

// lock acquires the bit-spinlock guarding queue mutation.
func (f *FutureRawRWLock[R]) lock() {
	if atomic.CompareAndSwapUint32(&f.locking, 0, 1) {
		return
	}
	var spins int
	for {
		if atomic.LoadUint32(&f.locking) == 0 &&
			atomic.CompareAndSwapUint32(&f.locking, 0, 1) {
			return
		}
		delay(&spins)
	}
}

//go:nosplit
func (f *FutureRawRWLock[R]) unlock() {
	atomic.StoreUint32(&f.locking, 0)
}

// RegisterWaker queues w to be woken by a later release. It is called
// by a suspension wrapper after a failed try-acquire; the caller must
// retry its try-acquire once more before suspending, otherwise a
// release that popped the empty queue just before the push would leave
// the task sleeping forever.
func (f *FutureRawRWLock[R]) RegisterWaker(w Waker) {
	q := f.queue()
	f.lock()
	q.PushBack(w)
	f.unlock()
}

// wakeAll drains the queue, waking every waiter registered so far.
// Popping an empty (or not yet created) queue is a no-op; wakers are
// invoked outside the spinlock, and the spinlock is taken once per pop
// to keep its critical section bounded.
//
// Every release drains the whole queue. Queued wakers are opaque, so a
// release cannot tell a waiter it unblocks from one it does not: a
// single wake token handed to a writer that still fails on an active
// upgradable hold would be consumed without the upgrader whose readers
// just drained ever being woken, a permanent deadlock. Waking everyone
// costs only tolerated spurious retries.
func (f *FutureRawRWLock[R]) wakeAll() {
	q := f.wakers.Load()
	if q == nil {
		return
	}
	for {
		var w Waker
		f.lock()
		if q.Len() > 0 {
			w = q.PopFront()
		}
		f.unlock()
		if w == nil {
			return
		}
		w.Wake()
	}
}

// LockShared blocks until a shared hold is granted.
func (f *FutureRawRWLock[R]) LockShared() {
	f.queue()
	f.inner.LockShared()
}

// TryLockShared attempts a shared hold without blocking.
func (f *FutureRawRWLock[R]) TryLockShared() bool {
	f.queue()
	return f.inner.TryLockShared()
}

// UnlockShared releases one shared hold and wakes every queued waiter;
// dropping the last shared hold may unblock a waiting upgrader as well
// as a writer (see wakeAll).
func (f *FutureRawRWLock[R]) UnlockShared() {
	f.inner.UnlockShared()
	f.wakeAll()
}

// LockExclusive blocks until the exclusive hold is granted.
func (f *FutureRawRWLock[R]) LockExclusive() {
	f.queue()
	f.inner.LockExclusive()
}

// TryLockExclusive attempts the exclusive hold without blocking.
func (f *FutureRawRWLock[R]) TryLockExclusive() bool {
	f.queue()
	return f.inner.TryLockExclusive()
}

// UnlockExclusive releases the exclusive hold and wakes every queued
// waiter, since the lock just became fully free.
func (f *FutureRawRWLock[R]) UnlockExclusive() {
	f.inner.UnlockExclusive()
	f.wakeAll()
}

// asUpgrade asserts the upgradable capability of the inner lock.
func (f *FutureRawRWLock[R]) asUpgrade() RawUpgradeLock {
	u, ok := any(f.inner).(RawUpgradeLock)
	if !ok {
		panic("futurelock: inner lock does not support upgradable holds")
	}
	return u
}

// LockUpgradable blocks until the upgradable hold is granted.
// It panics if the inner lock does not implement RawUpgradeLock.
func (f *FutureRawRWLock[R]) LockUpgradable() {
	u := f.asUpgrade()
	f.queue()
	u.LockUpgradable()
}

// TryLockUpgradable attempts the upgradable hold without blocking.
// It panics if the inner lock does not implement RawUpgradeLock.
func (f *FutureRawRWLock[R]) TryLockUpgradable() bool {
	u := f.asUpgrade()
	f.queue()
	return u.TryLockUpgradable()
}

// UnlockUpgradable releases the upgradable hold and wakes every queued
// waiter (see wakeAll).
func (f *FutureRawRWLock[R]) UnlockUpgradable() {
	f.asUpgrade().UnlockUpgradable()
	f.wakeAll()
}

// TryUpgrade attempts to convert the upgradable hold into the
// exclusive hold. No capacity is freed either way, so no waiter is
// woken.
func (f *FutureRawRWLock[R]) TryUpgrade() bool {
	return f.asUpgrade().TryUpgrade()
}

// Upgrade converts the upgradable hold into the exclusive hold,
// blocking until shared holders drain.
func (f *FutureRawRWLock[R]) Upgrade() {
	f.asUpgrade().Upgrade()
}
