package futurelock

import (
	"context"
)

// RWLock is a reader/writer lock that owns the value it protects and
// suspends acquirers instead of blocking their goroutines.
//
// The context-aware Read/Write/UpgradableRead methods park the calling
// goroutine on a waker channel and honor cancellation; the
// sync.RWMutex-shaped RLock/Lock/ULock methods park on the runtime
// semaphore and cannot be cancelled. Both run the same protocol:
// try-acquire, on failure register a waker, retry once (closing the
// missed-wakeup window, see FutureRawRWLock), then suspend until woken
// and start over. Spurious wakeups just re-fail the try and
// re-register.
//
// Usage:
//
//	l := NewRWLock([]string(nil))
//
//	w, _ := l.Write(ctx)
//	*w.Value() = append(*w.Value(), "hello")
//	w.Unlock()
//
//	r, _ := l.Read(ctx)
//	_ = r.Value()
//	r.Unlock()
type RWLock[T any] struct {
	_     noCopy
	raw   FutureRawRWLock[*SpinRWLock]
	value T
}

// NewRWLock creates an RWLock protecting value.
func NewRWLock[T any](value T) *RWLock[T] {
	l := &RWLock[T]{value: value}
	l.raw.inner = new(SpinRWLock)
	return l
}

// Raw returns the underlying adapter, for callers that want the raw
// six-operation surface or need to register wakers themselves.
func (l *RWLock[T]) Raw() *FutureRawRWLock[*SpinRWLock] {
	return &l.raw
}

// awaitAcquire runs the suspension protocol for try until it succeeds
// or ctx is cancelled. A cancelled waiter may leave its waker queued;
// that waker fires harmlessly on a later release.
func awaitAcquire(ctx context.Context, raw *FutureRawRWLock[*SpinRWLock], try func() bool) error {
	if try() {
		return nil
	}
	w := newChanWaker()
	for {
		raw.RegisterWaker(w)
		// Mandatory retry: a release may have drained the queue in the
		// window before our waker was pushed, and no one else will wake
		// us for the capacity it freed.
		if try() {
			return nil
		}
		select {
		case <-w.ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		if try() {
			return nil
		}
	}
}

// waitAcquire is awaitAcquire without cancellation, parked on the
// runtime semaphore instead of a channel.
func waitAcquire(raw *FutureRawRWLock[*SpinRWLock], try func() bool) {
	if try() {
		return
	}
	w := new(semaWaker)
	for {
		raw.RegisterWaker(w)
		if try() {
			return
		}
		w.wait()
		if try() {
			return
		}
	}
}

// Read suspends until a shared hold is granted or ctx is cancelled.
func (l *RWLock[T]) Read(ctx context.Context) (*ReadGuard[T], error) {
	if err := awaitAcquire(ctx, &l.raw, l.raw.TryLockShared); err != nil {
		return nil, err
	}
	return &ReadGuard[T]{l: l}, nil
}

// Write suspends until the exclusive hold is granted or ctx is
// cancelled.
func (l *RWLock[T]) Write(ctx context.Context) (*WriteGuard[T], error) {
	if err := awaitAcquire(ctx, &l.raw, l.raw.TryLockExclusive); err != nil {
		return nil, err
	}
	return &WriteGuard[T]{l: l}, nil
}

// UpgradableRead suspends until the upgradable hold is granted or ctx
// is cancelled. The holder can read concurrently with shared holders
// and upgrade to a WriteGuard when needed.
func (l *RWLock[T]) UpgradableRead(ctx context.Context) (*UpgradableGuard[T], error) {
	if err := awaitAcquire(ctx, &l.raw, l.raw.TryLockUpgradable); err != nil {
		return nil, err
	}
	return &UpgradableGuard[T]{l: l}, nil
}

// RLock acquires a shared hold, suspending on the runtime semaphore if
// needed. The caller must not mutate the value while holding it.
func (l *RWLock[T]) RLock() *T {
	waitAcquire(&l.raw, l.raw.TryLockShared)
	return &l.value
}

// RUnlock releases one shared hold.
func (l *RWLock[T]) RUnlock() {
	l.raw.UnlockShared()
}

// Lock acquires the exclusive hold, suspending on the runtime
// semaphore if needed.
func (l *RWLock[T]) Lock() *T {
	waitAcquire(&l.raw, l.raw.TryLockExclusive)
	return &l.value
}

// Unlock releases the exclusive hold.
func (l *RWLock[T]) Unlock() {
	l.raw.UnlockExclusive()
}

// ULock acquires the upgradable hold, suspending on the runtime
// semaphore if needed.
func (l *RWLock[T]) ULock() *T {
	waitAcquire(&l.raw, l.raw.TryLockUpgradable)
	return &l.value
}

// UUnlock releases the upgradable hold.
func (l *RWLock[T]) UUnlock() {
	l.raw.UnlockUpgradable()
}

// ReadGuard is a held shared lock. The value must not be mutated
// through it.
type ReadGuard[T any] struct {
	l *RWLock[T]
}

// Value returns the protected value for reading.
func (g *ReadGuard[T]) Value() *T {
	return &g.l.value
}

// Unlock releases the shared hold. The guard must not be used again.
func (g *ReadGuard[T]) Unlock() {
	g.l.raw.UnlockShared()
}

// WriteGuard is a held exclusive lock.
type WriteGuard[T any] struct {
	l *RWLock[T]
}

// Value returns the protected value for reading and writing.
func (g *WriteGuard[T]) Value() *T {
	return &g.l.value
}

// Unlock releases the exclusive hold. The guard must not be used again.
func (g *WriteGuard[T]) Unlock() {
	g.l.raw.UnlockExclusive()
}

// UpgradableGuard is a held upgradable lock.
type UpgradableGuard[T any] struct {
	l *RWLock[T]
}

// Value returns the protected value for reading.
func (g *UpgradableGuard[T]) Value() *T {
	return &g.l.value
}

// Upgrade converts the guard into a WriteGuard, suspending until the
// remaining shared holders drain or ctx is cancelled. On success the
// upgradable guard is consumed; on error it is still held.
func (g *UpgradableGuard[T]) Upgrade(ctx context.Context) (*WriteGuard[T], error) {
	if err := awaitAcquire(ctx, &g.l.raw, g.l.raw.TryUpgrade); err != nil {
		return nil, err
	}
	return &WriteGuard[T]{l: g.l}, nil
}

// Unlock releases the upgradable hold. The guard must not be used
// again.
func (g *UpgradableGuard[T]) Unlock() {
	g.l.raw.UnlockUpgradable()
}
