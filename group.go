package futurelock

import (
	"context"
	"sync/atomic"

	"github.com/llxisdsh/pb"
)

// RWLockGroup provides suspending reader/writer locking on arbitrary
// keys, with infinite keys and auto-cleanup: a lock exists only while
// at least one goroutine holds or waits for its key.
//
// Usage:
//
//	var g RWLockGroup[string]
//
//	if err := g.Lock(ctx, "config"); err != nil {
//		return err
//	}
//	write(config)
//	g.Unlock("config")
type RWLockGroup[K comparable] struct {
	_ noCopy
	m pb.MapOf[K, *groupEntry]
}

type groupEntry struct {
	lock FutureRawRWLock[*SpinRWLock]
	ref  int32
}

// refEntry returns the entry for k, creating it if absent, with its
// reference count bumped for the caller.
func (g *RWLockGroup[K]) refEntry(k K) *groupEntry {
	e, _ := g.m.ProcessEntry(
		k,
		func(l *pb.EntryOf[K, *groupEntry]) (*pb.EntryOf[K, *groupEntry], *groupEntry, bool) {
			if l != nil {
				atomic.AddInt32(&l.Value.ref, 1)
				return l, l.Value, true
			}
			e := &groupEntry{ref: 1}
			e.lock.inner = new(SpinRWLock)
			return &pb.EntryOf[K, *groupEntry]{Value: e}, e, false
		},
	)
	return e
}

// unref drops one reference to k's entry, deleting it when the last
// holder or waiter is gone.
func (g *RWLockGroup[K]) unref(k K) {
	g.m.ProcessEntry(
		k,
		func(l *pb.EntryOf[K, *groupEntry]) (*pb.EntryOf[K, *groupEntry], *groupEntry, bool) {
			if l == nil {
				return nil, nil, false
			}
			if atomic.AddInt32(&l.Value.ref, -1) <= 0 {
				return nil, l.Value, true
			}
			return l, l.Value, true
		},
	)
}

// Lock suspends until the exclusive hold on k is granted or ctx is
// cancelled.
func (g *RWLockGroup[K]) Lock(ctx context.Context, k K) error {
	e := g.refEntry(k)
	if err := awaitAcquire(ctx, &e.lock, e.lock.TryLockExclusive); err != nil {
		g.unref(k)
		return err
	}
	return nil
}

// TryLock attempts the exclusive hold on k without suspending.
func (g *RWLockGroup[K]) TryLock(k K) bool {
	e := g.refEntry(k)
	if e.lock.TryLockExclusive() {
		return true
	}
	g.unref(k)
	return false
}

// Unlock releases the exclusive hold on k. It panics if k is not held,
// like unlocking an unlocked sync.Mutex.
func (g *RWLockGroup[K]) Unlock(k K) {
	e, ok := g.m.Load(k)
	if !ok {
		panic("futurelock: Unlock of unheld key")
	}
	e.lock.UnlockExclusive()
	g.unref(k)
}

// RLock suspends until a shared hold on k is granted or ctx is
// cancelled.
func (g *RWLockGroup[K]) RLock(ctx context.Context, k K) error {
	e := g.refEntry(k)
	if err := awaitAcquire(ctx, &e.lock, e.lock.TryLockShared); err != nil {
		g.unref(k)
		return err
	}
	return nil
}

// TryRLock attempts a shared hold on k without suspending.
func (g *RWLockGroup[K]) TryRLock(k K) bool {
	e := g.refEntry(k)
	if e.lock.TryLockShared() {
		return true
	}
	g.unref(k)
	return false
}

// RUnlock releases one shared hold on k. It panics if k is not held.
func (g *RWLockGroup[K]) RUnlock(k K) {
	e, ok := g.m.Load(k)
	if !ok {
		panic("futurelock: RUnlock of unheld key")
	}
	e.lock.UnlockShared()
	g.unref(k)
}
