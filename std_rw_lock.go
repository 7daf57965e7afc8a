package futurelock

import "sync"

// StdRWLock adapts sync.RWMutex to the RawRWLock capability set, for
// callers that want the runtime's blocking reader/writer lock instead
// of SpinRWLock as the inner primitive of a FutureRawRWLock.
//
// It does not provide an upgradable hold.
type StdRWLock struct {
	mu sync.RWMutex
}

func (l *StdRWLock) LockShared() { l.mu.RLock() }

func (l *StdRWLock) TryLockShared() bool { return l.mu.TryRLock() }

func (l *StdRWLock) UnlockShared() { l.mu.RUnlock() }

func (l *StdRWLock) LockExclusive() { l.mu.Lock() }

func (l *StdRWLock) TryLockExclusive() bool { return l.mu.TryLock() }

func (l *StdRWLock) UnlockExclusive() { l.mu.Unlock() }
