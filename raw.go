// Package futurelock bridges synchronous reader/writer locks to
// cooperatively scheduled tasks.
//
// A task that cannot acquire a lock immediately registers a Waker and
// suspends instead of blocking its worker goroutine; a later release
// pops the waker and resumes the task, which retries. The protocol is
// race-free: registration and wake-up are serialized through a single
// bounded spinlock, and every wrapper retries its try-acquire directly
// after registering, so a release can never slip unobserved between a
// failed attempt and the registration (see FutureRawRWLock).
package futurelock

// RawRWLock is the capability set of a synchronous reader/writer lock.
//
// Lock/Unlock pairs follow standard reader/writer semantics: any number
// of concurrent shared holders, or a single exclusive holder. Releasing
// a lock that is not held is a contract violation with undefined
// behavior, exactly as with sync.RWMutex.
type RawRWLock interface {
	// LockShared blocks until a shared (reader) hold is granted.
	LockShared()
	// TryLockShared attempts a shared hold without blocking.
	TryLockShared() bool
	// UnlockShared releases one shared hold.
	UnlockShared()

	// LockExclusive blocks until the sole (writer) hold is granted.
	LockExclusive()
	// TryLockExclusive attempts the exclusive hold without blocking.
	TryLockExclusive() bool
	// UnlockExclusive releases the exclusive hold.
	UnlockExclusive()
}

// RawUpgradeLock extends RawRWLock with an upgradable hold: at most one
// per lock, it coexists with shared holders and can be upgraded to the
// exclusive hold once the shared holders drain.
type RawUpgradeLock interface {
	RawRWLock

	// LockUpgradable blocks until the upgradable hold is granted.
	LockUpgradable()
	// TryLockUpgradable attempts the upgradable hold without blocking.
	TryLockUpgradable() bool
	// UnlockUpgradable releases the upgradable hold.
	UnlockUpgradable()

	// TryUpgrade attempts to convert the upgradable hold into the
	// exclusive hold without blocking. It fails while shared holders
	// remain. On success the caller holds the lock exclusively and
	// must release it with UnlockExclusive.
	TryUpgrade() bool
	// Upgrade converts the upgradable hold into the exclusive hold,
	// blocking new shared holders and waiting for existing ones to
	// drain.
	Upgrade()
}
