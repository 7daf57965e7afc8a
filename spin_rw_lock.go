package futurelock

import (
	"sync/atomic"
)

// SpinRWLock is a spin-based reader/writer lock backed by a uint32.
// It is writer-preferred to prevent reader starvation and additionally
// supports a single upgradable hold that coexists with readers.
//
// It implements RawUpgradeLock and is the default inner primitive of
// RWLock. The zero value is an unlocked lock.
//
// Size: 4 bytes.
type SpinRWLock uint32

const (
	spinWriterBit  = 1 << 0
	spinUpgradeBit = 1 << 1
	spinReadShift  = 2
	spinReadUnit   = 1 << spinReadShift
)

// LockShared acquires a shared hold.
// It spins until no writer holds or waits for the lock.
func (l *SpinRWLock) LockShared() {
	var spins int
	for {
		s := atomic.LoadUint32((*uint32)(l))
		if s&spinWriterBit == 0 {
			if atomic.CompareAndSwapUint32((*uint32)(l), s, s+spinReadUnit) {
				return
			}
		}
		delay(&spins)
	}
}

// TryLockShared acquires a shared hold without blocking.
func (l *SpinRWLock) TryLockShared() bool {
	for {
		s := atomic.LoadUint32((*uint32)(l))
		if s&spinWriterBit != 0 {
			return false
		}
		if atomic.CompareAndSwapUint32((*uint32)(l), s, s+spinReadUnit) {
			return true
		}
	}
}

// UnlockShared releases one shared hold.
//
//go:nosplit
func (l *SpinRWLock) UnlockShared() {
	atomic.AddUint32((*uint32)(l), ^uint32(spinReadUnit-1))
}

// LockExclusive acquires the exclusive hold.
// It sets the writer bit first (blocking new readers) and then waits
// for existing readers to drain.
func (l *SpinRWLock) LockExclusive() {
	var spins int
	for {
		s := atomic.LoadUint32((*uint32)(l))
		if s&(spinWriterBit|spinUpgradeBit) == 0 {
			if atomic.CompareAndSwapUint32((*uint32)(l), s, s|spinWriterBit) {
				for {
					s2 := atomic.LoadUint32((*uint32)(l))
					if s2>>spinReadShift == 0 {
						return
					}
					delay(&spins)
				}
			}
		}
		delay(&spins)
	}
}

// TryLockExclusive acquires the exclusive hold without blocking.
// It succeeds only when the lock is completely free; a non-blocking
// attempt must not leave the writer bit parked behind active readers.
func (l *SpinRWLock) TryLockExclusive() bool {
	return atomic.CompareAndSwapUint32((*uint32)(l), 0, spinWriterBit)
}

// UnlockExclusive releases the exclusive hold.
// While the writer bit is set no reader or upgrader can change the
// state word, so a plain store of zero is sufficient.
//
//go:nosplit
func (l *SpinRWLock) UnlockExclusive() {
	atomic.StoreUint32((*uint32)(l), 0)
}

// LockUpgradable acquires the upgradable hold.
// It spins while a writer or another upgrader holds the lock; readers
// do not block it.
func (l *SpinRWLock) LockUpgradable() {
	var spins int
	for {
		s := atomic.LoadUint32((*uint32)(l))
		if s&(spinWriterBit|spinUpgradeBit) == 0 {
			if atomic.CompareAndSwapUint32((*uint32)(l), s, s|spinUpgradeBit) {
				return
			}
		}
		delay(&spins)
	}
}

// TryLockUpgradable acquires the upgradable hold without blocking.
func (l *SpinRWLock) TryLockUpgradable() bool {
	for {
		s := atomic.LoadUint32((*uint32)(l))
		if s&(spinWriterBit|spinUpgradeBit) != 0 {
			return false
		}
		if atomic.CompareAndSwapUint32((*uint32)(l), s, s|spinUpgradeBit) {
			return true
		}
	}
}

// UnlockUpgradable releases the upgradable hold.
// Readers may be adjusting the count concurrently, so the bit is
// cleared with a CAS loop rather than a store.
func (l *SpinRWLock) UnlockUpgradable() {
	for {
		s := atomic.LoadUint32((*uint32)(l))
		if atomic.CompareAndSwapUint32((*uint32)(l), s, s&^spinUpgradeBit) {
			return
		}
	}
}

// TryUpgrade converts the upgradable hold into the exclusive hold
// without blocking. It fails while shared holders remain.
func (l *SpinRWLock) TryUpgrade() bool {
	return atomic.CompareAndSwapUint32((*uint32)(l), spinUpgradeBit, spinWriterBit)
}

// Upgrade converts the upgradable hold into the exclusive hold.
// Swapping the upgrade bit for the writer bit blocks new readers;
// existing readers are then waited out.
func (l *SpinRWLock) Upgrade() {
	var spins int
	for {
		s := atomic.LoadUint32((*uint32)(l))
		if atomic.CompareAndSwapUint32((*uint32)(l), s, (s&^spinUpgradeBit)|spinWriterBit) {
			break
		}
	}
	for {
		s := atomic.LoadUint32((*uint32)(l))
		if s>>spinReadShift == 0 {
			return
		}
		delay(&spins)
	}
}
