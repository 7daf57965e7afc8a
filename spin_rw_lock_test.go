package futurelock

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSpinRWLock_Basic(t *testing.T) {
	var a int
	var l SpinRWLock
	l.LockExclusive()
	a = 1
	l.UnlockExclusive()
	l.LockShared()
	_ = a
	l.UnlockShared()
}

func TestSpinRWLock_TryOps(t *testing.T) {
	var l SpinRWLock

	if !l.TryLockExclusive() {
		t.Fatal("TryLockExclusive failed on free lock")
	}
	if l.TryLockShared() {
		t.Fatal("TryLockShared succeeded under exclusive hold")
	}
	if l.TryLockExclusive() {
		t.Fatal("TryLockExclusive succeeded under exclusive hold")
	}
	if l.TryLockUpgradable() {
		t.Fatal("TryLockUpgradable succeeded under exclusive hold")
	}
	l.UnlockExclusive()

	if !l.TryLockShared() {
		t.Fatal("TryLockShared failed on free lock")
	}
	if !l.TryLockShared() {
		t.Fatal("second TryLockShared failed")
	}
	if l.TryLockExclusive() {
		t.Fatal("TryLockExclusive succeeded under shared hold")
	}
	l.UnlockShared()
	l.UnlockShared()

	if !l.TryLockExclusive() {
		t.Fatal("TryLockExclusive failed after shared holds drained")
	}
	l.UnlockExclusive()
}

func TestSpinRWLock_ReadersAndWriters(t *testing.T) {
	var l SpinRWLock
	var readers int32
	var writers int32

	const loops = 1000
	readerN := runtime.GOMAXPROCS(0)
	writerN := 2

	var wg sync.WaitGroup
	wg.Add(readerN + writerN)

	for range readerN {
		go func() {
			defer wg.Done()
			for range loops {
				l.LockShared()
				n := atomic.AddInt32(&readers, 1)
				if atomic.LoadInt32(&writers) != 0 {
					t.Errorf("reader observed active writer")
					l.UnlockShared()
					return
				}
				if n <= 0 {
					t.Errorf("invalid reader count")
					l.UnlockShared()
					return
				}
				atomic.AddInt32(&readers, -1)
				l.UnlockShared()
			}
		}()
	}

	for range writerN {
		go func() {
			defer wg.Done()
			for range loops {
				l.LockExclusive()
				if atomic.AddInt32(&writers, 1) != 1 {
					t.Errorf("multiple writers active")
					l.UnlockExclusive()
					return
				}
				if atomic.LoadInt32(&readers) != 0 {
					t.Errorf("writer observed active readers")
					l.UnlockExclusive()
					return
				}
				atomic.AddInt32(&writers, -1)
				l.UnlockExclusive()
			}
		}()
	}

	wg.Wait()
}

func TestSpinRWLock_Upgradable(t *testing.T) {
	var l SpinRWLock

	if !l.TryLockUpgradable() {
		t.Fatal("TryLockUpgradable failed on free lock")
	}
	if l.TryLockUpgradable() {
		t.Fatal("second upgradable hold granted")
	}
	// Readers coexist with the upgradable holder.
	if !l.TryLockShared() {
		t.Fatal("TryLockShared failed under upgradable hold")
	}
	// Upgrade must fail while a reader remains.
	if l.TryUpgrade() {
		t.Fatal("TryUpgrade succeeded with an active reader")
	}
	l.UnlockShared()
	if !l.TryUpgrade() {
		t.Fatal("TryUpgrade failed with no readers")
	}
	// Now exclusive.
	if l.TryLockShared() {
		t.Fatal("TryLockShared succeeded after upgrade")
	}
	l.UnlockExclusive()

	if !l.TryLockExclusive() {
		t.Fatal("lock not free after upgraded unlock")
	}
	l.UnlockExclusive()
}

func TestSpinRWLock_UpgradeWaitsForReaders(t *testing.T) {
	var l SpinRWLock

	l.LockUpgradable()
	l.LockShared()

	done := make(chan struct{})
	go func() {
		l.Upgrade() // must wait for the reader
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Upgrade completed with an active reader")
	case <-time.After(10 * time.Millisecond):
	}

	// Upgrade already blocks new readers.
	if l.TryLockShared() {
		t.Fatal("new reader admitted during upgrade")
	}

	l.UnlockShared()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Upgrade did not complete after readers drained")
	}
	l.UnlockExclusive()
}

// rawContract exercises the six-operation substitution contract shared
// by every RawRWLock implementation.
func rawContract(t *testing.T, l RawRWLock) {
	t.Helper()

	l.LockExclusive()
	if l.TryLockShared() {
		t.Fatal("shared hold granted under exclusive hold")
	}
	l.UnlockExclusive()

	l.LockShared()
	if l.TryLockExclusive() {
		t.Fatal("exclusive hold granted under shared hold")
	}
	if !l.TryLockShared() {
		t.Fatal("concurrent shared hold denied")
	}
	l.UnlockShared()
	l.UnlockShared()

	if !l.TryLockExclusive() {
		t.Fatal("exclusive hold denied on free lock")
	}
	l.UnlockExclusive()
}

func TestRawRWLock_Contract(t *testing.T) {
	t.Run("SpinRWLock", func(t *testing.T) {
		rawContract(t, new(SpinRWLock))
	})
	t.Run("StdRWLock", func(t *testing.T) {
		rawContract(t, new(StdRWLock))
	})
	t.Run("FutureRawRWLock/Spin", func(t *testing.T) {
		rawContract(t, NewFutureRawRWLock(new(SpinRWLock)))
	})
	t.Run("FutureRawRWLock/Std", func(t *testing.T) {
		rawContract(t, NewFutureRawRWLock(new(StdRWLock)))
	})
}
