// Package engine serializes access to the host's embedded scripting engine
// and tracks engine instance lifetimes. The engine is single-threaded;
// every touch from bridge goroutines goes through the Lock.
package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"hostbridge/bridge"

	"github.com/petermattis/goid"
)

// Lock is the engine mutex with re-entry detection. The engine runtime is
// not re-entrant, so a goroutine that already holds the lock asking for it
// again is a deadlock in the making and fails fast instead.
type Lock struct {
	mu     sync.Mutex
	holder atomic.Int64 // goid of the current holder, 0 when free
}

// With runs fn while holding the engine lock. The lock is released on every
// exit path, panics included. A call from the goroutine that already holds
// the lock fails with bridge.ErrLockReentry without blocking.
func (l *Lock) With(fn func() error) error {
	id := goid.Get()
	if l.holder.Load() == id {
		return fmt.Errorf("goroutine %d: %w", id, bridge.ErrLockReentry)
	}

	l.mu.Lock()
	l.holder.Store(id)
	defer func() {
		l.holder.Store(0)
		l.mu.Unlock()
	}()
	return fn()
}

// Held reports whether the calling goroutine currently holds the lock.
func (l *Lock) Held() bool {
	return l.holder.Load() == goid.Get()
}
