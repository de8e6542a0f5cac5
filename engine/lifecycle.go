package engine

import (
	"sync"

	"github.com/Moonlight-Companies/gologger/logger"
)

// Handle identifies one engine instance for its lifetime. The host assigns
// it; the bridge only compares and tracks it.
type Handle uint64

// Lifecycle fans engine create/destroy events out to registered listeners.
// Listeners run in registration order, outside the lifecycle mutex, so a
// listener may itself consult the lifecycle.
type Lifecycle struct {
	log *logger.Logger

	mu        sync.Mutex
	created   []func(Handle)
	destroyed []func(Handle)
	live      map[Handle]struct{}
}

func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		log:  logger.NewLogger("engine-lifecycle"),
		live: make(map[Handle]struct{}),
	}
}

// OnCreated registers a listener for engine creation.
func (lc *Lifecycle) OnCreated(fn func(Handle)) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.created = append(lc.created, fn)
}

// OnDestroyed registers a listener for engine destruction.
func (lc *Lifecycle) OnDestroyed(fn func(Handle)) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.destroyed = append(lc.destroyed, fn)
}

// NotifyCreated records a new live engine and runs the creation listeners.
// A handle reported twice without an intervening destroy is logged and
// renotified; the host occasionally recreates an engine in place.
func (lc *Lifecycle) NotifyCreated(h Handle) {
	lc.mu.Lock()
	if _, ok := lc.live[h]; ok {
		lc.log.Warn("Engine ", uint64(h), " created twice without destroy")
	}
	lc.live[h] = struct{}{}
	listeners := append(([]func(Handle))(nil), lc.created...)
	lc.mu.Unlock()

	lc.log.Infoln("Engine created:", uint64(h))
	for _, fn := range listeners {
		fn(h)
	}
}

// NotifyDestroyed drops a live engine and runs the destruction listeners.
// An unknown handle is logged and ignored; destroy for an engine the bridge
// never saw created carries no state to tear down.
func (lc *Lifecycle) NotifyDestroyed(h Handle) {
	lc.mu.Lock()
	if _, ok := lc.live[h]; !ok {
		lc.mu.Unlock()
		lc.log.Warn("Destroy for unknown engine ", uint64(h), ", ignoring")
		return
	}
	delete(lc.live, h)
	listeners := append(([]func(Handle))(nil), lc.destroyed...)
	lc.mu.Unlock()

	lc.log.Infoln("Engine destroyed:", uint64(h))
	for _, fn := range listeners {
		fn(h)
	}
}

// Alive reports whether h is a currently live engine.
func (lc *Lifecycle) Alive(h Handle) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	_, ok := lc.live[h]
	return ok
}
