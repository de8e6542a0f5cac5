package hook

import (
	"fmt"
	"sync"
	"sync/atomic"

	"hostbridge/bridge"

	"github.com/Moonlight-Companies/gologger/logger"
)

// Invocation is handed to a Handler for one intercepted entry. CallOriginal
// runs the displaced original code; a handler that never calls it suppresses
// the original behavior entirely.
type Invocation struct {
	addr    bridge.Address
	site    *PatchSite
	patcher CodePatcher
}

// Address is the hooked site the invocation entered through.
func (inv *Invocation) Address() bridge.Address {
	return inv.addr
}

// CallOriginal executes the original code displaced by the detour. Safe to
// call zero or one or many times within the handler.
func (inv *Invocation) CallOriginal() error {
	return inv.patcher.CallOriginal(inv.site)
}

// Handler observes or replaces one intercepted entry.
type Handler func(inv *Invocation) error

type record struct {
	site    *PatchSite
	handler Handler

	// inflight counts dispatches currently inside the handler; Detach waits
	// for it to drain after restoring the site bytes.
	inflight sync.WaitGroup
	detached atomic.Bool
}

// Interceptor owns the hook table: at most one hook per address, attach and
// detach fully symmetric. Dispatch is the entry the loader-side thunks call
// into when a detour fires.
type Interceptor struct {
	patcher CodePatcher
	log     *logger.Logger

	mu    sync.Mutex
	hooks map[bridge.Address]*record
}

// New builds an interceptor installing detours through patcher.
func New(patcher CodePatcher) *Interceptor {
	return &Interceptor{
		patcher: patcher,
		log:     logger.NewLogger("interceptor"),
		hooks:   make(map[bridge.Address]*record),
	}
}

// Attach hooks a function entry at addr. A second attach to the same address
// fails with bridge.ErrHookConflict and leaves the existing hook untouched.
func (i *Interceptor) Attach(addr bridge.Address, h Handler) error {
	return i.attach(addr, h, SiteFunction)
}

// AttachInstruction hooks a single mid-function instruction at addr.
func (i *Interceptor) AttachInstruction(addr bridge.Address, h Handler) error {
	return i.attach(addr, h, SiteInstruction)
}

func (i *Interceptor) attach(addr bridge.Address, h Handler, kind SiteKind) error {
	if h == nil {
		return fmt.Errorf("attach at %s: nil handler: %w", addr, bridge.ErrBadArgument)
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, exists := i.hooks[addr]; exists {
		return fmt.Errorf("attach at %s: %w", addr, bridge.ErrHookConflict)
	}
	site, err := i.patcher.Apply(addr, kind)
	if err != nil {
		return fmt.Errorf("attach at %s: %w", addr, err)
	}
	i.hooks[addr] = &record{site: site, handler: h}
	i.log.Infoln("Attached hook at", addr.String())
	return nil
}

// Detach removes the hook at addr: the original bytes are restored first so
// no new entries reach the handler, then Detach blocks until every in-flight
// dispatch has left the handler. After it returns the site is exactly as it
// was before Attach.
func (i *Interceptor) Detach(addr bridge.Address) error {
	i.mu.Lock()
	rec, ok := i.hooks[addr]
	if !ok {
		i.mu.Unlock()
		return fmt.Errorf("detach at %s: %w", addr, bridge.ErrHookNotFound)
	}
	delete(i.hooks, addr)
	i.mu.Unlock()

	if rec.detached.Swap(true) {
		// The table can never yield the same record twice; if it did the
		// site bytes would be restored twice over live code.
		panic(fmt.Sprintf("hook table corrupted: double detach at %s", addr))
	}
	if err := i.patcher.Revert(rec.site); err != nil {
		return fmt.Errorf("detach at %s: %w", addr, err)
	}
	rec.inflight.Wait()
	i.log.Infoln("Detached hook at", addr.String())
	return nil
}

// Attached reports whether a hook is currently installed at addr.
func (i *Interceptor) Attached(addr bridge.Address) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.hooks[addr]
	return ok
}

// Dispatch routes one detour entry at addr into its handler. A dispatch with
// no hook installed (including one racing a detach) is logged and reported as
// bridge.ErrHookNotFound; thunks are free to discard it, so nothing unwinds
// into native frames. A panicking handler is contained here too.
func (i *Interceptor) Dispatch(addr bridge.Address) (err error) {
	i.mu.Lock()
	rec, ok := i.hooks[addr]
	if !ok {
		i.mu.Unlock()
		i.log.Debugln("Dispatch at", addr.String(), "found no hook")
		return fmt.Errorf("dispatch at %s: %w", addr, bridge.ErrHookNotFound)
	}
	rec.inflight.Add(1)
	i.mu.Unlock()
	defer rec.inflight.Done()

	defer func() {
		if v := recover(); v != nil {
			i.log.Warn("Handler at ", addr.String(), " panicked: ", v)
			err = fmt.Errorf("handler at %s panicked: %v", addr, v)
		}
	}()
	return rec.handler(&Invocation{addr: addr, site: rec.site, patcher: i.patcher})
}
