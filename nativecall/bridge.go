package nativecall

import (
	"fmt"
	"runtime"
	"sync"

	"hostbridge/bridge"

	"github.com/Moonlight-Companies/gologger/logger"
)

// maxArgs bounds one call's argument list. The platform dispatchers top out
// well above this; anything larger is a caller bug.
const maxArgs = 16

// Caller dispatches a flattened argument list to native code at fn.
type Caller interface {
	Call(fn bridge.Address, args []uintptr) (uintptr, error)
}

// Bridge is the call surface: tagged arguments in, one result word out.
type Bridge struct {
	caller Caller
	log    *logger.Logger
}

// NewBridge builds a call bridge dispatching through caller.
func NewBridge(caller Caller) *Bridge {
	return &Bridge{caller: caller, log: logger.NewLogger("nativecall")}
}

// Call invokes the native function at fn. String arguments are marshaled
// into terminated buffers that stay alive exactly until the call returns;
// the raw return word is converted per ret before the caller sees it.
// Arity or type mismatch with the callee is undetectable here.
func (b *Bridge) Call(fn bridge.Address, ret RetKind, args ...Value) (Result, error) {
	if fn.IsNull() {
		return 0, fmt.Errorf("call: null function address: %w", bridge.ErrBadArgument)
	}
	if len(args) > maxArgs {
		return 0, fmt.Errorf("call %s: %d args exceeds limit of %d: %w",
			fn, len(args), maxArgs, bridge.ErrBadArgument)
	}

	m := marshalArgs(args)
	raw, err := b.caller.Call(fn, m.words)
	runtime.KeepAlive(m.retained)
	if err != nil {
		return 0, fmt.Errorf("call %s: %w", fn, err)
	}
	res, ok := convertResult(raw, ret)
	if !ok {
		return 0, fmt.Errorf("call %s: unknown return kind %d: %w", fn, ret, bridge.ErrBadArgument)
	}
	return res, nil
}

// FuncCaller routes calls to registered Go functions instead of machine
// code. Tests and loader-emulated deployments register their functions by
// address; unknown addresses fail.
type FuncCaller struct {
	mu    sync.Mutex
	funcs map[bridge.Address]func(args []uintptr) uintptr
}

var _ Caller = (*FuncCaller)(nil)

func NewFuncCaller() *FuncCaller {
	return &FuncCaller{funcs: make(map[bridge.Address]func(args []uintptr) uintptr)}
}

// Register installs fn as the callee for addr, replacing any previous one.
func (c *FuncCaller) Register(addr bridge.Address, fn func(args []uintptr) uintptr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs[addr] = fn
}

func (c *FuncCaller) Call(fn bridge.Address, args []uintptr) (uintptr, error) {
	c.mu.Lock()
	callee := c.funcs[fn]
	c.mu.Unlock()
	if callee == nil {
		return 0, fmt.Errorf("no function registered at %s", fn)
	}
	return callee(args), nil
}
