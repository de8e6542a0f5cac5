// Package hostapi assembles the function table the bridge hands to the
// loader. Every entry is backed by a bridge component; the table itself
// carries no state beyond the core-function registry.
package hostapi

import (
	"fmt"
	"sync"

	"hostbridge/address"
	"hostbridge/bridge"
	"hostbridge/engine"

	"github.com/Moonlight-Companies/gologger/logger"
)

// Level is the log severity crossing the table.
type Level int32

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return "invalid"
}

// RawString is a string crossing the table boundary as pointer+length,
// resolved against a Region before use.
type RawString struct {
	Data bridge.Address
	Len  uint32
}

// Read copies the string bytes out of region. A zero-length RawString is the
// empty string regardless of its data pointer.
func (s RawString) Read(region bridge.Region) (string, error) {
	if s.Len == 0 {
		return "", nil
	}
	b, err := region.ReadMemory(s.Data, bridge.Size(s.Len))
	if err != nil {
		return "", fmt.Errorf("raw string at %s len %d: %w", s.Data, s.Len, err)
	}
	return string(b), nil
}

// CoreAPI is the fixed table of entry points exchanged with the loader.
type CoreAPI struct {
	AddCoreFunction   func(name, sig string, fn bridge.Address) error
	GetCoreFunction   func(name, sig string) (bridge.Address, bool)
	GetSingleton      func(name string) (bridge.Address, bool)
	GetManagedAddress func(name string) (bridge.Address, error)
	SetManagedAddress func(name, pattern string, offset int64) error

	Log func(level Level, msg string)

	OnEngineCreated   func(fn func(engine.Handle))
	OnEngineDestroyed func(fn func(engine.Handle))
	WithEngineLock    func(fn func() error) error

	IsKeyPressed        func(key KeyCode) bool
	IsKeyDown           func(key KeyCode) bool
	IsControllerPressed func(button ControllerButton) bool
	IsControllerDown    func(button ControllerButton) bool
}

// Backends are the bridge components a table is assembled from. Input may
// be nil; the table then answers false to every input query.
type Backends struct {
	Repo      *address.Repository
	Lifecycle *engine.Lifecycle
	Lock      *engine.Lock
	Input     InputSource
}

type coreFunc struct {
	sig  string
	addr bridge.Address
}

// Bind assembles a CoreAPI over the given backends.
func Bind(b Backends) *CoreAPI {
	log := logger.NewLogger("hostapi")
	host := logger.NewLogger("host")

	var mu sync.Mutex
	funcs := make(map[string]coreFunc)

	api := &CoreAPI{
		AddCoreFunction: func(name, sig string, fn bridge.Address) error {
			if name == "" || fn.IsNull() {
				return fmt.Errorf("add core function %q at %s: %w", name, fn, bridge.ErrBadArgument)
			}
			mu.Lock()
			defer mu.Unlock()
			if prev, ok := funcs[name]; ok {
				log.Warn("Core function ", name, " replaced (was ", prev.addr.String(), ")")
			}
			funcs[name] = coreFunc{sig: sig, addr: fn}
			return nil
		},
		GetCoreFunction: func(name, sig string) (bridge.Address, bool) {
			mu.Lock()
			f, ok := funcs[name]
			mu.Unlock()
			if !ok {
				return 0, false
			}
			if sig != "" && f.sig != "" && sig != f.sig {
				log.Warn("Core function ", name, " signature mismatch: want ", sig, ", have ", f.sig)
				return 0, false
			}
			return f.addr, true
		},
		GetSingleton: func(name string) (bridge.Address, bool) {
			p, ok := b.Repo.TryGet(name)
			if !ok {
				return 0, false
			}
			return p.Address(), true
		},
		GetManagedAddress: func(name string) (bridge.Address, error) {
			p, err := b.Repo.Get(name)
			if err != nil {
				return 0, err
			}
			return p.Address(), nil
		},
		SetManagedAddress: func(name, pattern string, offset int64) error {
			return b.Repo.SetRecord(name, pattern, offset)
		},

		Log: func(level Level, msg string) {
			switch level {
			case LevelTrace, LevelDebug:
				host.Debugln(msg)
			case LevelInfo:
				host.Infoln(msg)
			default:
				host.Warn(msg)
			}
		},

		OnEngineCreated:   b.Lifecycle.OnCreated,
		OnEngineDestroyed: b.Lifecycle.OnDestroyed,
		WithEngineLock:    b.Lock.With,
	}

	api.IsKeyPressed = func(key KeyCode) bool {
		return b.Input != nil && b.Input.KeyPressed(key)
	}
	api.IsKeyDown = func(key KeyCode) bool {
		return b.Input != nil && b.Input.KeyDown(key)
	}
	api.IsControllerPressed = func(button ControllerButton) bool {
		return b.Input != nil && b.Input.ControllerPressed(button)
	}
	api.IsControllerDown = func(button ControllerButton) bool {
		return b.Input != nil && b.Input.ControllerDown(button)
	}
	return api
}
