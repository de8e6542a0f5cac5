//go:build windows

package hook

import (
	"syscall"

	"hostbridge/bridge"
)

// NewCallbackThunks builds a ThunkProvider backed by syscall.NewCallback.
// Each hooked address gets its own callback entry whose native code calls
// straight into icp.Dispatch for that address.
//
// NewCallback entries are never released by the runtime, which matches the
// hook table's lifetime: a detached address reuses its entry on re-attach.
func NewCallbackThunks(icp *Interceptor) ThunkProvider {
	entries := make(map[bridge.Address]bridge.Address)
	return func(addr bridge.Address, _ SiteKind) (bridge.Address, error) {
		if entry, ok := entries[addr]; ok {
			return entry, nil
		}
		entry := bridge.Address(syscall.NewCallback(func() uintptr {
			icp.Dispatch(addr)
			return 0
		}))
		entries[addr] = entry
		return entry, nil
	}
}
