//go:build windows

package nativecall

import (
	"syscall"

	"hostbridge/bridge"
)

// SyscallCaller dispatches through syscall.SyscallN, which handles the
// goroutine stack switch for arbitrary native entry points.
type SyscallCaller struct{}

var _ Caller = SyscallCaller{}

// NewPlatformCaller returns the live-code dispatcher for this platform.
func NewPlatformCaller() (Caller, error) {
	return SyscallCaller{}, nil
}

func (SyscallCaller) Call(fn bridge.Address, args []uintptr) (uintptr, error) {
	// Errno here reflects the last OS error, which is meaningless for an
	// arbitrary callee; only the result word is reported.
	r1, _, _ := syscall.SyscallN(uintptr(fn), args...)
	return r1, nil
}
