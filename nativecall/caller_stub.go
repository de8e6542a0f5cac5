//go:build !windows

package nativecall

import "errors"

// NewPlatformCaller returns the live-code dispatcher for this platform.
// Non-windows builds have no in-process dispatcher; deployments there run
// through a FuncCaller wired by the loader.
func NewPlatformCaller() (Caller, error) {
	return nil, errors.New("no native call dispatcher on this platform")
}
