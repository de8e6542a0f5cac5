package bridge

import "errors"

var (
	// ErrPatternNotFound is returned when a scan finds no match for a pattern.
	ErrPatternNotFound = errors.New("pattern not found")

	// ErrAddressNotMapped is returned when a read or write touches memory that
	// is not mapped or not accessible to the bridge.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrNullPointer is returned when a pointer chain dereferences a null slot.
	ErrNullPointer = errors.New("null pointer")

	// ErrRecordNotFound is returned when an address repository lookup names an
	// unknown record.
	ErrRecordNotFound = errors.New("address record not found")

	// ErrHookConflict is returned when attaching to an address that already has
	// an attached hook.
	ErrHookConflict = errors.New("hook already attached at address")

	// ErrHookNotFound is returned when detaching or dispatching an address with
	// no attached hook.
	ErrHookNotFound = errors.New("no hook attached at address")

	// ErrBadArgument is returned when a native call argument list is malformed
	// (unknown descriptor kind, null function address, invalid value).
	ErrBadArgument = errors.New("bad native call argument")

	// ErrLockReentry is returned when the goroutine holding the engine lock
	// tries to acquire it again.
	ErrLockReentry = errors.New("engine lock re-entered by holder")

	// ErrPointerFieldReadOnly is returned when writing through a pointer-typed
	// schema field. Pointer slots are read-only so callers cannot silently
	// corrupt the host's object graph.
	ErrPointerFieldReadOnly = errors.New("pointer field is read-only")
)
