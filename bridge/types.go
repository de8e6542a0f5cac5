package bridge

import (
	"fmt"
)

// Address represents a location inside the host process's address space.
// It is bookkeeping only; the bridge never owns the memory it points at.
type Address uint64

func (a Address) String() string {
	return fmt.Sprintf("0x%X", uint64(a))
}

// IsNull reports whether the address is the null address.
func (a Address) IsNull() bool {
	return a == 0
}

// Add applies a signed byte offset to the address.
func (a Address) Add(offset int64) Address {
	return Address(uint64(a) + uint64(offset))
}

// Size represents the size of a memory range in bytes.
type Size uint64

func (s Size) String() string {
	return fmt.Sprintf("%d bytes", uint64(s))
}

// PointerSize is the width of a host pointer. The bridge targets 64-bit
// hosts only.
const PointerSize = Size(8)
