package bridge

// Region is a window onto memory the bridge can touch. Implementations wrap
// the host process's own address space or a synthetic byte buffer; everything
// above them (pointers, scans, hooks) only sees this interface, so all the
// unsafety stays inside the implementation.
//
// Addresses handed to a Region are believed-valid, never host-verified.
// Implementations must fail with ErrAddressNotMapped instead of faulting when
// a page is unmapped or access is denied.
type Region interface {
	// Base returns the lowest address covered by the region.
	Base() Address

	// Size returns the number of bytes covered by the region.
	Size() Size

	// IsValidAddress reports whether the address can currently be read.
	IsValidAddress(addr Address) bool

	// ReadMemory reads size bytes starting at addr.
	ReadMemory(addr Address, size Size) ([]byte, error)

	// WriteMemory writes data starting at addr.
	WriteMemory(addr Address, data []byte) error
}

// Contains reports whether [addr, addr+size) lies inside the region.
func Contains(r Region, addr Address, size Size) bool {
	if addr < r.Base() {
		return false
	}
	end := uint64(r.Base()) + uint64(r.Size())
	return uint64(addr)+uint64(size) <= end
}
