// Package nativemem implements bridge.Region over the bridge's own process
// image. The bridge runs inside the host, so reads and writes are plain
// memory accesses; every access is preceded by a page-level probe so an
// unmapped or protected page surfaces as bridge.ErrAddressNotMapped instead
// of faulting the host. This package is the only place raw dereferences of
// host memory happen.
package nativemem

import (
	"fmt"
	"sync"
	"unsafe"

	"hostbridge/bridge"

	"github.com/Moonlight-Companies/gologger/logger"
)

// Protection flags for Protect.
type Protection int

const (
	ProtRead Protection = 1 << iota
	ProtWrite
	ProtExec
)

// Region is a window onto the host process's own address space.
type Region struct {
	base bridge.Address
	size bridge.Size
	log  *logger.Logger

	mu    sync.Mutex
	spans []span // sorted page map snapshot, refreshed on probe miss
}

var _ bridge.Region = (*Region)(nil)

// span is one mapped range of the process image.
type span struct {
	start, end uint64
	read       bool
	write      bool
	exec       bool
}

// NewRegion wraps an arbitrary [base, base+size) window of the process.
func NewRegion(base bridge.Address, size bridge.Size) *Region {
	return &Region{
		base: base,
		size: size,
		log:  logger.NewLogger(fmt.Sprintf("nativemem-%s", base)),
	}
}

// ModuleRegion returns the region covering the host main module, the default
// scan target for address resolution.
func ModuleRegion() (*Region, error) {
	base, size, err := mainModuleSpan()
	if err != nil {
		return nil, fmt.Errorf("locate host main module: %w", err)
	}
	r := NewRegion(base, size)
	r.log.Infoln("Host module region", base.String(), "size", uint64(size))
	return r, nil
}

func (r *Region) Base() bridge.Address {
	return r.base
}

func (r *Region) Size() bridge.Size {
	return r.size
}

// IsValidAddress reports whether the page holding addr is mapped readable.
func (r *Region) IsValidAddress(addr bridge.Address) bool {
	return r.probe(addr, 1, false) == nil
}

// ReadMemory copies size bytes out of the process image after probing the
// whole range. The raw dereference only happens once the probe passed.
func (r *Region) ReadMemory(addr bridge.Address, size bridge.Size) ([]byte, error) {
	if size == 0 {
		return nil, fmt.Errorf("read at %s: zero size", addr)
	}
	if err := r.probe(addr, size, false); err != nil {
		return nil, err
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), size)
	out := make([]byte, size)
	copy(out, src)
	return out, nil
}

// WriteMemory copies data into the process image after probing the whole
// range for writability.
func (r *Region) WriteMemory(addr bridge.Address, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := r.probe(addr, bridge.Size(len(data)), true); err != nil {
		return err
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), len(data))
	copy(dst, data)
	return nil
}

// probe checks every page in [addr, addr+size) against the current page map,
// refreshing the snapshot once on a miss. forWrite additionally requires
// write permission.
func (r *Region) probe(addr bridge.Address, size bridge.Size, forWrite bool) error {
	if addr.IsNull() || inReservedRange(uint64(addr)) {
		return fmt.Errorf("probe %s: %w", addr, bridge.ErrAddressNotMapped)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	refreshed := false
	for page := uint64(addr) &^ (pageSize - 1); page < uint64(addr)+uint64(size); page += pageSize {
		for {
			s := lookupSpan(r.spans, page)
			if s != nil && s.read && (!forWrite || s.write) {
				break
			}
			if refreshed {
				r.log.Debugln("Probe failed at", bridge.Address(page).String())
				return fmt.Errorf("probe %s (page %#x, write=%v): %w",
					addr, page, forWrite, bridge.ErrAddressNotMapped)
			}
			spans, err := readPageMap()
			if err != nil {
				return fmt.Errorf("refresh page map: %w", err)
			}
			r.spans = spans
			refreshed = true
		}
	}
	return nil
}

// lookupSpan binary-searches the sorted span list for the one holding addr.
func lookupSpan(spans []span, addr uint64) *span {
	lo, hi := 0, len(spans)
	for lo < hi {
		mid := (lo + hi) / 2
		if spans[mid].end <= addr {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(spans) && spans[lo].start <= addr {
		return &spans[lo]
	}
	return nil
}

// inReservedRange filters the null page and non-canonical addresses before
// any page lookup runs.
func inReservedRange(addr uint64) bool {
	return addr <= 0x10000 || addr > 1<<63-1
}
