package bridge

import (
	"fmt"
	"sync"
)

// BufferRegion is a Region over a caller-supplied byte slice with a synthetic
// base address. Repeated reads over an unchanged buffer are deterministic,
// which makes it the substrate for tests, tools and offline snapshots.
type BufferRegion struct {
	base Address
	mu   sync.RWMutex
	data []byte
}

var _ Region = (*BufferRegion)(nil)

// NewBufferRegion wraps data as a region starting at base. The slice is used
// directly, not copied.
func NewBufferRegion(base Address, data []byte) *BufferRegion {
	return &BufferRegion{base: base, data: data}
}

func (b *BufferRegion) Base() Address {
	return b.base
}

func (b *BufferRegion) Size() Size {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Size(len(b.data))
}

func (b *BufferRegion) IsValidAddress(addr Address) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return addr >= b.base && uint64(addr) < uint64(b.base)+uint64(len(b.data))
}

func (b *BufferRegion) ReadMemory(addr Address, size Size) ([]byte, error) {
	if size == 0 {
		return nil, fmt.Errorf("read at %s: zero size", addr)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.check(addr, size); err != nil {
		return nil, err
	}
	offset := uint64(addr) - uint64(b.base)
	out := make([]byte, size)
	copy(out, b.data[offset:offset+uint64(size)])
	return out, nil
}

func (b *BufferRegion) WriteMemory(addr Address, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(addr, Size(len(data))); err != nil {
		return err
	}
	offset := uint64(addr) - uint64(b.base)
	copy(b.data[offset:], data)
	return nil
}

// check expects the lock to be held.
func (b *BufferRegion) check(addr Address, size Size) error {
	if addr < b.base || uint64(addr)+uint64(size) > uint64(b.base)+uint64(len(b.data)) {
		return fmt.Errorf("access [%s, +%d) outside region [%s, +%d): %w",
			addr, uint64(size), b.base, len(b.data), ErrAddressNotMapped)
	}
	return nil
}
