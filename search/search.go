// Package search discovers offset chains from a base address to bytes
// satisfying a predicate, walking candidate pointer slots recursively. The
// chains it reports feed Pointer.Offset directly.
package search

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"hostbridge/bridge"
)

// Searcher holds configuration for one search.
type Searcher struct {
	MaxStructSize uint
	MaxDepth      int
	MinAlignment  uint
	SearchFor     func([]byte) bool
}

// Option configures a Searcher.
type Option func(*Searcher)

func WithMaxStructSize(size uint) Option {
	return func(s *Searcher) {
		s.MaxStructSize = size
	}
}

func WithMaxDepth(depth int) Option {
	return func(s *Searcher) {
		s.MaxDepth = depth
	}
}

func WithMinAlignment(align uint) Option {
	return func(s *Searcher) {
		s.MinAlignment = align
	}
}

// WithSearchForType matches the little-endian byte image of val. POD types
// only.
func WithSearchForType[T any](val T) Option {
	return func(s *Searcher) {
		s.SearchFor = func(data []byte) bool {
			size := int(unsafe.Sizeof(val))
			if len(data) < size {
				return false
			}
			valBytes := unsafe.Slice((*byte)(unsafe.Pointer(&val)), size)
			for i := 0; i < size; i++ {
				if data[i] != valBytes[i] {
					return false
				}
			}
			return true
		}
	}
}

// Result is one discovered path: offsets from the base, every step but the
// last dereferenced.
type Result struct {
	Path []int64
}

// Search walks region from base, treating aligned 8-byte slots as candidate
// pointers, and reports every offset chain whose terminal bytes satisfy the
// predicate. Cycles are broken by tracking visited struct bases.
func Search(region bridge.Region, base bridge.Address, options ...Option) ([]Result, error) {
	s := &Searcher{
		MaxStructSize: 256,
		MaxDepth:      3,
		MinAlignment:  4,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.SearchFor == nil {
		return nil, fmt.Errorf("no search target specified")
	}
	if s.MinAlignment == 0 {
		return nil, fmt.Errorf("zero alignment")
	}

	var results []Result
	visited := make(map[bridge.Address]bool)

	var walk func(addr bridge.Address, depth int, path []int64)
	walk = func(addr bridge.Address, depth int, path []int64) {
		if depth > s.MaxDepth || visited[addr] {
			return
		}
		visited[addr] = true

		// A struct that extends past the region end is read short.
		size := bridge.Size(s.MaxStructSize)
		data, err := region.ReadMemory(addr, size)
		for err != nil && size > bridge.Size(s.MinAlignment) {
			size /= 2
			data, err = region.ReadMemory(addr, size)
		}
		if err != nil {
			return
		}

		for offset := uint(0); offset+s.MinAlignment <= uint(len(data)); offset += s.MinAlignment {
			if s.SearchFor(data[offset:]) {
				results = append(results, Result{Path: appendStep(path, offset)})
			}

			// Aligned slots holding a mapped address are followed.
			if offset%8 == 0 && offset+8 <= uint(len(data)) && depth < s.MaxDepth {
				slot := bridge.Address(binary.LittleEndian.Uint64(data[offset:]))
				if !slot.IsNull() && region.IsValidAddress(slot) {
					walk(slot, depth+1, appendStep(path, offset))
				}
			}
		}
	}
	walk(base, 0, nil)

	return results, nil
}

func appendStep(path []int64, offset uint) []int64 {
	out := make([]int64, len(path), len(path)+1)
	copy(out, path)
	return append(out, int64(offset))
}
