package search

import (
	"encoding/binary"
	"testing"

	"hostbridge/bridge"
)

// chainImage lays out a root struct at 0x1000 with an inline u32 value and
// a pointer to a second struct holding the same value.
func chainImage() *bridge.BufferRegion {
	data := make([]byte, 0x2000)
	binary.LittleEndian.PutUint32(data[0x18:], 1337)        // root+0x18
	binary.LittleEndian.PutUint64(data[0x20:], 0x2000)      // root+0x20, second struct
	binary.LittleEndian.PutUint32(data[0x1000+0x08:], 1337) // second+0x08
	return bridge.NewBufferRegion(0x1000, data)
}

func TestSearchFindsDirectAndChainedPaths(t *testing.T) {
	region := chainImage()

	results, err := Search(region, 0x1000,
		WithSearchForType(uint32(1337)),
		WithMaxDepth(2),
		WithMaxStructSize(0x40),
	)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	var direct, chained bool
	for _, r := range results {
		switch {
		case len(r.Path) == 1 && r.Path[0] == 0x18:
			direct = true
		case len(r.Path) == 2 && r.Path[0] == 0x20 && r.Path[1] == 0x08:
			chained = true
		default:
			t.Errorf("unexpected path %v", r.Path)
		}
	}
	if !direct {
		t.Error("direct path [0x18] not found")
	}
	if !chained {
		t.Error("chained path [0x20 0x08] not found")
	}
}

// A discovered chain must walk back to the value through Pointer.Offset.
func TestSearchPathsFeedPointerOffset(t *testing.T) {
	region := chainImage()

	results, err := Search(region, 0x1000,
		WithSearchForType(uint32(1337)),
		WithMaxDepth(2),
		WithMaxStructSize(0x40),
	)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		p, err := bridge.NewPointer(region, 0x1000).Offset(r.Path...)
		if err != nil {
			t.Fatalf("Offset(%v): %v", r.Path, err)
		}
		v, err := p.ReadU32()
		if err != nil {
			t.Fatalf("ReadU32 via %v: %v", r.Path, err)
		}
		if v != 1337 {
			t.Errorf("path %v leads to %d, want 1337", r.Path, v)
		}
	}
}

func TestSearchDepthLimit(t *testing.T) {
	region := chainImage()

	results, err := Search(region, 0x1000,
		WithSearchForType(uint32(1337)),
		WithMaxDepth(0),
		WithMaxStructSize(0x40),
	)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if len(r.Path) != 1 {
			t.Errorf("depth 0 search produced chained path %v", r.Path)
		}
	}
}

func TestSearchBreaksPointerCycles(t *testing.T) {
	data := make([]byte, 0x1000)
	// Two structs pointing at each other.
	binary.LittleEndian.PutUint64(data[0x00:], 0x1200)
	binary.LittleEndian.PutUint64(data[0x200:], 0x1000)
	region := bridge.NewBufferRegion(0x1000, data)

	// Terminates despite the cycle; nothing matches.
	results, err := Search(region, 0x1000,
		WithSearchForType(uint32(0xDEADBEEF)),
		WithMaxDepth(5),
		WithMaxStructSize(0x40),
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("found %d results in value-free image", len(results))
	}
}

func TestSearchRequiresPredicate(t *testing.T) {
	if _, err := Search(chainImage(), 0x1000); err == nil {
		t.Error("search without a target accepted")
	}
}

func TestSearchAlignmentSkew(t *testing.T) {
	data := make([]byte, 0x100)
	binary.LittleEndian.PutUint32(data[0x1A:], 7777) // off-alignment value
	region := bridge.NewBufferRegion(0x1000, data)

	results, err := Search(region, 0x1000,
		WithSearchForType(uint32(7777)),
		WithMinAlignment(4),
		WithMaxStructSize(0x40),
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("4-aligned search matched value at 0x1A: %v", results)
	}

	results, err = Search(region, 0x1000,
		WithSearchForType(uint32(7777)),
		WithMinAlignment(1),
		WithMaxStructSize(0x40),
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Path[0] != 0x1A {
		t.Errorf("1-aligned search = %v, want [[0x1A]]", results)
	}
}
