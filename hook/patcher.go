// Package hook redirects native control flow at chosen addresses into the
// bridge. Attaching saves enough original bytes to both call through to the
// displaced code and fully restore it on detach.
package hook

import (
	"encoding/binary"
	"fmt"
	"sync"

	"hostbridge/bridge"
)

// SiteKind distinguishes a function-entry hook from a mid-function
// single-instruction hook.
type SiteKind int

const (
	// SiteFunction hooks a function entry. The detour is an absolute jump
	// (mov rax, imm64; jmp rax) so the target can live anywhere.
	SiteFunction SiteKind = iota

	// SiteInstruction hooks a single instruction boundary mid-function with
	// a rel32 jump, displacing fewer bytes.
	SiteInstruction
)

const (
	// functionStubSize is the absolute x64 jump: 48 B8 imm64 FF E0.
	functionStubSize = 13

	// instructionStubSize is the short rel32 jump: E9 rel32.
	instructionStubSize = 5
)

// PatchSite is the bookkeeping for one installed detour.
type PatchSite struct {
	Addr bridge.Address
	Kind SiteKind

	// Original holds the displaced bytes needed to restore the site.
	Original []byte

	// Trampoline is where the displaced code continues into the original,
	// for patchers that build one; zero otherwise.
	Trampoline bridge.Address
}

func (s *PatchSite) stubSize() int {
	if s.Kind == SiteFunction {
		return functionStubSize
	}
	return instructionStubSize
}

// CodePatcher installs and removes detours and provides the call-through
// path to the displaced original code.
type CodePatcher interface {
	// Apply displaces the site's original bytes and installs a detour.
	Apply(addr bridge.Address, kind SiteKind) (*PatchSite, error)

	// Revert restores the original bytes at the site.
	Revert(site *PatchSite) error

	// CallOriginal executes the displaced original code path.
	CallOriginal(site *PatchSite) error
}

// encodeFunctionDetour emits mov rax, target; jmp rax.
func encodeFunctionDetour(target bridge.Address) []byte {
	stub := make([]byte, functionStubSize)
	stub[0] = 0x48
	stub[1] = 0xB8
	binary.LittleEndian.PutUint64(stub[2:], uint64(target))
	stub[10] = 0xFF
	stub[11] = 0xE0
	stub[12] = 0x90
	return stub
}

// encodeInstructionDetour emits jmp rel32 from the patched site to target.
// The displacement must fit in 32 bits.
func encodeInstructionDetour(from, target bridge.Address) ([]byte, error) {
	disp := int64(target) - (int64(from) + instructionStubSize)
	if disp > 1<<31-1 || disp < -(1<<31) {
		return nil, fmt.Errorf("detour from %s to %s exceeds rel32 range", from, target)
	}
	stub := make([]byte, instructionStubSize)
	stub[0] = 0xE9
	binary.LittleEndian.PutUint32(stub[1:], uint32(int32(disp)))
	return stub, nil
}

// RegionPatcher is a CodePatcher over any bridge.Region. It performs the
// real byte bookkeeping (displace, detour write, restore) against the
// region, while call-through runs Go functions registered per address.
// Tests and loader-emulated deployments use it; NativePatcher does the same
// dance against live code pages.
type RegionPatcher struct {
	region bridge.Region

	mu        sync.Mutex
	originals map[bridge.Address]func() error
	thunkBase bridge.Address
	thunkNext uint64
}

var _ CodePatcher = (*RegionPatcher)(nil)

// NewRegionPatcher builds a patcher writing into region. Detour targets are
// assigned sequentially from thunkBase; they are bookkeeping entries the
// loader-side thunks would occupy, not executable Go memory.
func NewRegionPatcher(region bridge.Region, thunkBase bridge.Address) *RegionPatcher {
	return &RegionPatcher{
		region:    region,
		originals: make(map[bridge.Address]func() error),
		thunkBase: thunkBase,
	}
}

// RegisterOriginal installs the Go behavior standing in for the original
// code at addr, invoked by CallOriginal.
func (p *RegionPatcher) RegisterOriginal(addr bridge.Address, fn func() error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.originals[addr] = fn
}

func (p *RegionPatcher) Apply(addr bridge.Address, kind SiteKind) (*PatchSite, error) {
	site := &PatchSite{Addr: addr, Kind: kind}

	original, err := p.region.ReadMemory(addr, bridge.Size(site.stubSize()))
	if err != nil {
		return nil, fmt.Errorf("read original bytes at %s: %w", addr, err)
	}
	site.Original = original

	target := p.nextThunk()
	var stub []byte
	if kind == SiteFunction {
		stub = encodeFunctionDetour(target)
	} else {
		stub, err = encodeInstructionDetour(addr, target)
		if err != nil {
			return nil, err
		}
	}
	if err := p.region.WriteMemory(addr, stub); err != nil {
		return nil, fmt.Errorf("write detour at %s: %w", addr, err)
	}
	return site, nil
}

func (p *RegionPatcher) Revert(site *PatchSite) error {
	if err := p.region.WriteMemory(site.Addr, site.Original); err != nil {
		return fmt.Errorf("restore original bytes at %s: %w", site.Addr, err)
	}
	return nil
}

func (p *RegionPatcher) CallOriginal(site *PatchSite) error {
	p.mu.Lock()
	fn := p.originals[site.Addr]
	p.mu.Unlock()
	if fn == nil {
		return fmt.Errorf("no original registered at %s: %w", site.Addr, bridge.ErrHookNotFound)
	}
	return fn()
}

func (p *RegionPatcher) nextThunk() bridge.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.thunkNext++
	return p.thunkBase.Add(int64(p.thunkNext * 0x100))
}
