package hook

import (
	"fmt"

	"hostbridge/bridge"
	"hostbridge/nativemem"
)

// ThunkProvider returns the native entry a detour at addr should jump to.
// The loader builds these entries; each one lands in Interceptor.Dispatch
// for its address.
type ThunkProvider func(addr bridge.Address, kind SiteKind) (bridge.Address, error)

// NativeInvoker executes native code starting at fn. Wired from the call
// bridge on platforms that have one.
type NativeInvoker func(fn bridge.Address) error

// NativePatcher is the CodePatcher for live code pages. Apply builds a real
// trampoline: the displaced bytes are copied into a fresh executable
// allocation followed by a jump back to the instruction after the detour,
// so CallOriginal can run the original head and fall through into the
// unmodified body.
type NativePatcher struct {
	region *nativemem.Region
	thunks ThunkProvider
	invoke NativeInvoker
}

var _ CodePatcher = (*NativePatcher)(nil)

// NewNativePatcher patches code inside region. thunks supplies detour
// targets; invoke runs trampolines for CallOriginal.
func NewNativePatcher(region *nativemem.Region, thunks ThunkProvider, invoke NativeInvoker) *NativePatcher {
	return &NativePatcher{region: region, thunks: thunks, invoke: invoke}
}

func (p *NativePatcher) Apply(addr bridge.Address, kind SiteKind) (*PatchSite, error) {
	site := &PatchSite{Addr: addr, Kind: kind}
	stubSize := site.stubSize()

	original, err := p.region.ReadMemory(addr, bridge.Size(stubSize))
	if err != nil {
		return nil, fmt.Errorf("read original bytes at %s: %w", addr, err)
	}
	site.Original = original

	trampoline, err := p.buildTrampoline(addr, original)
	if err != nil {
		return nil, err
	}
	site.Trampoline = trampoline

	target, err := p.thunks(addr, kind)
	if err != nil {
		return nil, fmt.Errorf("thunk for %s: %w", addr, err)
	}
	var stub []byte
	if kind == SiteFunction {
		stub = encodeFunctionDetour(target)
	} else {
		stub, err = encodeInstructionDetour(addr, target)
		if err != nil {
			return nil, err
		}
	}
	if err := p.patchCode(addr, stub); err != nil {
		return nil, err
	}
	return site, nil
}

func (p *NativePatcher) Revert(site *PatchSite) error {
	return p.patchCode(site.Addr, site.Original)
}

func (p *NativePatcher) CallOriginal(site *PatchSite) error {
	if p.invoke == nil {
		return fmt.Errorf("call original at %s: no native invoker wired", site.Addr)
	}
	return p.invoke(site.Trampoline)
}

// buildTrampoline copies the displaced bytes into a fresh rwx allocation and
// appends an absolute jump to the instruction right after the detour.
func (p *NativePatcher) buildTrampoline(addr bridge.Address, original []byte) (bridge.Address, error) {
	code := make([]byte, 0, len(original)+functionStubSize)
	code = append(code, original...)
	code = append(code, encodeFunctionDetour(addr.Add(int64(len(original))))...)

	trampoline, err := nativemem.AllocExecutable(bridge.Size(len(code)))
	if err != nil {
		return 0, fmt.Errorf("trampoline for %s: %w", addr, err)
	}
	scratch := nativemem.NewRegion(trampoline, bridge.Size(len(code)))
	if err := scratch.WriteMemory(trampoline, code); err != nil {
		return 0, fmt.Errorf("trampoline for %s: %w", addr, err)
	}
	return trampoline, nil
}

// patchCode flips the site pages writable, writes data, and restores
// read/execute protection.
func (p *NativePatcher) patchCode(addr bridge.Address, data []byte) error {
	size := bridge.Size(len(data))
	if err := p.region.Protect(addr, size, nativemem.ProtRead|nativemem.ProtWrite|nativemem.ProtExec); err != nil {
		return fmt.Errorf("unprotect %s: %w", addr, err)
	}
	if err := p.region.WriteMemory(addr, data); err != nil {
		return fmt.Errorf("patch %s: %w", addr, err)
	}
	if err := p.region.Protect(addr, size, nativemem.ProtRead|nativemem.ProtExec); err != nil {
		return fmt.Errorf("reprotect %s: %w", addr, err)
	}
	return nil
}
