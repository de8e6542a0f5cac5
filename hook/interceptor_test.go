package hook

import (
	"bytes"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"hostbridge/bridge"
)

const (
	codeBase  = bridge.Address(0x140000000)
	thunkBase = bridge.Address(0x7FF000000000)
	funcSite  = codeBase + 0x100
	instSite  = codeBase + 0x300
)

// codeImage builds a synthetic code page with recognizable bytes at the
// hook sites.
func codeImage() *bridge.BufferRegion {
	data := make([]byte, 0x1000)
	for i := range data {
		data[i] = byte(i)
	}
	return bridge.NewBufferRegion(codeBase, data)
}

func newTestInterceptor() (*Interceptor, *RegionPatcher, *bridge.BufferRegion) {
	region := codeImage()
	patcher := NewRegionPatcher(region, thunkBase)
	return New(patcher), patcher, region
}

func TestAttachPatchesAndDetachRestores(t *testing.T) {
	icp, _, region := newTestInterceptor()

	before, err := region.ReadMemory(funcSite, functionStubSize)
	if err != nil {
		t.Fatal(err)
	}

	if err := icp.Attach(funcSite, func(*Invocation) error { return nil }); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	patched, err := region.ReadMemory(funcSite, functionStubSize)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(patched, before) {
		t.Error("attach left site bytes unchanged")
	}
	if patched[0] != 0x48 || patched[1] != 0xB8 {
		t.Errorf("function detour prefix = %x %x, want 48 B8", patched[0], patched[1])
	}
	if !icp.Attached(funcSite) {
		t.Error("Attached reports false for hooked site")
	}

	if err := icp.Detach(funcSite); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	after, err := region.ReadMemory(funcSite, functionStubSize)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(after, before) {
		t.Errorf("detach restored %x, want %x", after, before)
	}
	if icp.Attached(funcSite) {
		t.Error("Attached reports true after detach")
	}
}

func TestAttachConflictAndReattach(t *testing.T) {
	icp, _, _ := newTestInterceptor()

	if err := icp.Attach(funcSite, func(*Invocation) error { return nil }); err != nil {
		t.Fatalf("first Attach: %v", err)
	}
	err := icp.Attach(funcSite, func(*Invocation) error { return nil })
	if !errors.Is(err, bridge.ErrHookConflict) {
		t.Fatalf("second Attach: %v, want ErrHookConflict", err)
	}
	if err := icp.Detach(funcSite); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	// A full detach makes the site hookable again.
	if err := icp.Attach(funcSite, func(*Invocation) error { return nil }); err != nil {
		t.Fatalf("re-Attach: %v", err)
	}
}

func TestDispatchRunsHandlerAndOriginal(t *testing.T) {
	icp, patcher, _ := newTestInterceptor()

	var handlerRuns, originalRuns atomic.Int32
	patcher.RegisterOriginal(funcSite, func() error {
		originalRuns.Add(1)
		return nil
	})
	err := icp.Attach(funcSite, func(inv *Invocation) error {
		handlerRuns.Add(1)
		if inv.Address() != funcSite {
			t.Errorf("invocation address %s, want %s", inv.Address(), funcSite)
		}
		return inv.CallOriginal()
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := icp.Dispatch(funcSite); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if handlerRuns.Load() != 1 || originalRuns.Load() != 1 {
		t.Errorf("runs = handler %d original %d, want 1 1", handlerRuns.Load(), originalRuns.Load())
	}
}

func TestHandlerCanSuppressOriginal(t *testing.T) {
	icp, patcher, _ := newTestInterceptor()

	var originalRuns atomic.Int32
	patcher.RegisterOriginal(funcSite, func() error {
		originalRuns.Add(1)
		return nil
	})
	if err := icp.Attach(funcSite, func(*Invocation) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if err := icp.Dispatch(funcSite); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if originalRuns.Load() != 0 {
		t.Errorf("original ran %d times without CallOriginal", originalRuns.Load())
	}
}

func TestDispatchUnhookedSiteReportsNotFound(t *testing.T) {
	icp, _, _ := newTestInterceptor()
	if err := icp.Dispatch(funcSite); !errors.Is(err, bridge.ErrHookNotFound) {
		t.Errorf("Dispatch on unhooked site: %v, want ErrHookNotFound", err)
	}

	// A detached site reports the same way once its hook is gone.
	if err := icp.Attach(funcSite, func(*Invocation) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if err := icp.Dispatch(funcSite); err != nil {
		t.Fatalf("Dispatch while hooked: %v", err)
	}
	if err := icp.Detach(funcSite); err != nil {
		t.Fatal(err)
	}
	if err := icp.Dispatch(funcSite); !errors.Is(err, bridge.ErrHookNotFound) {
		t.Errorf("Dispatch after detach: %v, want ErrHookNotFound", err)
	}
}

func TestHandlerPanicContained(t *testing.T) {
	icp, _, _ := newTestInterceptor()

	calls := 0
	err := icp.Attach(funcSite, func(*Invocation) error {
		calls++
		if calls == 1 {
			panic("handler exploded")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := icp.Dispatch(funcSite); err == nil {
		t.Error("Dispatch of panicking handler returned nil")
	}
	// The hook survives its own panic.
	if err := icp.Dispatch(funcSite); err != nil {
		t.Errorf("Dispatch after panic: %v", err)
	}
}

func TestDetachWaitsForInflightDispatch(t *testing.T) {
	icp, _, _ := newTestInterceptor()

	entered := make(chan struct{})
	release := make(chan struct{})
	err := icp.Attach(funcSite, func(*Invocation) error {
		close(entered)
		<-release
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		icp.Dispatch(funcSite)
	}()
	<-entered

	detachDone := make(chan struct{})
	go func() {
		defer close(detachDone)
		if err := icp.Detach(funcSite); err != nil {
			t.Errorf("Detach: %v", err)
		}
	}()

	select {
	case <-detachDone:
		t.Fatal("Detach returned while a dispatch was still inside the handler")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-detachDone:
	case <-time.After(time.Second):
		t.Fatal("Detach did not return after the handler drained")
	}
	<-dispatchDone
}

func TestDetachUnknownSite(t *testing.T) {
	icp, _, _ := newTestInterceptor()
	if err := icp.Detach(funcSite); !errors.Is(err, bridge.ErrHookNotFound) {
		t.Errorf("Detach unknown: %v, want ErrHookNotFound", err)
	}
}

func TestReentrantDispatch(t *testing.T) {
	icp, _, _ := newTestInterceptor()

	var inner atomic.Int32
	if err := icp.Attach(instSite, func(*Invocation) error {
		inner.Add(1)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	// A handler may itself hit another hooked site.
	if err := icp.Attach(funcSite, func(*Invocation) error {
		return icp.Dispatch(instSite)
	}); err != nil {
		t.Fatal(err)
	}

	if err := icp.Dispatch(funcSite); err != nil {
		t.Fatalf("nested Dispatch: %v", err)
	}
	if inner.Load() != 1 {
		t.Errorf("inner handler ran %d times, want 1", inner.Load())
	}
}

func TestInstructionHookUsesRel32(t *testing.T) {
	icp, _, region := newTestInterceptor()

	before, err := region.ReadMemory(instSite, instructionStubSize)
	if err != nil {
		t.Fatal(err)
	}
	// thunkBase is far outside rel32 range from the code page.
	err = icp.AttachInstruction(instSite, func(*Invocation) error { return nil })
	if err == nil {
		t.Fatal("rel32 detour to out-of-range thunk accepted")
	}

	// An in-range patcher produces an E9 stub of exactly five bytes.
	near := NewRegionPatcher(region, codeBase+0x800)
	icpNear := New(near)
	if err := icpNear.AttachInstruction(instSite, func(*Invocation) error { return nil }); err != nil {
		t.Fatalf("AttachInstruction: %v", err)
	}
	patched, err := region.ReadMemory(instSite, instructionStubSize)
	if err != nil {
		t.Fatal(err)
	}
	if patched[0] != 0xE9 {
		t.Errorf("instruction detour opcode = %#x, want E9", patched[0])
	}
	if err := icpNear.Detach(instSite); err != nil {
		t.Fatal(err)
	}
	after, _ := region.ReadMemory(instSite, instructionStubSize)
	if !bytes.Equal(after, before) {
		t.Errorf("detach restored %x, want %x", after, before)
	}
}

func TestEncodeInstructionDetourRange(t *testing.T) {
	if _, err := encodeInstructionDetour(0x1000, 0x2000); err != nil {
		t.Errorf("in-range detour rejected: %v", err)
	}
	if _, err := encodeInstructionDetour(0x1000, 0x7FF000000000); err == nil {
		t.Error("out-of-range detour accepted")
	}
}

func TestCallOriginalWithoutRegistration(t *testing.T) {
	icp, _, _ := newTestInterceptor()
	if err := icp.Attach(funcSite, func(inv *Invocation) error {
		return inv.CallOriginal()
	}); err != nil {
		t.Fatal(err)
	}
	if err := icp.Dispatch(funcSite); !errors.Is(err, bridge.ErrHookNotFound) {
		t.Errorf("CallOriginal without original: %v, want ErrHookNotFound", err)
	}
}
