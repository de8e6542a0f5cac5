//go:build windows

package nativemem

import (
	"fmt"
	"sort"
	"syscall"
	"unsafe"

	"hostbridge/bridge"
)

const pageSize = 0x1000

var (
	modkernel32              = syscall.NewLazyDLL("kernel32.dll")
	procVirtualQuery         = modkernel32.NewProc("VirtualQuery")
	procVirtualProtect       = modkernel32.NewProc("VirtualProtect")
	procVirtualAlloc         = modkernel32.NewProc("VirtualAlloc")
	procGetModuleHandleW     = modkernel32.NewProc("GetModuleHandleW")
	procGetCurrentProcess    = modkernel32.NewProc("GetCurrentProcess")
	procGetModuleInformation = modkernel32.NewProc("K32GetModuleInformation")
)

const (
	memCommit = 0x1000

	pageNoAccess         = 0x01
	pageReadonly         = 0x02
	pageReadwrite        = 0x04
	pageWritecopy        = 0x08
	pageExecute          = 0x10
	pageExecuteRead      = 0x20
	pageExecuteReadwrite = 0x40
	pageExecuteWritecopy = 0x80
	pageGuard            = 0x100

	memReserve = 0x2000
)

type memoryBasicInformation struct {
	BaseAddress       uintptr
	AllocationBase    uintptr
	AllocationProtect uint32
	PartitionID       uint16
	RegionSize        uintptr
	State             uint32
	Protect           uint32
	Type              uint32
}

type moduleInformation struct {
	BaseOfDll   uintptr
	SizeOfImage uint32
	EntryPoint  uintptr
}

// readPageMap walks the address space with VirtualQuery and builds a sorted
// span list of committed regions.
func readPageMap() ([]span, error) {
	var spans []span
	var mbi memoryBasicInformation

	// Walk the canonical user-mode range; VirtualQuery jumps whole regions,
	// so this terminates quickly in practice. The iteration cap is defensive
	// against a malformed RegionSize.
	const upperLimit = uintptr(0x7FFFFFFFFFFF)
	addr := uintptr(0x10000)
	for i := 0; addr < upperLimit && i < 1<<20; i++ {
		ret, _, _ := procVirtualQuery.Call(
			addr,
			uintptr(unsafe.Pointer(&mbi)),
			unsafe.Sizeof(mbi),
		)
		if ret == 0 {
			break
		}
		if mbi.State == memCommit && mbi.Protect&pageGuard == 0 && mbi.Protect != pageNoAccess {
			spans = append(spans, span{
				start: uint64(mbi.BaseAddress),
				end:   uint64(mbi.BaseAddress + mbi.RegionSize),
				read:  true,
				write: protectWritable(mbi.Protect),
				exec:  protectExecutable(mbi.Protect),
			})
		}
		if mbi.RegionSize == 0 {
			break
		}
		addr = mbi.BaseAddress + mbi.RegionSize
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	return spans, nil
}

func protectWritable(protect uint32) bool {
	switch protect &^ 0xFFFFFF00 {
	case pageReadwrite, pageWritecopy, pageExecuteReadwrite, pageExecuteWritecopy:
		return true
	}
	return false
}

func protectExecutable(protect uint32) bool {
	switch protect &^ 0xFFFFFF00 {
	case pageExecute, pageExecuteRead, pageExecuteReadwrite, pageExecuteWritecopy:
		return true
	}
	return false
}

// mainModuleSpan returns the base and image size of the host executable.
func mainModuleSpan() (bridge.Address, bridge.Size, error) {
	module, _, err := procGetModuleHandleW.Call(0)
	if module == 0 {
		return 0, 0, fmt.Errorf("GetModuleHandleW failed: %v", err)
	}
	process, _, _ := procGetCurrentProcess.Call()

	var info moduleInformation
	ret, _, err := procGetModuleInformation.Call(
		process,
		module,
		uintptr(unsafe.Pointer(&info)),
		unsafe.Sizeof(info),
	)
	if ret == 0 {
		return 0, 0, fmt.Errorf("GetModuleInformation failed: %v", err)
	}
	return bridge.Address(info.BaseOfDll), bridge.Size(info.SizeOfImage), nil
}

// Protect changes the protection of the pages covering [addr, addr+size).
func (r *Region) Protect(addr bridge.Address, size bridge.Size, prot Protection) error {
	var oldProtect uint32
	ret, _, err := procVirtualProtect.Call(
		uintptr(addr),
		uintptr(size),
		uintptr(windowsProt(prot)),
		uintptr(unsafe.Pointer(&oldProtect)),
	)
	if ret == 0 {
		return fmt.Errorf("VirtualProtect [%s, +%d): %v", addr, uint64(size), err)
	}

	r.mu.Lock()
	r.spans = nil
	r.mu.Unlock()
	return nil
}

// AllocExecutable commits a fresh read/write/execute range, used for
// trampoline storage.
func AllocExecutable(size bridge.Size) (bridge.Address, error) {
	ret, _, err := procVirtualAlloc.Call(
		0,
		uintptr(size),
		uintptr(memReserve|memCommit),
		uintptr(pageExecuteReadwrite),
	)
	if ret == 0 {
		return 0, fmt.Errorf("VirtualAlloc %d bytes rwx: %v", uint64(size), err)
	}
	return bridge.Address(ret), nil
}

func windowsProt(prot Protection) uint32 {
	switch {
	case prot&ProtExec != 0 && prot&ProtWrite != 0:
		return pageExecuteReadwrite
	case prot&ProtExec != 0:
		return pageExecuteRead
	case prot&ProtWrite != 0:
		return pageReadwrite
	case prot&ProtRead != 0:
		return pageReadonly
	default:
		return pageNoAccess
	}
}
