//go:build linux

package nativemem

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"unsafe"

	"hostbridge/bridge"

	"golang.org/x/sys/unix"
)

const pageSize = 0x1000

// readPageMap reads and parses /proc/self/maps into a sorted span list.
func readPageMap() ([]span, error) {
	file, err := os.Open("/proc/self/maps")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var spans []span
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		s, ok := parseMapsLine(scanner.Text())
		if !ok {
			continue
		}
		spans = append(spans, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	return spans, nil
}

// parseMapsLine parses one line such as
// "00400000-0040b000 r-xp 00000000 08:01 1234 /usr/bin/host".
func parseMapsLine(line string) (span, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return span{}, false
	}
	addrRange := strings.Split(fields[0], "-")
	if len(addrRange) != 2 {
		return span{}, false
	}
	start, err := strconv.ParseUint(addrRange[0], 16, 64)
	if err != nil {
		return span{}, false
	}
	end, err := strconv.ParseUint(addrRange[1], 16, 64)
	if err != nil {
		return span{}, false
	}
	perms := fields[1]
	return span{
		start: start,
		end:   end,
		read:  len(perms) > 0 && perms[0] == 'r',
		write: len(perms) > 1 && perms[1] == 'w',
		exec:  len(perms) > 2 && perms[2] == 'x',
	}, true
}

// mainModuleSpan returns the [base, base+size) window covered by the host
// executable's own mappings.
func mainModuleSpan() (bridge.Address, bridge.Size, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, 0, err
	}

	file, err := os.Open("/proc/self/maps")
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	var lo, hi uint64
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasSuffix(line, exe) {
			continue
		}
		s, ok := parseMapsLine(line)
		if !ok {
			continue
		}
		if lo == 0 || s.start < lo {
			lo = s.start
		}
		if s.end > hi {
			hi = s.end
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, 0, err
	}
	if lo == 0 {
		return 0, 0, fmt.Errorf("no mapping found for %s", exe)
	}
	return bridge.Address(lo), bridge.Size(hi - lo), nil
}

// Protect changes the protection of the pages covering [addr, addr+size).
func (r *Region) Protect(addr bridge.Address, size bridge.Size, prot Protection) error {
	page := uint64(addr) &^ (pageSize - 1)
	length := uint64(addr) + uint64(size) - page
	length = (length + pageSize - 1) &^ (pageSize - 1)

	mem := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(page))), length)
	if err := unix.Mprotect(mem, unixProt(prot)); err != nil {
		return fmt.Errorf("mprotect [%#x, +%#x): %w", page, length, err)
	}

	// Cached spans are stale now; drop them so the next probe re-reads.
	r.mu.Lock()
	r.spans = nil
	r.mu.Unlock()
	return nil
}

// AllocExecutable maps a fresh anonymous read/write/execute range, used for
// trampoline storage.
func AllocExecutable(size bridge.Size) (bridge.Address, error) {
	length := (uint64(size) + pageSize - 1) &^ (pageSize - 1)
	mem, err := unix.Mmap(-1, 0, int(length),
		unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, fmt.Errorf("mmap %d bytes rwx: %w", length, err)
	}
	return bridge.Address(uintptr(unsafe.Pointer(&mem[0]))), nil
}

func unixProt(prot Protection) int {
	p := 0
	if prot&ProtRead != 0 {
		p |= unix.PROT_READ
	}
	if prot&ProtWrite != 0 {
		p |= unix.PROT_WRITE
	}
	if prot&ProtExec != 0 {
		p |= unix.PROT_EXEC
	}
	return p
}
