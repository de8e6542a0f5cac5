package bridge

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/Moonlight-Companies/gologger/logger"
)

// Scanner searches a Region for byte patterns with wildcards. Matching is a
// naive single pass; scans run at most once per distinct symbol per session,
// so correctness beats speed. The only concession is an early reject on the
// first fixed pattern byte, which keeps the worst case tractable on
// multi-hundred-MB regions.
type Scanner struct {
	log *logger.Logger
}

// NewScanner creates a Scanner.
func NewScanner() *Scanner {
	return &Scanner{
		log: logger.NewLogger("scanner"),
	}
}

// Scan searches the whole region for the first match and returns its address.
func (s *Scanner) Scan(r Region, pattern Pattern) (Address, error) {
	return s.scanWindow(r, r.Base(), r.Size(), pattern)
}

// ScanRange searches [base, base+size) for the first match and returns the
// matched position plus offset as a Pointer into the region.
func (s *Scanner) ScanRange(r Region, base Address, size Size, pattern Pattern, offset int64) (Pointer, error) {
	addr, err := s.scanWindow(r, base, size, pattern)
	if err != nil {
		return Pointer{}, err
	}
	return NewPointer(r, addr.Add(offset)), nil
}

// ScanAll returns every non-overlapping match in the region in ascending
// address order.
func (s *Scanner) ScanAll(r Region, pattern Pattern) ([]Address, error) {
	if pattern.Len() == 0 {
		return nil, fmt.Errorf("empty pattern")
	}
	data, err := r.ReadMemory(r.Base(), r.Size())
	if err != nil {
		return nil, fmt.Errorf("read region for scan: %w", err)
	}

	s.log.Debugln("Scanning region for all matches, pattern", pattern.String())

	matches := findPatternMatches(data, pattern)
	if len(matches) == 0 {
		return nil, fmt.Errorf("pattern %q in [%s, +%d): %w",
			pattern.String(), r.Base(), uint64(r.Size()), ErrPatternNotFound)
	}

	results := make([]Address, len(matches))
	for i, off := range matches {
		results[i] = r.Base().Add(int64(off))
	}
	return results, nil
}

// ScanParallel splits the region into chunks scanned concurrently. maxdop
// bounds the number of workers; values below 2 fall back to the single-pass
// scan. The merged result is still ascending and non-overlapping.
func (s *Scanner) ScanParallel(r Region, pattern Pattern, maxdop uint) ([]Address, error) {
	if maxdop <= 1 {
		return s.ScanAll(r, pattern)
	}
	if pattern.Len() == 0 {
		return nil, fmt.Errorf("empty pattern")
	}

	numCPU := uint(runtime.NumCPU())
	if maxdop > numCPU {
		maxdop = numCPU
	}

	total := uint64(r.Size())
	chunk := total / uint64(maxdop)
	if chunk < uint64(pattern.Len()) {
		return s.ScanAll(r, pattern)
	}

	s.log.Debugln("Starting parallel scan with maxdop", maxdop)

	// Chunks overlap by len(pattern)-1 so matches on a boundary are not lost.
	overlap := uint64(pattern.Len() - 1)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var results []Address

	for w := uint64(0); w < uint64(maxdop); w++ {
		start := uint64(r.Base()) + w*chunk
		size := chunk + overlap
		if w == uint64(maxdop)-1 {
			size = total - w*chunk
		}
		if start+size > uint64(r.Base())+total {
			size = uint64(r.Base()) + total - start
		}

		wg.Add(1)
		go func(base Address, size Size) {
			defer wg.Done()
			data, err := r.ReadMemory(base, size)
			if err != nil {
				s.log.Debugln("Failed to read chunk at", base.String(), err)
				return
			}
			matches := findPatternMatches(data, pattern)
			if len(matches) == 0 {
				return
			}
			mu.Lock()
			for _, off := range matches {
				results = append(results, base.Add(int64(off)))
			}
			mu.Unlock()
		}(Address(start), Size(size))
	}
	wg.Wait()

	if len(results) == 0 {
		return nil, fmt.Errorf("pattern %q: %w", pattern.String(), ErrPatternNotFound)
	}

	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })

	// Overlapping chunks can double-report boundary matches; also re-apply
	// the non-overlap rule across chunk seams.
	dedup := results[:1]
	for _, a := range results[1:] {
		last := dedup[len(dedup)-1]
		if a == last || uint64(a) < uint64(last)+uint64(pattern.Len()) {
			continue
		}
		dedup = append(dedup, a)
	}
	return dedup, nil
}

func (s *Scanner) scanWindow(r Region, base Address, size Size, pattern Pattern) (Address, error) {
	if pattern.Len() == 0 {
		return 0, fmt.Errorf("empty pattern")
	}
	if size == 0 || uint64(size) < uint64(pattern.Len()) {
		return 0, fmt.Errorf("pattern %q in [%s, +%d): window shorter than pattern: %w",
			pattern.String(), base, uint64(size), ErrPatternNotFound)
	}
	data, err := r.ReadMemory(base, size)
	if err != nil {
		return 0, fmt.Errorf("read scan window [%s, +%d): %w", base, uint64(size), err)
	}

	s.log.Debugln("Scanning", len(data), "bytes for pattern", pattern.String())

	off, ok := findFirstMatch(data, pattern)
	if !ok {
		return 0, fmt.Errorf("pattern %q in [%s, +%d): %w",
			pattern.String(), base, uint64(size), ErrPatternNotFound)
	}
	return base.Add(int64(off)), nil
}

// findFirstMatch returns the offset of the first position in data matching the
// pattern. Candidate positions are rejected on the first fixed byte before the
// per-position wildcard comparison runs.
func findFirstMatch(data []byte, p Pattern) (int, bool) {
	if len(data) < p.Len() {
		return 0, false
	}
	fixedIdx, fixedVal, _ := p.FirstFixed()
	fixedMask := p.Mask[fixedIdx]

	for i := 0; i <= len(data)-p.Len(); i++ {
		if data[i+fixedIdx]&fixedMask != fixedVal {
			continue
		}
		if matchAt(data, i, p) {
			return i, true
		}
	}
	return 0, false
}

// findPatternMatches returns the offsets of every non-overlapping match.
func findPatternMatches(data []byte, p Pattern) []int {
	if len(data) < p.Len() {
		return nil
	}
	fixedIdx, fixedVal, _ := p.FirstFixed()
	fixedMask := p.Mask[fixedIdx]

	var matches []int
	for i := 0; i <= len(data)-p.Len(); {
		if data[i+fixedIdx]&fixedMask != fixedVal {
			i++
			continue
		}
		if matchAt(data, i, p) {
			matches = append(matches, i)
			i += p.Len()
			continue
		}
		i++
	}
	return matches
}

func matchAt(data []byte, pos int, p Pattern) bool {
	for j := 0; j < p.Len(); j++ {
		m := p.Mask[j]
		if m == 0 {
			continue
		}
		if data[pos+j]&m != p.Bytes[j]&m {
			return false
		}
	}
	return true
}
