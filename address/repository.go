// Package address resolves symbolic names to host memory addresses by
// pattern scanning, caching each result for the rest of the session.
package address

import (
	"fmt"
	"sync"
	"sync/atomic"

	"hostbridge/bridge"

	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sync/singleflight"
)

// Record is one named address: a pattern, a signed offset applied to the
// first match, and the cached result once resolution succeeded. Records are
// never removed during a session; re-resolution only happens after
// Invalidate.
type Record struct {
	Name    string
	Pattern bridge.Pattern
	Offset  int64

	addr     bridge.Address
	resolved bool
}

// Repository owns the process-wide record table. Concurrent resolution of
// the same name collapses to a single scan; distinct names resolve
// concurrently. A failed scan is reported to every waiter and never cached.
type Repository struct {
	region  bridge.Region
	scanner *bridge.Scanner
	log     *logger.Logger

	mu      sync.Mutex
	records map[string]*Record

	group    singleflight.Group
	resolves atomic.Uint64
}

// NewRepository builds a repository scanning over region. Each test can
// instantiate its own isolated repository; nothing here is ambient state.
func NewRepository(region bridge.Region) *Repository {
	return &Repository{
		region:  region,
		scanner: bridge.NewScanner(),
		log:     logger.NewLogger("address-repository"),
		records: make(map[string]*Record),
	}
}

// SetRecord registers a record without resolving it. An existing record for
// the name is replaced and its cached address dropped.
func (r *Repository) SetRecord(name, pattern string, offset int64) error {
	p, err := bridge.ParsePattern(pattern)
	if err != nil {
		return fmt.Errorf("record %q: %w", name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[name] = &Record{Name: name, Pattern: p, Offset: offset}
	return nil
}

// Get returns the resolved address for a known record, scanning on first
// use. Unknown names fail with bridge.ErrRecordNotFound.
func (r *Repository) Get(name string) (bridge.Pointer, error) {
	r.mu.Lock()
	rec, ok := r.records[name]
	if !ok {
		r.mu.Unlock()
		return bridge.Pointer{}, fmt.Errorf("record %q: %w", name, bridge.ErrRecordNotFound)
	}
	if rec.resolved {
		addr := rec.addr
		r.mu.Unlock()
		return bridge.NewPointer(r.region, addr), nil
	}
	r.mu.Unlock()

	return r.resolve(name)
}

// TryGet is the non-erroring form of Get for callers that treat a missing
// or unresolvable record as a normal outcome.
func (r *Repository) TryGet(name string) (bridge.Pointer, bool) {
	p, err := r.Get(name)
	if err != nil {
		return bridge.Pointer{}, false
	}
	return p, true
}

// GetOrInsert returns the cached address for name, registering the record
// first if it does not exist yet. Two concurrent first calls for the same
// name perform exactly one scan; the loser waits for and reuses the
// winner's result.
func (r *Repository) GetOrInsert(name, pattern string, offset int64) (bridge.Pointer, error) {
	r.mu.Lock()
	rec, ok := r.records[name]
	if ok && rec.resolved {
		addr := rec.addr
		r.mu.Unlock()
		return bridge.NewPointer(r.region, addr), nil
	}
	if !ok {
		p, err := bridge.ParsePattern(pattern)
		if err != nil {
			r.mu.Unlock()
			return bridge.Pointer{}, fmt.Errorf("record %q: %w", name, err)
		}
		r.records[name] = &Record{Name: name, Pattern: p, Offset: offset}
	}
	r.mu.Unlock()

	return r.resolve(name)
}

// resolve scans for the record's pattern, collapsing concurrent callers of
// the same name onto one scan.
func (r *Repository) resolve(name string) (bridge.Pointer, error) {
	v, err, _ := r.group.Do(name, func() (any, error) {
		r.mu.Lock()
		rec, ok := r.records[name]
		if !ok {
			r.mu.Unlock()
			return nil, fmt.Errorf("record %q: %w", name, bridge.ErrRecordNotFound)
		}
		if rec.resolved {
			addr := rec.addr
			r.mu.Unlock()
			return addr, nil
		}
		pattern, offset := rec.Pattern, rec.Offset
		r.mu.Unlock()

		r.resolves.Add(1)
		r.log.Debugln("Resolving", name, "pattern", pattern.String())

		match, err := r.scanner.Scan(r.region, pattern)
		if err != nil {
			r.log.Warn("Failed to resolve ", name, ": ", err)
			return nil, fmt.Errorf("resolve %q (pattern %q): %w", name, pattern.String(), err)
		}
		addr := match.Add(offset)

		r.mu.Lock()
		rec.addr = addr
		rec.resolved = true
		r.mu.Unlock()

		r.log.Infoln("Resolved", name, "to", addr.String())
		return addr, nil
	})
	if err != nil {
		return bridge.Pointer{}, err
	}
	return bridge.NewPointer(r.region, v.(bridge.Address)), nil
}

// Invalidate drops every cached address but keeps the records, forcing
// re-resolution on next use. Used when the host module is reloaded or
// relocated.
func (r *Repository) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		rec.resolved = false
		rec.addr = 0
	}
	r.log.Infoln("Address cache invalidated,", len(r.records), "records kept")
}

// ResolveCount reports how many scans the repository has performed. Tests
// use it to verify caching and singleflight behavior.
func (r *Repository) ResolveCount() uint64 {
	return r.resolves.Load()
}
