package vm

import (
	"sort"
	"sync"
	"sync/atomic"
)

// ICType classifies what a cache site dispatches on.
type ICType uint8

const (
	ICProperty ICType = iota
	ICMethod
	ICConstructor
	ICPrototype
	ICComparison
	ICBinaryOp
	ICUnaryOp
	ICTypeCheck
)

func (t ICType) String() string {
	switch t {
	case ICProperty:
		return "property"
	case ICMethod:
		return "method"
	case ICConstructor:
		return "constructor"
	case ICPrototype:
		return "prototype"
	case ICComparison:
		return "comparison"
	case ICBinaryOp:
		return "binaryop"
	case ICUnaryOp:
		return "unaryop"
	case ICTypeCheck:
		return "typecheck"
	default:
		return "unknown"
	}
}

// AccessResult is the discrete outcome a cache operation reports.
type AccessResult uint8

const (
	// ICHit: the key was found (Lookup), or refreshed an existing entry (Add).
	ICHit AccessResult = iota
	// ICMiss: the key was absent (Lookup), or inserted fresh (Add).
	ICMiss
	// ICTypeError: the entry's flags failed the caller's guard; the
	// cached resolution is no longer type-compatible with the site.
	ICTypeError
	// ICInvalidated: the cache mechanism is disabled; nothing was cached.
	ICInvalidated
	// ICOverflow: the cache was full and the weakest entry was evicted
	// to admit the key. Call sites treat this as going megamorphic.
	ICOverflow
)

func (r AccessResult) String() string {
	switch r {
	case ICHit:
		return "hit"
	case ICMiss:
		return "miss"
	case ICTypeError:
		return "typeerror"
	case ICInvalidated:
		return "invalidated"
	case ICOverflow:
		return "overflow"
	default:
		return "unknown"
	}
}

// ICEntry is one cached association at a dispatch site. Key is an
// opaque fingerprint of the dispatch condition (object shape identity,
// operand type signature); Value is the opaque resolved result (a slot
// offset or function pointer bit-cast to an integer).
type ICEntry struct {
	Key      uint64
	Value    uint64
	HitCount uint32
	Flags    uint32
}

// DefaultMaxEntries mirrors typical polymorphic-site cardinality.
const DefaultMaxEntries = 4

// cacheStats are counters shared between the entry lock and readers;
// they may be read or bumped without holding the entry mutex.
type cacheStats struct {
	lookups       atomic.Uint64
	hits          atomic.Uint64
	misses        atomic.Uint64
	invalidations atomic.Uint64
	typeErrors    atomic.Uint64
}

func (s *cacheStats) reset() {
	s.lookups.Store(0)
	s.hits.Store(0)
	s.misses.Store(0)
	s.invalidations.Store(0)
	s.typeErrors.Store(0)
}

// CacheStats is a point-in-time snapshot of the counters.
type CacheStats struct {
	Lookups       uint64
	Hits          uint64
	Misses        uint64
	Invalidations uint64
	TypeErrors    uint64
}

// InlineCache memoizes the outcomes of one dispatch site. The entry
// sequence is guarded by an exclusive mutex; the statistics counters
// are atomic and never require that lock.
//
// When full, Add evicts the entry with the smallest HitCount, ties
// broken by position (earliest inserted), and reports ICOverflow.
type InlineCache struct {
	id  string
	typ ICType

	mu         sync.Mutex
	entries    []ICEntry
	maxEntries int

	stats cacheStats

	// Set by the owning manager; nil for standalone caches.
	global  *cacheStats
	enabled *atomic.Bool
	created uint64
}

// NewInlineCache constructs a standalone cache. maxEntries <= 0 selects
// DefaultMaxEntries.
func NewInlineCache(id string, typ ICType, maxEntries int) *InlineCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &InlineCache{
		id:         id,
		typ:        typ,
		entries:    make([]ICEntry, 0, maxEntries),
		maxEntries: maxEntries,
	}
}

func (c *InlineCache) ID() string {
	return c.id
}

func (c *InlineCache) Type() ICType {
	return c.typ
}

func (c *InlineCache) isEnabled() bool {
	return c.enabled == nil || c.enabled.Load()
}

func (c *InlineCache) addLookup() {
	c.stats.lookups.Add(1)
	if c.global != nil {
		c.global.lookups.Add(1)
	}
}

func (c *InlineCache) addHit() {
	c.stats.hits.Add(1)
	if c.global != nil {
		c.global.hits.Add(1)
	}
}

func (c *InlineCache) addMiss() {
	c.stats.misses.Add(1)
	if c.global != nil {
		c.global.misses.Add(1)
	}
}

func (c *InlineCache) addInvalidation() {
	c.stats.invalidations.Add(1)
	if c.global != nil {
		c.global.invalidations.Add(1)
	}
}

func (c *InlineCache) addTypeError() {
	c.stats.typeErrors.Add(1)
	if c.global != nil {
		c.global.typeErrors.Add(1)
	}
}

// Lookup scans for key and returns its value on a hit.
func (c *InlineCache) Lookup(key uint64) (uint64, AccessResult) {
	return c.LookupGuarded(key, 0)
}

// LookupGuarded is Lookup with a type guard: a hit whose entry flags do
// not include every guard bit reports ICTypeError instead, telling the
// site to fall back to the slow path and invalidate the key. A zero
// guard always passes.
//
// Lookups on a disabled cache count as misses without touching entry
// state, preserving telemetry continuity.
func (c *InlineCache) LookupGuarded(key uint64, guard uint32) (uint64, AccessResult) {
	c.addLookup()
	if !c.isEnabled() {
		c.addMiss()
		return 0, ICMiss
	}

	c.mu.Lock()
	for i := range c.entries {
		if c.entries[i].Key == key {
			if c.entries[i].Flags&guard != guard {
				c.mu.Unlock()
				c.addTypeError()
				return 0, ICTypeError
			}
			c.entries[i].HitCount++
			value := c.entries[i].Value
			c.mu.Unlock()
			c.addHit()
			return value, ICHit
		}
	}
	c.mu.Unlock()

	c.addMiss()
	return 0, ICMiss
}

// Add inserts or refreshes the entry for key. Keys are unique: an
// existing entry has its value and flags replaced in place (ICHit). A
// fresh insert into a cache below capacity reports ICMiss. A full cache
// evicts the entry with the smallest HitCount, earliest first, and
// reports ICOverflow. A disabled cache mutates nothing (ICInvalidated).
func (c *InlineCache) Add(key, value uint64, flags uint32) AccessResult {
	if !c.isEnabled() {
		return ICInvalidated
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.entries {
		if c.entries[i].Key == key {
			c.entries[i].Value = value
			c.entries[i].Flags = flags
			return ICHit
		}
	}

	if len(c.entries) >= c.maxEntries {
		weakest := 0
		for i := 1; i < len(c.entries); i++ {
			if c.entries[i].HitCount < c.entries[weakest].HitCount {
				weakest = i
			}
		}
		c.entries[weakest] = ICEntry{Key: key, Value: value, Flags: flags}
		return ICOverflow
	}

	c.entries = append(c.entries, ICEntry{Key: key, Value: value, Flags: flags})
	return ICMiss
}

// Invalidate removes the entry for key, reporting whether one existed.
// The object model calls this whenever a shape a key depends on changes.
func (c *InlineCache) Invalidate(key uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.entries {
		if c.entries[i].Key == key {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			c.addInvalidation()
			return true
		}
	}
	return false
}

// Clear drops all entries. Cumulative statistics are untouched.
func (c *InlineCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = c.entries[:0]
}

// SetMaxEntries adjusts the bound, keeping the highest-HitCount entries
// when shrinking.
func (c *InlineCache) SetMaxEntries(maxEntries int) {
	if maxEntries < 1 {
		maxEntries = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.maxEntries = maxEntries
	if len(c.entries) > maxEntries {
		sort.SliceStable(c.entries, func(i, j int) bool {
			return c.entries[i].HitCount > c.entries[j].HitCount
		})
		c.entries = c.entries[:maxEntries]
	}
}

func (c *InlineCache) MaxEntries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxEntries
}

func (c *InlineCache) EntryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Entries returns a copy of the entry sequence.
func (c *InlineCache) Entries() []ICEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ICEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// HitRate is hits/lookups, 0.0 before any lookup.
func (c *InlineCache) HitRate() float64 {
	lookups := c.stats.lookups.Load()
	if lookups == 0 {
		return 0.0
	}
	return float64(c.stats.hits.Load()) / float64(lookups)
}

// Stats snapshots the counters.
func (c *InlineCache) Stats() CacheStats {
	return CacheStats{
		Lookups:       c.stats.lookups.Load(),
		Hits:          c.stats.hits.Load(),
		Misses:        c.stats.misses.Load(),
		Invalidations: c.stats.invalidations.Load(),
		TypeErrors:    c.stats.typeErrors.Load(),
	}
}

// ResetStats zeroes the counters and every entry's HitCount without
// touching entry membership.
func (c *InlineCache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.reset()
	for i := range c.entries {
		c.entries[i].HitCount = 0
	}
}
