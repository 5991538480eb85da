package vm

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// CacheManager owns every named InlineCache for one engine instance.
// It is constructed explicitly and passed by reference to execution
// contexts; there is no process-wide singleton, so multiple isolated
// engines can coexist and tear down cleanly.
//
// The registry lock is distinct from the per-cache entry locks:
// creating, removing or pruning caches never blocks lookup traffic on
// unrelated caches. Callers hold non-owning references; after
// RemoveCache or teardown a site must re-resolve its cache by id.
type CacheManager struct {
	mu                sync.Mutex
	caches            map[string]*InlineCache
	maxCacheCount     int
	defaultMaxEntries int
	createSeq         uint64

	enabled atomic.Bool
	global  cacheStats

	now func() time.Time
}

// NewCacheManager builds a registry from cfg, filling in defaults for
// unset bounds.
func NewCacheManager(cfg Config) *CacheManager {
	if cfg.MaxCacheCount <= 0 {
		cfg.MaxCacheCount = DefaultMaxCacheCount
	}
	if cfg.DefaultMaxEntries <= 0 {
		cfg.DefaultMaxEntries = DefaultMaxEntries
	}
	m := &CacheManager{
		caches:            make(map[string]*InlineCache),
		maxCacheCount:     cfg.MaxCacheCount,
		defaultMaxEntries: cfg.DefaultMaxEntries,
		now:               time.Now,
	}
	m.enabled.Store(cfg.Enabled)
	return m
}

// GetOrCreateCache returns the cache registered under id, creating it
// if absent. An existing cache keeps its original type and bound:
// first writer wins. maxEntries <= 0 selects the configured default.
// When the registry is at its bound, low-value caches are pruned first.
func (m *CacheManager) GetOrCreateCache(id string, typ ICType, maxEntries int) *InlineCache {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.caches[id]; ok {
		return c
	}

	if len(m.caches) >= m.maxCacheCount {
		m.pruneLocked()
	}

	if maxEntries <= 0 {
		maxEntries = m.defaultMaxEntries
	}
	c := NewInlineCache(id, typ, maxEntries)
	c.global = &m.global
	c.enabled = &m.enabled
	c.created = m.createSeq
	m.createSeq++
	m.caches[id] = c
	return c
}

// RemoveCache drops the cache registered under id. Outstanding
// references keep working but are no longer reachable from the manager.
func (m *CacheManager) RemoveCache(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.caches[id]; !ok {
		return false
	}
	delete(m.caches, id)
	return true
}

// GetCache looks up a cache by id. Absence is not an error.
func (m *CacheManager) GetCache(id string) (*InlineCache, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.caches[id]
	return c, ok
}

// GetCachesByType returns the caches of one type, ordered by id.
func (m *CacheManager) GetCachesByType(typ ICType) []*InlineCache {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*InlineCache
	for _, c := range m.caches {
		if c.typ == typ {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// GetAllCaches returns a copy of the registry.
func (m *CacheManager) GetAllCaches() map[string]*InlineCache {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]*InlineCache, len(m.caches))
	for id, c := range m.caches {
		out[id] = c
	}
	return out
}

// ClearAllCaches empties every cache without unregistering any.
func (m *CacheManager) ClearAllCaches() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.caches {
		c.Clear()
	}
}

// ClearCachesByType empties the caches of one type.
func (m *CacheManager) ClearCachesByType(typ ICType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.caches {
		if c.typ == typ {
			c.Clear()
		}
	}
}

func (m *CacheManager) MaxCacheCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxCacheCount
}

// SetMaxCacheCount adjusts the registry bound; shrinking below the
// current population prunes immediately.
func (m *CacheManager) SetMaxCacheCount(n int) {
	if n < 1 {
		n = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.maxCacheCount = n
	if len(m.caches) > m.maxCacheCount {
		m.pruneLocked()
	}
}

// PruneCache applies the eviction policy: caches with the lowest hit
// rate go first, ties broken by creation order, until the registry is
// at 80% of its bound.
func (m *CacheManager) PruneCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
}

func (m *CacheManager) pruneLocked() {
	target := m.maxCacheCount * 8 / 10
	if len(m.caches) <= target {
		return
	}

	victims := make([]*InlineCache, 0, len(m.caches))
	for _, c := range m.caches {
		victims = append(victims, c)
	}
	sort.Slice(victims, func(i, j int) bool {
		ri, rj := victims[i].HitRate(), victims[j].HitRate()
		if ri != rj {
			return ri < rj
		}
		return victims[i].created < victims[j].created
	})

	for _, c := range victims[:len(m.caches)-target] {
		delete(m.caches, c.id)
	}
}

func (m *CacheManager) IsEnabled() bool {
	return m.enabled.Load()
}

// SetEnabled toggles caching. Disabling clears every cache so no stale
// resolution survives the gap; lookups made while disabled miss but are
// still counted.
func (m *CacheManager) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
	if !enabled {
		m.ClearAllCaches()
	}
}

// ResetAllStats zeroes the global aggregate and every cache's counters.
func (m *CacheManager) ResetAllStats() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.global.reset()
	for _, c := range m.caches {
		c.ResetStats()
	}
}

// GlobalHitRate is the aggregate hits/lookups across all caches,
// maintained incrementally on the same atomic path as the per-cache
// counters.
func (m *CacheManager) GlobalHitRate() float64 {
	lookups := m.global.lookups.Load()
	if lookups == 0 {
		return 0.0
	}
	return float64(m.global.hits.Load()) / float64(lookups)
}

// GlobalStats snapshots the aggregate counters.
func (m *CacheManager) GlobalStats() CacheStats {
	return CacheStats{
		Lookups:       m.global.lookups.Load(),
		Hits:          m.global.hits.Load(),
		Misses:        m.global.misses.Load(),
		Invalidations: m.global.invalidations.Load(),
		TypeErrors:    m.global.typeErrors.Load(),
	}
}

// GenerateReport renders a human-readable summary: global counters and
// the per-type distribution, plus per-cache detail (sorted by hit rate,
// then id) when detailed is set. Pure read; output is deterministic for
// a fixed clock and cache population.
func (m *CacheManager) GenerateReport(detailed bool) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var b strings.Builder
	b.WriteString("==========================================\n")
	b.WriteString("  Inline Cache Performance Report\n")
	fmt.Fprintf(&b, "  Generated: %s\n", m.now().Format("2006-01-02 15:04:05"))
	b.WriteString("==========================================\n\n")

	lookups := m.global.lookups.Load()
	hits := m.global.hits.Load()
	misses := m.global.misses.Load()

	b.WriteString("Global statistics:\n")
	fmt.Fprintf(&b, "  Caches: %d/%d\n", len(m.caches), m.maxCacheCount)
	fmt.Fprintf(&b, "  Enabled: %t\n", m.enabled.Load())
	fmt.Fprintf(&b, "  Lookups: %d\n", lookups)
	fmt.Fprintf(&b, "  Hits: %d (%.2f%%)\n", hits, percent(hits, lookups))
	fmt.Fprintf(&b, "  Misses: %d (%.2f%%)\n", misses, percent(misses, lookups))
	fmt.Fprintf(&b, "  Invalidations: %d\n", m.global.invalidations.Load())
	fmt.Fprintf(&b, "  Type errors: %d\n\n", m.global.typeErrors.Load())

	b.WriteString("Cache type distribution:\n")
	for t := ICProperty; t <= ICTypeCheck; t++ {
		n := 0
		for _, c := range m.caches {
			if c.typ == t {
				n++
			}
		}
		fmt.Fprintf(&b, "  %s: %d\n", t, n)
	}

	if detailed && len(m.caches) > 0 {
		b.WriteString("\nCache details:\n")
		details := make([]*InlineCache, 0, len(m.caches))
		for _, c := range m.caches {
			details = append(details, c)
		}
		sort.Slice(details, func(i, j int) bool {
			ri, rj := details[i].HitRate(), details[j].HitRate()
			if ri != rj {
				return ri > rj
			}
			return details[i].id < details[j].id
		})
		for _, c := range details {
			fmt.Fprintf(&b, "  %s:\n", c.id)
			fmt.Fprintf(&b, "    type: %s\n", c.typ)
			fmt.Fprintf(&b, "    entries: %d\n", c.EntryCount())
			fmt.Fprintf(&b, "    hit rate: %.2f%%\n", c.HitRate()*100)
		}
	}

	return b.String()
}

func percent(part, total uint64) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100
}
