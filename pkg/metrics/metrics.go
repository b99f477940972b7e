// Package metrics records how long dt spends in catalog loading, selection
// edits and buyer matching, and how often the parsed catalogs are reused.
//
// Timings are keyed by operation and scope. Selection operations use the
// catalog kind ("geography" or "industry") as their scope, so a report shows
// the two trees side by side. Collection is on unless DT_METRICS=0.
//
//	defer metrics.Time(metrics.Toggle, "geography")()
package metrics

import (
	"os"
	"sort"
	"sync"
	"time"
)

// Op names an instrumented operation.
type Op string

const (
	CatalogLoad Op = "catalog_load"
	Toggle      Op = "selection_toggle"
	Serialize   Op = "selection_serialize"
	Deserialize Op = "selection_deserialize"
	Filter      Op = "tree_filter"
	BuyerMatch  Op = "buyer_match"
)

// CatalogCache is the service's parsed-catalog cache.
const CatalogCache = "catalog_cache"

var enabled = os.Getenv("DT_METRICS") != "0"

// Enabled reports whether metrics are collected.
func Enabled() bool {
	return enabled
}

// SetEnabled turns collection on or off.
func SetEnabled(e bool) {
	enabled = e
}

type key struct {
	op    Op
	scope string
}

type sample struct {
	count         int64
	total, lo, hi time.Duration
}

func (s *sample) add(d time.Duration) {
	if s.count == 0 || d < s.lo {
		s.lo = d
	}
	if d > s.hi {
		s.hi = d
	}
	s.count++
	s.total += d
}

type cacheCount struct {
	hits, misses int64
}

var (
	mu      sync.Mutex
	timings = make(map[key]*sample)
	caches  = make(map[string]*cacheCount)
)

// Time starts timing op within scope. The returned func records the elapsed
// time and also returns it, so callers can log what they measured:
//
//	done := metrics.Time(metrics.CatalogLoad, "")
//	defer func() { debug.LogTiming("LoadCatalogs", done()) }()
func Time(op Op, scope string) func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		d := time.Since(start)
		Record(op, scope, d)
		return d
	}
}

// Record adds one measurement of op within scope.
func Record(op Op, scope string, d time.Duration) {
	if !enabled {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	k := key{op, scope}
	s := timings[k]
	if s == nil {
		s = &sample{}
		timings[k] = s
	}
	s.add(d)
}

// Hit counts a cache hit.
func Hit(cache string) { countCache(cache, true) }

// Miss counts a cache miss.
func Miss(cache string) { countCache(cache, false) }

func countCache(cache string, hit bool) {
	if !enabled {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	c := caches[cache]
	if c == nil {
		c = &cacheCount{}
		caches[cache] = c
	}
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

// Reset drops everything recorded so far.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	clear(timings)
	clear(caches)
}

// TimingStats summarizes one operation within one scope.
type TimingStats struct {
	Op      Op      `json:"op"`
	Scope   string  `json:"scope,omitempty"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MinMs   float64 `json:"min_ms"`
	MaxMs   float64 `json:"max_ms"`
}

// CacheStats summarizes one cache.
type CacheStats struct {
	Name    string  `json:"name"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Report is the JSON shape printed by dt --metrics.
type Report struct {
	Timings []TimingStats `json:"timings"`
	Caches  []CacheStats  `json:"caches"`
}

// Timing returns the stats for op within scope, or ok=false if nothing was
// recorded.
func (r Report) Timing(op Op, scope string) (TimingStats, bool) {
	for _, t := range r.Timings {
		if t.Op == op && t.Scope == scope {
			return t, true
		}
	}
	return TimingStats{}, false
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Snapshot collects everything recorded so far, ordered by operation and
// then scope.
func Snapshot() Report {
	mu.Lock()
	defer mu.Unlock()

	r := Report{
		Timings: make([]TimingStats, 0, len(timings)),
		Caches:  make([]CacheStats, 0, len(caches)),
	}
	for k, s := range timings {
		r.Timings = append(r.Timings, TimingStats{
			Op:      k.op,
			Scope:   k.scope,
			Count:   s.count,
			TotalMs: ms(s.total),
			AvgMs:   ms(s.total / time.Duration(s.count)),
			MinMs:   ms(s.lo),
			MaxMs:   ms(s.hi),
		})
	}
	sort.Slice(r.Timings, func(i, j int) bool {
		a, b := r.Timings[i], r.Timings[j]
		if a.Op != b.Op {
			return a.Op < b.Op
		}
		return a.Scope < b.Scope
	})

	for name, c := range caches {
		var rate float64
		if total := c.hits + c.misses; total > 0 {
			rate = float64(c.hits) / float64(total)
		}
		r.Caches = append(r.Caches, CacheStats{Name: name, Hits: c.hits, Misses: c.misses, HitRate: rate})
	}
	sort.Slice(r.Caches, func(i, j int) bool { return r.Caches[i].Name < r.Caches[j].Name })
	return r
}
