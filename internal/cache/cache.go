package cache

import (
	"log"
	"math"
	"sync"
	"time"
)

// DefaultMaxEntries bounds the cache when the caller passes 0.
const DefaultMaxEntries = 1000

// DefaultSweepInterval is how often the background sweeper scans for
// expired entries.
const DefaultSweepInterval = time.Minute

type entry struct {
	data      any
	timestamp time.Time
	expiresAt time.Time
}

// Stats is a snapshot of the cache counters. Hits, misses and evictions are
// cumulative for the life of the cache; Clear resets only the size.
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Size      int     `json:"size"`
	HitRate   float64 `json:"hit_rate"`
}

// Cache is a process-wide time-bounded key/value store sitting in front of
// database reads. It is explicitly constructed and injected; the owner is
// responsible for StartSweeper/Stop around the process lifecycle. Capacity
// eviction is FIFO by insertion age, not LRU.
type Cache struct {
	mu         sync.Mutex
	entries    map[Key]entry
	maxEntries int

	hits      int64
	misses    int64
	evictions int64

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		entries:    make(map[Key]entry),
		maxEntries: maxEntries,
		stop:       make(chan struct{}),
	}
}

// Get returns the live value under key. Expired entries are treated as
// absent, evicted on the spot, and counted as evictions. Every call counts
// as a hit or a miss.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		c.evictions++
		c.misses++
		return nil, false
	}

	c.hits++
	return e.data, true
}

// Set inserts or overwrites key. At capacity the oldest-inserted entry is
// evicted first.
func (c *Cache) Set(key Key, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}

	now := time.Now()
	c.entries[key] = entry{
		data:      value,
		timestamp: now,
		expiresAt: now.Add(ttl),
	}
}

func (c *Cache) evictOldestLocked() {
	var oldestKey Key
	var oldest time.Time
	first := true

	for k, e := range c.entries {
		if first || e.timestamp.Before(oldest) {
			oldestKey = k
			oldest = e.timestamp
			first = false
		}
	}

	if !first {
		delete(c.entries, oldestKey)
		c.evictions++
	}
}

func (c *Cache) Delete(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops every entry. Hit/miss counters survive so hit-rate reporting
// spans cache flushes.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]entry)
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var hitRate float64
	if total := c.hits + c.misses; total > 0 {
		hitRate = math.Round(float64(c.hits)/float64(total)*100*100) / 100
	}

	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.entries),
		HitRate:   hitRate,
	}
}

// StartSweeper launches the background goroutine that evicts expired
// entries on a fixed interval. Lazy eviction on Get alone would leave a
// key that is set and never read again resident forever.
func (c *Cache) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
}

// Stop shuts the sweeper down and waits for it to exit. Safe to call more
// than once and without a prior StartSweeper.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	if c.done != nil {
		<-c.done
	}
}

func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	swept := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			c.evictions++
			swept++
		}
	}

	if swept > 0 {
		log.Printf("cache: sweeper evicted %d expired entries, %d live", swept, len(c.entries))
	}
}
