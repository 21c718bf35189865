// Package catalog keeps a locally cached, TTL-refreshed mirror of provider
// metadata. The cache is the only cross-request mutable state in the service.
package catalog

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"gaming-advisor/internal/common/database"
	"gaming-advisor/internal/common/logger"
	"gaming-advisor/internal/common/metrics"
	"gaming-advisor/internal/models"
)

// Status describes how a lookup was satisfied.
type Status int

const (
	StatusFresh Status = iota
	StatusStale
	StatusMiss
)

func (s Status) String() string {
	switch s {
	case StatusFresh:
		return "fresh"
	case StatusStale:
		return "stale"
	default:
		return "miss"
	}
}

// Fetcher retrieves metadata from the provider.
type Fetcher interface {
	Fetch(ctx context.Context, gameID string) (*models.CatalogRecord, error)
}

type entry struct {
	record    *models.CatalogRecord
	fetchedAt time.Time
}

// inflight tracks the single outstanding fetch for a key. All waiters block
// on done and read the same result.
type inflight struct {
	done   chan struct{}
	record *models.CatalogRecord
	err    error
}

// Cache is a TTL cache over provider metadata with per-key fetch coalescing.
// Entry count is unbounded; invalidation is TTL-only.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	inflight map[string]*inflight

	fetcher Fetcher
	ttl     time.Duration
	mirror  *database.RedisClient // optional, nil disables the mirror
	log     logger.Logger

	now func() time.Time
}

// NewCache creates a cache backed by the given fetcher. mirror may be nil.
func NewCache(fetcher Fetcher, ttl time.Duration, mirror *database.RedisClient, log logger.Logger) *Cache {
	return &Cache{
		entries:  make(map[string]*entry),
		inflight: make(map[string]*inflight),
		fetcher:  fetcher,
		ttl:      ttl,
		mirror:   mirror,
		log:      log,
		now:      time.Now,
	}
}

// Get returns the cached record for gameID, fetching on a miss. A stale entry
// is returned immediately while exactly one background refresh runs; if the
// refresh fails the stale entry stays servable. Concurrent callers for the
// same key share one in-flight fetch. A caller whose context is cancelled
// gets ctx.Err() while the fetch completes detached and populates the cache.
func (c *Cache) Get(ctx context.Context, gameID string) (*models.CatalogRecord, Status, error) {
	c.mu.Lock()

	if e, ok := c.entries[gameID]; ok {
		if c.now().Sub(e.fetchedAt) < c.ttl {
			c.mu.Unlock()
			metrics.CacheLookups.WithLabelValues("fresh").Inc()
			return e.record, StatusFresh, nil
		}

		// Stale: serve immediately, refresh in the background.
		c.startFetchLocked(gameID, false)
		record := e.record
		c.mu.Unlock()
		metrics.CacheLookups.WithLabelValues("stale").Inc()
		return record, StatusStale, nil
	}

	fl := c.startFetchLocked(gameID, true)
	c.mu.Unlock()
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	select {
	case <-fl.done:
		if fl.err != nil {
			return nil, StatusMiss, fl.err
		}
		return fl.record, StatusMiss, nil
	case <-ctx.Done():
		return nil, StatusMiss, ctx.Err()
	}
}

// startFetchLocked joins the in-flight fetch for gameID or starts a new one.
// Caller must hold c.mu. consultMirror is set for cold misses only; stale
// refreshes always go to the provider.
func (c *Cache) startFetchLocked(gameID string, consultMirror bool) *inflight {
	if fl, ok := c.inflight[gameID]; ok {
		return fl
	}

	fl := &inflight{done: make(chan struct{})}
	c.inflight[gameID] = fl

	go c.fetch(gameID, fl, consultMirror)
	return fl
}

// fetch runs detached from any caller context so a cancelled waiter never
// aborts cache population.
func (c *Cache) fetch(gameID string, fl *inflight, consultMirror bool) {
	ctx := context.Background()

	var record *models.CatalogRecord
	var err error

	if consultMirror {
		record = c.mirrorGet(ctx, gameID)
	}

	if record == nil {
		record, err = c.fetcher.Fetch(ctx, gameID)
		if err == nil {
			c.mirrorSet(ctx, gameID, record)
		}
	}

	c.mu.Lock()
	fl.record = record
	fl.err = err
	if err == nil {
		c.entries[gameID] = &entry{record: record, fetchedAt: c.now()}
	}
	delete(c.inflight, gameID)
	c.mu.Unlock()

	close(fl.done)
}

func mirrorKey(gameID string) string {
	return "catalog:" + gameID
}

// mirrorGet consults the Redis mirror. Any failure is treated as a miss.
func (c *Cache) mirrorGet(ctx context.Context, gameID string) *models.CatalogRecord {
	if c.mirror == nil {
		return nil
	}

	raw, err := c.mirror.Get(ctx, mirrorKey(gameID))
	if err != nil {
		return nil
	}

	var record models.CatalogRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		c.log.Warn("discarding malformed mirror entry", map[string]interface{}{
			"game_id": gameID,
			"error":   err.Error(),
		})
		return nil
	}

	return &record
}

// mirrorSet writes through to the Redis mirror. Failures are logged and
// ignored; the mirror is never load-bearing.
func (c *Cache) mirrorSet(ctx context.Context, gameID string, record *models.CatalogRecord) {
	if c.mirror == nil {
		return
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return
	}

	if err := c.mirror.Set(ctx, mirrorKey(gameID), string(raw), c.ttl); err != nil {
		c.log.Warn("mirror write failed", map[string]interface{}{
			"game_id": gameID,
			"error":   err.Error(),
		})
	}
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
