package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaming-advisor/internal/common/database"
	"gaming-advisor/internal/common/errors"
	"gaming-advisor/internal/common/logger"
	"gaming-advisor/internal/models"
)

// ==========================
// Catalog Cache Tests
// ==========================

type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	records map[string]*models.CatalogRecord
	err     error
	gate    chan struct{} // when set, Fetch blocks until the gate closes
}

func (f *fakeFetcher) Fetch(ctx context.Context, gameID string) (*models.CatalogRecord, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.records[gameID], nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func record(id, name string) *models.CatalogRecord {
	return &models.CatalogRecord{GameID: id, Name: name, Genres: []string{"RPG"}}
}

func newTestCache(fetcher Fetcher, ttl time.Duration) *Cache {
	return NewCache(fetcher, ttl, nil, logger.NewNoOpLogger())
}

func TestGet_MissFetchesAndCaches(t *testing.T) {
	fetcher := &fakeFetcher{records: map[string]*models.CatalogRecord{"10": record("10", "Witcher 3")}}
	cache := newTestCache(fetcher, time.Minute)

	got, status, err := cache.Get(context.Background(), "10")
	require.NoError(t, err)
	assert.Equal(t, StatusMiss, status)
	assert.Equal(t, "Witcher 3", got.Name)

	got, status, err = cache.Get(context.Background(), "10")
	require.NoError(t, err)
	assert.Equal(t, StatusFresh, status)
	assert.Equal(t, "Witcher 3", got.Name)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestGet_ConcurrentMissesShareOneFetch(t *testing.T) {
	gate := make(chan struct{})
	fetcher := &fakeFetcher{
		records: map[string]*models.CatalogRecord{"10": record("10", "Witcher 3")},
		gate:    gate,
	}
	cache := newTestCache(fetcher, time.Minute)

	const waiters = 20
	var wg sync.WaitGroup
	results := make([]*models.CatalogRecord, waiters)
	errs := make([]error, waiters)

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = cache.Get(context.Background(), "10")
		}(i)
	}

	// let all goroutines pile onto the in-flight fetch
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, fetcher.callCount())
	for i := 0; i < waiters; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
}

func TestGet_AllWaitersReceiveSameError(t *testing.T) {
	gate := make(chan struct{})
	fetcher := &fakeFetcher{
		err:  errors.NewProviderUnavailableError("down"),
		gate: gate,
	}
	cache := newTestCache(fetcher, time.Minute)

	const waiters = 5
	var wg sync.WaitGroup
	errs := make([]error, waiters)

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = cache.Get(context.Background(), "10")
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, fetcher.callCount())
	for i := 0; i < waiters; i++ {
		require.Error(t, errs[i])
		assert.Equal(t, errors.ErrCodeProviderUnavailable, errors.CodeOf(errs[i]))
	}
	assert.Equal(t, 0, cache.Len())
}

func TestGet_StaleServedWhileSingleRefreshRuns(t *testing.T) {
	fetcher := &fakeFetcher{records: map[string]*models.CatalogRecord{"10": record("10", "Old Name")}}
	cache := newTestCache(fetcher, time.Minute)

	_, _, err := cache.Get(context.Background(), "10")
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.callCount())

	// age the entry past its TTL and change what the provider returns
	cache.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	fetcher.mu.Lock()
	fetcher.records["10"] = record("10", "New Name")
	gate := make(chan struct{})
	fetcher.gate = gate
	fetcher.mu.Unlock()

	// both stale reads are served immediately and coalesce into one refresh
	got, status, err := cache.Get(context.Background(), "10")
	require.NoError(t, err)
	assert.Equal(t, StatusStale, status)
	assert.Equal(t, "Old Name", got.Name)

	got, status, err = cache.Get(context.Background(), "10")
	require.NoError(t, err)
	assert.Equal(t, StatusStale, status)
	assert.Equal(t, "Old Name", got.Name)

	close(gate)
	require.Eventually(t, func() bool {
		got, status, err := cache.Get(context.Background(), "10")
		return err == nil && status == StatusFresh && got.Name == "New Name"
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, fetcher.callCount())
}

func TestGet_FailedRefreshKeepsStaleServable(t *testing.T) {
	fetcher := &fakeFetcher{records: map[string]*models.CatalogRecord{"10": record("10", "Witcher 3")}}
	cache := newTestCache(fetcher, time.Minute)

	_, _, err := cache.Get(context.Background(), "10")
	require.NoError(t, err)

	cache.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	fetcher.mu.Lock()
	fetcher.err = errors.NewProviderUnavailableError("down")
	fetcher.mu.Unlock()

	got, status, err := cache.Get(context.Background(), "10")
	require.NoError(t, err)
	assert.Equal(t, StatusStale, status)
	assert.Equal(t, "Witcher 3", got.Name)

	// refresh failed, the stale record is still there
	require.Eventually(t, func() bool { return fetcher.callCount() == 2 }, time.Second, 10*time.Millisecond)
	got, status, err = cache.Get(context.Background(), "10")
	require.NoError(t, err)
	assert.Equal(t, StatusStale, status)
	assert.Equal(t, "Witcher 3", got.Name)
}

func TestGet_CancelledWaiterDoesNotAbortFetch(t *testing.T) {
	gate := make(chan struct{})
	fetcher := &fakeFetcher{
		records: map[string]*models.CatalogRecord{"10": record("10", "Witcher 3")},
		gate:    gate,
	}
	cache := newTestCache(fetcher, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := cache.Get(ctx, "10")
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)

	// the detached fetch still populates the cache
	close(gate)
	require.Eventually(t, func() bool { return cache.Len() == 1 }, time.Second, 10*time.Millisecond)

	got, status, err := cache.Get(context.Background(), "10")
	require.NoError(t, err)
	assert.Equal(t, StatusFresh, status)
	assert.Equal(t, "Witcher 3", got.Name)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestGet_IndependentKeysFetchIndependently(t *testing.T) {
	fetcher := &fakeFetcher{records: map[string]*models.CatalogRecord{
		"10": record("10", "A"),
		"20": record("20", "B"),
	}}
	cache := newTestCache(fetcher, time.Minute)

	_, _, err := cache.Get(context.Background(), "10")
	require.NoError(t, err)
	_, _, err = cache.Get(context.Background(), "20")
	require.NoError(t, err)

	assert.Equal(t, 2, fetcher.callCount())
	assert.Equal(t, 2, cache.Len())
}

// ==========================
// Redis Mirror Tests
// ==========================

func newMirror(t *testing.T) (*database.RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return &database.RedisClient{Client: client}, mr
}

func TestMirror_WriteThroughOnFetch(t *testing.T) {
	mirror, mr := newMirror(t)
	fetcher := &fakeFetcher{records: map[string]*models.CatalogRecord{"10": record("10", "Witcher 3")}}
	cache := NewCache(fetcher, time.Minute, mirror, logger.NewNoOpLogger())

	_, _, err := cache.Get(context.Background(), "10")
	require.NoError(t, err)

	raw, err := mr.Get("catalog:10")
	require.NoError(t, err)
	assert.Contains(t, raw, "Witcher 3")
}

func TestMirror_ColdMissServedFromRedis(t *testing.T) {
	mirror, _ := newMirror(t)
	fetcher := &fakeFetcher{records: map[string]*models.CatalogRecord{"10": record("10", "Witcher 3")}}

	warm := NewCache(fetcher, time.Minute, mirror, logger.NewNoOpLogger())
	_, _, err := warm.Get(context.Background(), "10")
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.callCount())

	// simulated restart: new in-memory cache over the same mirror
	cold := NewCache(fetcher, time.Minute, mirror, logger.NewNoOpLogger())
	got, _, err := cold.Get(context.Background(), "10")
	require.NoError(t, err)
	assert.Equal(t, "Witcher 3", got.Name)
	assert.Equal(t, 1, fetcher.callCount(), "mirror hit must not reach the provider")
}

func TestMirror_MalformedEntryFallsBackToProvider(t *testing.T) {
	mirror, mr := newMirror(t)
	require.NoError(t, mr.Set("catalog:10", "not json"))

	fetcher := &fakeFetcher{records: map[string]*models.CatalogRecord{"10": record("10", "Witcher 3")}}
	cache := NewCache(fetcher, time.Minute, mirror, logger.NewNoOpLogger())

	got, _, err := cache.Get(context.Background(), "10")
	require.NoError(t, err)
	assert.Equal(t, "Witcher 3", got.Name)
	assert.Equal(t, 1, fetcher.callCount())
}
