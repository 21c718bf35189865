package recommend

import (
	"context"
	"sort"
	"sync"
	"time"

	"gaming-advisor/internal/catalog"
	"gaming-advisor/internal/common/config"
	"gaming-advisor/internal/common/logger"
	"gaming-advisor/internal/common/metrics"
	"gaming-advisor/internal/models"
)

// LibraryReader provides the library and catalog id reads the engine needs.
type LibraryReader interface {
	GetLibrary(ctx context.Context, userID string) ([]models.LibraryEntry, error)
	GetOwnedOrCompletedIDs(ctx context.Context, userID string) (map[string]struct{}, error)
	ListCatalogIDs(ctx context.Context) ([]string, error)
}

// CatalogSource resolves game metadata, normally the catalog cache.
type CatalogSource interface {
	Get(ctx context.Context, gameID string) (*models.CatalogRecord, catalog.Status, error)
}

// Engine produces ranked recommendations for a user.
type Engine struct {
	library     LibraryReader
	catalog     CatalogSource
	weights     Weights
	limit       int
	deadline    time.Duration
	concurrency int
	log         logger.Logger
}

// NewEngine wires a ranking engine from configuration.
func NewEngine(library LibraryReader, source CatalogSource, cfg config.RecommendConfig, log logger.Logger) *Engine {
	weights := Weights{
		Genre:    cfg.Weights.Genre,
		Age:      cfg.Weights.Age,
		Price:    cfg.Weights.Price,
		Platform: cfg.Weights.Platform,
	}
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}

	return &Engine{
		library:     library,
		catalog:     source,
		weights:     weights,
		limit:       cfg.DefaultLimit,
		deadline:    config.GetDuration(cfg.RequestDeadline),
		concurrency: cfg.FetchConcurrency,
		log:         log,
	}
}

type scored struct {
	rec        models.Recommendation
	popularity int
}

// Recommend ranks catalog candidates for userID and returns at most limit
// results. An unknown user gets popularity-only ranking, never an error.
// Unresolvable candidates are skipped; when the per-request deadline expires
// the results assembled so far are returned. Zero resolvable candidates
// yield an empty slice and a nil error.
func (e *Engine) Recommend(ctx context.Context, userID string, limit int) ([]models.Recommendation, error) {
	start := time.Now()
	defer func() {
		metrics.RecommendDuration.Observe(time.Since(start).Seconds())
	}()

	if limit <= 0 {
		limit = e.limit
	}

	if e.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.deadline)
		defer cancel()
	}

	entries, err := e.library.GetLibrary(ctx, userID)
	if err != nil {
		metrics.RecommendRequests.WithLabelValues("empty").Inc()
		return nil, err
	}

	excluded, err := e.library.GetOwnedOrCompletedIDs(ctx, userID)
	if err != nil {
		metrics.RecommendRequests.WithLabelValues("empty").Inc()
		return nil, err
	}

	catalogIDs, err := e.library.ListCatalogIDs(ctx)
	if err != nil {
		metrics.RecommendRequests.WithLabelValues("empty").Inc()
		return nil, err
	}

	libraryIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		libraryIDs = append(libraryIDs, entry.GameID)
	}

	// A failed library lookup just loses that title's contribution.
	libraryRecords := e.resolveRecords(ctx, libraryIDs)
	profile := BuildProfile(entries, libraryRecords)

	// Owned and completed titles are never recommended back; wishlist and
	// playing entries stay eligible.
	candidates := make([]string, 0, len(catalogIDs))
	for _, id := range catalogIDs {
		if _, ok := excluded[id]; ok {
			continue
		}
		candidates = append(candidates, id)
	}

	results := e.scoreCandidates(ctx, profile, candidates)

	sort.Slice(results, func(i, j int) bool {
		if results[i].rec.Score != results[j].rec.Score {
			return results[i].rec.Score > results[j].rec.Score
		}
		if results[i].popularity != results[j].popularity {
			return results[i].popularity > results[j].popularity
		}
		return results[i].rec.GameID < results[j].rec.GameID
	})

	if len(results) > limit {
		results = results[:limit]
	}

	recommendations := make([]models.Recommendation, 0, len(results))
	for _, s := range results {
		recommendations = append(recommendations, s.rec)
	}

	switch {
	case len(recommendations) == 0:
		metrics.RecommendRequests.WithLabelValues("empty").Inc()
	case ctx.Err() != nil:
		metrics.RecommendRequests.WithLabelValues("partial").Inc()
	default:
		metrics.RecommendRequests.WithLabelValues("complete").Inc()
	}

	return recommendations, nil
}

// resolveRecords fetches metadata for ids with bounded concurrency. Failed
// lookups are dropped from the result.
func (e *Engine) resolveRecords(ctx context.Context, ids []string) map[string]*models.CatalogRecord {
	records := make(map[string]*models.CatalogRecord, len(ids))
	var mu sync.Mutex

	e.forEachBounded(ctx, ids, func(id string) {
		record, _, err := e.catalog.Get(ctx, id)
		if err != nil {
			e.log.Debug("skipping unresolvable title", map[string]interface{}{
				"game_id": id,
				"error":   err.Error(),
			})
			return
		}

		mu.Lock()
		records[id] = record
		mu.Unlock()
	})

	return records
}

// scoreCandidates resolves and scores candidates with bounded concurrency,
// stopping early when ctx expires.
func (e *Engine) scoreCandidates(ctx context.Context, profile *UserProfile, candidates []string) []scored {
	results := make([]scored, 0, len(candidates))
	var mu sync.Mutex

	e.forEachBounded(ctx, candidates, func(id string) {
		record, _, err := e.catalog.Get(ctx, id)
		if err != nil {
			return
		}

		score, reasons := Score(e.weights, profile, record)
		mu.Lock()
		results = append(results, scored{
			rec: models.Recommendation{
				GameID:  record.GameID,
				Name:    record.Name,
				Score:   score,
				Reasons: reasons,
			},
			popularity: record.Recommendations,
		})
		mu.Unlock()
	})

	return results
}

// forEachBounded runs fn over ids under a worker pool sized by the
// configured fetch concurrency. Workers drain remaining work without calling
// fn once ctx is done, so a deadline yields best-effort partial output.
func (e *Engine) forEachBounded(ctx context.Context, ids []string, fn func(id string)) {
	workers := e.concurrency
	if workers <= 0 {
		workers = 1
	}
	if workers > len(ids) {
		workers = len(ids)
	}
	if workers == 0 {
		return
	}

	work := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range work {
				if ctx.Err() != nil {
					continue
				}
				fn(id)
			}
		}()
	}

	for _, id := range ids {
		work <- id
	}
	close(work)

	wg.Wait()
}
