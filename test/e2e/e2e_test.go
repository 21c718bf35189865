package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaming-advisor/internal/api"
	"gaming-advisor/internal/catalog"
	"gaming-advisor/internal/common/config"
	"gaming-advisor/internal/common/database"
	"gaming-advisor/internal/common/logger"
	"gaming-advisor/internal/library"
	"gaming-advisor/internal/models"
	"gaming-advisor/internal/recommend"
	"gaming-advisor/internal/steam"
)

// ==========================
// Full-Stack E2E Test
// ==========================

func appDetails(name, genres string, ageRating, priceCents, popularity int) string {
	return fmt.Sprintf(`{
		"name": %q,
		"genres": [%s],
		"price_overview": {"final": %d},
		"platforms": {"windows": true},
		"recommendations": {"total": %d},
		"release_date": {"coming_soon": false, "date": "10 Dec, 2020"},
		"ratings": {"usk": {"rating": "%d"}}
	}`, name, genres, priceCents, popularity, ageRating)
}

func genre(desc string) string {
	return fmt.Sprintf(`{"id": "1", "description": %q}`, desc)
}

func newProvider(t *testing.T) *httptest.Server {
	t.Helper()

	payloads := map[string]string{
		"witcher3":      appDetails("The Witcher 3", genre("RPG")+","+genre("Open World"), 18, 2999, 500000),
		"cyberpunk2077": appDetails("Cyberpunk 2077", genre("RPG")+","+genre("Open World"), 18, 2999, 400000),
		"stardew":       appDetails("Stardew Valley", genre("Simulation"), 0, 1399, 300000),
		"fifa":          appDetails("FIFA 24", genre("Sports"), 0, 6999, 200000),
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("appids")
		data, ok := payloads[id]
		if !ok {
			fmt.Fprintf(w, `{%q: {"success": false}}`, id)
			return
		}
		fmt.Fprintf(w, `{%q: {"success": true, "data": %s}}`, id, data)
	}))
}

func TestRecommendationsEndToEnd(t *testing.T) {
	provider := newProvider(t)
	defer provider.Close()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT game_id, status, rating, playtime_hours").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"game_id", "status", "rating", "playtime_hours"}).
			AddRow("witcher3", "owned", 9, 150.0))

	mock.ExpectQuery("status IN \\('owned', 'completed'\\)").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"game_id"}).AddRow("witcher3"))

	mock.ExpectQuery("FROM catalog_games").
		WillReturnRows(sqlmock.NewRows([]string{"game_id"}).
			AddRow("cyberpunk2077").
			AddRow("fifa").
			AddRow("stardew").
			AddRow("witcher3"))

	mr := miniredis.RunT(t)
	mirror := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}

	log := logger.NewNoOpLogger()
	steamClient := steam.NewClient(config.SteamConfig{
		BaseURL:       provider.URL,
		APIBaseURL:    provider.URL,
		Timeout:       2000,
		MaxRetries:    3,
		BackoffBase:   1,
		BackoffFactor: 2,
	}, log)

	cache := catalog.NewCache(steamClient, time.Minute, mirror, log)
	repo := library.NewRepository(&database.PostgresClient{DB: db})
	engine := recommend.NewEngine(repo, cache, config.RecommendConfig{
		DefaultLimit:     10,
		RequestDeadline:  5000,
		FetchConcurrency: 4,
	}, log)

	handler := api.NewHandler(engine, log)
	server := api.NewServer(config.ServerConfig{Port: 0}, handler, nil, log)

	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/recommendations/user-1")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		UserID          string                  `json:"userId"`
		Recommendations []models.Recommendation `json:"recommendations"`
		Count           int                     `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, "user-1", body.UserID)
	require.Equal(t, 3, body.Count)

	// owned title never comes back
	for _, rec := range body.Recommendations {
		assert.NotEqual(t, "witcher3", rec.GameID)
	}

	// shared genres, matching price band and platform put Cyberpunk on top
	first := body.Recommendations[0]
	assert.Equal(t, "cyberpunk2077", first.GameID)
	assert.Equal(t, "Cyberpunk 2077", first.Name)
	require.NotEmpty(t, first.Reasons)
	assert.Contains(t, first.Reasons[0], "genre overlap")

	for _, rec := range body.Recommendations {
		assert.GreaterOrEqual(t, rec.Score, 0.0)
		assert.LessOrEqual(t, rec.Score, 1.0)
	}

	// successful fetches were mirrored to redis
	raw, err := mr.Get("catalog:cyberpunk2077")
	require.NoError(t, err)
	assert.Contains(t, raw, "Cyberpunk 2077")

	assert.NoError(t, mock.ExpectationsWereMet())
}
