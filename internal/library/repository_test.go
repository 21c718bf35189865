package library

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaming-advisor/internal/common/database"
	"gaming-advisor/internal/common/errors"
	"gaming-advisor/internal/models"
)

// ==========================
// Library Repository Tests
// ==========================

func newTestRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(&database.PostgresClient{DB: db}), mock
}

func TestGetLibrary_ReturnsEntries(t *testing.T) {
	repo, mock := newTestRepository(t)

	rows := sqlmock.NewRows([]string{"game_id", "status", "rating", "playtime_hours"}).
		AddRow("10", "owned", 9, 120.5).
		AddRow("20", "wishlist", nil, 0.0)

	mock.ExpectQuery("SELECT game_id, status, rating, playtime_hours").
		WithArgs("user-1").
		WillReturnRows(rows)

	entries, err := repo.GetLibrary(context.Background(), "user-1")

	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "10", entries[0].GameID)
	assert.Equal(t, models.StatusOwned, entries[0].Status)
	require.NotNil(t, entries[0].Rating)
	assert.Equal(t, 9, *entries[0].Rating)
	assert.Equal(t, 120.5, entries[0].PlaytimeHours)

	assert.Equal(t, models.StatusWishlist, entries[1].Status)
	assert.Nil(t, entries[1].Rating)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLibrary_UnknownUserReturnsEmptySlice(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery("SELECT game_id, status, rating, playtime_hours").
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"game_id", "status", "rating", "playtime_hours"}))

	entries, err := repo.GetLibrary(context.Background(), "nobody")

	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestGetLibrary_QueryErrorWrapped(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery("SELECT game_id, status, rating, playtime_hours").
		WithArgs("user-1").
		WillReturnError(assert.AnError)

	_, err := repo.GetLibrary(context.Background(), "user-1")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeQueryExecutionFailed, errors.CodeOf(err))
	assert.True(t, errors.IsRetryable(err))
}

func TestGetOwnedOrCompletedIDs(t *testing.T) {
	repo, mock := newTestRepository(t)

	rows := sqlmock.NewRows([]string{"game_id"}).
		AddRow("10").
		AddRow("30")

	mock.ExpectQuery("status IN \\('owned', 'completed'\\)").
		WithArgs("user-1").
		WillReturnRows(rows)

	ids, err := repo.GetOwnedOrCompletedIDs(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, "10")
	assert.Contains(t, ids, "30")
}

func TestListCatalogIDs(t *testing.T) {
	repo, mock := newTestRepository(t)

	rows := sqlmock.NewRows([]string{"game_id"}).
		AddRow("10").
		AddRow("20").
		AddRow("30")

	mock.ExpectQuery("FROM catalog_games").WillReturnRows(rows)

	ids, err := repo.ListCatalogIDs(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"10", "20", "30"}, ids)
}
