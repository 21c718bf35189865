// Package library reads user game libraries and the locally mirrored catalog
// id set from Postgres. The recommendation engine never writes through it.
package library

import (
	"context"
	"database/sql"

	"gaming-advisor/internal/common/database"
	"gaming-advisor/internal/common/errors"
	"gaming-advisor/internal/models"
)

// Repository provides read access to library and catalog tables.
type Repository struct {
	db *database.PostgresClient
}

// NewRepository creates a repository over the given Postgres client.
func NewRepository(db *database.PostgresClient) *Repository {
	return &Repository{db: db}
}

const getLibraryQuery = `
	SELECT game_id, status, rating, playtime_hours
	FROM user_library
	WHERE user_id = $1
	ORDER BY game_id`

// GetLibrary returns all library entries for a user. Unknown users get an
// empty slice, not an error.
func (r *Repository) GetLibrary(ctx context.Context, userID string) ([]models.LibraryEntry, error) {
	rows, err := r.db.Query(ctx, getLibraryQuery, userID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(getLibraryQuery, err)
	}
	defer rows.Close()

	entries := []models.LibraryEntry{}
	for rows.Next() {
		var e models.LibraryEntry
		var rating sql.NullInt64

		if err := rows.Scan(&e.GameID, &e.Status, &rating, &e.PlaytimeHours); err != nil {
			return nil, errors.NewQueryExecutionFailedError(getLibraryQuery, err)
		}

		if rating.Valid {
			v := int(rating.Int64)
			e.Rating = &v
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError(getLibraryQuery, err)
	}

	return entries, nil
}

const getOwnedOrCompletedQuery = `
	SELECT game_id
	FROM user_library
	WHERE user_id = $1 AND status IN ('owned', 'completed')`

// GetOwnedOrCompletedIDs returns the set of game ids a user already owns or
// has completed. These are never recommended back.
func (r *Repository) GetOwnedOrCompletedIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	rows, err := r.db.Query(ctx, getOwnedOrCompletedQuery, userID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(getOwnedOrCompletedQuery, err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewQueryExecutionFailedError(getOwnedOrCompletedQuery, err)
		}
		ids[id] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError(getOwnedOrCompletedQuery, err)
	}

	return ids, nil
}

const listCatalogIDsQuery = `
	SELECT game_id
	FROM catalog_games
	ORDER BY game_id`

// ListCatalogIDs returns the locally mirrored catalog id set. This defines
// the candidate universe for ranking.
func (r *Repository) ListCatalogIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, listCatalogIDsQuery)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(listCatalogIDsQuery, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewQueryExecutionFailedError(listCatalogIDsQuery, err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError(listCatalogIDsQuery, err)
	}

	return ids, nil
}
