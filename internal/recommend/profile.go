// Package recommend builds user taste profiles and ranks catalog candidates
// against them.
package recommend

import (
	"gaming-advisor/internal/models"
)

// noRestrictionAge is assumed when a library resolves no titles.
const noRestrictionAge = 18

// PriceRange is the observed price band of a user's library. Valid is false
// when no titles resolved, in which case price never contributes to a score.
type PriceRange struct {
	Min   float64
	Max   float64
	Valid bool
}

// UserProfile is the derived taste profile. It is rebuilt per request and
// never persisted.
type UserProfile struct {
	GenreWeights       map[string]float64 // normalized, sums to 1
	PreferredAgeRating int
	PriceRange         PriceRange
	Platforms          map[string]struct{}
}

// statusWeight reflects how strongly a library entry signals taste.
func statusWeight(status string) float64 {
	switch status {
	case models.StatusCompleted:
		return 1.1
	case models.StatusOwned, models.StatusPlaying:
		return 1.0
	case models.StatusWishlist:
		return 0.6
	default:
		return 0
	}
}

// ratingFactor scales a signal by the user's own rating, with a neutral
// factor for unrated titles.
func ratingFactor(rating *int) float64 {
	if rating == nil {
		return 0.7
	}
	return float64(*rating) / 10
}

// BuildProfile derives a taste profile from library entries and their
// resolved catalog records. Pure given its inputs. Entries without a resolved
// record contribute nothing.
func BuildProfile(entries []models.LibraryEntry, records map[string]*models.CatalogRecord) *UserProfile {
	profile := &UserProfile{
		GenreWeights: make(map[string]float64),
		Platforms:    make(map[string]struct{}),
	}

	resolved := 0
	maxAge := 0

	for _, e := range entries {
		record, ok := records[e.GameID]
		if !ok || record == nil {
			continue
		}
		resolved++

		signal := statusWeight(e.Status) * ratingFactor(e.Rating)
		for _, genre := range record.Genres {
			profile.GenreWeights[genre] += signal
		}

		if record.AgeRating > maxAge {
			maxAge = record.AgeRating
		}

		if !profile.PriceRange.Valid {
			profile.PriceRange = PriceRange{Min: record.Price, Max: record.Price, Valid: true}
		} else {
			if record.Price < profile.PriceRange.Min {
				profile.PriceRange.Min = record.Price
			}
			if record.Price > profile.PriceRange.Max {
				profile.PriceRange.Max = record.Price
			}
		}

		for _, platform := range record.Platforms {
			profile.Platforms[platform] = struct{}{}
		}
	}

	if resolved == 0 {
		profile.PreferredAgeRating = noRestrictionAge
		return profile
	}
	profile.PreferredAgeRating = maxAge

	// Normalize genre weights to sum to 1.
	var total float64
	for _, w := range profile.GenreWeights {
		total += w
	}
	if total > 0 {
		for genre := range profile.GenreWeights {
			profile.GenreWeights[genre] /= total
		}
	}

	return profile
}
