package recommend

import (
	"fmt"
	"sort"
	"strings"

	"gaming-advisor/internal/models"
)

// Weights holds the relative weight of each scoring factor. Callers are
// expected to pass weights summing to 1 so scores stay in [0, 1].
type Weights struct {
	Genre    float64
	Age      float64
	Price    float64
	Platform float64
}

// DefaultWeights returns the standard factor weighting.
func DefaultWeights() Weights {
	return Weights{Genre: 0.50, Age: 0.20, Price: 0.15, Platform: 0.15}
}

// Score rates a candidate against a profile. Pure and deterministic: same
// inputs, same output. Returns a score in [0, 1] and one human-readable
// reason per contributing factor, in factor order.
func Score(w Weights, profile *UserProfile, candidate *models.CatalogRecord) (float64, []string) {
	var score float64
	var reasons []string

	// 1. Genre overlap
	var genreFit float64
	var matched []string
	for _, genre := range candidate.Genres {
		if weight, ok := profile.GenreWeights[genre]; ok && weight > 0 {
			genreFit += weight
			matched = append(matched, genre)
		}
	}
	if genreFit > 0 {
		sort.Strings(matched)
		score += w.Genre * genreFit
		reasons = append(reasons, fmt.Sprintf("genre overlap: %s", strings.Join(matched, ", ")))
	}

	// 2. Age compatibility: hard ceiling, but the candidate is still scored.
	if candidate.AgeRating <= profile.PreferredAgeRating {
		score += w.Age
		reasons = append(reasons, fmt.Sprintf("age rating %d within preferred %d", candidate.AgeRating, profile.PreferredAgeRating))
	}

	// 3. Price fit
	if priceFit := priceFit(profile.PriceRange, candidate.Price); priceFit > 0 {
		score += w.Price * priceFit
		reasons = append(reasons, fmt.Sprintf("price %.2f fits your budget", candidate.Price))
	}

	// 4. Platform overlap
	var platforms []string
	for _, platform := range candidate.Platforms {
		if _, ok := profile.Platforms[platform]; ok {
			platforms = append(platforms, platform)
		}
	}
	if len(platforms) > 0 {
		sort.Strings(platforms)
		score += w.Platform
		reasons = append(reasons, fmt.Sprintf("available on %s", strings.Join(platforms, ", ")))
	}

	if score > 1 {
		score = 1
	}
	return score, reasons
}

// priceFit is a triangular fit: full credit inside [Min, Max], linear decay
// to zero at Min/2 below and 2*Max above. No price data means no credit.
func priceFit(r PriceRange, price float64) float64 {
	if !r.Valid {
		return 0
	}

	switch {
	case price >= r.Min && price <= r.Max:
		return 1
	case price < r.Min:
		floor := r.Min / 2
		if price <= floor {
			return 0
		}
		return (price - floor) / (r.Min - floor)
	default:
		if r.Max == 0 {
			return 0
		}
		ceiling := 2 * r.Max
		if price >= ceiling {
			return 0
		}
		return (ceiling - price) / (ceiling - r.Max)
	}
}
