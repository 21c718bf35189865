// Package models holds the shared domain types.
package models

// SystemRequirement describes minimum and recommended specs for one platform.
type SystemRequirement struct {
	Minimum     string `json:"minimum,omitempty"`
	Recommended string `json:"recommended,omitempty"`
}

// CatalogRecord is the normalized catalog metadata for one game.
type CatalogRecord struct {
	GameID          string                       `json:"gameId"`
	Name            string                       `json:"name"`
	Genres          []string                     `json:"genres"`
	AgeRating       int                          `json:"ageRating"` // USK: 0, 6, 12, 16 or 18
	Price           float64                      `json:"price"`     // currency units, 0 for free or unpriced
	Platforms       []string                     `json:"platforms"`
	Requirements    map[string]SystemRequirement `json:"requirements,omitempty"`
	Recommendations int                          `json:"recommendations"` // provider popularity signal
	ReleaseDate     string                       `json:"releaseDate,omitempty"`
}

// HasGenre reports whether the record carries the given genre.
func (r *CatalogRecord) HasGenre(genre string) bool {
	for _, g := range r.Genres {
		if g == genre {
			return true
		}
	}
	return false
}

// Recommendation is one ranked suggestion returned to the caller.
type Recommendation struct {
	GameID  string   `json:"gameId"`
	Name    string   `json:"name"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}
