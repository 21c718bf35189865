package models

// Library entry statuses. Owned and completed titles are excluded from
// recommendation candidates; wishlist and playing titles stay eligible.
const (
	StatusOwned     = "owned"
	StatusWishlist  = "wishlist"
	StatusPlaying   = "playing"
	StatusCompleted = "completed"
)

// LibraryEntry is one row of a user's game library.
type LibraryEntry struct {
	GameID        string  `json:"gameId"`
	Status        string  `json:"status"`
	Rating        *int    `json:"rating,omitempty"` // 0-10, nil when unrated
	PlaytimeHours float64 `json:"playtimeHours"`
}

// IsValidStatus reports whether s is one of the known library statuses.
func IsValidStatus(s string) bool {
	switch s {
	case StatusOwned, StatusWishlist, StatusPlaying, StatusCompleted:
		return true
	}
	return false
}
