package steam

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"gaming-advisor/internal/models"
)

// appDetailsData mirrors the provider's appdetails data object. Requirement
// fields stay raw because the provider sends an empty array instead of an
// object when a platform has no requirements.
type appDetailsData struct {
	SteamAppID int    `json:"steam_appid"`
	Name       string `json:"name"`
	Genres     []struct {
		ID          string `json:"id"`
		Description string `json:"description"`
	} `json:"genres"`
	PriceOverview *struct {
		Final    int    `json:"final"`
		Currency string `json:"currency"`
	} `json:"price_overview"`
	Platforms         map[string]bool `json:"platforms"`
	PCRequirements    json.RawMessage `json:"pc_requirements"`
	MacRequirements   json.RawMessage `json:"mac_requirements"`
	LinuxRequirements json.RawMessage `json:"linux_requirements"`
	Recommendations   *struct {
		Total int `json:"total"`
	} `json:"recommendations"`
	ReleaseDate *struct {
		ComingSoon bool   `json:"coming_soon"`
		Date       string `json:"date"`
	} `json:"release_date"`
	Ratings map[string]struct {
		Rating string `json:"rating"`
	} `json:"ratings"`
}

type rawRequirement struct {
	Minimum     string `json:"minimum"`
	Recommended string `json:"recommended"`
}

var (
	htmlTagPattern   = regexp.MustCompile(`<[^>]*>`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
	digitOnlyPattern = regexp.MustCompile(`\d+`)
)

// stripHTML removes markup from requirement strings and collapses whitespace.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	text := htmlTagPattern.ReplaceAllString(s, " ")
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// extractAgeRating pulls a USK rating out of the ratings block. Anything
// outside the valid set maps to 0 (unrestricted).
func extractAgeRating(ratings map[string]struct {
	Rating string `json:"rating"`
}) int {
	usk, ok := ratings["usk"]
	if !ok {
		return 0
	}

	digits := digitOnlyPattern.FindString(usk.Rating)
	switch digits {
	case "6":
		return 6
	case "12":
		return 12
	case "16":
		return 16
	case "18":
		return 18
	default:
		return 0
	}
}

// extractRequirements collects per-platform minimum/recommended specs,
// skipping platforms that carry neither.
func extractRequirements(data *appDetailsData) map[string]models.SystemRequirement {
	sources := map[string]json.RawMessage{
		"pc":    data.PCRequirements,
		"mac":   data.MacRequirements,
		"linux": data.LinuxRequirements,
	}

	out := make(map[string]models.SystemRequirement)
	for platform, raw := range sources {
		if len(raw) == 0 {
			continue
		}

		var req rawRequirement
		if err := json.Unmarshal(raw, &req); err != nil {
			// empty-array placeholder, not an object
			continue
		}

		minimum := stripHTML(req.Minimum)
		recommended := stripHTML(req.Recommended)
		if minimum == "" && recommended == "" {
			continue
		}

		out[platform] = models.SystemRequirement{
			Minimum:     minimum,
			Recommended: recommended,
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

var releaseDateLayouts = []string{
	"2 Jan, 2006",
	"2 January, 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// parseReleaseDate converts provider date text to ISO form when one of the
// known layouts matches, otherwise returns the cleaned original text.
func parseReleaseDate(raw string) string {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, "\u00a0", " "))
	if cleaned == "" {
		return ""
	}

	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.Format("2006-01-02")
		}
	}

	return cleaned
}

// normalize maps the provider data object to a CatalogRecord.
func normalize(gameID string, data *appDetailsData) *models.CatalogRecord {
	record := &models.CatalogRecord{
		GameID:       gameID,
		Name:         data.Name,
		AgeRating:    extractAgeRating(data.Ratings),
		Requirements: extractRequirements(data),
	}

	for _, genre := range data.Genres {
		desc := strings.TrimSpace(genre.Description)
		if desc != "" {
			record.Genres = append(record.Genres, desc)
		}
	}

	if data.PriceOverview != nil {
		record.Price = float64(data.PriceOverview.Final) / 100
	}

	for platform, available := range data.Platforms {
		if available {
			record.Platforms = append(record.Platforms, platform)
		}
	}

	if data.Recommendations != nil {
		record.Recommendations = data.Recommendations.Total
	}

	if data.ReleaseDate != nil {
		record.ReleaseDate = parseReleaseDate(data.ReleaseDate.Date)
	}

	return record
}
