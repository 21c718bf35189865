// Package api exposes the recommendation engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"gaming-advisor/internal/common/logger"
	"gaming-advisor/internal/models"
)

// Recommender produces ranked suggestions for a user.
type Recommender interface {
	Recommend(ctx context.Context, userID string, limit int) ([]models.Recommendation, error)
}

// Handler serves the recommendation endpoints.
type Handler struct {
	engine Recommender
	log    logger.Logger
}

// NewHandler creates an HTTP handler around the engine.
func NewHandler(engine Recommender, log logger.Logger) *Handler {
	return &Handler{engine: engine, log: log}
}

type recommendationsResponse struct {
	UserID          string                  `json:"userId"`
	Recommendations []models.Recommendation `json:"recommendations"`
	Count           int                     `json:"count"`
}

// GetRecommendations handles GET /recommendations/{userId}. Engine
// degradation maps to an empty list, never a 5xx.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	recommendations, err := h.engine.Recommend(r.Context(), userID, limit)
	if err != nil {
		h.log.WithError(err).Warn("recommendation ranking degraded", map[string]interface{}{
			"user_id": userID,
		})
		recommendations = nil
	}
	if recommendations == nil {
		recommendations = []models.Recommendation{}
	}

	writeJSON(w, http.StatusOK, recommendationsResponse{
		UserID:          userID,
		Recommendations: recommendations,
		Count:           len(recommendations),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
