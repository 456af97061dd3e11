package handlers

import (
	"context"
	"net/http"
	"strconv"

	"studybuddy-backend/internal/models"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

type leaderboardReader interface {
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

type LeaderboardHandler struct {
	profiles leaderboardReader
}

func NewLeaderboardHandler(profiles leaderboardReader) *LeaderboardHandler {
	return &LeaderboardHandler{profiles: profiles}
}

func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	entries, err := h.profiles.Leaderboard(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch leaderboard", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries, "limit": limit})
}
