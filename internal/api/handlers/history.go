package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hoanghai1803/sprout/internal/models"
)

// GetHistory handles GET /api/history.
func GetHistory(store Store, window int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := parseLimit(r, window, 100)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		entries, err := store.RecentHistory(r.Context(), limit)
		if err != nil {
			slog.Error("failed to read history", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to read history")
			return
		}
		if entries == nil {
			entries = []models.HistoryEntry{}
		}

		writeJSON(w, http.StatusOK, entries)
	}
}
