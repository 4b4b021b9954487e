package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hoanghai1803/sprout/internal/models"
)

// GetTitleBank handles GET /api/title-bank.
func GetTitleBank(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		titles, err := store.ListBankTitles(r.Context())
		if err != nil {
			slog.Error("failed to list title bank", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to list title bank")
			return
		}
		if titles == nil {
			titles = []models.BankTitle{}
		}

		writeJSON(w, http.StatusOK, titles)
	}
}

// AddTitleBank handles POST /api/title-bank. The body is
// {"titles": ["..."]}; blank entries are skipped and duplicates are
// ignored by the store.
func AddTitleBank(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Titles []string `json:"titles"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		var ids []int64
		for _, t := range body.Titles {
			if strings.TrimSpace(t) == "" {
				continue
			}
			id, err := store.AddBankTitle(r.Context(), t, models.BankSourceManual)
			if err != nil {
				slog.Error("failed to add bank title", "title", t, "error", err)
				writeError(w, http.StatusInternalServerError, "Failed to add title")
				return
			}
			ids = append(ids, id)
		}

		if len(ids) == 0 {
			writeError(w, http.StatusBadRequest, "titles must contain at least one non-empty title")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{"added": len(ids), "ids": ids})
	}
}
