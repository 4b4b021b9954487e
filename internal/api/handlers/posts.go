package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hoanghai1803/sprout/internal/models"
	"github.com/hoanghai1803/sprout/internal/storage"
)

// GetPost handles GET /api/posts/{id}.
func GetPost(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "missing post id")
			return
		}

		post, err := store.GetPost(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Post not found")
			return
		}
		if err != nil {
			slog.Error("failed to get post", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to get post")
			return
		}

		writeJSON(w, http.StatusOK, post)
	}
}

// ListPosts handles GET /api/posts. It returns the newest posts first.
func ListPosts(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := parseLimit(r, 20, 100)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		posts, err := store.ListPosts(r.Context(), limit)
		if err != nil {
			slog.Error("failed to list posts", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to list posts")
			return
		}
		if posts == nil {
			posts = []models.Post{}
		}

		writeJSON(w, http.StatusOK, posts)
	}
}
