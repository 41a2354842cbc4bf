package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/httpx"
	"github.com/openshelf/openshelf/internal/services"
	"github.com/openshelf/openshelf/internal/validation"
)

// SuggestionsHandler exposes acquisition suggestions and voting.
type SuggestionsHandler struct {
	Suggestions *services.SuggestionService
}

func NewSuggestionsHandler(suggestions *services.SuggestionService) *SuggestionsHandler {
	return &SuggestionsHandler{Suggestions: suggestions}
}

// List handles GET /suggestions?status=&sortBy=&order=.
func (h *SuggestionsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rows, err := h.Suggestions.List(r.Context(), q.Get("status"), q.Get("sortBy"), q.Get("order"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch suggestions")
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

type suggestionRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Reason string `json:"reason"`
}

// Create handles POST /suggestions. A duplicate response carries the
// existing suggestion so the client can point at it.
func (h *SuggestionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())
	var req suggestionRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)

	v := validation.Violations{}
	validation.Required("title", req.Title, v)
	validation.Required("author", req.Author, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "Title and author are required", v)
		return
	}

	created, duplicate, err := h.Suggestions.Create(r.Context(), user.ID, req.Title, req.Author, req.Reason)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateSuggestion) {
			httpx.JSON(w, http.StatusBadRequest, map[string]any{
				"error":      err.Error(),
				"suggestion": duplicate,
			})
			return
		}
		writeServiceError(w, r, err, "Failed to create suggestion")
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

// Vote handles POST /suggestions/{id}/vote: toggles the caller's vote.
func (h *SuggestionsHandler) Vote(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())
	id, err := uintParam(r, "id")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	voted, err := h.Suggestions.ToggleVote(r.Context(), user.ID, id)
	if err != nil {
		writeServiceError(w, r, err, "Failed to process vote")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"voted": voted})
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /suggestions/{id}/status (admin).
func (h *SuggestionsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.CurrentUser(r.Context())
	id, err := uintParam(r, "id")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	updated, err := h.Suggestions.UpdateStatus(r.Context(), admin.ID, id, req.Status)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update suggestion status")
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /suggestions/{id} (admin). Soft delete.
func (h *SuggestionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.CurrentUser(r.Context())
	id, err := uintParam(r, "id")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Suggestions.Delete(r.Context(), admin.ID, id); err != nil {
		writeServiceError(w, r, err, "Failed to delete suggestion")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Suggestion has been soft deleted",
	})
}
