package handlers

import (
	"net/http"
	"strconv"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/httpx"
	"github.com/openshelf/openshelf/internal/services"
)

// ActivitiesHandler exposes the activity feed.
type ActivitiesHandler struct {
	Activities *services.ActivityService
}

func NewActivitiesHandler(activities *services.ActivityService) *ActivitiesHandler {
	return &ActivitiesHandler{Activities: activities}
}

// Recent handles GET /activities (public feed).
func (h *ActivitiesHandler) Recent(w http.ResponseWriter, r *http.Request) {
	activities, err := h.Activities.Recent(r.Context(), limitParam(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch recent activities")
		return
	}
	httpx.JSON(w, http.StatusOK, activities)
}

// Mine handles GET /activities/me.
func (h *ActivitiesHandler) Mine(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())
	activities, err := h.Activities.ByUser(r.Context(), user.ID, limitParam(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch user activities")
		return
	}
	httpx.JSON(w, http.StatusOK, activities)
}

func limitParam(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			return n
		}
	}
	return 0 // service default
}
