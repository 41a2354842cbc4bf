package handlers

import (
	"net/http"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/httpx"
	"github.com/openshelf/openshelf/internal/services"
)

// ReservationsHandler exposes the reservation queue.
type ReservationsHandler struct {
	Circulation *services.CirculationService
}

func NewReservationsHandler(circulation *services.CirculationService) *ReservationsHandler {
	return &ReservationsHandler{Circulation: circulation}
}

// List handles GET /reservations: the caller's reservations with queue
// positions.
func (h *ReservationsHandler) List(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())
	reservations, err := h.Circulation.Reservations(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch reservations")
		return
	}
	httpx.JSON(w, http.StatusOK, reservations)
}

// Create handles POST /reservations/{bookId}.
func (h *ReservationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())
	bookID, err := uintParam(r, "bookId")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	reservation, err := h.Circulation.Reserve(r.Context(), user.ID, bookID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to reserve book")
		return
	}
	httpx.Message(w, http.StatusOK, "Book reserved successfully.", map[string]any{
		"reservation": reservation,
	})
}

// Delete handles DELETE /reservations/{reservationId}.
func (h *ReservationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())
	reservationID, err := uintParam(r, "reservationId")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Circulation.CancelReservation(r.Context(), user.ID, reservationID); err != nil {
		writeServiceError(w, r, err, "Failed to cancel reservation")
		return
	}
	httpx.Message(w, http.StatusOK, "Reservation cancelled successfully.", nil)
}
