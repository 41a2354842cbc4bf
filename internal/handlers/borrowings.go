package handlers

import (
	"fmt"
	"net/http"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/httpx"
	"github.com/openshelf/openshelf/internal/services"
)

// BorrowingsHandler exposes the borrow/return lifecycle.
type BorrowingsHandler struct {
	Circulation *services.CirculationService
}

func NewBorrowingsHandler(circulation *services.CirculationService) *BorrowingsHandler {
	return &BorrowingsHandler{Circulation: circulation}
}

// My handles GET /borrowings/my-borrowings.
func (h *BorrowingsHandler) My(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())
	borrowings, err := h.Circulation.Borrowings(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch borrowings")
		return
	}
	httpx.JSON(w, http.StatusOK, borrowings)
}

// Borrow handles POST /borrowings/borrow/{bookId}.
func (h *BorrowingsHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())
	bookID, err := uintParam(r, "bookId")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	borrowing, err := h.Circulation.Borrow(r.Context(), user.ID, bookID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to borrow book")
		return
	}
	httpx.Message(w, http.StatusOK, "Book borrowed successfully.", map[string]any{
		"borrowing": borrowing,
	})
}

// Return handles POST /borrowings/return/{bookId}.
func (h *BorrowingsHandler) Return(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())
	bookID, err := uintParam(r, "bookId")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	result, err := h.Circulation.Return(r.Context(), user.ID, bookID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to return book")
		return
	}
	msg := "Book returned successfully."
	if result.PromotedUserID != nil {
		msg = fmt.Sprintf("Book returned successfully. Book automatically borrowed by user %d from reservation queue.",
			*result.PromotedUserID)
	}
	httpx.Message(w, http.StatusOK, msg, nil)
}
