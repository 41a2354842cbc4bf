package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openshelf/openshelf/internal/httpx"
	"github.com/openshelf/openshelf/internal/services"
)

// uintParam parses a chi URL parameter as an id.
func uintParam(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return uint(id), nil
}

// decodeJSON reads the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

var notFoundErrors = []error{
	services.ErrBookNotFound,
	services.ErrReservationNotFound,
	services.ErrSuggestionNotFound,
}

var conflictErrors = []error{
	services.ErrAlreadyBorrowing,
	services.ErrBookNotAvailable,
	services.ErrNoActiveBorrowing,
	services.ErrAlreadyReserved,
	services.ErrBookAvailable,
	services.ErrDuplicateSuggestion,
	services.ErrInvalidStatus,
	services.ErrBookBorrowed,
	services.ErrBookReserved,
}

// writeServiceError maps service errors to HTTP statuses: not-found 404,
// business-rule violations 400, anything else 500 with the detail kept
// server-side.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	for _, sentinel := range notFoundErrors {
		if errors.Is(err, sentinel) {
			httpx.JSONError(w, http.StatusNotFound, err.Error(), nil)
			return
		}
	}
	for _, sentinel := range conflictErrors {
		if errors.Is(err, sentinel) {
			httpx.JSONError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
	}
	log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	httpx.JSONError(w, http.StatusInternalServerError, fallback, nil)
}
