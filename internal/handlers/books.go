package handlers

import (
	"net/http"
	"strings"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/httpx"
	"github.com/openshelf/openshelf/internal/services"
	"github.com/openshelf/openshelf/internal/validation"
)

// BooksHandler exposes the catalog: list for members, create/update/delete
// for admins.
type BooksHandler struct {
	Catalog *services.CatalogService
}

func NewBooksHandler(catalog *services.CatalogService) *BooksHandler {
	return &BooksHandler{Catalog: catalog}
}

// List handles GET /books.
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.Catalog.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch books")
		return
	}
	httpx.JSON(w, http.StatusOK, books)
}

type bookRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Status string `json:"status"`
}

// Create handles POST /books (admin).
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.CurrentUser(r.Context())
	var req bookRequest
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
		httpx.JSONError(w, http.StatusBadRequest, "Missing required fields", v)
		return
	}

	book, err := h.Catalog.Create(r.Context(), admin.ID, req.Title, req.Author)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create book")
		return
	}
	httpx.JSON(w, http.StatusCreated, book)
}

// Update handles PUT /books/{id} (admin).
func (h *BooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	book, err := h.Catalog.Update(r.Context(), id,
		strings.TrimSpace(req.Title), strings.TrimSpace(req.Author), strings.TrimSpace(req.Status))
	if err != nil {
		writeServiceError(w, r, err, "Failed to update book")
		return
	}
	httpx.JSON(w, http.StatusOK, book)
}

// Delete handles DELETE /books/{id} (admin). Soft delete, refused while the
// book is out or queued.
func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.CurrentUser(r.Context())
	id, err := uintParam(r, "id")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Catalog.Delete(r.Context(), admin.ID, id); err != nil {
		writeServiceError(w, r, err, "Failed to delete book")
		return
	}
	httpx.Message(w, http.StatusOK, "Book deleted successfully.", nil)
}
