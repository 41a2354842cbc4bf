package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/handlers"
	"github.com/openshelf/openshelf/internal/httpx"
	"github.com/openshelf/openshelf/internal/metrics"
	"github.com/openshelf/openshelf/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares
// applied. Services are built here and injected into handlers; nothing
// holds process-global state.
func New(db *gorm.DB) http.Handler {
	activities := services.NewActivityService(db)
	circulation := services.NewCirculationService(db, activities)
	suggestions := services.NewSuggestionService(db, activities)
	catalog := services.NewCatalogService(db, activities)

	authHandler := handlers.NewAuthHandler(db)
	booksHandler := handlers.NewBooksHandler(catalog)
	borrowingsHandler := handlers.NewBorrowingsHandler(circulation)
	reservationsHandler := handlers.NewReservationsHandler(circulation)
	suggestionsHandler := handlers.NewSuggestionsHandler(suggestions)
	activitiesHandler := handlers.NewActivitiesHandler(activities)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(auth.Middleware(db))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/users", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Get("/profile", authHandler.Profile)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/", authHandler.ListUsers)
		})
	})

	r.Route("/books", func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Get("/", booksHandler.List)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Post("/", booksHandler.Create)
			r.Put("/{id}", booksHandler.Update)
			r.Delete("/{id}", booksHandler.Delete)
		})
	})

	r.Route("/borrowings", func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Get("/my-borrowings", borrowingsHandler.My)
		r.Post("/borrow/{bookId}", borrowingsHandler.Borrow)
		r.Post("/return/{bookId}", borrowingsHandler.Return)
	})

	r.Route("/reservations", func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Get("/", reservationsHandler.List)
		r.Post("/{bookId}", reservationsHandler.Create)
		r.Delete("/{reservationId}", reservationsHandler.Delete)
	})

	r.Route("/suggestions", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Get("/", suggestionsHandler.List)
			r.Post("/", suggestionsHandler.Create)
			r.Post("/{id}/vote", suggestionsHandler.Vote)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Patch("/{id}/status", suggestionsHandler.UpdateStatus)
			r.Delete("/{id}", suggestionsHandler.Delete)
		})
	})

	r.Route("/activities", func(r chi.Router) {
		r.Get("/", activitiesHandler.Recent)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Get("/me", activitiesHandler.Mine)
		})
	})

	return r
}
