package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/httpx"
	"github.com/openshelf/openshelf/internal/models"
	"github.com/openshelf/openshelf/internal/validation"
)

// AuthHandler owns registration, login/logout, and the profile endpoints.
type AuthHandler struct {
	DB *gorm.DB
}

func NewAuthHandler(db *gorm.DB) *AuthHandler { return &AuthHandler{DB: db} }

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /users/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	v := validation.Violations{}
	validation.Required("name", req.Name, v)
	validation.Required("email", req.Email, v)
	validation.Required("password", req.Password, v)
	if req.Email != "" {
		validation.Email("email", req.Email, v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "Missing required fields", v)
		return
	}

	var count int64
	if err := h.DB.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		writeServiceError(w, r, err, "Failed to register")
		return
	}
	if count > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "Email already in use", nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeServiceError(w, r, err, "Failed to register")
		return
	}
	user := models.User{Name: req.Name, Email: req.Email, PasswordHash: string(hash), Role: models.RoleUser}
	if err := h.DB.Create(&user).Error; err != nil {
		writeServiceError(w, r, err, "Failed to register")
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /users/login. The same message covers unknown email
// and wrong password.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := h.DB.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusBadRequest, "Invalid credentials", nil)
			return
		}
		writeServiceError(w, r, err, "An error occurred during login")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Invalid credentials", nil)
		return
	}
	if _, err := auth.CreateSession(h.DB, w, user.ID); err != nil {
		log.Printf("session create for user %d: %v", user.ID, err)
		httpx.JSONError(w, http.StatusInternalServerError, "Failed to create session", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

// Logout handles POST /users/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(h.DB, w, r)
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

// Profile handles GET /users/profile.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"id":        user.ID,
		"name":      user.Name,
		"email":     user.Email,
		"role":      user.Role,
		"createdAt": user.CreatedAt,
	})
}

// userRow is the admin listing shape with per-user aggregates.
type userRow struct {
	models.User
	BorrowingCount   int64 `json:"borrowingCount"`
	ReservationCount int64 `json:"reservationCount"`
	SuggestionCount  int64 `json:"suggestionCount"`
}

// ListUsers handles GET /users (admin).
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	var rows []userRow
	err := h.DB.Model(&models.User{}).
		Select("users.*, " +
			"(SELECT COUNT(*) FROM borrowings WHERE borrowings.user_id = users.id) AS borrowing_count, " +
			"(SELECT COUNT(*) FROM reservations WHERE reservations.user_id = users.id) AS reservation_count, " +
			"(SELECT COUNT(*) FROM suggestions WHERE suggestions.user_id = users.id AND suggestions.deleted_at IS NULL) AS suggestion_count").
		Order("users.name ASC").
		Scan(&rows).Error
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch users")
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}
