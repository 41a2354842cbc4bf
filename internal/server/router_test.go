package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/db"
	"github.com/openshelf/openshelf/internal/models"
)

func setupE2EDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:e2e_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	for _, m := range db.Models() {
		if err := conn.AutoMigrate(m); err != nil {
			t.Fatalf("migrate %T: %v", m, err)
		}
	}
	return conn
}

func createSessionUser(t *testing.T, conn *gorm.DB, name, role string) (*models.User, *http.Cookie) {
	t.Helper()
	user := models.User{Name: name, Email: name + "@example.com", PasswordHash: "x", Role: role}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	rec := httptest.NewRecorder()
	if _, err := auth.CreateSession(conn, rec, user.ID); err != nil {
		t.Fatalf("create session: %v", err)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" {
			return &user, c
		}
	}
	t.Fatal("no session cookie")
	return nil, nil
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string, cookie *http.Cookie) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	var decoded map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		var raw any
		if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
			t.Fatalf("%s %s: decode body %q: %v", method, path, rec.Body.String(), err)
		}
		decoded, _ = raw.(map[string]any)
	}
	return rec, decoded
}

func TestHealthz(t *testing.T) {
	handler := New(setupE2EDB(t))
	rec, body := doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if body["status"] != "ok" {
		t.Fatalf("body %v", body)
	}
}

func TestRegisterLoginLogout(t *testing.T) {
	handler := New(setupE2EDB(t))

	rec, body := doJSON(t, handler, http.MethodPost, "/users/register",
		`{"name":"Alice","email":"Alice@Example.com","password":"secret123"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status %d: %v", rec.Code, body)
	}
	if body["email"] != "alice@example.com" {
		t.Fatalf("email not normalized: %v", body)
	}

	rec, body = doJSON(t, handler, http.MethodPost, "/users/register",
		`{"name":"Alice2","email":"alice@example.com","password":"secret123"}`, nil)
	if rec.Code != http.StatusBadRequest || body["error"] != "Email already in use" {
		t.Fatalf("duplicate register: %d %v", rec.Code, body)
	}

	rec, body = doJSON(t, handler, http.MethodPost, "/users/login",
		`{"email":"alice@example.com","password":"wrong"}`, nil)
	if rec.Code != http.StatusBadRequest || body["error"] != "Invalid credentials" {
		t.Fatalf("bad password: %d %v", rec.Code, body)
	}

	rec, _ = doJSON(t, handler, http.MethodPost, "/users/login",
		`{"email":"alice@example.com","password":"secret123"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status %d", rec.Code)
	}
	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" {
			session = c
		}
	}
	if session == nil {
		t.Fatal("login did not set a session cookie")
	}

	rec, body = doJSON(t, handler, http.MethodGet, "/users/profile", "", session)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile status %d: %v", rec.Code, body)
	}

	rec, _ = doJSON(t, handler, http.MethodPost, "/users/logout", "", session)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status %d", rec.Code)
	}
	rec, _ = doJSON(t, handler, http.MethodGet, "/users/profile", "", session)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("profile after logout: %d", rec.Code)
	}
}

func TestLoginVerifiesBcryptHash(t *testing.T) {
	conn := setupE2EDB(t)
	handler := New(conn)
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := conn.Create(&models.User{Name: "Bob", Email: "bob@example.com", PasswordHash: string(hash), Role: models.RoleUser}).Error; err != nil {
		t.Fatalf("user: %v", err)
	}

	rec, _ := doJSON(t, handler, http.MethodPost, "/users/login",
		`{"email":"bob@example.com","password":"hunter22"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status %d", rec.Code)
	}
}

func TestBookRoutesRequireRoles(t *testing.T) {
	conn := setupE2EDB(t)
	handler := New(conn)
	_, userCookie := createSessionUser(t, conn, "reader", models.RoleUser)
	_, adminCookie := createSessionUser(t, conn, "admin", models.RoleAdmin)

	rec, _ := doJSON(t, handler, http.MethodGet, "/books/", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list: %d", rec.Code)
	}
	rec, _ = doJSON(t, handler, http.MethodPost, "/books/", `{"title":"Dune","author":"Frank Herbert"}`, userCookie)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user create: %d", rec.Code)
	}
	rec, body := doJSON(t, handler, http.MethodPost, "/books/", `{"title":"Dune","author":"Frank Herbert"}`, adminCookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create: %d %v", rec.Code, body)
	}
	rec, _ = doJSON(t, handler, http.MethodGet, "/books/", "", userCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("user list: %d", rec.Code)
	}
	rec, _ = doJSON(t, handler, http.MethodGet, "/users/", "", userCookie)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user listing users: %d", rec.Code)
	}
	rec, _ = doJSON(t, handler, http.MethodGet, "/users/", "", adminCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin listing users: %d", rec.Code)
	}
}

func TestBorrowReturnReserveFlow(t *testing.T) {
	conn := setupE2EDB(t)
	handler := New(conn)
	_, aliceCookie := createSessionUser(t, conn, "alice", models.RoleUser)
	_, bobCookie := createSessionUser(t, conn, "bob", models.RoleAdmin)

	book := models.Book{Title: "Dune", Author: "Frank Herbert", Status: models.BookStatusAvailable}
	if err := conn.Create(&book).Error; err != nil {
		t.Fatalf("book: %v", err)
	}
	other := models.Book{Title: "Hyperion", Author: "Dan Simmons", Status: models.BookStatusAvailable}
	if err := conn.Create(&other).Error; err != nil {
		t.Fatalf("book: %v", err)
	}

	borrowPath := fmt.Sprintf("/borrowings/borrow/%d", book.ID)
	rec, body := doJSON(t, handler, http.MethodPost, borrowPath, "", aliceCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("borrow: %d %v", rec.Code, body)
	}
	if body["message"] != "Book borrowed successfully." {
		t.Fatalf("borrow message: %v", body)
	}

	// one open loan per reader
	rec, body = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/borrowings/borrow/%d", other.ID), "", aliceCookie)
	if rec.Code != http.StatusBadRequest || body["error"] != "You already have a borrowed book." {
		t.Fatalf("second borrow: %d %v", rec.Code, body)
	}

	// bob cannot take the borrowed copy but can queue for it
	rec, body = doJSON(t, handler, http.MethodPost, borrowPath, "", bobCookie)
	if rec.Code != http.StatusBadRequest || body["error"] != "Book is not available." {
		t.Fatalf("borrow borrowed: %d %v", rec.Code, body)
	}
	rec, body = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/reservations/%d", book.ID), "", bobCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("reserve: %d %v", rec.Code, body)
	}
	rec, body = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/reservations/%d", book.ID), "", bobCookie)
	if rec.Code != http.StatusBadRequest || body["error"] != "You have already reserved this book." {
		t.Fatalf("double reserve: %d %v", rec.Code, body)
	}
	rec, body = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/reservations/%d", other.ID), "", bobCookie)
	if rec.Code != http.StatusBadRequest || body["error"] != "Book is currently available. You can borrow it instead." {
		t.Fatalf("reserve available: %d %v", rec.Code, body)
	}

	rec, body = doJSON(t, handler, http.MethodGet, "/reservations/", "", bobCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("list reservations: %d", rec.Code)
	}

	// alice returns; bob is promoted automatically
	rec, body = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/borrowings/return/%d", book.ID), "", aliceCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("return: %d %v", rec.Code, body)
	}
	msg, _ := body["message"].(string)
	if !strings.Contains(msg, "automatically borrowed") {
		t.Fatalf("return message: %q", msg)
	}

	rec, body = doJSON(t, handler, http.MethodGet, "/borrowings/my-borrowings", "", bobCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("my-borrowings: %d", rec.Code)
	}

	// alice is free again and never touched by bob's return
	rec, body = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/borrowings/return/%d", book.ID), "", aliceCookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("return without loan: %d %v", rec.Code, body)
	}
}

func TestSuggestionLifecycleOverHTTP(t *testing.T) {
	conn := setupE2EDB(t)
	handler := New(conn)
	_, userCookie := createSessionUser(t, conn, "reader", models.RoleUser)
	_, adminCookie := createSessionUser(t, conn, "admin", models.RoleAdmin)

	rec, body := doJSON(t, handler, http.MethodPost, "/suggestions/",
		`{"title":"Solaris","author":"Stanislaw Lem"}`, userCookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %v", rec.Code, body)
	}
	rawID, ok := body["id"].(float64)
	if !ok {
		t.Fatalf("no id in body: %v", body)
	}
	id := int(rawID)

	// duplicates are case-insensitive and echo the existing row
	rec, body = doJSON(t, handler, http.MethodPost, "/suggestions/",
		`{"title":"SOLARIS","author":"stanislaw lem"}`, adminCookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate: %d %v", rec.Code, body)
	}
	if body["suggestion"] == nil {
		t.Fatalf("duplicate response misses existing suggestion: %v", body)
	}

	rec, _ = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/suggestions/%d/vote", id), "", adminCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("vote: %d", rec.Code)
	}

	rec, _ = doJSON(t, handler, http.MethodPatch, fmt.Sprintf("/suggestions/%d/status", id),
		`{"status":"APPROVED"}`, userCookie)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user moderating: %d", rec.Code)
	}
	rec, body = doJSON(t, handler, http.MethodPatch, fmt.Sprintf("/suggestions/%d/status", id),
		`{"status":"APPROVED"}`, adminCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin moderating: %d %v", rec.Code, body)
	}

	rec, _ = doJSON(t, handler, http.MethodDelete, fmt.Sprintf("/suggestions/%d", id), "", adminCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
}

func TestActivitiesFeedIsPublic(t *testing.T) {
	conn := setupE2EDB(t)
	handler := New(conn)
	_, cookie := createSessionUser(t, conn, "reader", models.RoleUser)

	book := models.Book{Title: "Dune", Author: "Frank Herbert", Status: models.BookStatusAvailable}
	if err := conn.Create(&book).Error; err != nil {
		t.Fatalf("book: %v", err)
	}
	rec, _ := doJSON(t, handler, http.MethodPost, fmt.Sprintf("/borrowings/borrow/%d", book.ID), "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("borrow: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/activities/", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("public feed: %d", recorder.Code)
	}
	var feed []map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &feed); err != nil {
		t.Fatalf("decode feed: %v", err)
	}
	if len(feed) != 1 || feed[0]["type"] != "CHECKOUT" {
		t.Fatalf("feed: %v", feed)
	}

	rec, _ = doJSON(t, handler, http.MethodGet, "/activities/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous /me: %d", rec.Code)
	}
	rec, _ = doJSON(t, handler, http.MethodGet, "/activities/me", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("my feed: %d", rec.Code)
	}
}
