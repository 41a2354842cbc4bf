package services

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/db"
	"github.com/openshelf/openshelf/internal/models"
)

// setupTestDB opens a unique in-memory database per test to avoid
// cross-test collisions.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
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

func createUser(t *testing.T, conn *gorm.DB, name string) *models.User {
	t.Helper()
	user := models.User{Name: name, Email: name + "@test.local", PasswordHash: "x", Role: models.RoleUser}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return &user
}

func createBook(t *testing.T, conn *gorm.DB, title, status string) *models.Book {
	t.Helper()
	book := models.Book{Title: title, Author: "Author of " + title, Status: status}
	if err := conn.Create(&book).Error; err != nil {
		t.Fatalf("create book %s: %v", title, err)
	}
	return &book
}

func newCirculation(conn *gorm.DB) *CirculationService {
	return NewCirculationService(conn, NewActivityService(conn))
}
