package db

import (
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openshelf/openshelf/internal/models"
)

// Models lists every persisted type in dependency order; tests and the
// AutoMigrate path share it.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Session{},
		&models.Book{},
		&models.Borrowing{},
		&models.Reservation{},
		&models.Suggestion{},
		&models.Vote{},
		&models.Activity{},
	}
}

// ConnectAndMigrate opens the store and brings the schema up to date.
// A postgres DSN gets a connection retry loop (docker compose startup);
// an empty or file DSN falls back to a local sqlite database for development.
func ConnectAndMigrate(rawDSN string) (*gorm.DB, error) {
	dsn := NormalizeDSN(rawDSN)

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var conn *gorm.DB
	var err error
	if IsPostgres(dsn) {
		for i := 0; i < 10; i++ {
			conn, err = gorm.Open(postgres.Open(dsn), cfg)
			if err == nil {
				break
			}
			log.Println("Retrying DB connection...", err)
			time.Sleep(2 * time.Second)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to connect database after retries: %w", err)
		}
		log.Println("[DB] Using DSN:", maskDSN(dsn))
	} else {
		path := dsn
		if path == "" {
			path = "openshelf.db"
		}
		conn, err = gorm.Open(sqlite.Open(path), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
		}
		log.Println("[DB] Using sqlite database:", path)
	}

	if pingErr := conn.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}

	// MIGRATIONS=1 runs versioned SQL migrations (postgres only); otherwise
	// AutoMigrate keeps development setups simple.
	if IsPostgres(dsn) && envTrue("MIGRATIONS") {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range Models() {
			if migErr := conn.AutoMigrate(m); migErr != nil {
				return nil, fmt.Errorf("automigrate %T: %w", m, migErr)
			}
		}
	}

	// sanity check: ensure required core tables exist
	for _, table := range []string{"users", "books", "borrowings", "reservations"} {
		if !conn.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}

	if envTrue("DB_SEED") {
		seed(conn)
	}
	return conn, nil
}

func envTrue(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func maskDSN(dsn string) string {
	masked := dsn
	if strings.Contains(masked, "password=") {
		re := regexp.MustCompile(`(password=)([^\s]+)`)
		masked = re.ReplaceAllString(masked, `${1}***`)
	}
	if u := regexp.MustCompile(`(://[^:/@]+:)([^@]+)@`); u.MatchString(masked) {
		masked = u.ReplaceAllString(masked, `${1}***@`)
	}
	return masked
}

// seed inserts a starter catalog so a fresh development database is usable.
func seed(conn *gorm.DB) {
	starter := []models.Book{
		{Title: "The Pragmatic Programmer", Author: "Andrew Hunt", Status: models.BookStatusAvailable},
		{Title: "Dune", Author: "Frank Herbert", Status: models.BookStatusAvailable},
		{Title: "The Left Hand of Darkness", Author: "Ursula K. Le Guin", Status: models.BookStatusAvailable},
		{Title: "Designing Data-Intensive Applications", Author: "Martin Kleppmann", Status: models.BookStatusAvailable},
	}
	for _, b := range starter {
		var existing models.Book
		if err := conn.Where("title = ? AND author = ?", b.Title, b.Author).First(&existing).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			conn.Create(&b)
		}
	}
}

// runSQLMigrations executes migrations in ./migrations using golang-migrate file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
