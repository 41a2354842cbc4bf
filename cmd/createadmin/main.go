// Command createadmin bootstraps (or promotes) an administrator account.
// The password is read from the terminal, never from argv.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/db"
	"github.com/openshelf/openshelf/internal/models"
)

func main() {
	email := flag.String("email", "", "admin email (required)")
	name := flag.String("name", "Administrator", "display name")
	flag.Parse()

	if strings.TrimSpace(*email) == "" {
		fmt.Fprintln(os.Stderr, "usage: createadmin -email admin@example.org [-name \"...\"]")
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file - using system environment")
	}
	cfg := config.Load()
	conn, err := db.ConnectAndMigrate(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	addr := strings.ToLower(strings.TrimSpace(*email))
	var existing models.User
	err = conn.Where("email = ?", addr).First(&existing).Error
	switch {
	case err == nil:
		// Existing account: just promote it.
		if existing.Role == models.RoleAdmin {
			log.Printf("%s is already an admin", addr)
			return
		}
		if err := conn.Model(&existing).Update("role", models.RoleAdmin).Error; err != nil {
			log.Fatalf("promote user: %v", err)
		}
		log.Printf("%s promoted to admin", addr)
	case errors.Is(err, gorm.ErrRecordNotFound):
		password, err := readPassword()
		if err != nil {
			log.Fatalf("read password: %v", err)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		admin := models.User{
			Name:         strings.TrimSpace(*name),
			Email:        addr,
			PasswordHash: string(hash),
			Role:         models.RoleAdmin,
		}
		if err := conn.Create(&admin).Error; err != nil {
			log.Fatalf("create admin: %v", err)
		}
		log.Printf("admin %s created (id=%d)", addr, admin.ID)
	default:
		log.Fatalf("lookup user: %v", err)
	}
}

func readPassword() (string, error) {
	fmt.Print("Password: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(first) < 8 {
		return "", errors.New("password must be at least 8 characters")
	}
	fmt.Print("Confirm password: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
