package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/db"
	"github.com/openshelf/openshelf/internal/server"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file - using system environment")
	}
	cfg := config.Load()

	conn, err := db.ConnectAndMigrate(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	if *migrateOnlyFlag {
		log.Println("migrations completed; exiting as requested")
		return
	}

	log.Printf("Starting server env=%s port=%s", cfg.Env, cfg.Port)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(conn),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}
