// migrate applies the embedded schema migrations and reports the resulting version.
//
// Usage: go run ./cmd/migrate [version]
package main

import (
	"context"
	"log"
	"os"
	"time"

	"order-engine/internal/config"
	"order-engine/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[CONFIG] %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[CONNECT] %v", err)
	}
	pool.Close()
	log.Println("[CONNECT] success")

	if len(os.Args) < 2 || os.Args[1] != "version" {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			log.Fatalf("[MIGRATE] %v", err)
		}
		log.Println("[MIGRATE] up to date")
	}

	version, dirty, err := db.MigrationVersion(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[VERSION] %v", err)
	}
	if dirty {
		log.Fatalf("[VERSION] %d is dirty: fix the failed migration and force the version", version)
	}
	log.Printf("[VERSION] %d", version)
}
