// seed creates the minimum data a fresh database needs: a company, its main warehouse,
// default workflow settings and an admin user. It is idempotent.
//
// Usage: SEED_ADMIN_PASSWORD=... go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"log"
	"os"

	"order-engine/internal/config"
	"order-engine/internal/core"
	"order-engine/internal/db"

	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	companyCode := cfg.CompanyCode
	if companyCode == "" {
		companyCode = "1000"
	}
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		log.Fatal("SEED_ADMIN_PASSWORD is not set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	log.Println("Restoring company...")
	var companyID int
	err = pool.QueryRow(ctx, `
		INSERT INTO companies (company_code, name, base_currency)
		VALUES ($1, 'Local Operations India', 'INR')
		ON CONFLICT (company_code) DO UPDATE SET name = companies.name
		RETURNING id`, companyCode).Scan(&companyID)
	if err != nil {
		log.Fatalf("Failed to restore company: %v", err)
	}

	log.Println("Restoring main warehouse...")
	_, err = pool.Exec(ctx, `
		INSERT INTO warehouses (company_id, code, name)
		VALUES ($1, 'MAIN', 'Main Warehouse')
		ON CONFLICT (company_id, code) DO NOTHING`, companyID)
	if err != nil {
		log.Fatalf("Failed to restore warehouse: %v", err)
	}

	var hasSettings bool
	if err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM settings WHERE company_id = $1)`, companyID).Scan(&hasSettings); err != nil {
		log.Fatalf("Failed to read settings: %v", err)
	}
	if !hasSettings {
		log.Println("Writing default workflow settings...")
		err := core.NewSettingsStore(pool).Save(ctx, companyID, core.WorkflowConfig{
			RequireApproval: true,
			Threshold:       decimal.NewFromInt(100000),
			DefaultTaxRate:  decimal.Zero,
		})
		if err != nil {
			log.Fatalf("Failed to write settings: %v", err)
		}
	}

	users := core.NewUserService(pool)
	if _, err := users.GetByUsername(ctx, "admin"); err == nil {
		log.Println("Admin user already exists.")
	} else if errors.Is(err, core.ErrNotFound) {
		if _, err := users.CreateUser(ctx, companyID, "admin", "", password, core.RoleAdmin); err != nil {
			log.Fatalf("Failed to create admin: %v", err)
		}
		log.Println("Created admin user.")
	} else {
		log.Fatalf("Failed to look up admin: %v", err)
	}

	log.Println("Seed data restored successfully.")
}
