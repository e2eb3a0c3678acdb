package core_test

import (
	"context"
	"os"
	"testing"

	"order-engine/internal/core"
	"order-engine/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// Seeded IDs. TRUNCATE ... RESTART IDENTITY makes them deterministic.
const (
	testCompanyID = 1

	cashCustomerID    = 1 // CASH01, cash
	tightCustomerID   = 2 // CRED01, limit 50,000, outstanding 45,000
	roomyCustomerID   = 3 // CRED02, limit 1,000,000
	blockedCustomerID = 4 // CRED03, credit blocked

	ureaID    = 1 // P001 @ 12.50, 100 on hand in MAIN
	potashID  = 2 // P002 @ 8.00, 1000 on hand in MAIN
	serviceID = 3 // SVC1 @ 100.00, no inventory rows
)

// setupTestDB migrates and reseeds the test database. It skips when TEST_DATABASE_URL is unset.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	if err := db.Migrate(dbURL); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE audit_events, inventory_movements, sales_order_items, sales_orders,
			document_sequences, formula_items, formulas, inventory_items, warehouses, products,
			customers, settings, users, companies
		RESTART IDENTITY CASCADE;

		INSERT INTO companies (company_code, name, base_currency) VALUES ('1000', 'Test Company', 'INR');

		INSERT INTO warehouses (company_id, code, name) VALUES
		(1, 'MAIN', 'Main Warehouse'),
		(1, 'EAST', 'East Depot');

		INSERT INTO customers (company_id, code, name, customer_type, credit_limit, outstanding_balance, credit_blocked) VALUES
		(1, 'CASH01', 'Walk-in Trader',   'cash',   0,       0,     false),
		(1, 'CRED01', 'Tight Farms',      'credit', 50000,   45000, false),
		(1, 'CRED02', 'Roomy Agro',       'both',   1000000, 0,     false),
		(1, 'CRED03', 'Blocked Supplies', 'credit', 10000,   0,     true);

		INSERT INTO products (company_id, code, name, unit, selling_price) VALUES
		(1, 'P001', 'Urea',         'kg',   12.50),
		(1, 'P002', 'Potash',       'kg',   8.00),
		(1, 'SVC1', 'Soil Testing', 'unit', 100.00);

		INSERT INTO inventory_items (company_id, product_id, warehouse_id, qty_on_hand, qty_reserved) VALUES
		(1, 1, 1, 100,  0),
		(1, 2, 1, 1000, 0);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	t.Cleanup(pool.Close)
	return pool
}

type testServices struct {
	pool      *pgxpool.Pool
	orders    core.OrderService
	customers core.CustomerService
	products  core.ProductService
	formulas  core.FormulaService
	inventory core.InventoryService
	docs      core.DocumentService
	settings  core.SettingsStore
}

func setupServices(t *testing.T) testServices {
	t.Helper()
	pool := setupTestDB(t)
	inventory := core.NewInventoryService(pool)
	docs := core.NewDocumentService(pool)
	products := core.NewProductService(pool)
	return testServices{
		pool:      pool,
		orders:    core.NewOrderService(pool, inventory, docs, core.NewPostgresAuditSink(pool, nil)),
		customers: core.NewCustomerService(pool),
		products:  products,
		formulas:  core.NewFormulaService(pool, products),
		inventory: inventory,
		docs:      docs,
		settings:  core.NewSettingsStore(pool),
	}
}
