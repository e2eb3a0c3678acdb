package app_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"order-engine/internal/app"
	"order-engine/internal/core"
	"order-engine/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func setupApp(t *testing.T) (app.ApplicationService, *pgxpool.Pool) {
	t.Helper()
	_ = godotenv.Load("../../.env")

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
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE audit_events, inventory_movements, sales_order_items, sales_orders,
			document_sequences, formula_items, formulas, inventory_items, warehouses, products,
			customers, settings, users, companies
		RESTART IDENTITY CASCADE;

		INSERT INTO companies (company_code, name, base_currency) VALUES ('1000', 'Test Company', 'INR');
		INSERT INTO warehouses (company_id, code, name) VALUES (1, 'MAIN', 'Main Warehouse');
		INSERT INTO customers (company_id, code, name, customer_type, credit_limit, outstanding_balance) VALUES
		(1, 'CRED01', 'Tight Farms', 'credit', 50000, 45000);
		INSERT INTO products (company_id, code, name, unit, selling_price) VALUES
		(1, 'P001', 'Urea', 'kg', 12.50);
		INSERT INTO settings (company_id, key, value) VALUES
		(1, 'sales_order_require_approval', 'true'),
		(1, 'sales_order_threshold', '1000000');
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	svc := app.NewAppService(pool, app.NewServices(pool, nil), nil, "")
	return svc, pool
}

func TestAppService_OrderLifecycleByCode(t *testing.T) {
	svc, _ := setupApp(t)
	ctx := context.Background()
	sales := app.Actor{UserID: 5, Role: core.RoleSales}
	manager := app.Actor{UserID: 6, Role: core.RoleManager}

	if err := svc.ReceiveStock(ctx, app.ReceiveStockRequest{
		CompanyCode: "1000", ProductCode: "P001", Qty: decimal.NewFromInt(200), Actor: app.SystemActor,
	}); err != nil {
		t.Fatalf("ReceiveStock failed: %v", err)
	}

	created, err := svc.CreateOrder(ctx, app.CreateOrderRequest{
		CompanyCode:  "1000",
		CustomerCode: "CRED01",
		PaymentType:  "credit",
		Lines:        []app.OrderLineInput{{ProductCode: "P001", Quantity: decimal.NewFromInt(100)}},
		Actor:        sales,
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	// Credit below the threshold: pending, not flagged.
	if created.Order.Status != core.OrderStatusPending || created.ApprovalRequired {
		t.Errorf("got %s / approval=%v", created.Order.Status, created.ApprovalRequired)
	}
	if created.Order.CreatedBy == nil || *created.Order.CreatedBy != 5 {
		t.Errorf("created_by not recorded")
	}

	_, err = svc.ApproveOrder(ctx, app.OrderActionRequest{CompanyCode: "1000", Ref: created.Order.OrderNumber, Actor: sales})
	if !errors.Is(err, app.ErrForbidden) {
		t.Fatalf("sales approving: expected ErrForbidden, got %v", err)
	}

	approved, err := svc.ApproveOrder(ctx, app.OrderActionRequest{CompanyCode: "1000", Ref: created.Order.OrderNumber, Actor: manager, Reason: "ok"})
	if err != nil {
		t.Fatalf("ApproveOrder failed: %v", err)
	}
	if approved.Order.Status != core.OrderStatusApproved || *approved.Order.ApprovedBy != 6 {
		t.Errorf("unexpected approved order %+v", approved.Order)
	}

	stock, err := svc.GetStockLevels(ctx, "1000")
	if err != nil {
		t.Fatalf("GetStockLevels failed: %v", err)
	}
	if len(stock.Levels) != 1 || !stock.Levels[0].Reserved.Equal(decimal.NewFromInt(100)) {
		t.Errorf("unexpected stock %+v", stock.Levels)
	}
}

func TestAppService_CreditAndSettings(t *testing.T) {
	svc, _ := setupApp(t)
	ctx := context.Background()

	check, err := svc.CheckCredit(ctx, "1000", "CRED01", decimal.NewFromInt(10000))
	if err != nil {
		t.Fatalf("CheckCredit failed: %v", err)
	}
	if check.Decision.Allowed || !check.Decision.AvailableCredit.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("unexpected decision %+v", check.Decision)
	}

	if _, err := svc.SetCreditLimit(ctx, app.CreditLimitRequest{
		CompanyCode: "1000", CustomerCode: "CRED01", Limit: decimal.NewFromInt(40000), Actor: app.SystemActor,
	}); !errors.Is(err, core.ErrBusinessRule) {
		t.Errorf("limit below outstanding: expected ErrBusinessRule, got %v", err)
	}

	settings, err := svc.GetSettings(ctx, "1000")
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if !settings.Config.RequireApproval || !settings.Config.Threshold.Equal(decimal.NewFromInt(1000000)) {
		t.Errorf("unexpected settings %+v", settings.Config)
	}

	if _, err := svc.UpdateSettings(ctx, app.UpdateSettingsRequest{CompanyCode: "1000", Actor: app.Actor{UserID: 1, Role: core.RoleManager}}); !errors.Is(err, app.ErrForbidden) {
		t.Errorf("manager updating settings: expected ErrForbidden, got %v", err)
	}

	if _, err := svc.ListOrders(ctx, "9999", nil); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown company: expected ErrNotFound, got %v", err)
	}
}

func TestAppService_CatalogManagement(t *testing.T) {
	svc, _ := setupApp(t)
	ctx := context.Background()
	manager := app.Actor{UserID: 6, Role: core.RoleManager}

	if _, err := svc.CreateProduct(ctx, app.CreateProductRequest{
		CompanyCode: "1000", Code: "P002", Name: "Potash", Unit: "kg", SellingPrice: decimal.NewFromInt(20),
		Actor: app.Actor{UserID: 5, Role: core.RoleSales},
	}); !errors.Is(err, app.ErrForbidden) {
		t.Fatalf("sales creating product: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.CreateProduct(ctx, app.CreateProductRequest{
		CompanyCode: "1000", Code: "P002", Name: "Potash", Unit: "kg", SellingPrice: decimal.NewFromInt(20), Actor: manager,
	}); err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}

	priced, err := svc.SetProductPrice(ctx, app.ProductPriceRequest{
		CompanyCode: "1000", ProductCode: "P002", Price: decimal.NewFromInt(25), Actor: manager,
	})
	if err != nil {
		t.Fatalf("SetProductPrice failed: %v", err)
	}
	if !priced.Product.SellingPrice.Equal(decimal.NewFromInt(25)) {
		t.Errorf("expected price 25, got %s", priced.Product.SellingPrice)
	}

	formula, err := svc.CreateFormula(ctx, app.CreateFormulaRequest{
		CompanyCode: "1000", Code: "MIX", Name: "Mix",
		Items: []app.FormulaItemInput{
			{ProductCode: "P001", Percentage: decimal.NewFromInt(60)},
			{ProductCode: "P002", Percentage: decimal.NewFromInt(40)},
		},
		Actor: manager,
	})
	if err != nil {
		t.Fatalf("CreateFormula failed: %v", err)
	}

	preview, err := svc.PreviewFormula(ctx, app.PreviewFormulaRequest{
		CompanyCode: "1000", FormulaID: formula.Formula.ID, CustomerCode: "CRED01", TotalQuantity: decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("PreviewFormula failed: %v", err)
	}
	// 60 × 12.50 + 40 × 25 = 1750
	if len(preview.Lines) != 2 || !preview.Totals.TotalAmount.Equal(decimal.NewFromInt(1750)) {
		t.Errorf("unexpected preview %+v", preview)
	}

	if _, err := svc.SetFormulaActive(ctx, app.FormulaActiveRequest{
		CompanyCode: "1000", FormulaID: formula.Formula.ID, Active: false, Actor: manager,
	}); err != nil {
		t.Fatalf("SetFormulaActive failed: %v", err)
	}
	if _, err := svc.PreviewFormula(ctx, app.PreviewFormulaRequest{
		CompanyCode: "1000", FormulaID: formula.Formula.ID, CustomerCode: "CRED01", TotalQuantity: decimal.NewFromInt(100),
	}); !errors.Is(err, core.ErrFormulaInvalid) {
		t.Errorf("inactive formula: expected ErrFormulaInvalid, got %v", err)
	}
}
