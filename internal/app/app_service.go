package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"order-engine/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Services bundles the core services the application layer orchestrates.
type Services struct {
	Customers core.CustomerService
	Products  core.ProductService
	Formulas  core.FormulaService
	Inventory core.InventoryService
	Orders    core.OrderService
	Settings  core.SettingsStore
	Users     core.UserService
}

// NewServices wires every core service to pool. audit receives order events after commit.
func NewServices(pool *pgxpool.Pool, audit core.AuditSink) Services {
	inventory := core.NewInventoryService(pool)
	products := core.NewProductService(pool)
	return Services{
		Customers: core.NewCustomerService(pool),
		Products:  products,
		Formulas:  core.NewFormulaService(pool, products),
		Inventory: inventory,
		Orders:    core.NewOrderService(pool, inventory, core.NewDocumentService(pool), audit),
		Settings:  core.NewSettingsStore(pool),
		Users:     core.NewUserService(pool),
	}
}

type appService struct {
	pool               *pgxpool.Pool
	svc                Services
	authz              Authorizer
	defaultCompanyCode string
}

// NewAppService constructs an appService that satisfies ApplicationService.
// defaultCompanyCode is the configured COMPANY_CODE and may be empty.
func NewAppService(pool *pgxpool.Pool, svc Services, authz Authorizer, defaultCompanyCode string) ApplicationService {
	if authz == nil {
		authz = DefaultRoleAuthorizer()
	}
	return &appService{
		pool:               pool,
		svc:                svc,
		authz:              authz,
		defaultCompanyCode: defaultCompanyCode,
	}
}

// ── Customers & credit ────────────────────────────────────────────────────────

func (s *appService) ListCustomers(ctx context.Context, companyCode string) (*CustomerListResult, error) {
	company, err := s.fetchCompany(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	customers, err := s.svc.Customers.GetCustomers(ctx, company.ID)
	if err != nil {
		return nil, err
	}
	return &CustomerListResult{Customers: customers}, nil
}

func (s *appService) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*CustomerResult, error) {
	if err := s.authz.Authorize(req.Actor, ActionManageCustomers); err != nil {
		return nil, err
	}
	company, err := s.fetchCompany(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	c, err := s.svc.Customers.CreateCustomer(ctx, company.ID, core.CustomerInput{
		Code:             req.Code,
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		CustomerType:     core.CustomerType(strings.ToLower(req.CustomerType)),
		CreditLimit:      req.CreditLimit,
		PaymentTermsDays: req.PaymentTermsDays,
	})
	if err != nil {
		return nil, err
	}
	return &CustomerResult{Customer: c}, nil
}

func (s *appService) SetCreditLimit(ctx context.Context, req CreditLimitRequest) (*CustomerResult, error) {
	if err := s.authz.Authorize(req.Actor, ActionManageCredit); err != nil {
		return nil, err
	}
	company, customer, err := s.resolveCustomer(ctx, req.CompanyCode, req.CustomerCode)
	if err != nil {
		return nil, err
	}
	c, err := s.svc.Customers.SetCreditLimit(ctx, company.ID, customer.ID, req.Limit)
	if err != nil {
		return nil, err
	}
	return &CustomerResult{Customer: c}, nil
}

func (s *appService) SetCreditBlocked(ctx context.Context, req CreditBlockRequest) (*CustomerResult, error) {
	if err := s.authz.Authorize(req.Actor, ActionManageCredit); err != nil {
		return nil, err
	}
	company, customer, err := s.resolveCustomer(ctx, req.CompanyCode, req.CustomerCode)
	if err != nil {
		return nil, err
	}
	c, err := s.svc.Customers.SetCreditBlocked(ctx, company.ID, customer.ID, req.Blocked)
	if err != nil {
		return nil, err
	}
	return &CustomerResult{Customer: c}, nil
}

func (s *appService) CheckCredit(ctx context.Context, companyCode, customerCode string, amount decimal.Decimal) (*CreditCheckResult, error) {
	_, customer, err := s.resolveCustomer(ctx, companyCode, customerCode)
	if err != nil {
		return nil, err
	}
	return &CreditCheckResult{Customer: customer, Decision: core.EvaluateCredit(*customer, amount)}, nil
}

// ── Catalog & formulas ────────────────────────────────────────────────────────

func (s *appService) ListProducts(ctx context.Context, companyCode string) (*ProductListResult, error) {
	company, err := s.fetchCompany(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	products, err := s.svc.Products.GetProducts(ctx, company.ID)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products}, nil
}

func (s *appService) CreateProduct(ctx context.Context, req CreateProductRequest) (*ProductResult, error) {
	if err := s.authz.Authorize(req.Actor, ActionManageProducts); err != nil {
		return nil, err
	}
	company, err := s.fetchCompany(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	p, err := s.svc.Products.CreateProduct(ctx, company.ID, core.ProductInput{
		Code:         req.Code,
		Name:         req.Name,
		Unit:         req.Unit,
		SellingPrice: req.SellingPrice,
	})
	if err != nil {
		return nil, err
	}
	return &ProductResult{Product: p}, nil
}

func (s *appService) SetProductPrice(ctx context.Context, req ProductPriceRequest) (*ProductResult, error) {
	if err := s.authz.Authorize(req.Actor, ActionManageProducts); err != nil {
		return nil, err
	}
	company, err := s.fetchCompany(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	p, err := s.svc.Products.GetProductByCode(ctx, company.ID, req.ProductCode)
	if err != nil {
		return nil, err
	}
	p, err = s.svc.Products.UpdateSellingPrice(ctx, company.ID, p.ID, req.Price)
	if err != nil {
		return nil, err
	}
	return &ProductResult{Product: p}, nil
}

func (s *appService) ListFormulas(ctx context.Context, companyCode string) (*FormulaListResult, error) {
	company, err := s.fetchCompany(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	formulas, err := s.svc.Formulas.GetFormulas(ctx, company.ID)
	if err != nil {
		return nil, err
	}
	return &FormulaListResult{Formulas: formulas}, nil
}

func (s *appService) CreateFormula(ctx context.Context, req CreateFormulaRequest) (*FormulaResult, error) {
	if err := s.authz.Authorize(req.Actor, ActionManageFormulas); err != nil {
		return nil, err
	}
	company, err := s.fetchCompany(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}

	input := core.FormulaInput{Code: req.Code, Name: req.Name}
	if req.CustomerCode != "" {
		c, err := s.svc.Customers.GetCustomerByCode(ctx, company.ID, req.CustomerCode)
		if err != nil {
			return nil, err
		}
		input.CustomerID = &c.ID
	}
	for i, item := range req.Items {
		p, err := s.svc.Products.GetProductByCode(ctx, company.ID, item.ProductCode)
		if err != nil {
			return nil, fmt.Errorf("formula item %d: %w", i+1, err)
		}
		input.Items = append(input.Items, core.FormulaItem{ProductID: p.ID, Percentage: item.Percentage})
	}

	f, err := s.svc.Formulas.CreateFormula(ctx, company.ID, input)
	if err != nil {
		return nil, err
	}
	return &FormulaResult{Formula: f}, nil
}

func (s *appService) SetFormulaActive(ctx context.Context, req FormulaActiveRequest) (*FormulaResult, error) {
	if err := s.authz.Authorize(req.Actor, ActionManageFormulas); err != nil {
		return nil, err
	}
	company, err := s.fetchCompany(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	f, err := s.svc.Formulas.SetFormulaActive(ctx, company.ID, req.FormulaID, req.Active)
	if err != nil {
		return nil, err
	}
	return &FormulaResult{Formula: f}, nil
}

func (s *appService) PreviewFormula(ctx context.Context, req PreviewFormulaRequest) (*FormulaPreviewResult, error) {
	company, customer, err := s.resolveCustomer(ctx, req.CompanyCode, req.CustomerCode)
	if err != nil {
		return nil, err
	}
	cfg, err := s.svc.Settings.Load(ctx, company.ID)
	if err != nil {
		return nil, err
	}
	lines, err := s.svc.Formulas.Resolve(ctx, company.ID, req.FormulaID, customer.ID, req.TotalQuantity)
	if err != nil {
		return nil, err
	}
	totals, err := core.PriceOrder(lines, decimal.Zero, cfg.DefaultTaxRate)
	if err != nil {
		return nil, err
	}
	return &FormulaPreviewResult{Lines: lines, Totals: totals}, nil
}

// ── Sales orders ──────────────────────────────────────────────────────────────

func (s *appService) ListOrders(ctx context.Context, companyCode string, status *string) (*OrderListResult, error) {
	company, err := s.fetchCompany(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	var filter *core.OrderStatus
	if status != nil {
		st := core.OrderStatus(strings.ToLower(*status))
		if !st.Valid() {
			return nil, fmt.Errorf("%w: unknown order status %q", core.ErrInvalidStatus, *status)
		}
		filter = &st
	}
	orders, err := s.svc.Orders.GetOrders(ctx, company.ID, filter)
	if err != nil {
		return nil, err
	}
	return &OrderListResult{Orders: orders, CompanyCode: company.CompanyCode}, nil
}

func (s *appService) GetOrder(ctx context.Context, ref, companyCode string) (*OrderResult, error) {
	company, err := s.fetchCompany(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	order, err := s.resolveOrder(ctx, company.ID, ref)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

// CreateOrder resolves codes to IDs, loads the company's workflow settings and runs creation.
func (s *appService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if err := s.authz.Authorize(req.Actor, ActionCreateOrder); err != nil {
		return nil, err
	}
	company, customer, err := s.resolveCustomer(ctx, req.CompanyCode, req.CustomerCode)
	if err != nil {
		return nil, err
	}

	items := make([]core.OrderItemInput, 0, len(req.Lines))
	for i, l := range req.Lines {
		p, err := s.svc.Products.GetProductByCode(ctx, company.ID, l.ProductCode)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		items = append(items, core.OrderItemInput{ProductID: p.ID, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}

	cfg, err := s.svc.Settings.Load(ctx, company.ID)
	if err != nil {
		return nil, err
	}

	res, err := s.svc.Orders.CreateOrder(ctx, cfg, core.CreateOrderInput{
		CompanyID:      company.ID,
		CustomerID:     customer.ID,
		PaymentType:    core.PaymentType(strings.ToLower(req.PaymentType)),
		FormulaID:      req.FormulaID,
		TotalQuantity:  req.TotalQuantity,
		Items:          items,
		DiscountAmount: req.DiscountAmount,
		TaxRate:        req.TaxRate,
		Notes:          req.Notes,
		PointOfSale:    req.PointOfSale,
		CreatedBy:      req.Actor.id(),
	})
	if err != nil {
		return nil, err
	}
	return &CreateOrderResult{Order: res.Order, ApprovalRequired: res.ApprovalRequired}, nil
}

func (s *appService) ApproveOrder(ctx context.Context, req OrderActionRequest) (*OrderResult, error) {
	if err := s.authz.Authorize(req.Actor, ActionApproveOrder); err != nil {
		return nil, err
	}
	company, order, err := s.companyOrder(ctx, req.CompanyCode, req.Ref)
	if err != nil {
		return nil, err
	}
	order, err = s.svc.Orders.ApproveOrder(ctx, company.ID, order.ID, req.Actor.id(), req.Reason)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) RejectOrder(ctx context.Context, req OrderActionRequest) (*OrderResult, error) {
	if err := s.authz.Authorize(req.Actor, ActionRejectOrder); err != nil {
		return nil, err
	}
	company, order, err := s.companyOrder(ctx, req.CompanyCode, req.Ref)
	if err != nil {
		return nil, err
	}
	order, err = s.svc.Orders.RejectOrder(ctx, company.ID, order.ID, req.Actor.id(), req.Reason)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) FulfillOrder(ctx context.Context, req FulfillOrderRequest) (*OrderResult, error) {
	if err := s.authz.Authorize(req.Actor, ActionFulfillOrder); err != nil {
		return nil, err
	}
	company, order, err := s.companyOrder(ctx, req.CompanyCode, req.Ref)
	if err != nil {
		return nil, err
	}
	order, err = s.svc.Orders.FulfillOrder(ctx, company.ID, order.ID, core.FulfillmentInput{
		Status:         core.FulfillmentStatus(strings.ToLower(req.Status)),
		TrackingNumber: req.TrackingNumber,
		ActorID:        req.Actor.id(),
	})
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

// ── Inventory ─────────────────────────────────────────────────────────────────

func (s *appService) ListWarehouses(ctx context.Context, companyCode string) (*WarehouseListResult, error) {
	company, err := s.fetchCompany(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	warehouses, err := s.svc.Inventory.GetWarehouses(ctx, company.ID)
	if err != nil {
		return nil, err
	}
	return &WarehouseListResult{Warehouses: warehouses}, nil
}

func (s *appService) GetStockLevels(ctx context.Context, companyCode string) (*StockResult, error) {
	company, err := s.fetchCompany(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	levels, err := s.svc.Inventory.GetStockLevels(ctx, company.ID)
	if err != nil {
		return nil, err
	}
	return &StockResult{Levels: levels, CompanyCode: company.CompanyCode}, nil
}

func (s *appService) ReceiveStock(ctx context.Context, req ReceiveStockRequest) error {
	if err := s.authz.Authorize(req.Actor, ActionReceiveStock); err != nil {
		return err
	}
	company, err := s.fetchCompany(ctx, req.CompanyCode)
	if err != nil {
		return err
	}
	product, err := s.svc.Products.GetProductByCode(ctx, company.ID, req.ProductCode)
	if err != nil {
		return err
	}

	warehouseCode := req.WarehouseCode
	if warehouseCode == "" {
		warehouses, err := s.svc.Inventory.GetWarehouses(ctx, company.ID)
		if err != nil {
			return err
		}
		if len(warehouses) == 0 {
			return fmt.Errorf("%w: no active warehouse found", core.ErrNotFound)
		}
		warehouseCode = warehouses[0].Code
	}

	return s.svc.Inventory.ReceiveStock(ctx, company.ID, core.ReceiptInput{
		WarehouseCode: warehouseCode,
		ProductID:     product.ID,
		Quantity:      req.Qty,
		MovementDate:  req.MovementDate,
	})
}

// ── Settings ──────────────────────────────────────────────────────────────────

func (s *appService) GetSettings(ctx context.Context, companyCode string) (*SettingsResult, error) {
	company, err := s.fetchCompany(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	cfg, err := s.svc.Settings.Load(ctx, company.ID)
	if err != nil {
		return nil, err
	}
	return &SettingsResult{CompanyCode: company.CompanyCode, Config: cfg}, nil
}

func (s *appService) UpdateSettings(ctx context.Context, req UpdateSettingsRequest) (*SettingsResult, error) {
	if err := s.authz.Authorize(req.Actor, ActionManageSettings); err != nil {
		return nil, err
	}
	company, err := s.fetchCompany(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	cfg := core.WorkflowConfig{
		RequireApproval: req.RequireApproval,
		Threshold:       req.Threshold,
		DefaultTaxRate:  req.DefaultTaxRate,
	}
	if err := s.svc.Settings.Save(ctx, company.ID, cfg); err != nil {
		return nil, err
	}
	return &SettingsResult{CompanyCode: company.CompanyCode, Config: cfg}, nil
}

// ── Users ─────────────────────────────────────────────────────────────────────

func (s *appService) AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error) {
	u, err := s.svc.Users.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	companyCode, err := s.companyCodeByID(ctx, u.CompanyID)
	if err != nil {
		return nil, err
	}
	return &UserSession{
		UserID:      u.ID,
		CompanyID:   u.CompanyID,
		CompanyCode: companyCode,
		Username:    u.Username,
		Role:        string(u.Role),
	}, nil
}

func (s *appService) GetUser(ctx context.Context, userID int) (*UserResult, error) {
	u, err := s.svc.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	companyCode, err := s.companyCodeByID(ctx, u.CompanyID)
	if err != nil {
		return nil, err
	}
	return &UserResult{Username: u.Username, Role: string(u.Role), CompanyCode: companyCode}, nil
}

func (s *appService) companyCodeByID(ctx context.Context, companyID int) (string, error) {
	var code string
	if err := s.pool.QueryRow(ctx, "SELECT company_code FROM companies WHERE id = $1", companyID).Scan(&code); err != nil {
		return "", fmt.Errorf("failed to fetch company %d: %w", companyID, err)
	}
	return code, nil
}

// LoadDefaultCompany loads the active company, using the configured company code if set.
func (s *appService) LoadDefaultCompany(ctx context.Context) (*core.Company, error) {
	if s.defaultCompanyCode != "" {
		return s.fetchCompany(ctx, s.defaultCompanyCode)
	}

	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM companies").Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count companies: %w", err)
	}
	if count > 1 {
		return nil, fmt.Errorf("multiple companies found; set COMPANY_CODE env var (e.g. COMPANY_CODE=1000)")
	}

	c := &core.Company{}
	if err := s.pool.QueryRow(ctx,
		"SELECT id, company_code, name, base_currency FROM companies ORDER BY id LIMIT 1",
	).Scan(&c.ID, &c.CompanyCode, &c.Name, &c.BaseCurrency); err != nil {
		return nil, fmt.Errorf("no default company found, have migrations run?: %w", err)
	}
	return c, nil
}

// ── private helpers ───────────────────────────────────────────────────────────

// fetchCompany retrieves a company record by code.
func (s *appService) fetchCompany(ctx context.Context, companyCode string) (*core.Company, error) {
	c := &core.Company{}
	err := s.pool.QueryRow(ctx,
		"SELECT id, company_code, name, base_currency FROM companies WHERE company_code = $1", companyCode,
	).Scan(&c.ID, &c.CompanyCode, &c.Name, &c.BaseCurrency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: company %s", core.ErrNotFound, companyCode)
		}
		return nil, fmt.Errorf("failed to fetch company %s: %w", companyCode, err)
	}
	return c, nil
}

func (s *appService) resolveCustomer(ctx context.Context, companyCode, customerCode string) (*core.Company, *core.Customer, error) {
	company, err := s.fetchCompany(ctx, companyCode)
	if err != nil {
		return nil, nil, err
	}
	customer, err := s.svc.Customers.GetCustomerByCode(ctx, company.ID, customerCode)
	if err != nil {
		return nil, nil, err
	}
	return company, customer, nil
}

func (s *appService) companyOrder(ctx context.Context, companyCode, ref string) (*core.Company, *core.SalesOrder, error) {
	company, err := s.fetchCompany(ctx, companyCode)
	if err != nil {
		return nil, nil, err
	}
	order, err := s.resolveOrder(ctx, company.ID, ref)
	if err != nil {
		return nil, nil, err
	}
	return company, order, nil
}

// resolveOrder looks up a sales order by numeric ID or order number string.
func (s *appService) resolveOrder(ctx context.Context, companyID int, ref string) (*core.SalesOrder, error) {
	if id, err := strconv.Atoi(ref); err == nil {
		return s.svc.Orders.GetOrder(ctx, companyID, id)
	}
	return s.svc.Orders.GetOrderByNumber(ctx, companyID, ref)
}
