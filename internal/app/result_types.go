package app

import "order-engine/internal/core"

// OrderResult is returned by order lifecycle operations.
type OrderResult struct {
	Order *core.SalesOrder
}

// CreateOrderResult is returned by CreateOrder. ApprovalRequired flags pending orders
// whose total reached the approval threshold.
type CreateOrderResult struct {
	Order            *core.SalesOrder
	ApprovalRequired bool
}

// OrderListResult is returned by ListOrders.
type OrderListResult struct {
	Orders      []core.SalesOrder
	CompanyCode string
}

// StockResult is returned by GetStockLevels.
type StockResult struct {
	Levels      []core.StockLevel
	CompanyCode string
}

// CustomerListResult is returned by ListCustomers.
type CustomerListResult struct {
	Customers []core.Customer
}

// CustomerResult is returned by customer mutations.
type CustomerResult struct {
	Customer *core.Customer
}

// CreditCheckResult is returned by CheckCredit.
type CreditCheckResult struct {
	Customer *core.Customer
	Decision core.CreditDecision
}

// ProductListResult is returned by ListProducts.
type ProductListResult struct {
	Products []core.Product
}

// ProductResult is returned by product mutations.
type ProductResult struct {
	Product *core.Product
}

// FormulaListResult is returned by ListFormulas.
type FormulaListResult struct {
	Formulas []core.Formula
}

// FormulaResult is returned by CreateFormula.
type FormulaResult struct {
	Formula *core.Formula
}

// FormulaPreviewResult is returned by PreviewFormula.
type FormulaPreviewResult struct {
	Lines  []core.ResolvedLine
	Totals core.Totals
}

// WarehouseListResult is returned by ListWarehouses.
type WarehouseListResult struct {
	Warehouses []core.Warehouse
}

// SettingsResult is returned by the settings operations.
type SettingsResult struct {
	CompanyCode string
	Config      core.WorkflowConfig
}

// UserSession is returned by AuthenticateUser and carried in the web session token.
type UserSession struct {
	UserID      int    `json:"user_id"`
	CompanyID   int    `json:"company_id"`
	CompanyCode string `json:"company_code"`
	Username    string `json:"username"`
	Role        string `json:"role"`
}

// UserResult is returned by GetUser.
type UserResult struct {
	Username    string
	Role        string
	CompanyCode string
}
