package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Warehouse represents a physical storage location within a company.
type Warehouse struct {
	ID        int       `json:"id"`
	CompanyID int       `json:"company_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// StockLevel is a read view of an inventory_item joined with product and warehouse info.
type StockLevel struct {
	ProductID     int             `json:"product_id"`
	ProductCode   string          `json:"product_code"`
	ProductName   string          `json:"product_name"`
	WarehouseCode string          `json:"warehouse_code"`
	WarehouseName string          `json:"warehouse_name"`
	OnHand        decimal.Decimal `json:"on_hand"`
	Reserved      decimal.Decimal `json:"reserved"`
	Available     decimal.Decimal `json:"available"` // = OnHand - Reserved
}

// ReceiptInput records goods arriving in a warehouse.
type ReceiptInput struct {
	WarehouseCode string
	ProductID     int
	Quantity      decimal.Decimal
	MovementDate  string // YYYY-MM-DD; empty means today
}
