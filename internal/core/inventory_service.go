package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// InventoryService manages warehouse stock levels, order reservations, and goods movements.
type InventoryService interface {
	// Standalone operations (manage their own transactions).
	GetWarehouses(ctx context.Context, companyID int) ([]Warehouse, error)
	CreateWarehouse(ctx context.Context, companyID int, code, name string) (*Warehouse, error)
	GetStockLevels(ctx context.Context, companyID int) ([]StockLevel, error)
	// ReceiveStock records a goods receipt and increases qty_on_hand.
	ReceiveStock(ctx context.Context, companyID int, input ReceiptInput) error
	// Checker reads availability without locks.
	Checker(companyID int) StockChecker

	// TX-scoped operations: work within a caller-provided transaction.
	// Used by OrderService to keep inventory changes atomic with order state transitions.

	// CommitStockTx locks the inventory rows of every item (by product id, then warehouse id),
	// re-checks availability and reserves the quantities for the order.
	// Products without inventory rows are service items and are skipped.
	CommitStockTx(ctx context.Context, tx pgx.Tx, companyID, orderID int, items []SalesOrderItem) error
	// ShipStockTx deducts the order's reservations from on-hand stock.
	ShipStockTx(ctx context.Context, tx pgx.Tx, companyID, orderID int) error
}

type inventoryService struct {
	pool *pgxpool.Pool
}

func NewInventoryService(pool *pgxpool.Pool) InventoryService {
	return &inventoryService{pool: pool}
}

// ── Standalone operations ─────────────────────────────────────────────────────

func (s *inventoryService) GetWarehouses(ctx context.Context, companyID int) ([]Warehouse, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, code, name, is_active, created_at
		FROM warehouses
		WHERE company_id = $1 AND is_active = true
		ORDER BY code
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query warehouses: %w", err)
	}
	defer rows.Close()

	var warehouses []Warehouse
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.CompanyID, &w.Code, &w.Name, &w.IsActive, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan warehouse: %w", err)
		}
		warehouses = append(warehouses, w)
	}
	return warehouses, rows.Err()
}

func (s *inventoryService) CreateWarehouse(ctx context.Context, companyID int, code, name string) (*Warehouse, error) {
	code, name = strings.TrimSpace(code), strings.TrimSpace(name)
	if code == "" || name == "" {
		return nil, validationErrorf("warehouse code and name are required")
	}
	var w Warehouse
	err := s.pool.QueryRow(ctx, `
		INSERT INTO warehouses (company_id, code, name)
		VALUES ($1, $2, $3)
		RETURNING id, company_id, code, name, is_active, created_at
	`, companyID, code, name).Scan(&w.ID, &w.CompanyID, &w.Code, &w.Name, &w.IsActive, &w.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, businessRuleErrorf("warehouse code %s already exists", code)
		}
		return nil, fmt.Errorf("failed to create warehouse: %w", err)
	}
	return &w, nil
}

func (s *inventoryService) GetStockLevels(ctx context.Context, companyID int) ([]StockLevel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.code, p.name, w.code, w.name,
		       ii.qty_on_hand, ii.qty_reserved,
		       ii.qty_on_hand - ii.qty_reserved AS qty_available
		FROM inventory_items ii
		JOIN products p   ON p.id = ii.product_id
		JOIN warehouses w ON w.id = ii.warehouse_id
		WHERE ii.company_id = $1
		ORDER BY p.code, w.code
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var sl StockLevel
		if err := rows.Scan(
			&sl.ProductID, &sl.ProductCode, &sl.ProductName,
			&sl.WarehouseCode, &sl.WarehouseName,
			&sl.OnHand, &sl.Reserved, &sl.Available,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stock level: %w", err)
		}
		levels = append(levels, sl)
	}
	return levels, rows.Err()
}

// ReceiveStock records a goods receipt for a product into a warehouse.
func (s *inventoryService) ReceiveStock(ctx context.Context, companyID int, input ReceiptInput) error {
	if !input.Quantity.IsPositive() {
		return validationErrorf("receive quantity must be positive, got %s", input.Quantity.String())
	}
	movementDate := time.Now()
	if input.MovementDate != "" {
		d, err := time.Parse("2006-01-02", input.MovementDate)
		if err != nil {
			return validationErrorf("invalid movement date %q", input.MovementDate)
		}
		movementDate = d
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var warehouseID int
	if err := tx.QueryRow(ctx,
		"SELECT id FROM warehouses WHERE company_id = $1 AND code = $2 AND is_active = true",
		companyID, input.WarehouseCode,
	).Scan(&warehouseID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFoundErrorf("warehouse %s", input.WarehouseCode)
		}
		return fmt.Errorf("failed to resolve warehouse: %w", err)
	}

	product, err := getProduct(ctx, tx, companyID, input.ProductID)
	if err != nil {
		return err
	}

	// Upsert then lock the inventory_item row.
	var itemID int
	err = tx.QueryRow(ctx, `
		INSERT INTO inventory_items (company_id, product_id, warehouse_id, qty_on_hand, qty_reserved)
		VALUES ($1, $2, $3, 0, 0)
		ON CONFLICT (company_id, product_id, warehouse_id) DO UPDATE SET updated_at = NOW()
		RETURNING id
	`, companyID, product.ID, warehouseID).Scan(&itemID)
	if err != nil {
		return fmt.Errorf("failed to upsert inventory item: %w", err)
	}
	if _, err := tx.Exec(ctx, "SELECT id FROM inventory_items WHERE id = $1 FOR UPDATE", itemID); err != nil {
		return fmt.Errorf("failed to lock inventory item: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE inventory_items SET qty_on_hand = qty_on_hand + $1, updated_at = NOW()
		WHERE id = $2
	`, input.Quantity, itemID); err != nil {
		return fmt.Errorf("failed to update inventory item: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO inventory_movements (company_id, inventory_item_id, movement_type, quantity, movement_date, notes)
		VALUES ($1, $2, 'RECEIPT', $3, $4, $5)
	`, companyID, itemID, input.Quantity, movementDate.Format("2006-01-02"),
		fmt.Sprintf("Goods receipt: %s × %s units into %s", product.Code, input.Quantity.String(), input.WarehouseCode),
	); err != nil {
		return fmt.Errorf("failed to insert inventory movement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit goods receipt: %w", err)
	}
	return nil
}

func (s *inventoryService) Checker(companyID int) StockChecker {
	return &stockChecker{q: s.pool, companyID: companyID}
}

// ── TX-scoped operations ──────────────────────────────────────────────────────

// CommitStockTx reserves stock for each physical-goods product of the order within the caller's TX.
// Quantities are spread across active warehouses in warehouse id order.
func (s *inventoryService) CommitStockTx(ctx context.Context, tx pgx.Tx, companyID, orderID int, items []SalesOrderItem) error {
	need := make(map[int]decimal.Decimal)
	for _, item := range items {
		need[item.ProductID] = need[item.ProductID].Add(item.Quantity)
	}
	productIDs := make([]int, 0, len(need))
	for id := range need {
		productIDs = append(productIDs, id)
	}
	sort.Ints(productIDs)

	for _, productID := range productIDs {
		rows, err := lockInventoryRows(ctx, tx, companyID, productID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			// No inventory_item = service product, skip
			continue
		}

		available := decimal.Zero
		for _, r := range rows {
			available = available.Add(r.available())
		}
		required := need[productID]
		if available.LessThan(required) {
			name, err := (&productCatalog{q: tx, companyID: companyID}).ProductName(ctx, productID)
			if err != nil {
				return err
			}
			return &InsufficientStockError{
				ProductID:   productID,
				ProductName: name,
				Requested:   required,
				Available:   available,
			}
		}

		remaining := required
		for _, r := range rows {
			if !remaining.IsPositive() {
				break
			}
			take := decimal.Min(remaining, r.available())
			if !take.IsPositive() {
				continue
			}
			remaining = remaining.Sub(take)

			if _, err := tx.Exec(ctx, `
				UPDATE inventory_items SET qty_reserved = qty_reserved + $1, updated_at = NOW()
				WHERE id = $2
			`, take, r.itemID); err != nil {
				return fmt.Errorf("failed to reserve stock for product %d: %w", productID, err)
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO inventory_movements (company_id, inventory_item_id, movement_type, quantity, order_id, movement_date, notes)
				VALUES ($1, $2, 'RESERVATION', $3, $4, CURRENT_DATE, $5)
			`, companyID, r.itemID, take, orderID,
				fmt.Sprintf("Stock reserved for order ID %d, product %d", orderID, productID),
			); err != nil {
				return fmt.Errorf("failed to insert reservation movement for product %d: %w", productID, err)
			}
		}
	}
	return nil
}

// ShipStockTx turns every RESERVATION movement of the order into a SHIPMENT within the caller's TX.
func (s *inventoryService) ShipStockTx(ctx context.Context, tx pgx.Tx, companyID, orderID int) error {
	rows, err := tx.Query(ctx, `
		SELECT ii.id, SUM(im.quantity)
		FROM inventory_movements im
		JOIN inventory_items ii ON ii.id = im.inventory_item_id
		WHERE im.order_id = $1 AND im.movement_type = 'RESERVATION'
		GROUP BY ii.id, ii.product_id, ii.warehouse_id
		ORDER BY ii.product_id, ii.warehouse_id
	`, orderID)
	if err != nil {
		return fmt.Errorf("failed to fetch reservation movements for order %d: %w", orderID, err)
	}

	type reservationRow struct {
		itemID   int
		quantity decimal.Decimal
	}
	var reservations []reservationRow
	for rows.Next() {
		var r reservationRow
		if err := rows.Scan(&r.itemID, &r.quantity); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan reservation row: %w", err)
		}
		reservations = append(reservations, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating reservation rows: %w", err)
	}

	for _, r := range reservations {
		if _, err := tx.Exec(ctx, "SELECT id FROM inventory_items WHERE id = $1 FOR UPDATE", r.itemID); err != nil {
			return fmt.Errorf("failed to lock inventory item %d: %w", r.itemID, err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE inventory_items
			SET qty_on_hand  = qty_on_hand  - $1,
			    qty_reserved = qty_reserved - $1,
			    updated_at   = NOW()
			WHERE id = $2
		`, r.quantity, r.itemID); err != nil {
			return fmt.Errorf("failed to deduct inventory for item %d: %w", r.itemID, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO inventory_movements (company_id, inventory_item_id, movement_type, quantity, order_id, movement_date, notes)
			VALUES ($1, $2, 'SHIPMENT', $3, $4, CURRENT_DATE, $5)
		`, companyID, r.itemID, r.quantity.Neg(), orderID,
			fmt.Sprintf("Goods shipped for order ID %d", orderID),
		); err != nil {
			return fmt.Errorf("failed to insert shipment movement for item %d: %w", r.itemID, err)
		}
	}
	return nil
}

// ── Availability ──────────────────────────────────────────────────────────────

type inventoryRow struct {
	itemID   int
	onHand   decimal.Decimal
	reserved decimal.Decimal
}

func (r inventoryRow) available() decimal.Decimal { return r.onHand.Sub(r.reserved) }

// lockInventoryRows returns the product's rows in active warehouses, locked FOR UPDATE.
func lockInventoryRows(ctx context.Context, q pgxQuerier, companyID, productID int) ([]inventoryRow, error) {
	return queryInventoryRows(ctx, q, companyID, productID, true)
}

func queryInventoryRows(ctx context.Context, q pgxQuerier, companyID, productID int, lock bool) ([]inventoryRow, error) {
	query := `
		SELECT ii.id, ii.qty_on_hand, ii.qty_reserved
		FROM inventory_items ii
		JOIN warehouses w ON w.id = ii.warehouse_id
		WHERE ii.company_id = $1
		  AND ii.product_id = $2
		  AND w.is_active = true
		ORDER BY w.id`
	if lock {
		query += " FOR UPDATE OF ii"
	}
	rows, err := q.Query(ctx, query, companyID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory for product %d: %w", productID, err)
	}
	defer rows.Close()

	var out []inventoryRow
	for rows.Next() {
		var r inventoryRow
		if err := rows.Scan(&r.itemID, &r.onHand, &r.reserved); err != nil {
			return nil, fmt.Errorf("failed to scan inventory row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// stockChecker implements StockChecker over the pool or an open transaction.
type stockChecker struct {
	q         pgxQuerier
	companyID int
}

func (c *stockChecker) AvailableStock(ctx context.Context, productID int) (decimal.Decimal, bool, error) {
	rows, err := queryInventoryRows(ctx, c.q, c.companyID, productID, false)
	if err != nil {
		return decimal.Zero, false, err
	}
	if len(rows) == 0 {
		return decimal.Zero, false, nil
	}
	available := decimal.Zero
	for _, r := range rows {
		available = available.Add(r.available())
	}
	return available, true, nil
}
