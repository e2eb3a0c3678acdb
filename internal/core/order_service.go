package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"order-engine/internal/observability"
)

// OrderService runs the sales order workflow. Every operation is a single transaction;
// audit events are emitted only after it commits.
type OrderService interface {
	// CreateOrder resolves, stock-checks, prices and credit-checks a new order and stores it
	// with the status chosen by cfg. Orders approved at birth reserve stock immediately.
	CreateOrder(ctx context.Context, cfg WorkflowConfig, input CreateOrderInput) (*CreateResult, error)
	// ApproveOrder re-checks credit and stock under row locks, reserves stock and moves a
	// pending order to approved.
	ApproveOrder(ctx context.Context, companyID, orderID int, actorID *int, reason string) (*SalesOrder, error)
	// RejectOrder cancels a pending order.
	RejectOrder(ctx context.Context, companyID, orderID int, actorID *int, reason string) (*SalesOrder, error)
	// FulfillOrder advances the fulfillment status of an approved or completed order.
	FulfillOrder(ctx context.Context, companyID, orderID int, input FulfillmentInput) (*SalesOrder, error)

	// Queries
	GetOrder(ctx context.Context, companyID, orderID int) (*SalesOrder, error)
	GetOrderByNumber(ctx context.Context, companyID int, orderNumber string) (*SalesOrder, error)
	GetOrders(ctx context.Context, companyID int, status *OrderStatus) ([]SalesOrder, error)
}

type orderService struct {
	pool      *pgxpool.Pool
	inventory InventoryService
	docs      DocumentService
	audit     AuditSink
	now       func() time.Time
}

// NewOrderService wires the workflow to its collaborators. A nil audit sink discards events.
func NewOrderService(pool *pgxpool.Pool, inventory InventoryService, docs DocumentService, audit AuditSink) OrderService {
	if audit == nil {
		audit = noopAuditSink{}
	}
	return &orderService{
		pool:      pool,
		inventory: inventory,
		docs:      docs,
		audit:     audit,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ── Order lifecycle ──────────────────────────────────────────────────────────

func (s *orderService) CreateOrder(ctx context.Context, cfg WorkflowConfig, input CreateOrderInput) (*CreateResult, error) {
	if !input.PaymentType.Valid() {
		return nil, validationErrorf("unknown payment type %q", input.PaymentType)
	}
	if (input.FormulaID != nil) == (len(input.Items) > 0) {
		return nil, validationErrorf("an order needs either a formula or direct items, not both")
	}
	taxRate := cfg.DefaultTaxRate
	if input.TaxRate != nil {
		taxRate = *input.TaxRate
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	customer, err := getCustomer(ctx, tx, input.CompanyID, input.CustomerID, false)
	if err != nil {
		return nil, err
	}
	if input.PaymentType == PaymentTypeCredit {
		if err := CheckCreditEligibility(*customer); err != nil {
			return nil, err
		}
	}

	catalog := &productCatalog{q: tx, companyID: input.CompanyID}
	var lines []ResolvedLine
	if input.FormulaID != nil {
		formula, err := getFormula(ctx, tx, input.CompanyID, *input.FormulaID)
		if err != nil {
			return nil, err
		}
		lines, err = NewFormulaResolver(catalog).Resolve(ctx, *formula, customer.ID, input.TotalQuantity)
		if err != nil {
			return nil, err
		}
	} else {
		lines, err = resolveDirectItems(ctx, catalog, input.Items)
		if err != nil {
			return nil, err
		}
	}

	checker := &stockChecker{q: tx, companyID: input.CompanyID}
	if err := CheckStock(ctx, checker, catalog, lines); err != nil {
		return nil, err
	}

	totals, err := PriceOrder(lines, input.DiscountAmount, taxRate)
	if err != nil {
		return nil, err
	}

	var creditSnapshot *decimal.Decimal
	if input.PaymentType == PaymentTypeCredit {
		decision := EvaluateCredit(*customer, totals.TotalAmount)
		if err := decision.Err(customer.ID, totals.TotalAmount); err != nil {
			return nil, err
		}
		available := decision.AvailableCredit
		creditSnapshot = &available
	}

	status := DecideCreationStatus(cfg, input.PaymentType, totals.TotalAmount, input.PointOfSale)

	draft := SalesOrder{
		CompanyID:       input.CompanyID,
		CustomerID:      customer.ID,
		CustomerCode:    customer.Code,
		CustomerName:    customer.Name,
		PaymentType:     input.PaymentType,
		FormulaID:       input.FormulaID,
		Subtotal:        totals.Subtotal,
		DiscountAmount:  totals.DiscountAmount,
		TaxRate:         totals.TaxRate,
		TaxAmount:       totals.TaxAmount,
		TotalAmount:     totals.TotalAmount,
		CreditAvailable: creditSnapshot,
		Notes:           input.Notes,
		CreatedBy:       input.CreatedBy,
		Items:           itemsFromLines(lines),
	}
	order, effects := NewOrder(draft, status, s.now())

	audits, err := s.apply(ctx, tx, &order, effects, true)
	if err != nil {
		return nil, err
	}
	if order.FormulaID != nil {
		if err := recordFormulaUsage(ctx, tx, *order.FormulaID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order creation: %w", err)
	}
	s.emit(ctx, audits)

	approvalRequired := ApprovalRequired(cfg, order.Status, order.TotalAmount)
	observability.FromContext(ctx).Info("sales order created",
		zap.String("order_number", order.OrderNumber),
		zap.Int("order_id", order.ID),
		zap.String("status", string(order.Status)),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.Bool("approval_required", approvalRequired))

	created, err := s.GetOrder(ctx, order.CompanyID, order.ID)
	if err != nil {
		return nil, err
	}
	return &CreateResult{Order: created, ApprovalRequired: approvalRequired}, nil
}

func (s *orderService) ApproveOrder(ctx context.Context, companyID, orderID int, actorID *int, reason string) (*SalesOrder, error) {
	return s.transition(ctx, companyID, orderID, Command{
		Kind:    CommandApprove,
		ActorID: actorID,
		Reason:  reason,
	})
}

func (s *orderService) RejectOrder(ctx context.Context, companyID, orderID int, actorID *int, reason string) (*SalesOrder, error) {
	return s.transition(ctx, companyID, orderID, Command{
		Kind:    CommandReject,
		ActorID: actorID,
		Reason:  reason,
	})
}

func (s *orderService) FulfillOrder(ctx context.Context, companyID, orderID int, input FulfillmentInput) (*SalesOrder, error) {
	return s.transition(ctx, companyID, orderID, Command{
		Kind:              CommandFulfill,
		ActorID:           input.ActorID,
		FulfillmentStatus: input.Status,
		TrackingNumber:    input.TrackingNumber,
	})
}

// transition locks the order row, applies cmd through the state machine and commits.
func (s *orderService) transition(ctx context.Context, companyID, orderID int, cmd Command) (*SalesOrder, error) {
	cmd.At = s.now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := loadOrder(ctx, tx, companyID, "so.id = $2", orderID, true)
	if err != nil {
		return nil, err
	}

	next, effects, err := Transition(*current, cmd)
	if err != nil {
		return nil, err
	}
	audits, err := s.apply(ctx, tx, &next, effects, false)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order %s: %w", cmd.Kind, err)
	}
	s.emit(ctx, audits)

	observability.FromContext(ctx).Info("sales order transition",
		zap.String("order_number", next.OrderNumber),
		zap.String("command", string(cmd.Kind)),
		zap.String("from", string(current.Status)),
		zap.String("to", string(next.Status)),
		zap.String("fulfillment", string(next.FulfillmentStatus)))

	return s.GetOrder(ctx, companyID, orderID)
}

// apply executes effects in order inside tx and returns the audit events to emit after commit.
func (s *orderService) apply(ctx context.Context, tx pgx.Tx, order *SalesOrder, effects []Effect, insert bool) ([]AuditEvent, error) {
	var audits []AuditEvent
	for _, effect := range effects {
		switch effect.Kind {
		case EffectRecheckCredit:
			customer, err := getCustomer(ctx, tx, order.CompanyID, order.CustomerID, true)
			if err != nil {
				return nil, err
			}
			decision := EvaluateCredit(*customer, order.TotalAmount)
			if err := decision.Err(customer.ID, order.TotalAmount); err != nil {
				return nil, err
			}

		case EffectCommitStock:
			if err := s.inventory.CommitStockTx(ctx, tx, order.CompanyID, order.ID, order.Items); err != nil {
				return nil, err
			}

		case EffectShipStock:
			if err := s.inventory.ShipStockTx(ctx, tx, order.CompanyID, order.ID); err != nil {
				return nil, err
			}

		case EffectPersist:
			var err error
			if insert {
				err = s.insertOrder(ctx, tx, order)
			} else {
				err = updateOrder(ctx, tx, order)
			}
			if err != nil {
				return nil, err
			}

		case EffectAudit:
			event := *effect.Audit
			event.ID = NewAuditID()
			event.OrderID = order.ID
			audits = append(audits, event)

		default:
			return nil, fmt.Errorf("unknown order effect %q", effect.Kind)
		}
	}
	return audits, nil
}

func (s *orderService) emit(ctx context.Context, audits []AuditEvent) {
	for _, event := range audits {
		s.audit.Emit(ctx, event)
	}
}

// insertOrder assigns the order number and writes the header and items.
func (s *orderService) insertOrder(ctx context.Context, tx pgx.Tx, o *SalesOrder) error {
	year := o.CreatedAt.Year()
	number, err := s.docs.NextNumberTx(ctx, tx, o.CompanyID, OrderNumberPrefix, &year)
	if err != nil {
		return err
	}
	o.OrderNumber = number

	err = tx.QueryRow(ctx, `
		INSERT INTO sales_orders (
			company_id, order_number, customer_id, payment_type, formula_id, status, fulfillment_status,
			subtotal, discount_amount, tax_rate, tax_amount, total_amount, credit_available,
			notes, created_by, stock_committed, stock_shipped, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id
	`, o.CompanyID, o.OrderNumber, o.CustomerID, o.PaymentType, o.FormulaID, o.Status, o.FulfillmentStatus,
		o.Subtotal, o.DiscountAmount, o.TaxRate, o.TaxAmount, o.TotalAmount, o.CreditAvailable,
		o.Notes, o.CreatedBy, o.StockCommitted, o.StockShipped, o.CreatedAt,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("failed to insert sales order: %w", err)
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO sales_order_items (order_id, sequence, product_id, quantity, unit_price, total_amount)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, o.ID, item.Sequence, item.ProductID, item.Quantity, item.UnitPrice, item.TotalAmount).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to insert order item %d: %w", item.Sequence, err)
		}
	}
	return nil
}

// updateOrder writes the mutable header fields. Items and amounts never change after creation.
func updateOrder(ctx context.Context, tx pgx.Tx, o *SalesOrder) error {
	_, err := tx.Exec(ctx, `
		UPDATE sales_orders
		SET status = $1, fulfillment_status = $2, notes = $3,
		    approved_by = $4, approved_at = $5, approval_reason = $6,
		    cancelled_by = $7, cancelled_at = $8, cancellation_reason = $9,
		    shipped_at = $10, delivered_at = $11,
		    stock_committed = $12, stock_shipped = $13
		WHERE id = $14
	`, o.Status, o.FulfillmentStatus, o.Notes,
		o.ApprovedBy, o.ApprovedAt, nullableText(o.ApprovalReason),
		o.CancelledBy, o.CancelledAt, nullableText(o.CancellationReason),
		o.ShippedAt, o.DeliveredAt,
		o.StockCommitted, o.StockShipped, o.ID)
	if err != nil {
		return fmt.Errorf("failed to update order %s: %w", o.OrderNumber, err)
	}
	return nil
}

// resolveDirectItems validates caller-supplied lines and fills in catalog prices.
func resolveDirectItems(ctx context.Context, catalog ProductCatalog, items []OrderItemInput) ([]ResolvedLine, error) {
	lines := make([]ResolvedLine, 0, len(items))
	for i, item := range items {
		if !item.Quantity.IsPositive() {
			return nil, validationErrorf("item %d: quantity must be positive, got %s", i+1, item.Quantity.String())
		}
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			return nil, validationErrorf("item %d: unit price cannot be negative, got %s", i+1, item.UnitPrice.String())
		}
		price, err := catalog.SellingPrice(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		if item.UnitPrice != nil {
			price = *item.UnitPrice
		}
		lines = append(lines, ResolvedLine{ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: price})
	}
	return lines, nil
}

func itemsFromLines(lines []ResolvedLine) []SalesOrderItem {
	items := make([]SalesOrderItem, len(lines))
	for i, l := range lines {
		items[i] = SalesOrderItem{
			Sequence:    i + 1,
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TotalAmount: l.Amount(),
		}
	}
	return items
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *orderService) GetOrder(ctx context.Context, companyID, orderID int) (*SalesOrder, error) {
	return loadOrder(ctx, s.pool, companyID, "so.id = $2", orderID, false)
}

func (s *orderService) GetOrderByNumber(ctx context.Context, companyID int, orderNumber string) (*SalesOrder, error) {
	return loadOrder(ctx, s.pool, companyID, "so.order_number = $2", orderNumber, false)
}

func (s *orderService) GetOrders(ctx context.Context, companyID int, status *OrderStatus) ([]SalesOrder, error) {
	query := `SELECT ` + orderColumns + orderFrom + ` WHERE so.company_id = $1`
	args := []any{companyID}
	if status != nil {
		query += " AND so.status = $2"
		args = append(args, *status)
	}
	query += " ORDER BY so.created_at DESC, so.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []SalesOrder
	for rows.Next() {
		var o SalesOrder
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const orderColumns = `so.id, so.company_id, so.order_number, so.customer_id, c.code, c.name,
	so.payment_type, so.formula_id, so.status, so.fulfillment_status,
	so.subtotal, so.discount_amount, so.tax_rate, so.tax_amount, so.total_amount, so.credit_available,
	so.notes, so.created_by, so.approved_by, so.approved_at, COALESCE(so.approval_reason, ''),
	so.cancelled_by, so.cancelled_at, COALESCE(so.cancellation_reason, ''),
	so.shipped_at, so.delivered_at, so.stock_committed, so.stock_shipped, so.created_at`

const orderFrom = `
	FROM sales_orders so
	JOIN customers c ON c.id = so.customer_id`

func scanOrder(row pgx.Row, o *SalesOrder) error {
	return row.Scan(
		&o.ID, &o.CompanyID, &o.OrderNumber, &o.CustomerID, &o.CustomerCode, &o.CustomerName,
		&o.PaymentType, &o.FormulaID, &o.Status, &o.FulfillmentStatus,
		&o.Subtotal, &o.DiscountAmount, &o.TaxRate, &o.TaxAmount, &o.TotalAmount, &o.CreditAvailable,
		&o.Notes, &o.CreatedBy, &o.ApprovedBy, &o.ApprovedAt, &o.ApprovalReason,
		&o.CancelledBy, &o.CancelledAt, &o.CancellationReason,
		&o.ShippedAt, &o.DeliveredAt, &o.StockCommitted, &o.StockShipped, &o.CreatedAt,
	)
}

// loadOrder fetches one order and its items. where filters on $2; forUpdate locks only the
// order row, never the joined customer.
func loadOrder(ctx context.Context, q pgxQuerier, companyID int, where string, key any, forUpdate bool) (*SalesOrder, error) {
	query := `SELECT ` + orderColumns + orderFrom + ` WHERE so.company_id = $1 AND ` + where
	if forUpdate {
		query += " FOR UPDATE OF so"
	}
	var o SalesOrder
	if err := scanOrder(q.QueryRow(ctx, query, companyID, key), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundErrorf("order %v", key)
		}
		return nil, fmt.Errorf("failed to fetch order %v: %w", key, err)
	}

	items, err := fetchOrderItems(ctx, q, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func fetchOrderItems(ctx context.Context, q pgxQuerier, orderID int) ([]SalesOrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT soi.id, soi.order_id, soi.sequence, p.id, p.code, p.name,
		       soi.quantity, soi.unit_price, soi.total_amount
		FROM sales_order_items soi
		JOIN products p ON p.id = soi.product_id
		WHERE soi.order_id = $1
		ORDER BY soi.sequence
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []SalesOrderItem
	for rows.Next() {
		var it SalesOrderItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.Sequence, &it.ProductID, &it.ProductCode, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.TotalAmount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
