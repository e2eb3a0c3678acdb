package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// CustomerService manages customer master data and credit settings.
type CustomerService interface {
	CreateCustomer(ctx context.Context, companyID int, input CustomerInput) (*Customer, error)
	GetCustomer(ctx context.Context, companyID, customerID int) (*Customer, error)
	GetCustomerByCode(ctx context.Context, companyID int, code string) (*Customer, error)
	GetCustomers(ctx context.Context, companyID int) ([]Customer, error)

	// SetCreditLimit and SetCreditBlocked lock the customer row for the whole change.
	SetCreditLimit(ctx context.Context, companyID, customerID int, newLimit decimal.Decimal) (*Customer, error)
	SetCreditBlocked(ctx context.Context, companyID, customerID int, blocked bool) (*Customer, error)

	// RecordOutstandingBalance is called by invoicing and payment processing, never by order operations.
	RecordOutstandingBalance(ctx context.Context, companyID, customerID int, balance decimal.Decimal) (*Customer, error)

	// CheckCredit evaluates the customer against requested without changing anything.
	CheckCredit(ctx context.Context, companyID, customerID int, requested decimal.Decimal) (*CreditDecision, error)
}

type customerService struct {
	pool *pgxpool.Pool
}

func NewCustomerService(pool *pgxpool.Pool) CustomerService {
	return &customerService{pool: pool}
}

const customerColumns = `id, company_id, code, name, email, phone, customer_type,
	credit_limit, outstanding_balance, credit_blocked, payment_terms_days, created_at`

func scanCustomer(row pgx.Row, c *Customer) error {
	return row.Scan(&c.ID, &c.CompanyID, &c.Code, &c.Name, &c.Email, &c.Phone, &c.CustomerType,
		&c.CreditLimit, &c.OutstandingBalance, &c.CreditBlocked, &c.PaymentTermsDays, &c.CreatedAt)
}

func (s *customerService) CreateCustomer(ctx context.Context, companyID int, input CustomerInput) (*Customer, error) {
	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	if input.Code == "" || input.Name == "" {
		return nil, validationErrorf("customer code and name are required")
	}
	if input.CustomerType == "" {
		input.CustomerType = CustomerTypeCash
	}
	if !input.CustomerType.Valid() {
		return nil, validationErrorf("unknown customer type %q", input.CustomerType)
	}
	if input.CreditLimit.IsNegative() {
		return nil, validationErrorf("credit limit cannot be negative, got %s", input.CreditLimit.String())
	}
	if input.CustomerType == CustomerTypeCash && !input.CreditLimit.IsZero() {
		return nil, businessRuleErrorf("cash customer %s cannot be given a credit limit", input.Code)
	}

	var c Customer
	err := scanCustomer(s.pool.QueryRow(ctx, `
		INSERT INTO customers (company_id, code, name, email, phone, customer_type, credit_limit, payment_terms_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+customerColumns,
		companyID, input.Code, input.Name, input.Email, input.Phone, input.CustomerType,
		input.CreditLimit, input.PaymentTermsDays,
	), &c)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, businessRuleErrorf("customer code %s already exists", input.Code)
		}
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return &c, nil
}

func (s *customerService) GetCustomer(ctx context.Context, companyID, customerID int) (*Customer, error) {
	return getCustomer(ctx, s.pool, companyID, customerID, false)
}

func (s *customerService) GetCustomerByCode(ctx context.Context, companyID int, code string) (*Customer, error) {
	var c Customer
	err := scanCustomer(s.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE company_id = $1 AND code = $2`,
		companyID, strings.TrimSpace(code)), &c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundErrorf("customer %s", code)
		}
		return nil, fmt.Errorf("failed to fetch customer %s: %w", code, err)
	}
	return &c, nil
}

func (s *customerService) GetCustomers(ctx context.Context, companyID int) ([]Customer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE company_id = $1
		ORDER BY code
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := scanCustomer(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *customerService) SetCreditLimit(ctx context.Context, companyID, customerID int, newLimit decimal.Decimal) (*Customer, error) {
	return s.updateLocked(ctx, companyID, customerID, func(ctx context.Context, tx pgx.Tx, c *Customer) error {
		if err := CheckCreditLimitChange(*c, newLimit); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "UPDATE customers SET credit_limit = $1 WHERE id = $2", newLimit, c.ID); err != nil {
			return fmt.Errorf("failed to update credit limit: %w", err)
		}
		c.CreditLimit = newLimit
		return nil
	})
}

func (s *customerService) SetCreditBlocked(ctx context.Context, companyID, customerID int, blocked bool) (*Customer, error) {
	return s.updateLocked(ctx, companyID, customerID, func(ctx context.Context, tx pgx.Tx, c *Customer) error {
		if err := CheckCreditBlockChange(*c); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "UPDATE customers SET credit_blocked = $1 WHERE id = $2", blocked, c.ID); err != nil {
			return fmt.Errorf("failed to update credit block: %w", err)
		}
		c.CreditBlocked = blocked
		return nil
	})
}

func (s *customerService) RecordOutstandingBalance(ctx context.Context, companyID, customerID int, balance decimal.Decimal) (*Customer, error) {
	if balance.IsNegative() {
		return nil, validationErrorf("outstanding balance cannot be negative, got %s", balance.String())
	}
	return s.updateLocked(ctx, companyID, customerID, func(ctx context.Context, tx pgx.Tx, c *Customer) error {
		if _, err := tx.Exec(ctx, "UPDATE customers SET outstanding_balance = $1 WHERE id = $2", balance, c.ID); err != nil {
			return fmt.Errorf("failed to update outstanding balance: %w", err)
		}
		c.OutstandingBalance = balance
		return nil
	})
}

func (s *customerService) CheckCredit(ctx context.Context, companyID, customerID int, requested decimal.Decimal) (*CreditDecision, error) {
	c, err := getCustomer(ctx, s.pool, companyID, customerID, false)
	if err != nil {
		return nil, err
	}
	d := EvaluateCredit(*c, requested)
	return &d, nil
}

// updateLocked runs apply with the customer row held FOR UPDATE and commits on success.
func (s *customerService) updateLocked(ctx context.Context, companyID, customerID int,
	apply func(ctx context.Context, tx pgx.Tx, c *Customer) error) (*Customer, error) {

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := getCustomer(ctx, tx, companyID, customerID, true)
	if err != nil {
		return nil, err
	}
	if err := apply(ctx, tx, c); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit customer update: %w", err)
	}
	return c, nil
}

// getCustomer loads a customer scoped to companyID, optionally locking the row.
func getCustomer(ctx context.Context, q pgxQuerier, companyID, customerID int, forUpdate bool) (*Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 AND company_id = $2`
	if forUpdate {
		query += " FOR UPDATE"
	}
	var c Customer
	if err := scanCustomer(q.QueryRow(ctx, query, customerID, companyID), &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundErrorf("customer %d", customerID)
		}
		return nil, fmt.Errorf("failed to fetch customer %d: %w", customerID, err)
	}
	return &c, nil
}
