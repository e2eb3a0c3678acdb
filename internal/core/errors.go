package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors. Every error returned by the engine wraps exactly one of these, so callers
// branch with errors.Is and read structured details with errors.As.
var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrFormulaInvalid      = errors.New("formula invalid")
	ErrFormulaNotAvailable = errors.New("formula not available for customer")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrCreditLimitExceeded = errors.New("credit limit exceeded")
	ErrBusinessRule        = errors.New("business rule violated")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInvalidStatus       = errors.New("invalid status")
)

// InsufficientStockError reports the first product whose available stock could not cover
// the requested quantity.
type InsufficientStockError struct {
	ProductID   int
	ProductName string
	Requested   decimal.Decimal
	Available   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = fmt.Sprintf("product %d", e.ProductID)
	}
	return fmt.Sprintf("insufficient stock for %s: requested %s, available %s",
		name, e.Requested.String(), e.Available.String())
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// CreditLimitError is returned when the credit policy refuses an order.
// Available is the display value (never negative); Required is the order amount.
type CreditLimitError struct {
	CustomerID int
	Reason     CreditReason
	Available  decimal.Decimal
	Required   decimal.Decimal
}

func (e *CreditLimitError) Error() string {
	if e.Reason == CreditReasonInsufficient {
		return fmt.Sprintf("credit limit exceeded for customer %d: available %s, required %s",
			e.CustomerID, e.Available.StringFixed(2), e.Required.StringFixed(2))
	}
	return fmt.Sprintf("credit refused for customer %d: %s", e.CustomerID, e.Reason)
}

func (e *CreditLimitError) Unwrap() error { return ErrCreditLimitExceeded }

// Is lets an eligibility refusal (blocked, not credit-enabled) also match ErrBusinessRule.
func (e *CreditLimitError) Is(target error) bool {
	return target == ErrBusinessRule && e.Reason != CreditReasonInsufficient
}

// validationErrorf wraps ErrValidation with a formatted detail.
func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// businessRuleErrorf wraps ErrBusinessRule with a formatted detail.
func businessRuleErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBusinessRule, fmt.Sprintf(format, args...))
}

// notFoundErrorf wraps ErrNotFound with a formatted detail.
func notFoundErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
