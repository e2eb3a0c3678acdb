package core

import (
	"github.com/shopspring/decimal"
)

// CreditReason explains why a credit request was refused.
type CreditReason string

const (
	CreditReasonBlocked      CreditReason = "blocked"
	CreditReasonNotEnabled   CreditReason = "not credit-enabled"
	CreditReasonInsufficient CreditReason = "insufficient credit"
)

// CreditDecision is the result of evaluating a customer against a requested amount.
//
// SignedAvailable (limit - outstanding) drives the comparison and may be negative when a customer
// is over their limit. AvailableCredit is the same figure floored at zero, for display.
type CreditDecision struct {
	Allowed         bool            `json:"allowed"`
	Reason          CreditReason    `json:"reason,omitempty"`
	AvailableCredit decimal.Decimal `json:"available_credit"`
	SignedAvailable decimal.Decimal `json:"signed_available"`
}

// Err converts a refusal into a *CreditLimitError. It returns nil when the decision allows credit.
func (d CreditDecision) Err(customerID int, required decimal.Decimal) error {
	if d.Allowed {
		return nil
	}
	return &CreditLimitError{
		CustomerID: customerID,
		Reason:     d.Reason,
		Available:  d.AvailableCredit,
		Required:   required,
	}
}

// EvaluateCredit decides whether customer may take requested on credit.
// Eligibility (blocked, customer type) is checked before the amount.
func EvaluateCredit(customer Customer, requested decimal.Decimal) CreditDecision {
	signed := customer.CreditLimit.Sub(customer.OutstandingBalance)
	d := CreditDecision{
		SignedAvailable: signed,
		AvailableCredit: decimal.Max(signed, decimal.Zero),
	}
	if reason := creditIneligibility(customer); reason != "" {
		d.Reason = reason
		return d
	}
	if requested.GreaterThan(signed) {
		d.Reason = CreditReasonInsufficient
		return d
	}
	d.Allowed = true
	return d
}

// CheckCreditEligibility refuses blocked and non-credit customers regardless of amount.
func CheckCreditEligibility(customer Customer) error {
	if reason := creditIneligibility(customer); reason != "" {
		signed := customer.CreditLimit.Sub(customer.OutstandingBalance)
		return &CreditLimitError{
			CustomerID: customer.ID,
			Reason:     reason,
			Available:  decimal.Max(signed, decimal.Zero),
			Required:   decimal.Zero,
		}
	}
	return nil
}

func creditIneligibility(customer Customer) CreditReason {
	switch {
	case customer.CreditBlocked:
		return CreditReasonBlocked
	case !customer.CreditEnabled():
		return CreditReasonNotEnabled
	}
	return ""
}

// CheckCreditLimitChange validates a new credit limit for customer.
func CheckCreditLimitChange(customer Customer, newLimit decimal.Decimal) error {
	if customer.CustomerType == CustomerTypeCash {
		return businessRuleErrorf("cash customer %s cannot be given a credit limit", customer.Code)
	}
	if newLimit.IsNegative() {
		return businessRuleErrorf("credit limit cannot be negative, got %s", newLimit.StringFixed(2))
	}
	if newLimit.LessThan(customer.OutstandingBalance) {
		return businessRuleErrorf("credit limit %s is below outstanding balance %s",
			newLimit.StringFixed(2), customer.OutstandingBalance.StringFixed(2))
	}
	return nil
}

// CheckCreditBlockChange validates blocking or unblocking credit for customer.
func CheckCreditBlockChange(customer Customer) error {
	if customer.CustomerType == CustomerTypeCash {
		return businessRuleErrorf("cash customer %s has no credit to block", customer.Code)
	}
	return nil
}
