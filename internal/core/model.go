package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type Company struct {
	ID           int    `json:"id"`
	CompanyCode  string `json:"company_code"`
	Name         string `json:"name"`
	BaseCurrency string `json:"base_currency"`
}

// Audit actions emitted by the order workflow.
const (
	AuditOrderCreated  = "order.created"
	AuditOrderApproved = "order.approved"
	AuditOrderRejected = "order.rejected"
)

// AuditEvent records who did what to an order. IDs are ULIDs so events sort by time.
type AuditEvent struct {
	ID         string          `json:"id"`
	CompanyID  int             `json:"company_id"`
	Action     string          `json:"action"`
	ActorID    *int            `json:"actor_id,omitempty"`
	OrderID    int             `json:"order_id"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
}
