package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// WorkflowConfig is the tenant's order approval configuration. It is loaded by the caller
// (see SettingsStore) and passed into each operation that needs it.
type WorkflowConfig struct {
	RequireApproval bool            `json:"require_approval"`
	Threshold       decimal.Decimal `json:"threshold"`
	DefaultTaxRate  decimal.Decimal `json:"default_tax_rate"`
}

// DecideInitialStatus applies the approval decision table:
//
//	require approval off       → approved
//	total ≥ threshold          → pending
//	cash payment               → approved
//	credit payment             → pending
func DecideInitialStatus(cfg WorkflowConfig, paymentType PaymentType, total decimal.Decimal) OrderStatus {
	switch {
	case !cfg.RequireApproval:
		return OrderStatusApproved
	case total.GreaterThanOrEqual(cfg.Threshold):
		return OrderStatusPending
	case paymentType == PaymentTypeCash:
		return OrderStatusApproved
	default:
		return OrderStatusPending
	}
}

// DecideCreationStatus is DecideInitialStatus for a new order. A point-of-sale order that
// needs no approval is handed over at the counter and starts completed; one that needs
// approval stays pending like any other order.
func DecideCreationStatus(cfg WorkflowConfig, paymentType PaymentType, total decimal.Decimal, pointOfSale bool) OrderStatus {
	status := DecideInitialStatus(cfg, paymentType, total)
	if pointOfSale && status == OrderStatusApproved {
		return OrderStatusCompleted
	}
	return status
}

// ApprovalRequired reports whether a new order must be flagged to approvers.
func ApprovalRequired(cfg WorkflowConfig, status OrderStatus, total decimal.Decimal) bool {
	return status == OrderStatusPending && cfg.RequireApproval && total.GreaterThanOrEqual(cfg.Threshold)
}

// EffectKind names a side effect the orchestrator must apply, in order, inside its transaction.
type EffectKind string

const (
	// EffectRecheckCredit re-evaluates credit with the customer row locked.
	EffectRecheckCredit EffectKind = "recheck_credit"
	// EffectCommitStock re-checks stock with inventory rows locked and reserves it.
	EffectCommitStock EffectKind = "commit_stock"
	// EffectShipStock deducts reserved stock from on-hand.
	EffectShipStock EffectKind = "ship_stock"
	// EffectPersist writes the new order state.
	EffectPersist EffectKind = "persist"
	// EffectAudit emits Audit after the transaction commits.
	EffectAudit EffectKind = "audit"
)

type Effect struct {
	Kind  EffectKind
	Audit *AuditEvent
}

// CommandKind names an operation on an existing order.
type CommandKind string

const (
	CommandApprove CommandKind = "approve"
	CommandReject  CommandKind = "reject"
	CommandFulfill CommandKind = "fulfill"
)

// Command is an operation requested on an existing order.
type Command struct {
	Kind              CommandKind
	ActorID           *int
	Reason            string
	FulfillmentStatus FulfillmentStatus
	TrackingNumber    string
	At                time.Time
}

// NewOrder stamps a freshly priced order with its initial status and returns the effects its
// creation needs. Orders that are approved or completed at birth commit stock immediately,
// after the order row exists.
func NewOrder(o SalesOrder, status OrderStatus, at time.Time) (SalesOrder, []Effect) {
	o.Status = status
	o.FulfillmentStatus = FulfillmentAwaiting
	o.CreatedAt = at

	var effects []Effect
	if status != OrderStatusPending && o.PaymentType == PaymentTypeCredit {
		effects = append(effects, Effect{Kind: EffectRecheckCredit})
	}
	effects = append(effects, Effect{Kind: EffectPersist})
	if status != OrderStatusPending {
		o.StockCommitted = true
		effects = append(effects, Effect{Kind: EffectCommitStock})
	}
	effects = append(effects, auditEffect(o, AuditOrderCreated, o.CreatedBy, at))
	return o, effects
}

// Transition applies cmd to o. It returns the new order value and the effects to apply;
// o itself is never modified. All legality checks for existing orders live here.
func Transition(o SalesOrder, cmd Command) (SalesOrder, []Effect, error) {
	next := o
	next.Items = append([]SalesOrderItem(nil), o.Items...)

	switch cmd.Kind {
	case CommandApprove:
		if o.Status != OrderStatusPending {
			return o, nil, fmt.Errorf("%w: cannot approve order %s in status %s",
				ErrInvalidTransition, o.OrderNumber, o.Status)
		}
		at := cmd.At
		next.Status = OrderStatusApproved
		next.ApprovedBy = cmd.ActorID
		next.ApprovedAt = &at
		next.ApprovalReason = cmd.Reason

		var effects []Effect
		if o.PaymentType == PaymentTypeCredit {
			effects = append(effects, Effect{Kind: EffectRecheckCredit})
		}
		if !o.StockCommitted {
			next.StockCommitted = true
			effects = append(effects, Effect{Kind: EffectCommitStock})
		}
		effects = append(effects,
			Effect{Kind: EffectPersist},
			auditEffect(next, AuditOrderApproved, cmd.ActorID, at))
		return next, effects, nil

	case CommandReject:
		if o.Status != OrderStatusPending {
			return o, nil, fmt.Errorf("%w: cannot reject order %s in status %s",
				ErrInvalidTransition, o.OrderNumber, o.Status)
		}
		at := cmd.At
		next.Status = OrderStatusCancelled
		next.CancelledBy = cmd.ActorID
		next.CancelledAt = &at
		next.CancellationReason = cmd.Reason
		return next, []Effect{
			{Kind: EffectPersist},
			auditEffect(next, AuditOrderRejected, cmd.ActorID, at),
		}, nil

	case CommandFulfill:
		return fulfill(o, next, cmd)
	}
	return o, nil, fmt.Errorf("%w: unknown command %q", ErrValidation, cmd.Kind)
}

func fulfill(o, next SalesOrder, cmd Command) (SalesOrder, []Effect, error) {
	if o.Status != OrderStatusApproved && o.Status != OrderStatusCompleted {
		return o, nil, fmt.Errorf("%w: order %s must be approved before fulfillment, status is %s",
			ErrInvalidTransition, o.OrderNumber, o.Status)
	}
	target := cmd.FulfillmentStatus
	if !target.Valid() {
		return o, nil, fmt.Errorf("%w: unknown fulfillment status %q", ErrInvalidStatus, target)
	}
	if target.rank() < o.FulfillmentStatus.rank() {
		return o, nil, fmt.Errorf("%w: order %s cannot move from %s back to %s",
			ErrInvalidTransition, o.OrderNumber, o.FulfillmentStatus, target)
	}

	at := cmd.At
	next.FulfillmentStatus = target
	if target == FulfillmentShipped && next.ShippedAt == nil {
		next.ShippedAt = &at
	}
	if target == FulfillmentDelivered {
		next.Status = OrderStatusCompleted
		if next.ShippedAt == nil {
			next.ShippedAt = &at
		}
		if next.DeliveredAt == nil {
			next.DeliveredAt = &at
		}
	}
	if target == FulfillmentShipped {
		if tn := strings.TrimSpace(cmd.TrackingNumber); tn != "" {
			next.Notes = appendNote(next.Notes, "Tracking number: "+tn)
		}
	}

	var effects []Effect
	if target.rank() >= FulfillmentShipped.rank() && o.StockCommitted && !o.StockShipped {
		next.StockShipped = true
		effects = append(effects, Effect{Kind: EffectShipStock})
	}
	effects = append(effects, Effect{Kind: EffectPersist})
	return next, effects, nil
}

func appendNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}

func auditEffect(o SalesOrder, action string, actorID *int, at time.Time) Effect {
	return Effect{Kind: EffectAudit, Audit: &AuditEvent{
		CompanyID:  o.CompanyID,
		Action:     action,
		ActorID:    actorID,
		OrderID:    o.ID,
		Amount:     o.TotalAmount,
		OccurredAt: at,
	}}
}
