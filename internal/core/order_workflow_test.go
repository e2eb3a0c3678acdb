package core_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"order-engine/internal/core"
)

func TestDecideInitialStatus(t *testing.T) {
	on := core.WorkflowConfig{RequireApproval: true, Threshold: dec("1000000")}
	off := core.WorkflowConfig{RequireApproval: false, Threshold: dec("1000000")}

	tests := []struct {
		name         string
		cfg          core.WorkflowConfig
		payment      core.PaymentType
		total        string
		wantStatus   core.OrderStatus
		wantApproval bool
	}{
		{"scenario B: cash under threshold", on, core.PaymentTypeCash, "999999.99", core.OrderStatusApproved, false},
		{"scenario C: cash at threshold", on, core.PaymentTypeCash, "1000000.00", core.OrderStatusPending, true},
		{"credit under threshold waits without flag", on, core.PaymentTypeCredit, "10", core.OrderStatusPending, false},
		{"credit over threshold", on, core.PaymentTypeCredit, "2000000", core.OrderStatusPending, true},
		{"approval off: cash over threshold", off, core.PaymentTypeCash, "5000000", core.OrderStatusApproved, false},
		{"approval off: credit", off, core.PaymentTypeCredit, "10", core.OrderStatusApproved, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := dec(tt.total)
			status := core.DecideInitialStatus(tt.cfg, tt.payment, total)
			if status != tt.wantStatus {
				t.Errorf("status = %s, want %s", status, tt.wantStatus)
			}
			if got := core.ApprovalRequired(tt.cfg, status, total); got != tt.wantApproval {
				t.Errorf("ApprovalRequired = %v, want %v", got, tt.wantApproval)
			}
		})
	}
}

func TestDecideCreationStatus_PointOfSale(t *testing.T) {
	on := core.WorkflowConfig{RequireApproval: true, Threshold: dec("1000000")}
	off := core.WorkflowConfig{RequireApproval: false}

	tests := []struct {
		name        string
		cfg         core.WorkflowConfig
		payment     core.PaymentType
		total       string
		pointOfSale bool
		want        core.OrderStatus
	}{
		{"counter sale under threshold", on, core.PaymentTypeCash, "999", true, core.OrderStatusCompleted},
		{"counter sale at threshold still waits", on, core.PaymentTypeCash, "1000000", true, core.OrderStatusPending},
		{"counter sale on credit still waits", on, core.PaymentTypeCredit, "10", true, core.OrderStatusPending},
		{"counter sale with approval off", off, core.PaymentTypeCredit, "5000000", true, core.OrderStatusCompleted},
		{"regular sale", on, core.PaymentTypeCash, "999", false, core.OrderStatusApproved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := dec(tt.total)
			if got := core.DecideCreationStatus(tt.cfg, tt.payment, total, tt.pointOfSale); got != tt.want {
				t.Errorf("status = %s, want %s", got, tt.want)
			}
		})
	}
}

func effectKinds(effects []core.Effect) []core.EffectKind {
	kinds := make([]core.EffectKind, len(effects))
	for i, e := range effects {
		kinds[i] = e.Kind
	}
	return kinds
}

func pendingOrder(payment core.PaymentType) core.SalesOrder {
	return core.SalesOrder{
		ID:                10,
		CompanyID:         1,
		OrderNumber:       "SO-1000-2026-00010",
		PaymentType:       payment,
		Status:            core.OrderStatusPending,
		FulfillmentStatus: core.FulfillmentAwaiting,
		TotalAmount:       dec("1500"),
		Items: []core.SalesOrderItem{
			{Sequence: 1, ProductID: 1, Quantity: dec("10"), UnitPrice: dec("150"), TotalAmount: dec("1500")},
		},
	}
}

func TestNewOrder_Effects(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		payment       core.PaymentType
		status        core.OrderStatus
		wantEffects   []core.EffectKind
		wantCommitted bool
	}{
		{"pending takes no locks", core.PaymentTypeCredit, core.OrderStatusPending,
			[]core.EffectKind{core.EffectPersist, core.EffectAudit}, false},
		{"approved cash commits stock", core.PaymentTypeCash, core.OrderStatusApproved,
			[]core.EffectKind{core.EffectPersist, core.EffectCommitStock, core.EffectAudit}, true},
		{"approved credit rechecks credit first", core.PaymentTypeCredit, core.OrderStatusApproved,
			[]core.EffectKind{core.EffectRecheckCredit, core.EffectPersist, core.EffectCommitStock, core.EffectAudit}, true},
		{"point of sale completes at birth", core.PaymentTypeCash, core.OrderStatusCompleted,
			[]core.EffectKind{core.EffectPersist, core.EffectCommitStock, core.EffectAudit}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := pendingOrder(tt.payment)
			draft.Status = ""
			o, effects := core.NewOrder(draft, tt.status, at)
			if o.Status != tt.status || o.FulfillmentStatus != core.FulfillmentAwaiting {
				t.Errorf("got status %s/%s", o.Status, o.FulfillmentStatus)
			}
			if !o.CreatedAt.Equal(at) {
				t.Errorf("CreatedAt = %v, want %v", o.CreatedAt, at)
			}
			if o.StockCommitted != tt.wantCommitted {
				t.Errorf("StockCommitted = %v, want %v", o.StockCommitted, tt.wantCommitted)
			}
			if got := effectKinds(effects); !reflect.DeepEqual(got, tt.wantEffects) {
				t.Errorf("effects = %v, want %v", got, tt.wantEffects)
			}
			last := effects[len(effects)-1]
			if last.Audit == nil || last.Audit.Action != core.AuditOrderCreated {
				t.Errorf("expected %s audit, got %+v", core.AuditOrderCreated, last.Audit)
			}
		})
	}
}

func TestTransition_Approve(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	actor := 3
	o := pendingOrder(core.PaymentTypeCredit)

	next, effects, err := core.Transition(o, core.Command{Kind: core.CommandApprove, ActorID: &actor, Reason: "ok", At: at})
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if next.Status != core.OrderStatusApproved {
		t.Errorf("status = %s, want approved", next.Status)
	}
	if next.ApprovedBy == nil || *next.ApprovedBy != actor || next.ApprovedAt == nil || !next.ApprovedAt.Equal(at) {
		t.Errorf("approval stamp not set: %+v %+v", next.ApprovedBy, next.ApprovedAt)
	}
	if next.ApprovalReason != "ok" || !next.StockCommitted {
		t.Errorf("reason=%q committed=%v", next.ApprovalReason, next.StockCommitted)
	}
	want := []core.EffectKind{core.EffectRecheckCredit, core.EffectCommitStock, core.EffectPersist, core.EffectAudit}
	if got := effectKinds(effects); !reflect.DeepEqual(got, want) {
		t.Errorf("effects = %v, want %v", got, want)
	}
	if a := effects[3].Audit; a.Action != core.AuditOrderApproved || a.OrderID != o.ID || !a.Amount.Equal(o.TotalAmount) {
		t.Errorf("unexpected audit event %+v", a)
	}

	// The input value is untouched.
	if o.Status != core.OrderStatusPending || o.ApprovedAt != nil || o.StockCommitted {
		t.Errorf("Transition mutated its input: %+v", o)
	}

	// Cash orders skip the credit re-check.
	_, effects, err = core.Transition(pendingOrder(core.PaymentTypeCash), core.Command{Kind: core.CommandApprove, At: at})
	if err != nil {
		t.Fatalf("approve cash failed: %v", err)
	}
	if effects[0].Kind != core.EffectCommitStock {
		t.Errorf("cash approval should start with stock commit, got %v", effectKinds(effects))
	}
}

func TestTransition_ApproveIsNotRepeatable(t *testing.T) {
	approved, _, err := core.Transition(pendingOrder(core.PaymentTypeCash), core.Command{Kind: core.CommandApprove, At: time.Now()})
	if err != nil {
		t.Fatalf("first approve failed: %v", err)
	}

	again, effects, err := core.Transition(approved, core.Command{Kind: core.CommandApprove, At: time.Now()})
	if !errors.Is(err, core.ErrInvalidTransition) {
		t.Fatalf("second approve: expected ErrInvalidTransition, got %v", err)
	}
	if effects != nil {
		t.Errorf("failed transition must not produce effects, got %v", effectKinds(effects))
	}
	if again.Status != core.OrderStatusApproved || !again.ApprovedAt.Equal(*approved.ApprovedAt) {
		t.Errorf("failed transition changed the order: %+v", again)
	}
}

func TestTransition_Reject(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	actor := 4
	next, effects, err := core.Transition(pendingOrder(core.PaymentTypeCredit),
		core.Command{Kind: core.CommandReject, ActorID: &actor, Reason: "duplicate", At: at})
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if next.Status != core.OrderStatusCancelled || next.CancellationReason != "duplicate" {
		t.Errorf("got status=%s reason=%q", next.Status, next.CancellationReason)
	}
	if next.CancelledBy == nil || *next.CancelledBy != actor || next.CancelledAt == nil {
		t.Errorf("cancellation stamp not set")
	}
	want := []core.EffectKind{core.EffectPersist, core.EffectAudit}
	if got := effectKinds(effects); !reflect.DeepEqual(got, want) {
		t.Errorf("effects = %v, want %v", got, want)
	}

	// Cancelled is terminal.
	for _, kind := range []core.CommandKind{core.CommandApprove, core.CommandReject} {
		if _, _, err := core.Transition(next, core.Command{Kind: kind, At: at}); !errors.Is(err, core.ErrInvalidTransition) {
			t.Errorf("%s after cancel: expected ErrInvalidTransition, got %v", kind, err)
		}
	}
	if _, _, err := core.Transition(next, core.Command{Kind: core.CommandFulfill, FulfillmentStatus: core.FulfillmentShipped, At: at}); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("fulfill after cancel: expected ErrInvalidTransition, got %v", err)
	}
}

func approvedOrder() core.SalesOrder {
	o, _, _ := core.Transition(pendingOrder(core.PaymentTypeCash), core.Command{Kind: core.CommandApprove, At: time.Now()})
	return o
}

func TestTransition_Fulfill(t *testing.T) {
	at := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	fulfill := func(o core.SalesOrder, status core.FulfillmentStatus, tracking string) (core.SalesOrder, []core.Effect, error) {
		return core.Transition(o, core.Command{Kind: core.CommandFulfill, FulfillmentStatus: status, TrackingNumber: tracking, At: at})
	}

	t.Run("pending order cannot be fulfilled", func(t *testing.T) {
		_, _, err := fulfill(pendingOrder(core.PaymentTypeCash), core.FulfillmentProcessing, "")
		if !errors.Is(err, core.ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		_, _, err := fulfill(approvedOrder(), core.FulfillmentStatus("lost"), "")
		if !errors.Is(err, core.ErrInvalidStatus) {
			t.Errorf("expected ErrInvalidStatus, got %v", err)
		}
	})

	t.Run("processing only persists", func(t *testing.T) {
		next, effects, err := fulfill(approvedOrder(), core.FulfillmentProcessing, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if next.FulfillmentStatus != core.FulfillmentProcessing || next.Status != core.OrderStatusApproved {
			t.Errorf("got %s/%s", next.Status, next.FulfillmentStatus)
		}
		if got := effectKinds(effects); !reflect.DeepEqual(got, []core.EffectKind{core.EffectPersist}) {
			t.Errorf("effects = %v", got)
		}
	})

	t.Run("shipped ships stock once and appends tracking", func(t *testing.T) {
		o := approvedOrder()
		o.Notes = "Leave at gate"
		next, effects, err := fulfill(o, core.FulfillmentShipped, "TRK-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if next.Notes != "Leave at gate\nTracking number: TRK-1" {
			t.Errorf("Notes = %q", next.Notes)
		}
		if next.ShippedAt == nil || !next.ShippedAt.Equal(at) || !next.StockShipped {
			t.Errorf("shipment not stamped: %+v %v", next.ShippedAt, next.StockShipped)
		}
		want := []core.EffectKind{core.EffectShipStock, core.EffectPersist}
		if got := effectKinds(effects); !reflect.DeepEqual(got, want) {
			t.Errorf("effects = %v, want %v", got, want)
		}

		again, effects, err := fulfill(next, core.FulfillmentShipped, "TRK-2")
		if err != nil {
			t.Fatalf("second ship failed: %v", err)
		}
		if got := effectKinds(effects); !reflect.DeepEqual(got, []core.EffectKind{core.EffectPersist}) {
			t.Errorf("stock must ship only once, effects = %v", got)
		}
		if again.Notes != "Leave at gate\nTracking number: TRK-1\nTracking number: TRK-2" {
			t.Errorf("Notes = %q", again.Notes)
		}
	})

	t.Run("delivered completes the order", func(t *testing.T) {
		next, effects, err := fulfill(approvedOrder(), core.FulfillmentDelivered, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if next.Status != core.OrderStatusCompleted || next.DeliveredAt == nil || !next.DeliveredAt.Equal(at) {
			t.Errorf("got status=%s delivered_at=%v", next.Status, next.DeliveredAt)
		}
		if got := effectKinds(effects); got[0] != core.EffectShipStock {
			t.Errorf("delivery without prior shipment should ship stock, effects = %v", got)
		}
	})

	t.Run("cannot move backwards", func(t *testing.T) {
		delivered, _, err := fulfill(approvedOrder(), core.FulfillmentDelivered, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, _, err := fulfill(delivered, core.FulfillmentProcessing, ""); !errors.Is(err, core.ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})
}
