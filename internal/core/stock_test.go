package core_test

import (
	"context"
	"errors"
	"testing"

	"order-engine/internal/core"

	"github.com/shopspring/decimal"
)

// fakeStock maps product id to available quantity; missing products are untracked.
type fakeStock map[int]decimal.Decimal

func (f fakeStock) AvailableStock(_ context.Context, productID int) (decimal.Decimal, bool, error) {
	q, ok := f[productID]
	return q, ok, nil
}

func TestIsAvailable(t *testing.T) {
	stock := fakeStock{1: dec("10")}
	ctx := context.Background()

	tests := []struct {
		name      string
		productID int
		qty       string
		want      bool
	}{
		{"enough", 1, "10", true},
		{"short", 1, "10.0001", false},
		{"service item", 2, "1000000", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := core.IsAvailable(ctx, stock, tt.productID, dec(tt.qty))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsAvailable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckStock_FailsFastOnFirstShortfall(t *testing.T) {
	stock := fakeStock{1: dec("600"), 2: dec("100"), 3: dec("0")}
	lines := []core.ResolvedLine{line(1, "600", "1"), line(2, "400", "1"), line(3, "5", "1")}

	err := core.CheckStock(context.Background(), stock, newFakeCatalog(), lines)
	if !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	var ise *core.InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatalf("expected *InsufficientStockError, got %T", err)
	}
	if ise.ProductID != 2 || ise.ProductName != "Potash" {
		t.Errorf("expected product 2 (Potash), got %d (%s)", ise.ProductID, ise.ProductName)
	}
	if !ise.Requested.Equal(dec("400")) || !ise.Available.Equal(dec("100")) {
		t.Errorf("got requested=%s available=%s, want 400/100", ise.Requested, ise.Available)
	}
}

func TestCheckStock_RepeatedProductUsesRunningTotal(t *testing.T) {
	stock := fakeStock{1: dec("10")}
	lines := []core.ResolvedLine{line(1, "6", "1"), line(1, "6", "1")}

	err := core.CheckStock(context.Background(), stock, newFakeCatalog(), lines)
	var ise *core.InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatalf("expected *InsufficientStockError, got %v", err)
	}
	if !ise.Requested.Equal(dec("12")) {
		t.Errorf("Requested = %s, want 12", ise.Requested)
	}
}

func TestCheckStock_ServiceItemsPass(t *testing.T) {
	lines := []core.ResolvedLine{line(9, "1000", "1")}
	if err := core.CheckStock(context.Background(), fakeStock{}, newFakeCatalog(), lines); err != nil {
		t.Errorf("untracked product should pass, got %v", err)
	}
}
