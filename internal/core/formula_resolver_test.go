package core_test

import (
	"context"
	"errors"
	"testing"

	"order-engine/internal/core"

	"github.com/shopspring/decimal"
)

// fakeCatalog is an in-memory ProductCatalog.
type fakeCatalog struct {
	prices map[int]decimal.Decimal
	names  map[int]string
}

func (c *fakeCatalog) SellingPrice(_ context.Context, productID int) (decimal.Decimal, error) {
	p, ok := c.prices[productID]
	if !ok {
		return decimal.Zero, core.ErrNotFound
	}
	return p, nil
}

func (c *fakeCatalog) ProductName(_ context.Context, productID int) (string, error) {
	n, ok := c.names[productID]
	if !ok {
		return "", core.ErrNotFound
	}
	return n, nil
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		prices: map[int]decimal.Decimal{1: dec("12.50"), 2: dec("8.00"), 3: dec("3.10")},
		names:  map[int]string{1: "Urea", 2: "Potash", 3: "Sand"},
	}
}

func formula(active bool, customerID *int, items ...core.FormulaItem) core.Formula {
	return core.Formula{ID: 1, Code: "F1", IsActive: active, CustomerID: customerID, Items: items}
}

func item(seq, productID int, pct string) core.FormulaItem {
	return core.FormulaItem{Sequence: seq, ProductID: productID, Percentage: dec(pct)}
}

func TestValidateFormula(t *testing.T) {
	tests := []struct {
		name    string
		f       core.Formula
		wantErr bool
	}{
		{"exact 100", formula(true, nil, item(1, 1, "60"), item(2, 2, "40")), false},
		{"within tolerance high", formula(true, nil, item(1, 1, "60.005"), item(2, 2, "40")), false},
		{"within tolerance low", formula(true, nil, item(1, 1, "59.995"), item(2, 2, "40")), false},
		{"scenario A: 99.99 is rejected", formula(true, nil, item(1, 1, "59.99"), item(2, 2, "40")), true},
		{"100.01 is rejected", formula(true, nil, item(1, 1, "60.01"), item(2, 2, "40")), true},
		{"inactive", formula(false, nil, item(1, 1, "100")), true},
		{"no items", formula(true, nil), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := core.ValidateFormula(tt.f)
			if tt.wantErr && !errors.Is(err, core.ErrFormulaInvalid) {
				t.Errorf("expected ErrFormulaInvalid, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestFormulaResolver_ScenarioA(t *testing.T) {
	catalog := newFakeCatalog()
	resolver := core.NewFormulaResolver(catalog)

	lines, err := resolver.Resolve(context.Background(),
		formula(true, nil, item(1, 1, "60"), item(2, 2, "40")), 42, dec("1000"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	want := []struct {
		productID int
		qty       string
		price     string
	}{
		{1, "600", "12.50"},
		{2, "400", "8.00"},
	}
	for i, w := range want {
		if lines[i].ProductID != w.productID {
			t.Errorf("line %d: product = %d, want %d", i, lines[i].ProductID, w.productID)
		}
		if !lines[i].Quantity.Equal(dec(w.qty)) {
			t.Errorf("line %d: quantity = %s, want %s", i, lines[i].Quantity, w.qty)
		}
		if !lines[i].UnitPrice.Equal(dec(w.price)) {
			t.Errorf("line %d: unit price = %s, want %s", i, lines[i].UnitPrice, w.price)
		}
	}
}

func TestFormulaResolver_ReadsLivePrices(t *testing.T) {
	catalog := newFakeCatalog()
	resolver := core.NewFormulaResolver(catalog)
	f := formula(true, nil, item(1, 1, "100"))

	first, err := resolver.Resolve(context.Background(), f, 1, dec("10"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	catalog.prices[1] = dec("13.00")
	second, err := resolver.Resolve(context.Background(), f, 1, dec("10"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !first[0].UnitPrice.Equal(dec("12.50")) || !second[0].UnitPrice.Equal(dec("13.00")) {
		t.Errorf("expected price change to be picked up, got %s then %s", first[0].UnitPrice, second[0].UnitPrice)
	}
}

func TestFormulaResolver_Errors(t *testing.T) {
	owner := 5
	tests := []struct {
		name       string
		f          core.Formula
		customerID int
		qty        string
		want       error
	}{
		{"bound to another customer", formula(true, &owner, item(1, 1, "100")), 6, "10", core.ErrFormulaNotAvailable},
		{"bound customer checked before validity", formula(false, &owner, item(1, 1, "50")), 6, "10", core.ErrFormulaNotAvailable},
		{"percentages off", formula(true, nil, item(1, 1, "60"), item(2, 2, "39.98")), 6, "10", core.ErrFormulaInvalid},
		{"zero quantity", formula(true, nil, item(1, 1, "100")), 6, "0", core.ErrValidation},
		{"negative quantity", formula(true, nil, item(1, 1, "100")), 6, "-3", core.ErrValidation},
		{"unknown product", formula(true, nil, item(1, 99, "100")), 6, "10", core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := core.NewFormulaResolver(newFakeCatalog()).Resolve(context.Background(), tt.f, tt.customerID, dec(tt.qty))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	// The owning customer may use its own formula.
	if _, err := core.NewFormulaResolver(newFakeCatalog()).Resolve(context.Background(),
		formula(true, &owner, item(1, 1, "100")), owner, dec("1")); err != nil {
		t.Errorf("owner should resolve its formula, got %v", err)
	}
}
