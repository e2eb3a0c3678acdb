package web

import (
	"fmt"
	"net/http"

	"order-engine/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// apiListOrders handles GET /api/companies/{code}/orders?status=.
func (h *Handler) apiListOrders(w http.ResponseWriter, r *http.Request) {
	code := companyCode(r)
	statusFilter := r.URL.Query().Get("status")
	var statusPtr *string
	if statusFilter != "" {
		statusPtr = &statusFilter
	}
	result, err := h.svc.ListOrders(r.Context(), code, statusPtr)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Orders)
}

// apiGetOrder handles GET /api/companies/{code}/orders/{ref}.
func (h *Handler) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	code := companyCode(r)
	ref := chi.URLParam(r, "ref")
	result, err := h.svc.GetOrder(r.Context(), ref, code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

type createOrderBody struct {
	CustomerCode   string           `json:"customer_code"`
	PaymentType    string           `json:"payment_type"`
	FormulaID      *int             `json:"formula_id"`
	TotalQuantity  decimal.Decimal  `json:"total_quantity"`
	DiscountAmount decimal.Decimal  `json:"discount_amount"`
	TaxRate        *decimal.Decimal `json:"tax_rate"`
	Notes          string           `json:"notes"`
	PointOfSale    bool             `json:"point_of_sale"`
	Lines          []struct {
		ProductCode string           `json:"product_code"`
		Quantity    decimal.Decimal  `json:"quantity"`
		UnitPrice   *decimal.Decimal `json:"unit_price"`
	} `json:"lines"`
}

// apiCreateOrder handles POST /api/companies/{code}/orders.
// Body: { customer_code, payment_type, formula_id? + total_quantity | lines: [{product_code, quantity, unit_price?}],
// discount_amount?, tax_rate?, notes?, point_of_sale? }
func (h *Handler) apiCreateOrder(w http.ResponseWriter, r *http.Request) {
	var body createOrderBody
	if !decodeJSON(w, r, &body) {
		return
	}

	if body.CustomerCode == "" {
		writeError(w, r, "customer_code is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if body.FormulaID == nil && len(body.Lines) == 0 {
		writeError(w, r, "formula_id or at least one line is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	req := app.CreateOrderRequest{
		CompanyCode:    companyCode(r),
		CustomerCode:   body.CustomerCode,
		PaymentType:    body.PaymentType,
		FormulaID:      body.FormulaID,
		TotalQuantity:  body.TotalQuantity,
		DiscountAmount: body.DiscountAmount,
		TaxRate:        body.TaxRate,
		Notes:          body.Notes,
		PointOfSale:    body.PointOfSale,
		Actor:          actorFromRequest(r),
	}
	for i, l := range body.Lines {
		if l.ProductCode == "" {
			writeError(w, r, fmt.Sprintf("line %d: product_code is required", i+1), "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		req.Lines = append(req.Lines, app.OrderLineInput{
			ProductCode: l.ProductCode,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		})
	}

	result, err := h.svc.CreateOrder(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	type response struct {
		Order            any  `json:"order"`
		ApprovalRequired bool `json:"approval_required"`
	}
	writeJSONStatus(w, http.StatusCreated, response{Order: result.Order, ApprovalRequired: result.ApprovalRequired})
}

// orderAction decodes an optional { reason } body shared by approve and reject.
func (h *Handler) orderAction(w http.ResponseWriter, r *http.Request) (app.OrderActionRequest, bool) {
	var body struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &body) {
			return app.OrderActionRequest{}, false
		}
	}
	return app.OrderActionRequest{
		CompanyCode: companyCode(r),
		Ref:         chi.URLParam(r, "ref"),
		Reason:      body.Reason,
		Actor:       actorFromRequest(r),
	}, true
}

// apiApproveOrder handles POST /api/companies/{code}/orders/{ref}/approve.
func (h *Handler) apiApproveOrder(w http.ResponseWriter, r *http.Request) {
	req, ok := h.orderAction(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ApproveOrder(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

// apiRejectOrder handles POST /api/companies/{code}/orders/{ref}/reject.
func (h *Handler) apiRejectOrder(w http.ResponseWriter, r *http.Request) {
	req, ok := h.orderAction(w, r)
	if !ok {
		return
	}
	result, err := h.svc.RejectOrder(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

// apiFulfillOrder handles POST /api/companies/{code}/orders/{ref}/fulfill.
// Body: { status, tracking_number? }
func (h *Handler) apiFulfillOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status         string `json:"status"`
		TrackingNumber string `json:"tracking_number"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Status == "" {
		writeError(w, r, "status is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	result, err := h.svc.FulfillOrder(r.Context(), app.FulfillOrderRequest{
		CompanyCode:    companyCode(r),
		Ref:            chi.URLParam(r, "ref"),
		Status:         body.Status,
		TrackingNumber: body.TrackingNumber,
		Actor:          actorFromRequest(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}
