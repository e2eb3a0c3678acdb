package web

import (
	"net/http"
	"strconv"

	"order-engine/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// apiListProducts handles GET /api/companies/{code}/products.
func (h *Handler) apiListProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListProducts(r.Context(), companyCode(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Products)
}

// apiCreateProduct handles POST /api/companies/{code}/products.
// Body: { code, name, unit?, selling_price }
func (h *Handler) apiCreateProduct(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code         string          `json:"code"`
		Name         string          `json:"name"`
		Unit         string          `json:"unit"`
		SellingPrice decimal.Decimal `json:"selling_price"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Code == "" || body.Name == "" {
		writeError(w, r, "code and name are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	result, err := h.svc.CreateProduct(r.Context(), app.CreateProductRequest{
		CompanyCode:  companyCode(r),
		Code:         body.Code,
		Name:         body.Name,
		Unit:         body.Unit,
		SellingPrice: body.SellingPrice,
		Actor:        actorFromRequest(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result.Product)
}

// apiSetProductPrice handles PUT /api/companies/{code}/products/{productCode}/price.
// Body: { price }
func (h *Handler) apiSetProductPrice(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Price *decimal.Decimal `json:"price"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Price == nil {
		writeError(w, r, "price is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	result, err := h.svc.SetProductPrice(r.Context(), app.ProductPriceRequest{
		CompanyCode: companyCode(r),
		ProductCode: chi.URLParam(r, "productCode"),
		Price:       *body.Price,
		Actor:       actorFromRequest(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Product)
}

// apiListFormulas handles GET /api/companies/{code}/formulas.
func (h *Handler) apiListFormulas(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListFormulas(r.Context(), companyCode(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Formulas)
}

// apiCreateFormula handles POST /api/companies/{code}/formulas.
// Body: { code, name, customer_code?, items: [{product_code, percentage}] }
func (h *Handler) apiCreateFormula(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code         string `json:"code"`
		Name         string `json:"name"`
		CustomerCode string `json:"customer_code"`
		Items        []struct {
			ProductCode string          `json:"product_code"`
			Percentage  decimal.Decimal `json:"percentage"`
		} `json:"items"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Code == "" || len(body.Items) == 0 {
		writeError(w, r, "code and at least one item are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	req := app.CreateFormulaRequest{
		CompanyCode:  companyCode(r),
		Code:         body.Code,
		Name:         body.Name,
		CustomerCode: body.CustomerCode,
		Actor:        actorFromRequest(r),
	}
	for _, it := range body.Items {
		req.Items = append(req.Items, app.FormulaItemInput{ProductCode: it.ProductCode, Percentage: it.Percentage})
	}

	result, err := h.svc.CreateFormula(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result.Formula)
}

// apiSetFormulaActive handles PUT /api/companies/{code}/formulas/{id}/active.
// Body: { active }
func (h *Handler) apiSetFormulaActive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "invalid formula id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	var body struct {
		Active bool `json:"active"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.SetFormulaActive(r.Context(), app.FormulaActiveRequest{
		CompanyCode: companyCode(r),
		FormulaID:   id,
		Active:      body.Active,
		Actor:       actorFromRequest(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Formula)
}

// apiPreviewFormula handles POST /api/companies/{code}/formulas/{id}/resolve.
// Body: { customer_code, total_quantity }
func (h *Handler) apiPreviewFormula(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "invalid formula id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	var body struct {
		CustomerCode  string          `json:"customer_code"`
		TotalQuantity decimal.Decimal `json:"total_quantity"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.PreviewFormula(r.Context(), app.PreviewFormulaRequest{
		CompanyCode:   companyCode(r),
		FormulaID:     id,
		CustomerCode:  body.CustomerCode,
		TotalQuantity: body.TotalQuantity,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	type response struct {
		Lines  any `json:"lines"`
		Totals any `json:"totals"`
	}
	writeJSON(w, response{Lines: result.Lines, Totals: result.Totals})
}

// apiListWarehouses handles GET /api/companies/{code}/warehouses.
func (h *Handler) apiListWarehouses(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListWarehouses(r.Context(), companyCode(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Warehouses)
}

// apiStockLevels handles GET /api/companies/{code}/stock.
func (h *Handler) apiStockLevels(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetStockLevels(r.Context(), companyCode(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Levels)
}

// apiReceiveStock handles POST /api/companies/{code}/stock/receive.
// Body: { product_code, warehouse_code?, quantity, movement_date? }
func (h *Handler) apiReceiveStock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductCode   string          `json:"product_code"`
		WarehouseCode string          `json:"warehouse_code"`
		Quantity      decimal.Decimal `json:"quantity"`
		MovementDate  string          `json:"movement_date"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.ProductCode == "" {
		writeError(w, r, "product_code is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	err := h.svc.ReceiveStock(r.Context(), app.ReceiveStockRequest{
		CompanyCode:   companyCode(r),
		ProductCode:   body.ProductCode,
		WarehouseCode: body.WarehouseCode,
		MovementDate:  body.MovementDate,
		Qty:           body.Quantity,
		Actor:         actorFromRequest(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiGetSettings handles GET /api/companies/{code}/settings.
func (h *Handler) apiGetSettings(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetSettings(r.Context(), companyCode(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Config)
}

// apiUpdateSettings handles PUT /api/companies/{code}/settings.
// Body: { require_approval, threshold, default_tax_rate }
func (h *Handler) apiUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RequireApproval bool            `json:"require_approval"`
		Threshold       decimal.Decimal `json:"threshold"`
		DefaultTaxRate  decimal.Decimal `json:"default_tax_rate"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.UpdateSettings(r.Context(), app.UpdateSettingsRequest{
		CompanyCode:     companyCode(r),
		RequireApproval: body.RequireApproval,
		Threshold:       body.Threshold,
		DefaultTaxRate:  body.DefaultTaxRate,
		Actor:           actorFromRequest(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Config)
}
