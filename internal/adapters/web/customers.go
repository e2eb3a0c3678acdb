package web

import (
	"net/http"

	"order-engine/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// apiListCustomers handles GET /api/companies/{code}/customers.
func (h *Handler) apiListCustomers(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListCustomers(r.Context(), companyCode(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Customers)
}

// apiCreateCustomer handles POST /api/companies/{code}/customers.
func (h *Handler) apiCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code             string          `json:"code"`
		Name             string          `json:"name"`
		Email            string          `json:"email"`
		Phone            string          `json:"phone"`
		CustomerType     string          `json:"customer_type"`
		CreditLimit      decimal.Decimal `json:"credit_limit"`
		PaymentTermsDays int             `json:"payment_terms_days"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Code == "" || body.Name == "" {
		writeError(w, r, "code and name are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	result, err := h.svc.CreateCustomer(r.Context(), app.CreateCustomerRequest{
		CompanyCode:      companyCode(r),
		Code:             body.Code,
		Name:             body.Name,
		Email:            body.Email,
		Phone:            body.Phone,
		CustomerType:     body.CustomerType,
		CreditLimit:      body.CreditLimit,
		PaymentTermsDays: body.PaymentTermsDays,
		Actor:            actorFromRequest(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result.Customer)
}

// apiCheckCredit handles GET /api/companies/{code}/customers/{customerCode}/credit?amount=.
// A missing amount evaluates the customer against zero.
func (h *Handler) apiCheckCredit(w http.ResponseWriter, r *http.Request) {
	amount := decimal.Zero
	if raw := r.URL.Query().Get("amount"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(w, r, "invalid amount", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		amount = parsed
	}

	result, err := h.svc.CheckCredit(r.Context(), companyCode(r), chi.URLParam(r, "customerCode"), amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	type response struct {
		CustomerCode       string          `json:"customer_code"`
		CreditLimit        decimal.Decimal `json:"credit_limit"`
		OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
		Blocked            bool            `json:"credit_blocked"`
		Decision           any             `json:"decision"`
	}
	writeJSON(w, response{
		CustomerCode:       result.Customer.Code,
		CreditLimit:        result.Customer.CreditLimit,
		OutstandingBalance: result.Customer.OutstandingBalance,
		Blocked:            result.Customer.CreditBlocked,
		Decision:           result.Decision,
	})
}

// apiSetCreditLimit handles PUT /api/companies/{code}/customers/{customerCode}/credit-limit.
// Body: { limit }
func (h *Handler) apiSetCreditLimit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Limit *decimal.Decimal `json:"limit"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Limit == nil {
		writeError(w, r, "limit is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	result, err := h.svc.SetCreditLimit(r.Context(), app.CreditLimitRequest{
		CompanyCode:  companyCode(r),
		CustomerCode: chi.URLParam(r, "customerCode"),
		Limit:        *body.Limit,
		Actor:        actorFromRequest(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Customer)
}

// apiSetCreditBlock handles PUT /api/companies/{code}/customers/{customerCode}/credit-block.
// Body: { blocked }
func (h *Handler) apiSetCreditBlock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Blocked bool `json:"blocked"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.SetCreditBlocked(r.Context(), app.CreditBlockRequest{
		CompanyCode:  companyCode(r),
		CustomerCode: chi.URLParam(r, "customerCode"),
		Blocked:      body.Blocked,
		Actor:        actorFromRequest(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Customer)
}
