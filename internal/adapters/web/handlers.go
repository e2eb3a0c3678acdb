package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"order-engine/internal/app"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	jwtSecret string
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins, jwtSecret string, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		svc:       svc,
		jwtSecret: jwtSecret,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))
	r.Use(RequestBodyLimit(1 << 20)) // 1 MB

	// ── Health & auth (public) ────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	r.Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		r.Get("/api/auth/me", h.me)

		r.Route("/api/companies/{code}", func(r chi.Router) {
			r.Use(RequireCompany)

			// Customers & credit
			r.Get("/customers", h.apiListCustomers)
			r.Post("/customers", h.apiCreateCustomer)
			r.Get("/customers/{customerCode}/credit", h.apiCheckCredit)
			r.Put("/customers/{customerCode}/credit-limit", h.apiSetCreditLimit)
			r.Put("/customers/{customerCode}/credit-block", h.apiSetCreditBlock)

			// Catalog & formulas
			r.Get("/products", h.apiListProducts)
			r.Post("/products", h.apiCreateProduct)
			r.Put("/products/{productCode}/price", h.apiSetProductPrice)
			r.Get("/formulas", h.apiListFormulas)
			r.Post("/formulas", h.apiCreateFormula)
			r.Put("/formulas/{id}/active", h.apiSetFormulaActive)
			r.Post("/formulas/{id}/resolve", h.apiPreviewFormula)

			// Sales orders
			r.Get("/orders", h.apiListOrders)
			r.Post("/orders", h.apiCreateOrder)
			r.Get("/orders/{ref}", h.apiGetOrder)
			r.Post("/orders/{ref}/approve", h.apiApproveOrder)
			r.Post("/orders/{ref}/reject", h.apiRejectOrder)
			r.Post("/orders/{ref}/fulfill", h.apiFulfillOrder)

			// Inventory
			r.Get("/warehouses", h.apiListWarehouses)
			r.Get("/stock", h.apiStockLevels)
			r.Post("/stock/receive", h.apiReceiveStock)

			// Settings
			r.Get("/settings", h.apiGetSettings)
			r.Put("/settings", h.apiUpdateSettings)
		})
	})

	h.router = r
	return r
}

// health returns service status and the loaded company code.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	company, err := h.svc.LoadDefaultCompany(r.Context())
	companyCode := ""
	if err == nil && company != nil {
		companyCode = company.CompanyCode
	}

	type response struct {
		Status  string `json:"status"`
		Company string `json:"company"`
	}

	writeJSON(w, response{Status: "ok", Company: companyCode})
}

// companyCode extracts the {code} URL parameter.
func companyCode(r *http.Request) string {
	return chi.URLParam(r, "code")
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
