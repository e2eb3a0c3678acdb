package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"order-engine/internal/app"
	"order-engine/internal/core"
	"order-engine/internal/observability"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorDetails(w, r, message, code, status, nil)
}

func writeErrorDetails(w http.ResponseWriter, r *http.Request, message, code string, status int, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
		Details:   details,
	}
	_ = json.NewEncoder(w).Encode(resp)
}

type stockDetails struct {
	ProductID   int    `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   string `json:"requested"`
	Available   string `json:"available"`
}

type creditDetails struct {
	CustomerID int    `json:"customer_id"`
	Reason     string `json:"reason"`
	Available  string `json:"available"`
	Required   string `json:"required"`
}

// writeServiceError maps application and domain errors to HTTP responses.
// Unrecognised errors are logged and reported as 500 without their message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var stockErr *core.InsufficientStockError
	var creditErr *core.CreditLimitError

	switch {
	case errors.Is(err, app.ErrForbidden):
		writeError(w, r, err.Error(), "FORBIDDEN", http.StatusForbidden)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.As(err, &stockErr):
		writeErrorDetails(w, r, err.Error(), "INSUFFICIENT_STOCK", http.StatusConflict, stockDetails{
			ProductID:   stockErr.ProductID,
			ProductName: stockErr.ProductName,
			Requested:   stockErr.Requested.String(),
			Available:   stockErr.Available.String(),
		})
	case errors.As(err, &creditErr):
		writeErrorDetails(w, r, err.Error(), "CREDIT_LIMIT_EXCEEDED", http.StatusConflict, creditDetails{
			CustomerID: creditErr.CustomerID,
			Reason:     string(creditErr.Reason),
			Available:  creditErr.Available.StringFixed(2),
			Required:   creditErr.Required.StringFixed(2),
		})
	case errors.Is(err, core.ErrInvalidTransition):
		writeError(w, r, err.Error(), "INVALID_TRANSITION", http.StatusConflict)
	case errors.Is(err, core.ErrInvalidStatus):
		writeError(w, r, err.Error(), "INVALID_STATUS", http.StatusBadRequest)
	case errors.Is(err, core.ErrValidation):
		writeError(w, r, err.Error(), "VALIDATION_ERROR", http.StatusBadRequest)
	case errors.Is(err, core.ErrFormulaInvalid):
		writeError(w, r, err.Error(), "FORMULA_INVALID", http.StatusUnprocessableEntity)
	case errors.Is(err, core.ErrFormulaNotAvailable):
		writeError(w, r, err.Error(), "FORMULA_NOT_AVAILABLE", http.StatusUnprocessableEntity)
	case errors.Is(err, core.ErrBusinessRule):
		writeError(w, r, err.Error(), "BUSINESS_RULE", http.StatusUnprocessableEntity)
	default:
		observability.FromContext(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
