package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"order-engine/internal/app"
	"order-engine/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

// fakeService implements the handful of ApplicationService methods the handlers under test call.
// Anything else panics through the nil embedded interface.
type fakeService struct {
	app.ApplicationService

	createReq  app.CreateOrderRequest
	createErr  error
	approveReq app.OrderActionRequest
	creditAmt  decimal.Decimal
}

func (f *fakeService) LoadDefaultCompany(ctx context.Context) (*core.Company, error) {
	return &core.Company{ID: 1, CompanyCode: "1000", Name: "Test Co"}, nil
}

func (f *fakeService) AuthenticateUser(ctx context.Context, username, password string) (*app.UserSession, error) {
	if username != "manager" || password != "secret" {
		return nil, errors.New("invalid credentials")
	}
	return &app.UserSession{UserID: 7, CompanyID: 1, CompanyCode: "1000", Username: "manager", Role: "manager"}, nil
}

func (f *fakeService) GetUser(ctx context.Context, userID int) (*app.UserResult, error) {
	return &app.UserResult{Username: "manager", Role: "manager", CompanyCode: "1000"}, nil
}

func (f *fakeService) CreateOrder(ctx context.Context, req app.CreateOrderRequest) (*app.CreateOrderResult, error) {
	f.createReq = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &app.CreateOrderResult{
		Order:            &core.SalesOrder{ID: 1, OrderNumber: "SO-1000-2026-00001", Status: core.OrderStatusPending},
		ApprovalRequired: true,
	}, nil
}

func (f *fakeService) ApproveOrder(ctx context.Context, req app.OrderActionRequest) (*app.OrderResult, error) {
	f.approveReq = req
	return &app.OrderResult{Order: &core.SalesOrder{ID: 1, OrderNumber: req.Ref, Status: core.OrderStatusApproved}}, nil
}

func (f *fakeService) CheckCredit(ctx context.Context, companyCode, customerCode string, amount decimal.Decimal) (*app.CreditCheckResult, error) {
	f.creditAmt = amount
	if customerCode != "CRED01" {
		return nil, fmt.Errorf("%w: customer %s", core.ErrNotFound, customerCode)
	}
	cust := &core.Customer{Code: "CRED01", CreditLimit: decimal.NewFromInt(50000), OutstandingBalance: decimal.NewFromInt(45000)}
	return &app.CreditCheckResult{
		Customer: cust,
		Decision: core.EvaluateCredit(*cust, amount),
	}, nil
}

func newTestHandler(t *testing.T) (http.Handler, *fakeService) {
	t.Helper()
	svc := &fakeService{}
	return NewHandler(svc, "", testSecret, zap.NewNop()), svc
}

func tokenFor(t *testing.T, companyCode, role string) string {
	t.Helper()
	h := &Handler{jwtSecret: testSecret}
	tok, err := h.signToken(&app.UserSession{UserID: 7, CompanyID: 1, CompanyCode: companyCode, Role: role}, time.Now())
	require.NoError(t, err)
	return tok
}

func doRequest(h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodGet, "/api/health", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","company":"1000"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoedWhenSafe(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "bad id; drop table")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "bad id; drop table", rec.Header().Get("X-Request-ID"))
}

func TestLoginCookieAuthenticatesMe(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "manager", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)

	var login struct {
		Token       string `json:"token"`
		CompanyCode string `json:"company_code"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&login))
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, "1000", login.CompanyCode)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, authCookieName, cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookies[0])
	me := httptest.NewRecorder()
	h.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)
	assert.JSONEq(t, `{"username":"manager","role":"manager","company_code":"1000"}`, me.Body.String())
}

func TestLoginRejectsBadPassword(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "manager", "password": "nope"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestProtectedRoutesRequireValidToken(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodGet, "/api/companies/1000/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)

	forged := (&Handler{jwtSecret: "other"})
	tok, err := forged.signToken(&app.UserSession{UserID: 1, CompanyCode: "1000", Role: "admin"}, time.Now())
	require.NoError(t, err)
	rec = doRequest(h, http.MethodGet, "/api/companies/1000/orders", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := (&Handler{jwtSecret: testSecret}).signToken(&app.UserSession{UserID: 1, CompanyCode: "1000", Role: "admin"}, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	rec = doRequest(h, http.MethodGet, "/api/companies/1000/orders", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOtherCompanyIsForbidden(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodPost, "/api/companies/2000/orders", tokenFor(t, "1000", "manager"), map[string]any{
		"customer_code": "CRED01",
		"lines":         []map[string]any{{"product_code": "P001", "quantity": "1"}},
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decodeError(t, rec).Code)
}

func TestCreateOrderPassesBodyAndActor(t *testing.T) {
	h, svc := newTestHandler(t)

	rec := doRequest(h, http.MethodPost, "/api/companies/1000/orders", tokenFor(t, "1000", "sales"), map[string]any{
		"customer_code":   "CRED01",
		"payment_type":    "credit",
		"discount_amount": "15",
		"lines": []map[string]any{
			{"product_code": "P001", "quantity": "10", "unit_price": "32.5"},
			{"product_code": "P002", "quantity": 2},
		},
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Order            core.SalesOrder `json:"order"`
		ApprovalRequired bool            `json:"approval_required"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.ApprovalRequired)
	assert.Equal(t, "SO-1000-2026-00001", resp.Order.OrderNumber)

	req := svc.createReq
	assert.Equal(t, "1000", req.CompanyCode)
	assert.Equal(t, "credit", req.PaymentType)
	assert.Equal(t, core.RoleSales, req.Actor.Role)
	assert.Equal(t, 7, req.Actor.UserID)
	assert.True(t, req.DiscountAmount.Equal(decimal.NewFromInt(15)))
	require.Len(t, req.Lines, 2)
	require.NotNil(t, req.Lines[0].UnitPrice)
	assert.True(t, req.Lines[0].UnitPrice.Equal(decimal.RequireFromString("32.5")))
	assert.Nil(t, req.Lines[1].UnitPrice)
	assert.True(t, req.Lines[1].Quantity.Equal(decimal.NewFromInt(2)))
}

func TestCreateOrderRequiresLinesOrFormula(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodPost, "/api/companies/1000/orders", tokenFor(t, "1000", "sales"), map[string]any{
		"customer_code": "CRED01",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"forbidden", fmt.Errorf("%w: sales cannot approve", app.ErrForbidden), http.StatusForbidden, "FORBIDDEN"},
		{"not found", fmt.Errorf("%w: customer X", core.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"validation", fmt.Errorf("%w: quantity must be positive", core.ErrValidation), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"formula invalid", fmt.Errorf("%w: percentages sum to 99.99", core.ErrFormulaInvalid), http.StatusUnprocessableEntity, "FORMULA_INVALID"},
		{"formula not available", core.ErrFormulaNotAvailable, http.StatusUnprocessableEntity, "FORMULA_NOT_AVAILABLE"},
		{"stock", &core.InsufficientStockError{ProductID: 1, ProductName: "Urea", Requested: decimal.NewFromInt(60), Available: decimal.NewFromInt(30)}, http.StatusConflict, "INSUFFICIENT_STOCK"},
		{"credit", &core.CreditLimitError{CustomerID: 2, Reason: core.CreditReasonInsufficient, Available: decimal.NewFromInt(5000), Required: decimal.NewFromInt(6000)}, http.StatusConflict, "CREDIT_LIMIT_EXCEEDED"},
		{"transition", fmt.Errorf("%w: order is approved", core.ErrInvalidTransition), http.StatusConflict, "INVALID_TRANSITION"},
		{"business rule", fmt.Errorf("%w: cash customer", core.ErrBusinessRule), http.StatusUnprocessableEntity, "BUSINESS_RULE"},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc := newTestHandler(t)
			svc.createErr = tt.err

			rec := doRequest(h, http.MethodPost, "/api/companies/1000/orders", tokenFor(t, "1000", "manager"), map[string]any{
				"customer_code": "CRED01",
				"lines":         []map[string]any{{"product_code": "P001", "quantity": "1"}},
			})

			require.Equal(t, tt.status, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.RequestID)
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, resp.Error, "connection reset")
			}
		})
	}
}

func TestCreditErrorCarriesDetails(t *testing.T) {
	h, svc := newTestHandler(t)
	svc.createErr = &core.CreditLimitError{CustomerID: 2, Reason: core.CreditReasonInsufficient, Available: decimal.NewFromInt(5000), Required: decimal.NewFromInt(6000)}

	rec := doRequest(h, http.MethodPost, "/api/companies/1000/orders", tokenFor(t, "1000", "manager"), map[string]any{
		"customer_code": "CRED01",
		"lines":         []map[string]any{{"product_code": "P001", "quantity": "1"}},
	})

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp struct {
		Details creditDetails `json:"details"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "5000.00", resp.Details.Available)
	assert.Equal(t, "6000.00", resp.Details.Required)
}

func TestApproveWithoutBody(t *testing.T) {
	h, svc := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/companies/1000/orders/SO-1000-2026-00001/approve", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "1000", "manager"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "SO-1000-2026-00001", svc.approveReq.Ref)
	assert.Equal(t, core.RoleManager, svc.approveReq.Actor.Role)
}

func TestCheckCreditParsesAmount(t *testing.T) {
	h, svc := newTestHandler(t)
	tok := tokenFor(t, "1000", "manager")

	rec := doRequest(h, http.MethodGet, "/api/companies/1000/customers/CRED01/credit?amount=6000", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.creditAmt.Equal(decimal.NewFromInt(6000)))

	var resp struct {
		Decision core.CreditDecision `json:"decision"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Decision.Allowed)

	rec = doRequest(h, http.MethodGet, "/api/companies/1000/customers/CRED01/credit?amount=abc", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(h, http.MethodGet, "/api/companies/1000/customers/NOPE/credit", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestBodyTooLarge(t *testing.T) {
	h, _ := newTestHandler(t)

	body := `{"customer_code":"` + strings.Repeat("x", 2<<20) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/companies/1000/orders", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "1000", "manager"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCORSOnlyForConfiguredOrigins(t *testing.T) {
	h := NewHandler(&fakeService{}, "https://ops.example.com", testSecret, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://ops.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
