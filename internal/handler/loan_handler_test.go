package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kredoapp/kredo-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

func TestGetLoan_Success(t *testing.T) {
	e := echo.New()
	f := newLoanFixture(t)
	handler := NewLoanHandler(f.loanService)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans/1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := handler.GetLoan(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response LoanWithStatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Status != "active" {
		t.Errorf("Expected status 'active', got %s", response.Status)
	}
	if response.PrincipalAmount != "1200.00" {
		t.Errorf("Expected principal '1200.00', got %s", response.PrincipalAmount)
	}
	if response.TotalPayable != "1488.00" {
		t.Errorf("Expected total payable '1488.00', got %s", response.TotalPayable)
	}
	if response.TotalInstallments != 12 {
		t.Errorf("Expected 12 installments, got %d", response.TotalInstallments)
	}
}

func TestGetLoan_NotFound(t *testing.T) {
	e := echo.New()
	f := newLoanFixture(t)
	handler := NewLoanHandler(f.loanService)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans/999", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("999")

	err := handler.GetLoan(c)
	if err != nil {
		t.Fatalf("Expected no error (error should be in response), got %v", err)
	}

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestDisburse_AlreadyDisbursed(t *testing.T) {
	e := echo.New()
	f := newLoanFixture(t)
	handler := NewLoanHandler(f.loanService)

	reqBody := `{"startDate": "2026-03-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loan-applications/1/disburse", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorHeader, "5")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := middleware.RequireActor()(handler.Disburse)(c)
	if err != nil {
		t.Fatalf("Expected no error (error should be in response), got %v", err)
	}

	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", rec.Code)
	}
}

func TestDisburse_MissingActor(t *testing.T) {
	e := echo.New()
	f := newLoanFixture(t)
	handler := NewLoanHandler(f.loanService)

	reqBody := `{"startDate": "2026-03-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loan-applications/1/disburse", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := middleware.RequireActor()(handler.Disburse)(c)
	if err != nil {
		t.Fatalf("Expected no error (error should be in response), got %v", err)
	}

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestPreview_Success(t *testing.T) {
	e := echo.New()
	f := newLoanFixture(t)
	loanHandler := NewLoanHandler(f.loanService)

	reqBody := `{"principal": "1200", "tenureMonths": 12, "startDate": "2026-02-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loan-products/1/preview", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := loanHandler.Preview(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response PreviewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.TotalPayable != "1488.00" {
		t.Errorf("Expected total payable '1488.00', got %s", response.TotalPayable)
	}
	if response.MonthlyInstallment != "124.00" {
		t.Errorf("Expected installment '124.00', got %s", response.MonthlyInstallment)
	}
	if len(response.Schedule) != 12 {
		t.Errorf("Expected 12 schedule entries, got %d", len(response.Schedule))
	}
}

func TestWriteOff_Success(t *testing.T) {
	e := echo.New()
	f := newLoanFixture(t)
	handler := NewLoanHandler(f.loanService)

	reqBody := `{"amount": "1488.00", "reason": "Borrower deceased"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/1/write-off", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorHeader, "5")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := middleware.RequireActor()(handler.WriteOff)(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response LoanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Status != "written_off" {
		t.Errorf("Expected status 'written_off', got %s", response.Status)
	}
	if response.OutstandingPrincipal != "0.00" {
		t.Errorf("Expected outstanding principal '0.00', got %s", response.OutstandingPrincipal)
	}
	if response.OutstandingInterest != "0.00" {
		t.Errorf("Expected outstanding interest '0.00', got %s", response.OutstandingInterest)
	}
}

func TestWriteOff_AmountExceedsOutstanding(t *testing.T) {
	e := echo.New()
	f := newLoanFixture(t)
	handler := NewLoanHandler(f.loanService)

	reqBody := `{"amount": "2000.00", "reason": "too much"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/1/write-off", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorHeader, "5")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := middleware.RequireActor()(handler.WriteOff)(c)
	if err != nil {
		t.Fatalf("Expected no error (error should be in response), got %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestWriteOff_MissingReason(t *testing.T) {
	e := echo.New()
	f := newLoanFixture(t)
	handler := NewLoanHandler(f.loanService)

	reqBody := `{"amount": "1488.00", "reason": ""}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/1/write-off", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorHeader, "5")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := middleware.RequireActor()(handler.WriteOff)(c)
	if err != nil {
		t.Fatalf("Expected no error (error should be in response), got %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestMarkDefaulted_Success(t *testing.T) {
	e := echo.New()
	f := newLoanFixture(t)
	handler := NewLoanHandler(f.loanService)

	reqBody := `{"reason": "90 days past due"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/1/default", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorHeader, "5")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := middleware.RequireActor()(handler.MarkDefaulted)(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response LoanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Status != "defaulted" {
		t.Errorf("Expected status 'defaulted', got %s", response.Status)
	}
}
