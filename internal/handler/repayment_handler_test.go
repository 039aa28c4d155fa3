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

func TestPostRepayment_Success(t *testing.T) {
	e := echo.New()
	f := newLoanFixture(t)
	handler := NewRepaymentHandler(f.repaymentService)

	reqBody := `{"amount": "124.00", "paymentDate": "2026-03-01", "reference": "RCPT-1001"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/1/repayments", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorHeader, "5")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := middleware.RequireActor()(handler.PostRepayment)(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rec.Code)
	}

	var response AllocationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.InterestApplied != "24.00" {
		t.Errorf("Expected interest applied '24.00', got %s", response.InterestApplied)
	}
	if response.PrincipalApplied != "100.00" {
		t.Errorf("Expected principal applied '100.00', got %s", response.PrincipalApplied)
	}
	if response.EntriesSettled != 1 {
		t.Errorf("Expected 1 entry settled, got %d", response.EntriesSettled)
	}
	if response.LoanClosed {
		t.Error("Loan should not be closed after one installment")
	}
}

func TestPostRepayment_DuplicateReference(t *testing.T) {
	e := echo.New()
	f := newLoanFixture(t)
	handler := NewRepaymentHandler(f.repaymentService)

	post := func() *httptest.ResponseRecorder {
		reqBody := `{"amount": "124.00", "paymentDate": "2026-03-01", "reference": "RCPT-1001"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/1/repayments", strings.NewReader(reqBody))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.ActorHeader, "5")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("1")
		if err := middleware.RequireActor()(handler.PostRepayment)(c); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		return rec
	}

	if rec := post(); rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 on first post, got %d", rec.Code)
	}
	if rec := post(); rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409 on duplicate reference, got %d", rec.Code)
	}
}

func TestPostRepayment_MissingReference(t *testing.T) {
	e := echo.New()
	f := newLoanFixture(t)
	handler := NewRepaymentHandler(f.repaymentService)

	reqBody := `{"amount": "124.00", "paymentDate": "2026-03-01", "reference": ""}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/1/repayments", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorHeader, "5")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := middleware.RequireActor()(handler.PostRepayment)(c)
	if err != nil {
		t.Fatalf("Expected no error (error should be in response), got %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestPostRepayment_NegativeAmount(t *testing.T) {
	e := echo.New()
	f := newLoanFixture(t)
	handler := NewRepaymentHandler(f.repaymentService)

	reqBody := `{"amount": "-50", "paymentDate": "2026-03-01", "reference": "RCPT-1001"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/1/repayments", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorHeader, "5")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := middleware.RequireActor()(handler.PostRepayment)(c)
	if err != nil {
		t.Fatalf("Expected no error (error should be in response), got %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestGetSchedule_Success(t *testing.T) {
	e := echo.New()
	f := newLoanFixture(t)
	handler := NewRepaymentHandler(f.repaymentService)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans/1/schedule?asOf=2026-02-15", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := handler.GetSchedule(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response []ScheduleEntryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if len(response) != 12 {
		t.Fatalf("Expected 12 schedule entries, got %d", len(response))
	}

	if response[0].DueDate != "2026-03-01" {
		t.Errorf("Expected first due date 2026-03-01, got %s", response[0].DueDate)
	}
	if response[0].TotalDue != "124.00" {
		t.Errorf("Expected total due '124.00', got %s", response[0].TotalDue)
	}
	if response[0].Status != "pending" {
		t.Errorf("Expected status 'pending', got %s", response[0].Status)
	}
}

func TestGetSchedule_OverdueAsOf(t *testing.T) {
	e := echo.New()
	f := newLoanFixture(t)
	handler := NewRepaymentHandler(f.repaymentService)

	// First due date 2026-03-01 has passed with nothing paid
	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans/1/schedule?asOf=2026-06-15", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := handler.GetSchedule(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response []ScheduleEntryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response[0].Status != "overdue" {
		t.Errorf("Expected first entry 'overdue', got %s", response[0].Status)
	}
	if response[11].Status != "pending" {
		t.Errorf("Expected last entry 'pending', got %s", response[11].Status)
	}
}

func TestGetSchedule_LoanNotFound(t *testing.T) {
	e := echo.New()
	f := newLoanFixture(t)
	handler := NewRepaymentHandler(f.repaymentService)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans/999/schedule", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("999")

	err := handler.GetSchedule(c)
	if err != nil {
		t.Fatalf("Expected no error (error should be in response), got %v", err)
	}

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestGetSummary_Success(t *testing.T) {
	e := echo.New()
	f := newLoanFixture(t)
	handler := NewRepaymentHandler(f.repaymentService)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans/1/summary?asOf=2026-02-15", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := handler.GetSummary(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response ScheduleSummaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.TotalInstallments != 12 {
		t.Errorf("Expected 12 installments, got %d", response.TotalInstallments)
	}
	if response.TotalDue != "1488.00" {
		t.Errorf("Expected total due '1488.00', got %s", response.TotalDue)
	}
	if response.OverdueInstallments != 0 {
		t.Errorf("Expected no overdue installments, got %d", response.OverdueInstallments)
	}
}

func TestGetArrears_Success(t *testing.T) {
	e := echo.New()
	f := newLoanFixture(t)
	handler := NewRepaymentHandler(f.repaymentService)

	// Three installments past due by mid June
	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans/1/arrears?asOf=2026-06-15", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := handler.GetArrears(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response ArrearsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.OverdueEntries != 3 {
		t.Errorf("Expected 3 overdue entries, got %d", response.OverdueEntries)
	}
	if response.TotalInArrears != "372.00" {
		t.Errorf("Expected total in arrears '372.00', got %s", response.TotalInArrears)
	}
}

func TestGetArrears_InvalidAsOf(t *testing.T) {
	e := echo.New()
	f := newLoanFixture(t)
	handler := NewRepaymentHandler(f.repaymentService)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans/1/arrears?asOf=June", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := handler.GetArrears(c)
	if err != nil {
		t.Fatalf("Expected no error (error should be in response), got %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestGetTransactions_Success(t *testing.T) {
	e := echo.New()
	f := newLoanFixture(t)
	handler := NewRepaymentHandler(f.repaymentService)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans/1/transactions", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := handler.GetTransactions(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response []TransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	// Fixture loan has its disbursement transaction
	if len(response) != 1 {
		t.Fatalf("Expected 1 transaction, got %d", len(response))
	}
	if response[0].Type != "disbursement" {
		t.Errorf("Expected type 'disbursement', got %s", response[0].Type)
	}
	if response[0].Amount != "1200.00" {
		t.Errorf("Expected amount '1200.00', got %s", response[0].Amount)
	}
}

func TestGetTransactionByReference_NotFound(t *testing.T) {
	e := echo.New()
	f := newLoanFixture(t)
	handler := NewRepaymentHandler(f.repaymentService)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loan-transactions/RCPT-NOPE", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("reference")
	c.SetParamValues("RCPT-NOPE")

	err := handler.GetTransactionByReference(c)
	if err != nil {
		t.Fatalf("Expected no error (error should be in response), got %v", err)
	}

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}
