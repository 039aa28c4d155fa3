package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kredoapp/kredo-backend/internal/middleware"
	"github.com/kredoapp/kredo-backend/internal/service"
	"github.com/kredoapp/kredo-backend/internal/testutil"
	"github.com/labstack/echo/v4"
)

func newApplicationHandler() (*ApplicationHandler, *testutil.MockLoanProductRepository, *testutil.MockLoanApplicationRepository) {
	productRepo := testutil.NewMockLoanProductRepository()
	applicationRepo := testutil.NewMockLoanApplicationRepository()
	applicationService := service.NewApplicationService(applicationRepo, productRepo)
	return NewApplicationHandler(applicationService), productRepo, applicationRepo
}

func TestCreateApplication_Success(t *testing.T) {
	e := echo.New()
	handler, productRepo, _ := newApplicationHandler()
	seedProduct(productRepo)

	reqBody := `{"customerId": 5, "loanProductId": 1, "servicingAccountId": 9, "appliedAmount": "1200", "tenureMonths": 12, "purpose": "Seed purchase"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loan-applications", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorHeader, "42")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := middleware.RequireActor()(handler.CreateApplication)(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rec.Code)
	}

	var response ApplicationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Status != "pending" {
		t.Errorf("Expected status 'pending', got %s", response.Status)
	}

	if response.AppliedAmount != "1200.00" {
		t.Errorf("Expected applied amount '1200.00', got %s", response.AppliedAmount)
	}

	if !strings.HasPrefix(response.ApplicationNumber, "APP-") {
		t.Errorf("Expected application number with APP- prefix, got %s", response.ApplicationNumber)
	}
}

func TestCreateApplication_AmountOutOfBounds(t *testing.T) {
	e := echo.New()
	handler, productRepo, _ := newApplicationHandler()
	seedProduct(productRepo)

	reqBody := `{"customerId": 5, "loanProductId": 1, "servicingAccountId": 9, "appliedAmount": "99000", "tenureMonths": 12, "purpose": "Tractor"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loan-applications", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorHeader, "42")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := middleware.RequireActor()(handler.CreateApplication)(c)
	if err != nil {
		t.Fatalf("Expected no error (error should be in response), got %v", err)
	}

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", rec.Code)
	}
}

func TestCreateApplication_UnknownProduct(t *testing.T) {
	e := echo.New()
	handler, _, _ := newApplicationHandler()

	reqBody := `{"customerId": 5, "loanProductId": 42, "servicingAccountId": 9, "appliedAmount": "1200", "tenureMonths": 12, "purpose": "Seed purchase"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loan-applications", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorHeader, "42")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := middleware.RequireActor()(handler.CreateApplication)(c)
	if err != nil {
		t.Fatalf("Expected no error (error should be in response), got %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestApproveApplication_Success(t *testing.T) {
	e := echo.New()
	handler, productRepo, applicationRepo := newApplicationHandler()
	seedProduct(productRepo)

	applicationService := service.NewApplicationService(applicationRepo, productRepo)
	if _, err := applicationService.Apply(service.ApplicationInput{
		CustomerID:         5,
		LoanProductID:      1,
		ServicingAccountID: 9,
		AppliedAmount:      mustDecimal(t, "1200"),
		TenureMonths:       12,
		Purpose:            "Seed purchase",
	}); err != nil {
		t.Fatalf("Failed to seed application: %v", err)
	}

	reqBody := `{"approvedAmount": "1000"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loan-applications/1/approve", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorHeader, "42")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := middleware.RequireActor()(handler.ApproveApplication)(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response ApplicationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Status != "approved" {
		t.Errorf("Expected status 'approved', got %s", response.Status)
	}

	if response.ApprovedAmount == nil || *response.ApprovedAmount != "1000.00" {
		t.Errorf("Expected approved amount '1000.00', got %v", response.ApprovedAmount)
	}

	if response.ApprovedBy == nil || *response.ApprovedBy != 42 {
		t.Errorf("Expected approver 42, got %v", response.ApprovedBy)
	}
}

func TestApproveApplication_MissingActor(t *testing.T) {
	e := echo.New()
	handler, _, _ := newApplicationHandler()

	reqBody := `{}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loan-applications/1/approve", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := middleware.RequireActor()(handler.ApproveApplication)(c)
	if err != nil {
		t.Fatalf("Expected no error (error should be in response), got %v", err)
	}

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestRejectApplication_MissingReason(t *testing.T) {
	e := echo.New()
	handler, productRepo, applicationRepo := newApplicationHandler()
	seedProduct(productRepo)

	applicationService := service.NewApplicationService(applicationRepo, productRepo)
	if _, err := applicationService.Apply(service.ApplicationInput{
		CustomerID:         5,
		LoanProductID:      1,
		ServicingAccountID: 9,
		AppliedAmount:      mustDecimal(t, "1200"),
		TenureMonths:       12,
		Purpose:            "Seed purchase",
	}); err != nil {
		t.Fatalf("Failed to seed application: %v", err)
	}

	reqBody := `{"reason": "   "}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loan-applications/1/reject", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorHeader, "42")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := middleware.RequireActor()(handler.RejectApplication)(c)
	if err != nil {
		t.Fatalf("Expected no error (error should be in response), got %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestApproveApplication_AlreadyApproved(t *testing.T) {
	e := echo.New()
	handler, productRepo, applicationRepo := newApplicationHandler()
	seedProduct(productRepo)

	applicationService := service.NewApplicationService(applicationRepo, productRepo)
	if _, err := applicationService.Apply(service.ApplicationInput{
		CustomerID:         5,
		LoanProductID:      1,
		ServicingAccountID: 9,
		AppliedAmount:      mustDecimal(t, "1200"),
		TenureMonths:       12,
		Purpose:            "Seed purchase",
	}); err != nil {
		t.Fatalf("Failed to seed application: %v", err)
	}
	if _, err := applicationService.Approve(1, service.ApprovalInput{ActorID: 42}); err != nil {
		t.Fatalf("Failed to approve application: %v", err)
	}

	reqBody := `{}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loan-applications/1/approve", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorHeader, "42")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := middleware.RequireActor()(handler.ApproveApplication)(c)
	if err != nil {
		t.Fatalf("Expected no error (error should be in response), got %v", err)
	}

	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", rec.Code)
	}
}

func TestGetApplications_StatusFilter(t *testing.T) {
	e := echo.New()
	handler, productRepo, applicationRepo := newApplicationHandler()
	seedProduct(productRepo)

	applicationService := service.NewApplicationService(applicationRepo, productRepo)
	for i := 0; i < 2; i++ {
		if _, err := applicationService.Apply(service.ApplicationInput{
			CustomerID:         int32(i + 1),
			LoanProductID:      1,
			ServicingAccountID: 9,
			AppliedAmount:      mustDecimal(t, "1200"),
			TenureMonths:       12,
			Purpose:            "Seed purchase",
		}); err != nil {
			t.Fatalf("Failed to seed application: %v", err)
		}
	}
	if _, err := applicationService.Approve(1, service.ApprovalInput{ActorID: 42}); err != nil {
		t.Fatalf("Failed to approve application: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loan-applications?status=pending", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.GetApplications(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response []ApplicationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if len(response) != 1 {
		t.Errorf("Expected 1 pending application, got %d", len(response))
	}
}
