package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/kredoapp/kredo-backend/internal/domain"
	"github.com/kredoapp/kredo-backend/internal/middleware"
	"github.com/kredoapp/kredo-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ApplicationHandler handles loan application HTTP requests
type ApplicationHandler struct {
	applicationService *service.ApplicationService
}

// NewApplicationHandler creates a new ApplicationHandler
func NewApplicationHandler(applicationService *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applicationService: applicationService}
}

// CreateApplicationRequest represents the create application request body
type CreateApplicationRequest struct {
	CustomerID         int32  `json:"customerId"`
	LoanProductID      int32  `json:"loanProductId"`
	ServicingAccountID int32  `json:"servicingAccountId"`
	AppliedAmount      string `json:"appliedAmount"`
	TenureMonths       int32  `json:"tenureMonths"`
	Purpose            string `json:"purpose"`
}

// ApproveApplicationRequest represents the approve application request body
type ApproveApplicationRequest struct {
	ApprovedAmount *string `json:"approvedAmount,omitempty"`
}

// RejectApplicationRequest represents the reject application request body
type RejectApplicationRequest struct {
	Reason string `json:"reason"`
}

// ApplicationResponse represents a loan application in API responses
type ApplicationResponse struct {
	ID                 int32   `json:"id"`
	ApplicationNumber  string  `json:"applicationNumber"`
	CustomerID         int32   `json:"customerId"`
	LoanProductID      int32   `json:"loanProductId"`
	ServicingAccountID int32   `json:"servicingAccountId"`
	AppliedAmount      string  `json:"appliedAmount"`
	TenureMonths       int32   `json:"tenureMonths"`
	Purpose            string  `json:"purpose"`
	Status             string  `json:"status"`
	ApprovedAmount     *string `json:"approvedAmount,omitempty"`
	ApprovedBy         *int32  `json:"approvedBy,omitempty"`
	ApprovedDate       *string `json:"approvedDate,omitempty"`
	RejectionReason    *string `json:"rejectionReason,omitempty"`
	CreatedAt          string  `json:"createdAt"`
	UpdatedAt          string  `json:"updatedAt"`
}

// CreateApplication handles POST /api/v1/loan-applications
func (h *ApplicationHandler) CreateApplication(c echo.Context) error {
	var req CreateApplicationRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	appliedAmount, err := decimal.NewFromString(req.AppliedAmount)
	if err != nil {
		return NewValidationError(c, "Invalid applied amount", []ValidationError{
			{Field: "appliedAmount", Message: "Must be a valid decimal number"},
		})
	}

	input := service.ApplicationInput{
		CustomerID:         req.CustomerID,
		LoanProductID:      req.LoanProductID,
		ServicingAccountID: req.ServicingAccountID,
		AppliedAmount:      appliedAmount,
		TenureMonths:       req.TenureMonths,
		Purpose:            req.Purpose,
	}

	application, err := h.applicationService.Apply(input)
	if err != nil {
		if errors.Is(err, domain.ErrLoanProductNotFound) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "loanProductId", Message: "Unknown loan product"},
			})
		}
		if errors.Is(err, domain.ErrApplicationCustomerRequired) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "customerId", Message: "Customer is required"},
			})
		}
		if errors.Is(err, domain.ErrApplicationAccountRequired) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "servicingAccountId", Message: "Servicing account is required"},
			})
		}
		if errors.Is(err, domain.ErrAppliedAmountInvalid) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "appliedAmount", Message: "Amount must be positive"},
			})
		}
		if errors.Is(err, domain.ErrTenureInvalid) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "tenureMonths", Message: "Tenure must be at least 1 month"},
			})
		}
		var amountErr domain.AmountOutOfBoundsError
		if errors.As(err, &amountErr) {
			return NewOutOfBoundsError(c, amountErr.Error())
		}
		var tenureErr domain.TenureOutOfBoundsError
		if errors.As(err, &tenureErr) {
			return NewOutOfBoundsError(c, tenureErr.Error())
		}
		log.Error().Err(err).Int32("customer_id", req.CustomerID).Msg("Failed to create loan application")
		return NewInternalError(c, "Failed to create loan application")
	}

	log.Info().
		Int32("application_id", application.ID).
		Str("application_number", application.ApplicationNumber).
		Int32("customer_id", application.CustomerID).
		Msg("Loan application created")

	return c.JSON(http.StatusCreated, toApplicationResponse(application))
}

// GetApplications handles GET /api/v1/loan-applications
func (h *ApplicationHandler) GetApplications(c echo.Context) error {
	statusParam := c.QueryParam("status")
	var status domain.ApplicationStatus
	switch statusParam {
	case "":
		status = ""
	case "pending", "approved", "rejected", "disbursed", "closed":
		status = domain.ApplicationStatus(statusParam)
	default:
		return NewValidationError(c, "Invalid status parameter", []ValidationError{
			{Field: "status", Message: "Must be 'pending', 'approved', 'rejected', 'disbursed', or 'closed'"},
		})
	}

	applications, err := h.applicationService.GetAll(status)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get loan applications")
		return NewInternalError(c, "Failed to get loan applications")
	}

	response := make([]ApplicationResponse, len(applications))
	for i, application := range applications {
		response[i] = toApplicationResponse(application)
	}

	return c.JSON(http.StatusOK, response)
}

// GetApplication handles GET /api/v1/loan-applications/:id
func (h *ApplicationHandler) GetApplication(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid application ID", nil)
	}

	application, err := h.applicationService.GetByID(int32(id))
	if err != nil {
		if errors.Is(err, domain.ErrApplicationNotFound) {
			return NewNotFoundError(c, "Loan application not found")
		}
		log.Error().Err(err).Int("application_id", id).Msg("Failed to get loan application")
		return NewInternalError(c, "Failed to get loan application")
	}

	return c.JSON(http.StatusOK, toApplicationResponse(application))
}

// ApproveApplication handles POST /api/v1/loan-applications/:id/approve
func (h *ApplicationHandler) ApproveApplication(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid application ID", nil)
	}

	var req ApproveApplicationRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	var approvedAmount *decimal.Decimal
	if req.ApprovedAmount != nil && *req.ApprovedAmount != "" {
		amount, err := decimal.NewFromString(*req.ApprovedAmount)
		if err != nil {
			return NewValidationError(c, "Invalid approved amount", []ValidationError{
				{Field: "approvedAmount", Message: "Must be a valid decimal number"},
			})
		}
		approvedAmount = &amount
	}

	input := service.ApprovalInput{
		ApprovedAmount: approvedAmount,
		ActorID:        middleware.GetActorID(c),
	}

	application, err := h.applicationService.Approve(int32(id), input)
	if err != nil {
		return applicationTransitionResponse(c, id, "approve", err)
	}

	log.Info().
		Int32("application_id", application.ID).
		Str("application_number", application.ApplicationNumber).
		Int32("actor_id", input.ActorID).
		Msg("Loan application approved")

	return c.JSON(http.StatusOK, toApplicationResponse(application))
}

// RejectApplication handles POST /api/v1/loan-applications/:id/reject
func (h *ApplicationHandler) RejectApplication(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid application ID", nil)
	}

	var req RejectApplicationRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	input := service.RejectionInput{
		Reason:  req.Reason,
		ActorID: middleware.GetActorID(c),
	}

	application, err := h.applicationService.Reject(int32(id), input)
	if err != nil {
		if errors.Is(err, domain.ErrRejectionReasonRequired) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "reason", Message: "Rejection reason is required"},
			})
		}
		return applicationTransitionResponse(c, id, "reject", err)
	}

	log.Info().
		Int32("application_id", application.ID).
		Str("application_number", application.ApplicationNumber).
		Int32("actor_id", input.ActorID).
		Msg("Loan application rejected")

	return c.JSON(http.StatusOK, toApplicationResponse(application))
}

// applicationTransitionResponse maps review transition errors shared by
// approve and reject
func applicationTransitionResponse(c echo.Context, id int, action string, err error) error {
	if errors.Is(err, domain.ErrApplicationNotFound) {
		return NewNotFoundError(c, "Loan application not found")
	}
	if errors.Is(err, domain.ErrActorRequired) {
		return NewUnauthorizedError(c, "X-Actor-ID header is required")
	}
	if errors.Is(err, domain.ErrApprovedAmountInvalid) {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "approvedAmount", Message: "Amount must be positive"},
		})
	}
	var amountErr domain.AmountOutOfBoundsError
	if errors.As(err, &amountErr) {
		return NewOutOfBoundsError(c, amountErr.Error())
	}
	var transitionErr domain.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		return NewConflictError(c, transitionErr.Error())
	}
	log.Error().Err(err).Int("application_id", id).Str("action", action).Msg("Failed to review loan application")
	return NewInternalError(c, "Failed to review loan application")
}

// Helper function to convert domain.LoanApplication to ApplicationResponse
func toApplicationResponse(application *domain.LoanApplication) ApplicationResponse {
	resp := ApplicationResponse{
		ID:                 application.ID,
		ApplicationNumber:  application.ApplicationNumber,
		CustomerID:         application.CustomerID,
		LoanProductID:      application.LoanProductID,
		ServicingAccountID: application.ServicingAccountID,
		AppliedAmount:      application.AppliedAmount.StringFixed(2),
		TenureMonths:       application.TenureMonths,
		Purpose:            application.Purpose,
		Status:             string(application.Status),
		RejectionReason:    application.RejectionReason,
		ApprovedBy:         application.ApprovedBy,
		CreatedAt:          application.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          application.UpdatedAt.Format(time.RFC3339),
	}
	if application.ApprovedAmount != nil {
		amount := application.ApprovedAmount.StringFixed(2)
		resp.ApprovedAmount = &amount
	}
	if application.ApprovedDate != nil {
		date := application.ApprovedDate.Format(time.RFC3339)
		resp.ApprovedDate = &date
	}
	return resp
}
