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

// LoanHandler handles loan disbursement and lifecycle HTTP requests
type LoanHandler struct {
	loanService *service.LoanService
}

// NewLoanHandler creates a new LoanHandler
func NewLoanHandler(loanService *service.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// DisburseRequest represents the disburse application request body
type DisburseRequest struct {
	StartDate string `json:"startDate"`
	Reference string `json:"reference,omitempty"`
}

// WriteOffRequest represents the write-off request body
type WriteOffRequest struct {
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

// DefaultRequest represents the mark-defaulted request body
type DefaultRequest struct {
	Reason string `json:"reason"`
}

// PreviewRequest represents the loan preview request body
type PreviewRequest struct {
	Principal    string `json:"principal"`
	TenureMonths int32  `json:"tenureMonths"`
	StartDate    string `json:"startDate"`
}

// LoanResponse represents a loan in API responses
type LoanResponse struct {
	ID                   int32  `json:"id"`
	LoanNumber           string `json:"loanNumber"`
	ApplicationID        int32  `json:"applicationId"`
	CustomerID           int32  `json:"customerId"`
	LoanProductID        int32  `json:"loanProductId"`
	PrincipalAmount      string `json:"principalAmount"`
	InterestRate         string `json:"interestRate"`
	InterestType         string `json:"interestType"`
	TenureMonths         int32  `json:"tenureMonths"`
	StartDate            string `json:"startDate"`
	MaturityDate         string `json:"maturityDate"`
	TotalInterest        string `json:"totalInterest"`
	ProcessingFee        string `json:"processingFee"`
	TotalPayable         string `json:"totalPayable"`
	MonthlyInstallment   string `json:"monthlyInstallment"`
	OutstandingPrincipal string `json:"outstandingPrincipal"`
	OutstandingInterest  string `json:"outstandingInterest"`
	Status               string `json:"status"`
	CreatedAt            string `json:"createdAt"`
	UpdatedAt            string `json:"updatedAt"`
}

// LoanWithStatsResponse represents a loan with repayment statistics
type LoanWithStatsResponse struct {
	LoanResponse
	TotalInstallments int32   `json:"totalInstallments"`
	PaidInstallments  int32   `json:"paidInstallments"`
	RemainingBalance  string  `json:"remainingBalance"`
	Progress          float64 `json:"progress"`
}

// PreviewResponse represents the computed terms and schedule for a
// prospective loan
type PreviewResponse struct {
	TotalInterest      string                  `json:"totalInterest"`
	ProcessingFee      string                  `json:"processingFee"`
	TotalPayable       string                  `json:"totalPayable"`
	MonthlyInstallment string                  `json:"monthlyInstallment"`
	Schedule           []ScheduleEntryResponse `json:"schedule"`
}

// Disburse handles POST /api/v1/loan-applications/:id/disburse
func (h *LoanHandler) Disburse(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid application ID", nil)
	}

	var req DisburseRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	startDate := time.Now()
	if req.StartDate != "" {
		startDate, err = time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return NewValidationError(c, "Invalid start date", []ValidationError{
				{Field: "startDate", Message: "Must be in YYYY-MM-DD format"},
			})
		}
	}

	input := service.DisbursementInput{
		StartDate: startDate,
		Reference: req.Reference,
		ActorID:   middleware.GetActorID(c),
	}

	loan, err := h.loanService.Disburse(c.Request().Context(), int32(id), input)
	if err != nil {
		if errors.Is(err, domain.ErrApplicationNotFound) {
			return NewNotFoundError(c, "Loan application not found")
		}
		if errors.Is(err, domain.ErrApplicationAlreadyDisbursed) {
			return NewConflictError(c, "Application has already been disbursed")
		}
		if errors.Is(err, domain.ErrActorRequired) {
			return NewUnauthorizedError(c, "X-Actor-ID header is required")
		}
		var transitionErr domain.InvalidTransitionError
		if errors.As(err, &transitionErr) {
			return NewConflictError(c, transitionErr.Error())
		}
		log.Error().Err(err).Int("application_id", id).Msg("Failed to disburse loan")
		return NewInternalError(c, "Failed to disburse loan")
	}

	log.Info().
		Int32("loan_id", loan.ID).
		Str("loan_number", loan.LoanNumber).
		Str("principal", loan.PrincipalAmount.StringFixed(2)).
		Int32("actor_id", input.ActorID).
		Msg("Loan disbursed")

	return c.JSON(http.StatusCreated, toLoanResponse(loan))
}

// GetLoans handles GET /api/v1/loans
func (h *LoanHandler) GetLoans(c echo.Context) error {
	statusParam := c.QueryParam("status")
	var status domain.LoanStatus
	switch statusParam {
	case "":
		status = ""
	case "active", "closed", "defaulted", "written_off":
		status = domain.LoanStatus(statusParam)
	default:
		return NewValidationError(c, "Invalid status parameter", []ValidationError{
			{Field: "status", Message: "Must be 'active', 'closed', 'defaulted', or 'written_off'"},
		})
	}

	loans, err := h.loanService.GetAll(status)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get loans")
		return NewInternalError(c, "Failed to get loans")
	}

	response := make([]LoanResponse, len(loans))
	for i, loan := range loans {
		response[i] = toLoanResponse(loan)
	}

	return c.JSON(http.StatusOK, response)
}

// GetLoan handles GET /api/v1/loans/:id
func (h *LoanHandler) GetLoan(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	loan, err := h.loanService.GetWithStats(int32(id))
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return NewNotFoundError(c, "Loan not found")
		}
		log.Error().Err(err).Int("loan_id", id).Msg("Failed to get loan")
		return NewInternalError(c, "Failed to get loan")
	}

	return c.JSON(http.StatusOK, toLoanWithStatsResponse(loan))
}

// Preview handles POST /api/v1/loan-products/:id/preview
func (h *LoanHandler) Preview(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid product ID", nil)
	}

	var req PreviewRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	principal, err := decimal.NewFromString(req.Principal)
	if err != nil {
		return NewValidationError(c, "Invalid principal", []ValidationError{
			{Field: "principal", Message: "Must be a valid decimal number"},
		})
	}

	startDate := time.Now()
	if req.StartDate != "" {
		startDate, err = time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return NewValidationError(c, "Invalid start date", []ValidationError{
				{Field: "startDate", Message: "Must be in YYYY-MM-DD format"},
			})
		}
	}

	preview, err := h.loanService.Preview(int32(id), principal, req.TenureMonths, startDate)
	if err != nil {
		if errors.Is(err, domain.ErrLoanProductNotFound) {
			return NewNotFoundError(c, "Loan product not found")
		}
		var amountErr domain.AmountOutOfBoundsError
		if errors.As(err, &amountErr) {
			return NewOutOfBoundsError(c, amountErr.Error())
		}
		var tenureErr domain.TenureOutOfBoundsError
		if errors.As(err, &tenureErr) {
			return NewOutOfBoundsError(c, tenureErr.Error())
		}
		log.Error().Err(err).Int("product_id", id).Msg("Failed to preview loan")
		return NewInternalError(c, "Failed to preview loan")
	}

	schedule := make([]ScheduleEntryResponse, len(preview.Schedule))
	for i, entry := range preview.Schedule {
		schedule[i] = toScheduleEntryResponse(entry)
	}

	return c.JSON(http.StatusOK, PreviewResponse{
		TotalInterest:      preview.Terms.TotalInterest.StringFixed(2),
		ProcessingFee:      preview.Terms.ProcessingFee.StringFixed(2),
		TotalPayable:       preview.Terms.TotalPayable.StringFixed(2),
		MonthlyInstallment: preview.Terms.MonthlyInstallment.StringFixed(2),
		Schedule:           schedule,
	})
}

// WriteOff handles POST /api/v1/loans/:id/write-off
func (h *LoanHandler) WriteOff(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	var req WriteOffRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	input := service.WriteOffInput{
		Amount:  amount,
		Reason:  req.Reason,
		ActorID: middleware.GetActorID(c),
	}

	loan, err := h.loanService.WriteOff(c.Request().Context(), int32(id), input)
	if err != nil {
		return loanTerminationResponse(c, id, "write-off", err)
	}

	log.Info().
		Int32("loan_id", loan.ID).
		Str("loan_number", loan.LoanNumber).
		Int32("actor_id", input.ActorID).
		Msg("Loan written off")

	return c.JSON(http.StatusOK, toLoanResponse(loan))
}

// MarkDefaulted handles POST /api/v1/loans/:id/default
func (h *LoanHandler) MarkDefaulted(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	var req DefaultRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	actorID := middleware.GetActorID(c)
	loan, err := h.loanService.MarkDefaulted(c.Request().Context(), int32(id), req.Reason, actorID)
	if err != nil {
		return loanTerminationResponse(c, id, "default", err)
	}

	log.Info().
		Int32("loan_id", loan.ID).
		Str("loan_number", loan.LoanNumber).
		Int32("actor_id", actorID).
		Msg("Loan marked defaulted")

	return c.JSON(http.StatusOK, toLoanResponse(loan))
}

// loanTerminationResponse maps write-off and default errors
func loanTerminationResponse(c echo.Context, id int, action string, err error) error {
	if errors.Is(err, domain.ErrLoanNotFound) {
		return NewNotFoundError(c, "Loan not found")
	}
	if errors.Is(err, domain.ErrActorRequired) {
		return NewUnauthorizedError(c, "X-Actor-ID header is required")
	}
	if errors.Is(err, domain.ErrWriteOffReasonRequired) {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "reason", Message: "Reason is required"},
		})
	}
	if errors.Is(err, domain.ErrWriteOffAmountInvalid) {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "amount", Message: "Amount must be positive and no more than the outstanding balance"},
		})
	}
	var transitionErr domain.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		return NewConflictError(c, transitionErr.Error())
	}
	log.Error().Err(err).Int("loan_id", id).Str("action", action).Msg("Failed to terminate loan")
	return NewInternalError(c, "Failed to terminate loan")
}

// Helper function to convert domain.Loan to LoanResponse
func toLoanResponse(loan *domain.Loan) LoanResponse {
	return LoanResponse{
		ID:                   loan.ID,
		LoanNumber:           loan.LoanNumber,
		ApplicationID:        loan.ApplicationID,
		CustomerID:           loan.CustomerID,
		LoanProductID:        loan.LoanProductID,
		PrincipalAmount:      loan.PrincipalAmount.StringFixed(2),
		InterestRate:         loan.InterestRate.StringFixed(2),
		InterestType:         string(loan.InterestType),
		TenureMonths:         loan.TenureMonths,
		StartDate:            loan.StartDate.Format("2006-01-02"),
		MaturityDate:         loan.MaturityDate.Format("2006-01-02"),
		TotalInterest:        loan.TotalInterest.StringFixed(2),
		ProcessingFee:        loan.ProcessingFee.StringFixed(2),
		TotalPayable:         loan.TotalPayable.StringFixed(2),
		MonthlyInstallment:   loan.MonthlyInstallment.StringFixed(2),
		OutstandingPrincipal: loan.OutstandingPrincipal.StringFixed(2),
		OutstandingInterest:  loan.OutstandingInterest.StringFixed(2),
		Status:               string(loan.Status),
		CreatedAt:            loan.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            loan.UpdatedAt.Format(time.RFC3339),
	}
}

// Helper function to convert domain.LoanWithStats to LoanWithStatsResponse
func toLoanWithStatsResponse(loan *domain.LoanWithStats) LoanWithStatsResponse {
	return LoanWithStatsResponse{
		LoanResponse:      toLoanResponse(&loan.Loan),
		TotalInstallments: loan.TotalInstallments,
		PaidInstallments:  loan.PaidInstallments,
		RemainingBalance:  loan.RemainingBalance.StringFixed(2),
		Progress:          loan.ProgressPct,
	}
}
