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

// RepaymentHandler handles repayment posting and schedule HTTP requests
type RepaymentHandler struct {
	repaymentService *service.RepaymentService
}

// NewRepaymentHandler creates a new RepaymentHandler
func NewRepaymentHandler(repaymentService *service.RepaymentService) *RepaymentHandler {
	return &RepaymentHandler{repaymentService: repaymentService}
}

// PostRepaymentRequest represents the post repayment request body
type PostRepaymentRequest struct {
	Amount      string `json:"amount"`
	PaymentDate string `json:"paymentDate,omitempty"`
	Reference   string `json:"reference"`
	Description string `json:"description,omitempty"`
}

// ScheduleEntryResponse represents a repayment schedule entry in API responses
type ScheduleEntryResponse struct {
	ID                int32   `json:"id"`
	LoanID            int32   `json:"loanId"`
	InstallmentNumber int32   `json:"installmentNumber"`
	DueDate           string  `json:"dueDate"`
	PrincipalDue      string  `json:"principalDue"`
	InterestDue       string  `json:"interestDue"`
	TotalDue          string  `json:"totalDue"`
	PrincipalPaid     string  `json:"principalPaid"`
	InterestPaid      string  `json:"interestPaid"`
	PenaltyPaid       string  `json:"penaltyPaid"`
	Status            string  `json:"status"`
	PaidDate          *string `json:"paidDate,omitempty"`
}

// ScheduleSummaryResponse represents schedule settlement statistics
type ScheduleSummaryResponse struct {
	TotalInstallments   int32  `json:"totalInstallments"`
	PaidInstallments    int32  `json:"paidInstallments"`
	OverdueInstallments int32  `json:"overdueInstallments"`
	TotalDue            string `json:"totalDue"`
	TotalPaid           string `json:"totalPaid"`
	OverdueAmount       string `json:"overdueAmount"`
	PenaltiesPaid       string `json:"penaltiesPaid"`
}

// ArrearsResponse represents overdue amounts on a loan as of a date
type ArrearsResponse struct {
	LoanID             int32  `json:"loanId"`
	AsOf               string `json:"asOf"`
	OverdueEntries     int    `json:"overdueEntries"`
	PrincipalInArrears string `json:"principalInArrears"`
	InterestInArrears  string `json:"interestInArrears"`
	TotalInArrears     string `json:"totalInArrears"`
	PenaltyAccrued     string `json:"penaltyAccrued"`
}

// AllocationResponse reports how a posted repayment was applied
type AllocationResponse struct {
	InterestApplied  string `json:"interestApplied"`
	PrincipalApplied string `json:"principalApplied"`
	PenaltyApplied   string `json:"penaltyApplied"`
	Overpayment      string `json:"overpayment"`
	EntriesTouched   int    `json:"entriesTouched"`
	EntriesSettled   int    `json:"entriesSettled"`
	LoanClosed       bool   `json:"loanClosed"`
}

// TransactionResponse represents a loan transaction in API responses
type TransactionResponse struct {
	ID                 int32  `json:"id"`
	LoanID             int32  `json:"loanId"`
	Type               string `json:"type"`
	Amount             string `json:"amount"`
	PrincipalComponent string `json:"principalComponent"`
	InterestComponent  string `json:"interestComponent"`
	PenaltyComponent   string `json:"penaltyComponent"`
	TransactionDate    string `json:"transactionDate"`
	Reference          string `json:"reference"`
	Description        string `json:"description,omitempty"`
	ActorID            int32  `json:"actorId"`
	CreatedAt          string `json:"createdAt"`
}

// PostRepayment handles POST /api/v1/loans/:id/repayments
func (h *RepaymentHandler) PostRepayment(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	var req PostRepaymentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	paymentDate := time.Now()
	if req.PaymentDate != "" {
		paymentDate, err = time.Parse("2006-01-02", req.PaymentDate)
		if err != nil {
			return NewValidationError(c, "Invalid payment date", []ValidationError{
				{Field: "paymentDate", Message: "Must be in YYYY-MM-DD format"},
			})
		}
	}

	input := service.RepaymentInput{
		Amount:      amount,
		PaymentDate: paymentDate,
		Reference:   req.Reference,
		ActorID:     middleware.GetActorID(c),
		Description: req.Description,
	}

	result, err := h.repaymentService.PostRepayment(c.Request().Context(), int32(id), input)
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return NewNotFoundError(c, "Loan not found")
		}
		if errors.Is(err, domain.ErrLoanNotActive) {
			return NewConflictError(c, "Loan is not active")
		}
		if errors.Is(err, domain.ErrDuplicateReference) {
			return NewConflictError(c, "Transaction reference already used")
		}
		if errors.Is(err, domain.ErrActorRequired) {
			return NewUnauthorizedError(c, "X-Actor-ID header is required")
		}
		if errors.Is(err, domain.ErrReferenceEmpty) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "reference", Message: "Reference is required"},
			})
		}
		if errors.Is(err, domain.ErrTransactionAmountInvalid) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "amount", Message: "Amount must be positive"},
			})
		}
		log.Error().Err(err).Int("loan_id", id).Str("reference", req.Reference).Msg("Failed to post repayment")
		return NewInternalError(c, "Failed to post repayment")
	}

	log.Info().
		Int("loan_id", id).
		Str("reference", req.Reference).
		Str("amount", amount.StringFixed(2)).
		Bool("loan_closed", result.LoanClosed).
		Msg("Repayment posted")

	return c.JSON(http.StatusCreated, AllocationResponse{
		InterestApplied:  result.InterestApplied.StringFixed(2),
		PrincipalApplied: result.PrincipalApplied.StringFixed(2),
		PenaltyApplied:   result.PenaltyApplied.StringFixed(2),
		Overpayment:      result.Overpayment.StringFixed(2),
		EntriesTouched:   result.EntriesTouched,
		EntriesSettled:   result.EntriesSettled,
		LoanClosed:       result.LoanClosed,
	})
}

// GetSchedule handles GET /api/v1/loans/:id/schedule
func (h *RepaymentHandler) GetSchedule(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	asOf, err := parseAsOf(c)
	if err != nil {
		return NewValidationError(c, "Invalid asOf parameter", []ValidationError{
			{Field: "asOf", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	entries, err := h.repaymentService.GetSchedule(c.Request().Context(), int32(id), asOf)
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return NewNotFoundError(c, "Loan not found")
		}
		if errors.Is(err, domain.ErrScheduleEmpty) {
			return NewNotFoundError(c, "Loan has no repayment schedule")
		}
		log.Error().Err(err).Int("loan_id", id).Msg("Failed to get schedule")
		return NewInternalError(c, "Failed to get schedule")
	}

	response := make([]ScheduleEntryResponse, len(entries))
	for i, entry := range entries {
		response[i] = toScheduleEntryResponse(entry)
	}

	return c.JSON(http.StatusOK, response)
}

// GetSummary handles GET /api/v1/loans/:id/summary
func (h *RepaymentHandler) GetSummary(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	asOf, err := parseAsOf(c)
	if err != nil {
		return NewValidationError(c, "Invalid asOf parameter", []ValidationError{
			{Field: "asOf", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	summary, err := h.repaymentService.GetScheduleSummary(c.Request().Context(), int32(id), asOf)
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return NewNotFoundError(c, "Loan not found")
		}
		if errors.Is(err, domain.ErrScheduleEmpty) {
			return NewNotFoundError(c, "Loan has no repayment schedule")
		}
		log.Error().Err(err).Int("loan_id", id).Msg("Failed to get schedule summary")
		return NewInternalError(c, "Failed to get schedule summary")
	}

	return c.JSON(http.StatusOK, ScheduleSummaryResponse{
		TotalInstallments:   summary.TotalInstallments,
		PaidInstallments:    summary.PaidInstallments,
		OverdueInstallments: summary.OverdueInstallments,
		TotalDue:            summary.TotalDue.StringFixed(2),
		TotalPaid:           summary.TotalPaid.StringFixed(2),
		OverdueAmount:       summary.OverdueAmount.StringFixed(2),
		PenaltiesPaid:       summary.PenaltiesPaid.StringFixed(2),
	})
}

// GetArrears handles GET /api/v1/loans/:id/arrears
func (h *RepaymentHandler) GetArrears(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	asOf, err := parseAsOf(c)
	if err != nil {
		return NewValidationError(c, "Invalid asOf parameter", []ValidationError{
			{Field: "asOf", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	report, err := h.repaymentService.GetArrears(c.Request().Context(), int32(id), asOf)
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return NewNotFoundError(c, "Loan not found")
		}
		if errors.Is(err, domain.ErrScheduleEmpty) {
			return NewNotFoundError(c, "Loan has no repayment schedule")
		}
		log.Error().Err(err).Int("loan_id", id).Msg("Failed to get arrears")
		return NewInternalError(c, "Failed to get arrears")
	}

	return c.JSON(http.StatusOK, ArrearsResponse{
		LoanID:             report.LoanID,
		AsOf:               report.AsOf.Format("2006-01-02"),
		OverdueEntries:     report.OverdueEntries,
		PrincipalInArrears: report.PrincipalInArrears.StringFixed(2),
		InterestInArrears:  report.InterestInArrears.StringFixed(2),
		TotalInArrears:     report.TotalInArrears.StringFixed(2),
		PenaltyAccrued:     report.PenaltyAccrued.StringFixed(2),
	})
}

// GetTransactions handles GET /api/v1/loans/:id/transactions
func (h *RepaymentHandler) GetTransactions(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	transactions, err := h.repaymentService.GetTransactions(int32(id))
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return NewNotFoundError(c, "Loan not found")
		}
		log.Error().Err(err).Int("loan_id", id).Msg("Failed to get transactions")
		return NewInternalError(c, "Failed to get transactions")
	}

	response := make([]TransactionResponse, len(transactions))
	for i, transaction := range transactions {
		response[i] = toTransactionResponse(transaction)
	}

	return c.JSON(http.StatusOK, response)
}

// GetTransactionByReference handles GET /api/v1/loan-transactions/:reference
func (h *RepaymentHandler) GetTransactionByReference(c echo.Context) error {
	reference := c.Param("reference")
	if reference == "" {
		return NewValidationError(c, "Invalid reference", nil)
	}

	transaction, err := h.repaymentService.GetTransactionByReference(reference)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return NewNotFoundError(c, "Transaction not found")
		}
		log.Error().Err(err).Str("reference", reference).Msg("Failed to get transaction")
		return NewInternalError(c, "Failed to get transaction")
	}

	return c.JSON(http.StatusOK, toTransactionResponse(transaction))
}

// parseAsOf reads the optional asOf query parameter, defaulting to now
func parseAsOf(c echo.Context) (time.Time, error) {
	asOfParam := c.QueryParam("asOf")
	if asOfParam == "" {
		return time.Now(), nil
	}
	return time.Parse("2006-01-02", asOfParam)
}

// Helper function to convert domain.RepaymentScheduleEntry to ScheduleEntryResponse
func toScheduleEntryResponse(entry *domain.RepaymentScheduleEntry) ScheduleEntryResponse {
	resp := ScheduleEntryResponse{
		ID:                entry.ID,
		LoanID:            entry.LoanID,
		InstallmentNumber: entry.InstallmentNumber,
		DueDate:           entry.DueDate.Format("2006-01-02"),
		PrincipalDue:      entry.PrincipalDue.StringFixed(2),
		InterestDue:       entry.InterestDue.StringFixed(2),
		TotalDue:          entry.TotalDue.StringFixed(2),
		PrincipalPaid:     entry.PrincipalPaid.StringFixed(2),
		InterestPaid:      entry.InterestPaid.StringFixed(2),
		PenaltyPaid:       entry.PenaltyPaid.StringFixed(2),
		Status:            string(entry.Status),
	}
	if entry.PaidDate != nil {
		paidDate := entry.PaidDate.Format("2006-01-02")
		resp.PaidDate = &paidDate
	}
	return resp
}

// Helper function to convert domain.LoanTransaction to TransactionResponse
func toTransactionResponse(transaction *domain.LoanTransaction) TransactionResponse {
	return TransactionResponse{
		ID:                 transaction.ID,
		LoanID:             transaction.LoanID,
		Type:               string(transaction.Type),
		Amount:             transaction.Amount.StringFixed(2),
		PrincipalComponent: transaction.PrincipalComponent.StringFixed(2),
		InterestComponent:  transaction.InterestComponent.StringFixed(2),
		PenaltyComponent:   transaction.PenaltyComponent.StringFixed(2),
		TransactionDate:    transaction.TransactionDate.Format(time.RFC3339),
		Reference:          transaction.Reference,
		Description:        transaction.Description,
		ActorID:            transaction.ActorID,
		CreatedAt:          transaction.CreatedAt.Format(time.RFC3339),
	}
}
