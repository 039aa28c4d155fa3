package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kredoapp/kredo-backend/internal/domain"
	"github.com/kredoapp/kredo-backend/internal/websocket"
	"github.com/shopspring/decimal"
)

// DisbursementInput carries a disbursement request for an approved application
type DisbursementInput struct {
	StartDate time.Time
	Reference string
	ActorID   int32
}

// WriteOffInput carries a write-off request. Amount is the balance being
// booked as a loss and must not exceed the loan's outstanding balance.
type WriteOffInput struct {
	Amount  decimal.Decimal
	Reason  string
	ActorID int32
}

// LoanPreview is the computed terms and schedule for a prospective loan
type LoanPreview struct {
	Terms    *LoanTerms                       `json:"terms"`
	Schedule []*domain.RepaymentScheduleEntry `json:"schedule"`
}

// LoanService handles loan disbursement and lifecycle transitions
type LoanService struct {
	pool            TxBeginner
	loanRepo        domain.LoanRepository
	applicationRepo domain.LoanApplicationRepository
	productRepo     domain.LoanProductRepository
	scheduleRepo    domain.RepaymentScheduleRepository
	txRepo          domain.LoanTransactionRepository
	eventPublisher  websocket.EventPublisher
}

// NewLoanService creates a new LoanService
func NewLoanService(pool TxBeginner, loanRepo domain.LoanRepository, applicationRepo domain.LoanApplicationRepository, productRepo domain.LoanProductRepository, scheduleRepo domain.RepaymentScheduleRepository, txRepo domain.LoanTransactionRepository) *LoanService {
	return &LoanService{
		pool:            pool,
		loanRepo:        loanRepo,
		applicationRepo: applicationRepo,
		productRepo:     productRepo,
		scheduleRepo:    scheduleRepo,
		txRepo:          txRepo,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *LoanService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *LoanService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// Disburse converts an approved application into an active loan. In one
// transaction it creates the loan, its full repayment schedule, and a
// disbursement transaction, then marks the application disbursed. Calling it
// a second time for the same application fails with
// ErrApplicationAlreadyDisbursed.
func (s *LoanService) Disburse(ctx context.Context, applicationID int32, input DisbursementInput) (*domain.Loan, error) {
	if input.ActorID <= 0 {
		return nil, domain.ErrActorRequired
	}

	application, err := s.applicationRepo.GetByID(applicationID)
	if err != nil {
		return nil, err
	}
	if application.Status == domain.ApplicationStatusDisbursed {
		return nil, domain.ErrApplicationAlreadyDisbursed
	}
	if !application.IsApproved() {
		return nil, domain.InvalidTransitionError{
			Entity: "loan application",
			From:   string(application.Status),
			To:     string(domain.ApplicationStatusDisbursed),
		}
	}
	if existing, err := s.loanRepo.GetByApplicationID(applicationID); err == nil && existing != nil {
		return nil, domain.ErrApplicationAlreadyDisbursed
	}

	product, err := s.productRepo.GetByID(application.LoanProductID)
	if err != nil {
		return nil, err
	}

	principal := application.AppliedAmount
	if application.ApprovedAmount != nil {
		principal = *application.ApprovedAmount
	}

	terms, err := CalculateLoanTerms(product, principal, application.TenureMonths)
	if err != nil {
		return nil, err
	}

	startDate := input.StartDate
	if startDate.IsZero() {
		startDate = time.Now()
	}

	entries, err := GenerateSchedule(terms, startDate)
	if err != nil {
		return nil, err
	}

	reference := input.Reference
	if reference == "" {
		reference = fmt.Sprintf("DSB-%s", application.ApplicationNumber)
	}
	if existing, err := s.txRepo.GetByReference(reference); err == nil && existing != nil {
		return nil, domain.ErrDuplicateReference
	}

	loan := &domain.Loan{
		LoanNumber:           newLoanNumber(),
		ApplicationID:        application.ID,
		CustomerID:           application.CustomerID,
		LoanProductID:        application.LoanProductID,
		PrincipalAmount:      terms.Principal,
		InterestRate:         terms.AnnualRate,
		InterestType:         terms.InterestType,
		TenureMonths:         terms.TenureMonths,
		StartDate:            startDate,
		MaturityDate:         startDate.AddDate(0, int(terms.TenureMonths), 0),
		TotalInterest:        terms.TotalInterest,
		ProcessingFee:        terms.ProcessingFee,
		TotalPayable:         terms.TotalPayable,
		MonthlyInstallment:   terms.MonthlyInstallment,
		OutstandingPrincipal: terms.Principal,
		OutstandingInterest:  terms.TotalInterest,
		Status:               domain.LoanStatusActive,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	created, err := s.loanRepo.CreateTx(tx, loan)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		entry.LoanID = created.ID
	}
	if err := s.scheduleRepo.CreateBatchTx(tx, entries); err != nil {
		return nil, err
	}

	transaction := &domain.LoanTransaction{
		LoanID:             created.ID,
		Type:               domain.TransactionTypeDisbursement,
		Amount:             terms.Principal,
		PrincipalComponent: terms.Principal,
		InterestComponent:  decimal.Zero,
		PenaltyComponent:   decimal.Zero,
		TransactionDate:    startDate,
		Reference:          reference,
		Description:        fmt.Sprintf("Disbursement of %s", application.ApplicationNumber),
		ActorID:            input.ActorID,
	}
	if _, err := s.txRepo.CreateTx(tx, transaction); err != nil {
		return nil, err
	}

	if err := s.applicationRepo.UpdateStatusTx(tx, application.ID, domain.ApplicationStatusDisbursed); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.publishEvent(websocket.LoanDisbursed(created.ID, created.LoanNumber, created.PrincipalAmount))
	return created, nil
}

// GetByID retrieves a loan by ID
func (s *LoanService) GetByID(id int32) (*domain.Loan, error) {
	return s.loanRepo.GetByID(id)
}

// GetByNumber retrieves a loan by its loan number
func (s *LoanService) GetByNumber(loanNumber string) (*domain.Loan, error) {
	return s.loanRepo.GetByNumber(loanNumber)
}

// GetAll retrieves loans, optionally filtered by status
func (s *LoanService) GetAll(status domain.LoanStatus) ([]*domain.Loan, error) {
	return s.loanRepo.GetAll(status)
}

// GetWithStats retrieves a loan along with installment progress figures
// computed from its schedule
func (s *LoanService) GetWithStats(id int32) (*domain.LoanWithStats, error) {
	loan, err := s.loanRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	entries, err := s.scheduleRepo.GetByLoanID(id)
	if err != nil {
		return nil, err
	}

	stats := &domain.LoanWithStats{
		Loan:              *loan,
		TotalInstallments: int32(len(entries)),
		RemainingBalance:  loan.Outstanding(),
		ProgressPct:       loan.Progress(),
	}
	for _, entry := range entries {
		if entry.IsSettled() {
			stats.PaidInstallments++
		}
	}
	return stats, nil
}

// Preview computes the terms and schedule a product would produce for an
// amount and tenure, without touching any application or loan
func (s *LoanService) Preview(productID int32, principal decimal.Decimal, tenureMonths int32, startDate time.Time) (*LoanPreview, error) {
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, err
	}
	terms, err := CalculateLoanTerms(product, principal, tenureMonths)
	if err != nil {
		return nil, err
	}
	if startDate.IsZero() {
		startDate = time.Now()
	}
	entries, err := GenerateSchedule(terms, startDate)
	if err != nil {
		return nil, err
	}
	return &LoanPreview{Terms: terms, Schedule: entries}, nil
}

// WriteOff writes off an active loan. The amount and the mandatory reason
// are recorded in a write-off transaction and the remaining outstanding
// balances are zeroed.
func (s *LoanService) WriteOff(ctx context.Context, loanID int32, input WriteOffInput) (*domain.Loan, error) {
	return s.terminate(ctx, loanID, domain.LoanStatusWrittenOff, input.Amount, input.Reason, input.ActorID)
}

// MarkDefaulted marks an active loan as defaulted. The decision itself is
// made outside the engine; this only records the transition.
func (s *LoanService) MarkDefaulted(ctx context.Context, loanID int32, reason string, actorID int32) (*domain.Loan, error) {
	return s.terminate(ctx, loanID, domain.LoanStatusDefaulted, decimal.Zero, reason, actorID)
}

func (s *LoanService) terminate(ctx context.Context, loanID int32, status domain.LoanStatus, amount decimal.Decimal, reason string, actorID int32) (*domain.Loan, error) {
	if actorID <= 0 {
		return nil, domain.ErrActorRequired
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.ErrWriteOffReasonRequired
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	loan, err := s.loanRepo.LockTx(tx, loanID)
	if err != nil {
		return nil, err
	}
	if !loan.IsActive() {
		return nil, domain.InvalidTransitionError{
			Entity: "loan",
			From:   string(loan.Status),
			To:     string(status),
		}
	}

	outstanding := loan.Outstanding()
	// A write-off books the loss and zeroes the balances; a default only
	// flips status
	if status == domain.LoanStatusWrittenOff {
		if amount.LessThanOrEqual(decimal.Zero) || amount.GreaterThan(outstanding) {
			return nil, domain.ErrWriteOffAmountInvalid
		}
		principalComponent := decimal.Min(amount, loan.OutstandingPrincipal)
		transaction := &domain.LoanTransaction{
			LoanID:             loanID,
			Type:               domain.TransactionTypeWriteOff,
			Amount:             amount,
			PrincipalComponent: principalComponent,
			InterestComponent:  amount.Sub(principalComponent),
			PenaltyComponent:   decimal.Zero,
			TransactionDate:    time.Now(),
			Reference:          fmt.Sprintf("WOF-%s", strings.ToUpper(uuid.NewString()[:8])),
			Description:        reason,
			ActorID:            actorID,
		}
		if _, err := s.txRepo.CreateTx(tx, transaction); err != nil {
			return nil, err
		}
		if err := s.loanRepo.UpdateOutstandingTx(tx, loanID, decimal.Zero, decimal.Zero); err != nil {
			return nil, err
		}
	}

	if err := s.loanRepo.UpdateStatusTx(tx, loanID, status); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	loan.Status = status
	switch status {
	case domain.LoanStatusWrittenOff:
		loan.OutstandingPrincipal = decimal.Zero
		loan.OutstandingInterest = decimal.Zero
		s.publishEvent(websocket.LoanWrittenOff(loanID, loan.LoanNumber, outstanding))
	case domain.LoanStatusDefaulted:
		s.publishEvent(websocket.LoanDefaulted(loanID, loan.LoanNumber, outstanding))
	}
	return loan, nil
}

// newLoanNumber builds a unique loan number, e.g. LN-20260831-1A2B3C4D
func newLoanNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("LN-%s-%s", time.Now().Format("20060102"), suffix)
}
