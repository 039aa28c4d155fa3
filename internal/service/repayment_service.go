package service

import (
	"context"
	"time"

	"github.com/kredoapp/kredo-backend/internal/domain"
	"github.com/kredoapp/kredo-backend/internal/websocket"
	"github.com/shopspring/decimal"
)

// ScheduleCache caches a loan's repayment schedule. Get returns (nil, nil)
// on a cache miss.
type ScheduleCache interface {
	Get(ctx context.Context, loanID int32) ([]*domain.RepaymentScheduleEntry, error)
	Set(ctx context.Context, loanID int32, entries []*domain.RepaymentScheduleEntry) error
	Invalidate(ctx context.Context, loanID int32) error
}

// RepaymentInput carries a repayment posting request
type RepaymentInput struct {
	Amount      decimal.Decimal
	PaymentDate time.Time
	Reference   string
	ActorID     int32
	Description string
}

// AllocationResult reports how a payment was split across the schedule
type AllocationResult struct {
	InterestApplied  decimal.Decimal `json:"interestApplied"`
	PrincipalApplied decimal.Decimal `json:"principalApplied"`
	PenaltyApplied   decimal.Decimal `json:"penaltyApplied"`
	Overpayment      decimal.Decimal `json:"overpayment"`
	EntriesTouched   int             `json:"entriesTouched"`
	EntriesSettled   int             `json:"entriesSettled"`
	LoanClosed       bool            `json:"loanClosed"`
}

// ArrearsReport summarizes overdue amounts on a loan as of a date
type ArrearsReport struct {
	LoanID             int32           `json:"loanId"`
	AsOf               time.Time       `json:"asOf"`
	OverdueEntries     int             `json:"overdueEntries"`
	PrincipalInArrears decimal.Decimal `json:"principalInArrears"`
	InterestInArrears  decimal.Decimal `json:"interestInArrears"`
	TotalInArrears     decimal.Decimal `json:"totalInArrears"`
	PenaltyAccrued     decimal.Decimal `json:"penaltyAccrued"`
}

// AllocatePayment distributes a payment across schedule entries, oldest
// installment first, clearing each entry's interest before its principal.
// Any penalty due is paid only after every entry's interest and principal
// are covered; whatever remains after that is surfaced as overpayment.
// Entries are mutated in place; touched entries get their status rederived
// as of the payment date.
func AllocatePayment(entries []*domain.RepaymentScheduleEntry, amount decimal.Decimal, penaltyDue decimal.Decimal, paymentDate time.Time) *AllocationResult {
	result := &AllocationResult{
		InterestApplied:  decimal.Zero,
		PrincipalApplied: decimal.Zero,
		PenaltyApplied:   decimal.Zero,
		Overpayment:      decimal.Zero,
	}

	remaining := amount
	var oldestOverdue *domain.RepaymentScheduleEntry
	for _, entry := range entries {
		if entry.IsSettled() {
			continue
		}
		if oldestOverdue == nil && entry.DueDate.Before(paymentDate) {
			oldestOverdue = entry
		}
		if remaining.LessThanOrEqual(decimal.Zero) {
			continue
		}

		touched := false
		if gap := entry.InterestGap(); gap.GreaterThan(decimal.Zero) {
			applied := decimal.Min(remaining, gap)
			entry.InterestPaid = entry.InterestPaid.Add(applied)
			result.InterestApplied = result.InterestApplied.Add(applied)
			remaining = remaining.Sub(applied)
			touched = true
		}
		if gap := entry.PrincipalGap(); gap.GreaterThan(decimal.Zero) && remaining.GreaterThan(decimal.Zero) {
			applied := decimal.Min(remaining, gap)
			entry.PrincipalPaid = entry.PrincipalPaid.Add(applied)
			result.PrincipalApplied = result.PrincipalApplied.Add(applied)
			remaining = remaining.Sub(applied)
			touched = true
		}

		if touched {
			result.EntriesTouched++
			if entry.IsSettled() {
				result.EntriesSettled++
				if entry.PaidDate == nil {
					paid := paymentDate
					entry.PaidDate = &paid
				}
			}
			entry.Status = entry.DeriveStatus(paymentDate)
		}
	}

	if remaining.GreaterThan(decimal.Zero) && penaltyDue.GreaterThan(decimal.Zero) && oldestOverdue != nil {
		applied := decimal.Min(remaining, penaltyDue)
		oldestOverdue.PenaltyPaid = oldestOverdue.PenaltyPaid.Add(applied)
		result.PenaltyApplied = applied
		remaining = remaining.Sub(applied)
	}

	result.Overpayment = remaining
	return result
}

// RepaymentService posts repayments against loans and reads schedules
type RepaymentService struct {
	pool           TxBeginner
	loanRepo       domain.LoanRepository
	productRepo    domain.LoanProductRepository
	scheduleRepo   domain.RepaymentScheduleRepository
	txRepo         domain.LoanTransactionRepository
	cache          ScheduleCache
	eventPublisher websocket.EventPublisher
}

// NewRepaymentService creates a new RepaymentService
func NewRepaymentService(pool TxBeginner, loanRepo domain.LoanRepository, productRepo domain.LoanProductRepository, scheduleRepo domain.RepaymentScheduleRepository, txRepo domain.LoanTransactionRepository) *RepaymentService {
	return &RepaymentService{
		pool:         pool,
		loanRepo:     loanRepo,
		productRepo:  productRepo,
		scheduleRepo: scheduleRepo,
		txRepo:       txRepo,
	}
}

// SetScheduleCache sets the schedule read cache
func (s *RepaymentService) SetScheduleCache(cache ScheduleCache) {
	s.cache = cache
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *RepaymentService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *RepaymentService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// PostRepayment applies a repayment to a loan. The reference makes the
// operation idempotent: a second posting with the same reference fails with
// ErrDuplicateReference and changes nothing. If the payment settles every
// installment and clears the outstanding balance, the loan is closed in the
// same transaction.
func (s *RepaymentService) PostRepayment(ctx context.Context, loanID int32, input RepaymentInput) (*AllocationResult, error) {
	if input.ActorID <= 0 {
		return nil, domain.ErrActorRequired
	}
	if input.Reference == "" {
		return nil, domain.ErrReferenceEmpty
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrTransactionAmountInvalid
	}
	if input.PaymentDate.IsZero() {
		input.PaymentDate = time.Now()
	}

	if existing, err := s.txRepo.GetByReference(input.Reference); err == nil && existing != nil {
		return nil, domain.ErrDuplicateReference
	}

	loan, err := s.loanRepo.GetByID(loanID)
	if err != nil {
		return nil, err
	}
	if !loan.IsActive() {
		return nil, domain.ErrLoanNotActive
	}

	product, err := s.productRepo.GetByID(loan.LoanProductID)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Re-read under lock so concurrent postings serialize
	loan, err = s.loanRepo.LockTx(tx, loanID)
	if err != nil {
		return nil, err
	}
	if !loan.IsActive() {
		return nil, domain.ErrLoanNotActive
	}

	entries, err := s.scheduleRepo.GetByLoanID(loanID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, domain.ErrScheduleEmpty
	}

	penaltyDue := s.penaltyDue(entries, product.PenaltyRate, input.PaymentDate)
	result := AllocatePayment(entries, input.Amount, penaltyDue, input.PaymentDate)

	for _, entry := range entries {
		if err := s.scheduleRepo.UpdateAllocationTx(tx, entry); err != nil {
			return nil, err
		}
	}

	newPrincipal := loan.OutstandingPrincipal.Sub(result.PrincipalApplied)
	newInterest := loan.OutstandingInterest.Sub(result.InterestApplied)
	if err := s.loanRepo.UpdateOutstandingTx(tx, loanID, newPrincipal, newInterest); err != nil {
		return nil, err
	}

	transaction := &domain.LoanTransaction{
		LoanID:             loanID,
		Type:               domain.TransactionTypeRepayment,
		Amount:             input.Amount,
		PrincipalComponent: result.PrincipalApplied,
		InterestComponent:  result.InterestApplied,
		PenaltyComponent:   result.PenaltyApplied,
		TransactionDate:    input.PaymentDate,
		Reference:          input.Reference,
		Description:        input.Description,
		ActorID:            input.ActorID,
	}
	if _, err := s.txRepo.CreateTx(tx, transaction); err != nil {
		return nil, err
	}

	closed := allSettled(entries) && newPrincipal.LessThanOrEqual(decimal.Zero) && newInterest.LessThanOrEqual(decimal.Zero)
	if closed {
		if err := s.loanRepo.UpdateStatusTx(tx, loanID, domain.LoanStatusClosed); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	result.LoanClosed = closed

	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, loanID)
	}

	s.publishEvent(websocket.RepaymentPosted(loanID, input.Reference, input.Amount))
	if closed {
		s.publishEvent(websocket.LoanClosed(loanID, loan.LoanNumber))
	}

	return result, nil
}

// GetSchedule returns a loan's schedule, served from cache when available.
// Entry statuses are rederived against asOf: stored rows only carry the
// status as of the last allocation, so an untouched installment would
// otherwise still read pending after its due date.
func (s *RepaymentService) GetSchedule(ctx context.Context, loanID int32, asOf time.Time) ([]*domain.RepaymentScheduleEntry, error) {
	if _, err := s.loanRepo.GetByID(loanID); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, loanID); err == nil && cached != nil {
			deriveStatuses(cached, asOf)
			return cached, nil
		}
	}

	entries, err := s.scheduleRepo.GetByLoanID(loanID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, domain.ErrScheduleEmpty
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, loanID, entries)
	}
	deriveStatuses(entries, asOf)
	return entries, nil
}

// GetScheduleSummary aggregates a loan's schedule as of a date
func (s *RepaymentService) GetScheduleSummary(ctx context.Context, loanID int32, asOf time.Time) (*domain.ScheduleSummary, error) {
	entries, err := s.GetSchedule(ctx, loanID, asOf)
	if err != nil {
		return nil, err
	}
	return domain.SummarizeSchedule(entries, asOf), nil
}

// GetArrears reports overdue amounts and accrued penalty as of a date
func (s *RepaymentService) GetArrears(ctx context.Context, loanID int32, asOf time.Time) (*ArrearsReport, error) {
	loan, err := s.loanRepo.GetByID(loanID)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetByID(loan.LoanProductID)
	if err != nil {
		return nil, err
	}

	entries, err := s.scheduleRepo.GetByLoanID(loanID)
	if err != nil {
		return nil, err
	}

	report := &ArrearsReport{
		LoanID:             loanID,
		AsOf:               asOf,
		PrincipalInArrears: decimal.Zero,
		InterestInArrears:  decimal.Zero,
		TotalInArrears:     decimal.Zero,
		PenaltyAccrued:     decimal.Zero,
	}
	for _, entry := range entries {
		if entry.IsSettled() || !entry.DueDate.Before(asOf) {
			continue
		}
		report.OverdueEntries++
		report.PrincipalInArrears = report.PrincipalInArrears.Add(entry.PrincipalGap())
		report.InterestInArrears = report.InterestInArrears.Add(entry.InterestGap())
	}
	report.TotalInArrears = report.PrincipalInArrears.Add(report.InterestInArrears)
	report.PenaltyAccrued = CalculatePenalty(report.TotalInArrears, product.PenaltyRate)
	return report, nil
}

// GetTransactions returns a loan's transaction history
func (s *RepaymentService) GetTransactions(loanID int32) ([]*domain.LoanTransaction, error) {
	if _, err := s.loanRepo.GetByID(loanID); err != nil {
		return nil, err
	}
	return s.txRepo.GetByLoanID(loanID)
}

// GetTransactionByReference looks up a transaction by its idempotency reference
func (s *RepaymentService) GetTransactionByReference(reference string) (*domain.LoanTransaction, error) {
	if reference == "" {
		return nil, domain.ErrReferenceEmpty
	}
	return s.txRepo.GetByReference(reference)
}

func (s *RepaymentService) penaltyDue(entries []*domain.RepaymentScheduleEntry, penaltyRate decimal.Decimal, asOf time.Time) decimal.Decimal {
	overdue := decimal.Zero
	for _, entry := range entries {
		if entry.IsSettled() || !entry.DueDate.Before(asOf) {
			continue
		}
		overdue = overdue.Add(entry.Outstanding())
	}
	return CalculatePenalty(overdue, penaltyRate)
}

func deriveStatuses(entries []*domain.RepaymentScheduleEntry, asOf time.Time) {
	for _, entry := range entries {
		entry.Status = entry.DeriveStatus(asOf)
	}
}

func allSettled(entries []*domain.RepaymentScheduleEntry) bool {
	for _, entry := range entries {
		if !entry.IsSettled() {
			return false
		}
	}
	return true
}
