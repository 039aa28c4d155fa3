package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrScheduleEntryNotFound = errors.New("schedule entry not found")
	ErrScheduleEmpty         = errors.New("loan has no repayment schedule")
)

// ScheduleEntryStatus is derived from the paid accumulators and the due date
type ScheduleEntryStatus string

const (
	EntryStatusPending ScheduleEntryStatus = "pending"
	EntryStatusPartial ScheduleEntryStatus = "partial"
	EntryStatusPaid    ScheduleEntryStatus = "paid"
	EntryStatusOverdue ScheduleEntryStatus = "overdue"
)

// RepaymentScheduleEntry is one installment of a loan's amortization table.
// Entries are created in a batch at disbursement, mutated only by repayment
// allocation, and never deleted.
type RepaymentScheduleEntry struct {
	ID                int32               `json:"id"`
	LoanID            int32               `json:"loanId"`
	InstallmentNumber int32               `json:"installmentNumber"`
	DueDate           time.Time           `json:"dueDate"`
	PrincipalDue      decimal.Decimal     `json:"principalDue"`
	InterestDue       decimal.Decimal     `json:"interestDue"`
	TotalDue          decimal.Decimal     `json:"totalDue"`
	PrincipalPaid     decimal.Decimal     `json:"principalPaid"`
	InterestPaid      decimal.Decimal     `json:"interestPaid"`
	PenaltyPaid       decimal.Decimal     `json:"penaltyPaid"`
	Status            ScheduleEntryStatus `json:"status"`
	PaidDate          *time.Time          `json:"paidDate,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// InterestGap returns the unpaid interest portion of the entry
func (e *RepaymentScheduleEntry) InterestGap() decimal.Decimal {
	return e.InterestDue.Sub(e.InterestPaid)
}

// PrincipalGap returns the unpaid principal portion of the entry
func (e *RepaymentScheduleEntry) PrincipalGap() decimal.Decimal {
	return e.PrincipalDue.Sub(e.PrincipalPaid)
}

// Outstanding returns the total unpaid portion of the entry
func (e *RepaymentScheduleEntry) Outstanding() decimal.Decimal {
	return e.InterestGap().Add(e.PrincipalGap())
}

// IsSettled returns true once both due components are fully paid
func (e *RepaymentScheduleEntry) IsSettled() bool {
	return e.InterestGap().LessThanOrEqual(decimal.Zero) && e.PrincipalGap().LessThanOrEqual(decimal.Zero)
}

// DeriveStatus computes the entry status from its accumulators and the
// given as-of date
func (e *RepaymentScheduleEntry) DeriveStatus(asOf time.Time) ScheduleEntryStatus {
	if e.IsSettled() {
		return EntryStatusPaid
	}
	paid := e.InterestPaid.Add(e.PrincipalPaid)
	if asOf.After(e.DueDate) {
		return EntryStatusOverdue
	}
	if paid.GreaterThan(decimal.Zero) {
		return EntryStatusPartial
	}
	return EntryStatusPending
}

// ScheduleSummary aggregates a loan's schedule by settlement state
type ScheduleSummary struct {
	TotalInstallments   int32           `json:"totalInstallments"`
	PaidInstallments    int32           `json:"paidInstallments"`
	OverdueInstallments int32           `json:"overdueInstallments"`
	TotalDue            decimal.Decimal `json:"totalDue"`
	TotalPaid           decimal.Decimal `json:"totalPaid"`
	OverdueAmount       decimal.Decimal `json:"overdueAmount"`
	PenaltiesPaid       decimal.Decimal `json:"penaltiesPaid"`
}

// SummarizeSchedule computes settlement statistics for a schedule as of
// the given date
func SummarizeSchedule(entries []*RepaymentScheduleEntry, asOf time.Time) *ScheduleSummary {
	summary := &ScheduleSummary{
		TotalInstallments: int32(len(entries)),
		TotalDue:          decimal.Zero,
		TotalPaid:         decimal.Zero,
		OverdueAmount:     decimal.Zero,
		PenaltiesPaid:     decimal.Zero,
	}
	for _, entry := range entries {
		summary.TotalDue = summary.TotalDue.Add(entry.TotalDue)
		summary.TotalPaid = summary.TotalPaid.Add(entry.InterestPaid).Add(entry.PrincipalPaid)
		summary.PenaltiesPaid = summary.PenaltiesPaid.Add(entry.PenaltyPaid)
		switch entry.DeriveStatus(asOf) {
		case EntryStatusPaid:
			summary.PaidInstallments++
		case EntryStatusOverdue:
			summary.OverdueInstallments++
			summary.OverdueAmount = summary.OverdueAmount.Add(entry.Outstanding())
		}
	}
	return summary
}

type RepaymentScheduleRepository interface {
	CreateBatchTx(tx interface{}, entries []*RepaymentScheduleEntry) error
	GetByLoanID(loanID int32) ([]*RepaymentScheduleEntry, error)
	UpdateAllocationTx(tx interface{}, entry *RepaymentScheduleEntry) error
}
