package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrLoanNotFound           = errors.New("loan not found")
	ErrLoanNumberEmpty        = errors.New("loan number is required")
	ErrLoanAmountInvalid      = errors.New("loan principal must be positive")
	ErrLoanNotActive          = errors.New("loan is not active")
	ErrWriteOffReasonRequired = errors.New("write-off reason is required")
	ErrWriteOffAmountInvalid  = errors.New("write-off amount must be positive and no more than the outstanding balance")
)

// LoanStatus tracks a disbursed loan through its lifecycle
type LoanStatus string

const (
	LoanStatusActive     LoanStatus = "active"
	LoanStatusClosed     LoanStatus = "closed"
	LoanStatusDefaulted  LoanStatus = "defaulted"
	LoanStatusWrittenOff LoanStatus = "written_off"
)

// Loan is created at disbursement from an approved application. The cost
// terms are derived once and frozen; only the outstanding balances move,
// and only through repayment allocation or write-off.
type Loan struct {
	ID                   int32           `json:"id"`
	LoanNumber           string          `json:"loanNumber"`
	ApplicationID        int32           `json:"applicationId"`
	CustomerID           int32           `json:"customerId"`
	LoanProductID        int32           `json:"loanProductId"`
	PrincipalAmount      decimal.Decimal `json:"principalAmount"`
	InterestRate         decimal.Decimal `json:"interestRate"`
	InterestType         InterestType    `json:"interestType"`
	TenureMonths         int32           `json:"tenureMonths"`
	StartDate            time.Time       `json:"startDate"`
	MaturityDate         time.Time       `json:"maturityDate"`
	TotalInterest        decimal.Decimal `json:"totalInterest"`
	ProcessingFee        decimal.Decimal `json:"processingFee"`
	TotalPayable         decimal.Decimal `json:"totalPayable"`
	MonthlyInstallment   decimal.Decimal `json:"monthlyInstallment"`
	OutstandingPrincipal decimal.Decimal `json:"outstandingPrincipal"`
	OutstandingInterest  decimal.Decimal `json:"outstandingInterest"`
	Status               LoanStatus      `json:"status"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// IsActive returns true while the loan accepts repayments
func (l *Loan) IsActive() bool {
	return l.Status == LoanStatusActive
}

// Outstanding returns the total amount still owed on the loan
func (l *Loan) Outstanding() decimal.Decimal {
	return l.OutstandingPrincipal.Add(l.OutstandingInterest)
}

// Progress returns how much of the total payable has been settled, in percent
func (l *Loan) Progress() float64 {
	if l.TotalPayable.IsZero() {
		return 0
	}
	paid := l.TotalPayable.Sub(l.Outstanding())
	ratio, _ := paid.Div(l.TotalPayable).Float64()
	return ratio * 100
}

// LoanWithStats carries a loan together with schedule settlement statistics
type LoanWithStats struct {
	Loan
	TotalInstallments int32           `json:"totalInstallments"`
	PaidInstallments  int32           `json:"paidInstallments"`
	RemainingBalance  decimal.Decimal `json:"remainingBalance"`
	ProgressPct       float64         `json:"progress"`
}

type LoanRepository interface {
	CreateTx(tx interface{}, loan *Loan) (*Loan, error)
	GetByID(id int32) (*Loan, error)
	GetByNumber(loanNumber string) (*Loan, error)
	GetByApplicationID(applicationID int32) (*Loan, error)
	GetAll(status LoanStatus) ([]*Loan, error)
	LockTx(tx interface{}, id int32) (*Loan, error)
	UpdateOutstandingTx(tx interface{}, id int32, principal, interest decimal.Decimal) error
	UpdateStatusTx(tx interface{}, id int32, status LoanStatus) error
}
