package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrTransactionNotFound      = errors.New("loan transaction not found")
	ErrTransactionAmountInvalid = errors.New("transaction amount must be positive")
	ErrReferenceEmpty           = errors.New("transaction reference is required")
)

// TransactionType classifies entries in the loan ledger
type TransactionType string

const (
	TransactionTypeDisbursement TransactionType = "disbursement"
	TransactionTypeRepayment    TransactionType = "repayment"
	TransactionTypePenalty      TransactionType = "penalty"
	TransactionTypeWriteOff     TransactionType = "write_off"
	TransactionTypeRestructure  TransactionType = "restructure"
)

// LoanTransaction is one entry in the append-only loan ledger. The
// reference is globally unique and doubles as the idempotency key for
// retried requests; rows are immutable after creation.
type LoanTransaction struct {
	ID                 int32           `json:"id"`
	LoanID             int32           `json:"loanId"`
	Type               TransactionType `json:"type"`
	Amount             decimal.Decimal `json:"amount"`
	PrincipalComponent decimal.Decimal `json:"principalComponent"`
	InterestComponent  decimal.Decimal `json:"interestComponent"`
	PenaltyComponent   decimal.Decimal `json:"penaltyComponent"`
	TransactionDate    time.Time       `json:"transactionDate"`
	Reference          string          `json:"reference"`
	Description        string          `json:"description"`
	ActorID            int32           `json:"actorId"`
	CreatedAt          time.Time       `json:"createdAt"`
}

func (t *LoanTransaction) Validate() error {
	if t.Reference == "" {
		return ErrReferenceEmpty
	}
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrTransactionAmountInvalid
	}
	if t.ActorID <= 0 {
		return ErrActorRequired
	}
	return nil
}

type LoanTransactionRepository interface {
	CreateTx(tx interface{}, transaction *LoanTransaction) (*LoanTransaction, error)
	GetByLoanID(loanID int32) ([]*LoanTransaction, error)
	GetByReference(reference string) (*LoanTransaction, error)
}
