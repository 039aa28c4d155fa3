package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain errors shared across entities
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInternalError      = errors.New("internal error")
	ErrActorRequired      = errors.New("actor id is required")
	ErrDuplicateReference = errors.New("transaction reference already used")
	ErrScheduleInvariant  = errors.New("schedule does not reconcile with total payable")
)

// InvalidTransitionError is returned when a lifecycle operation is attempted
// from a state that does not allow it
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition %s from %s to %s", e.Entity, e.From, e.To)
}

// AmountOutOfBoundsError is returned when a requested amount falls outside
// the product's configured limits
type AmountOutOfBoundsError struct {
	Amount decimal.Decimal
	Min    decimal.Decimal
	Max    decimal.Decimal
}

func (e AmountOutOfBoundsError) Error() string {
	return fmt.Sprintf("amount %s outside product limits [%s, %s]", e.Amount.StringFixed(2), e.Min.StringFixed(2), e.Max.StringFixed(2))
}

// TenureOutOfBoundsError is returned when a requested tenure falls outside
// the product's configured limits
type TenureOutOfBoundsError struct {
	Months int32
	Min    int32
	Max    int32
}

func (e TenureOutOfBoundsError) Error() string {
	return fmt.Sprintf("tenure %d months outside product limits [%d, %d]", e.Months, e.Min, e.Max)
}
