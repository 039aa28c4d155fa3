package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrLoanProductNotFound        = errors.New("loan product not found")
	ErrProductNameEmpty           = errors.New("product name is required")
	ErrProductNameTooLong         = errors.New("product name must be 200 characters or less")
	ErrProductRateNegative        = errors.New("product rates must not be negative")
	ErrProductInterestTypeInvalid = errors.New("interest type must be flat or reducing")
	ErrProductAmountBoundsInvalid = errors.New("product amount bounds must satisfy 0 < min <= max")
	ErrProductTenureBoundsInvalid = errors.New("product tenure bounds must satisfy 0 < min <= max")
	ErrProductInUse               = errors.New("product is referenced by a disbursed loan and cannot be changed")
)

// InterestType selects the interest computation strategy for a product
type InterestType string

const (
	InterestTypeFlat     InterestType = "flat"
	InterestTypeReducing InterestType = "reducing"
)

// LoanProduct defines the pricing and limits a loan is written against.
// Once a loan has been disbursed against a product, the product is frozen:
// updates are rejected so existing schedules are never retroactively altered.
type LoanProduct struct {
	ID                int32           `json:"id"`
	Name              string          `json:"name"`
	InterestRate      decimal.Decimal `json:"interestRate"` // annual, percent
	InterestType      InterestType    `json:"interestType"`
	ProcessingFeeRate decimal.Decimal `json:"processingFeeRate"` // percent of principal
	PenaltyRate       decimal.Decimal `json:"penaltyRate"`       // percent of overdue amount
	MinAmount         decimal.Decimal `json:"minAmount"`
	MaxAmount         decimal.Decimal `json:"maxAmount"`
	MinTenureMonths   int32           `json:"minTenureMonths"`
	MaxTenureMonths   int32           `json:"maxTenureMonths"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

func (p *LoanProduct) Validate() error {
	if p.Name == "" {
		return ErrProductNameEmpty
	}
	if len(p.Name) > 200 {
		return ErrProductNameTooLong
	}
	if p.InterestRate.IsNegative() || p.ProcessingFeeRate.IsNegative() || p.PenaltyRate.IsNegative() {
		return ErrProductRateNegative
	}
	if p.InterestType != InterestTypeFlat && p.InterestType != InterestTypeReducing {
		return ErrProductInterestTypeInvalid
	}
	if p.MinAmount.LessThanOrEqual(decimal.Zero) || p.MaxAmount.LessThan(p.MinAmount) {
		return ErrProductAmountBoundsInvalid
	}
	if p.MinTenureMonths < 1 || p.MaxTenureMonths < p.MinTenureMonths {
		return ErrProductTenureBoundsInvalid
	}
	return nil
}

// CheckBounds validates a requested principal and tenure against the
// product limits
func (p *LoanProduct) CheckBounds(amount decimal.Decimal, tenureMonths int32) error {
	if amount.LessThan(p.MinAmount) || amount.GreaterThan(p.MaxAmount) {
		return AmountOutOfBoundsError{Amount: amount, Min: p.MinAmount, Max: p.MaxAmount}
	}
	if tenureMonths < p.MinTenureMonths || tenureMonths > p.MaxTenureMonths {
		return TenureOutOfBoundsError{Months: tenureMonths, Min: p.MinTenureMonths, Max: p.MaxTenureMonths}
	}
	return nil
}

type LoanProductRepository interface {
	Create(product *LoanProduct) (*LoanProduct, error)
	GetByID(id int32) (*LoanProduct, error)
	GetAll() ([]*LoanProduct, error)
	Update(product *LoanProduct) (*LoanProduct, error)
	CountDisbursedLoans(productID int32) (int64, error)
}
