package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrApplicationNotFound         = errors.New("loan application not found")
	ErrApplicationNumberEmpty      = errors.New("application number is required")
	ErrApplicationCustomerRequired = errors.New("customer is required")
	ErrApplicationProductRequired  = errors.New("loan product is required")
	ErrApplicationAccountRequired  = errors.New("servicing account is required")
	ErrAppliedAmountInvalid        = errors.New("applied amount must be positive")
	ErrTenureInvalid               = errors.New("tenure must be at least 1 month")
	ErrApprovedAmountInvalid       = errors.New("approved amount must be positive")
	ErrRejectionReasonRequired     = errors.New("rejection reason is required")
	ErrApplicationAlreadyDisbursed = errors.New("application has already been disbursed")
)

// ApplicationStatus tracks a loan application through its lifecycle
type ApplicationStatus string

const (
	ApplicationStatusPending   ApplicationStatus = "pending"
	ApplicationStatusApproved  ApplicationStatus = "approved"
	ApplicationStatusRejected  ApplicationStatus = "rejected"
	ApplicationStatusDisbursed ApplicationStatus = "disbursed"
	ApplicationStatusClosed    ApplicationStatus = "closed"
)

type LoanApplication struct {
	ID                 int32             `json:"id"`
	ApplicationNumber  string            `json:"applicationNumber"`
	CustomerID         int32             `json:"customerId"`
	LoanProductID      int32             `json:"loanProductId"`
	ServicingAccountID int32             `json:"servicingAccountId"`
	AppliedAmount      decimal.Decimal   `json:"appliedAmount"`
	TenureMonths       int32             `json:"tenureMonths"`
	Purpose            string            `json:"purpose"`
	Status             ApplicationStatus `json:"status"`
	ApprovedAmount     *decimal.Decimal  `json:"approvedAmount,omitempty"`
	ApprovedBy         *int32            `json:"approvedBy,omitempty"`
	ApprovedDate       *time.Time        `json:"approvedDate,omitempty"`
	RejectionReason    *string           `json:"rejectionReason,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

func (a *LoanApplication) Validate() error {
	if a.ApplicationNumber == "" {
		return ErrApplicationNumberEmpty
	}
	if a.CustomerID <= 0 {
		return ErrApplicationCustomerRequired
	}
	if a.LoanProductID <= 0 {
		return ErrApplicationProductRequired
	}
	if a.ServicingAccountID <= 0 {
		return ErrApplicationAccountRequired
	}
	if a.AppliedAmount.LessThanOrEqual(decimal.Zero) {
		return ErrAppliedAmountInvalid
	}
	if a.TenureMonths < 1 {
		return ErrTenureInvalid
	}
	return nil
}

// IsPending returns true while the application awaits a decision
func (a *LoanApplication) IsPending() bool {
	return a.Status == ApplicationStatusPending
}

// IsApproved returns true once the application has been approved but not
// yet disbursed
func (a *LoanApplication) IsApproved() bool {
	return a.Status == ApplicationStatusApproved
}

type LoanApplicationRepository interface {
	Create(application *LoanApplication) (*LoanApplication, error)
	GetByID(id int32) (*LoanApplication, error)
	GetByNumber(applicationNumber string) (*LoanApplication, error)
	GetAll(status ApplicationStatus) ([]*LoanApplication, error)
	Update(application *LoanApplication) (*LoanApplication, error)
	UpdateStatusTx(tx interface{}, id int32, status ApplicationStatus) error
}
