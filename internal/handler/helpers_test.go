package handler

import (
	"context"
	"testing"
	"time"

	"github.com/kredoapp/kredo-backend/internal/domain"
	"github.com/kredoapp/kredo-backend/internal/service"
	"github.com/kredoapp/kredo-backend/internal/testutil"
	"github.com/shopspring/decimal"
)

func mustDecimal(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("Invalid decimal %q: %v", value, err)
	}
	return d
}

// loanFixture wires the loan and repayment services over mock repositories
// with one active loan: 1200 over 12 months at 24% flat, disbursed on
// 2026-02-01
type loanFixture struct {
	loanService      *service.LoanService
	repaymentService *service.RepaymentService
	loan             *domain.Loan
	applicationRepo  *testutil.MockLoanApplicationRepository
}

func newLoanFixture(t *testing.T) *loanFixture {
	t.Helper()

	pool := testutil.NewMockTxBeginner()
	loanRepo := testutil.NewMockLoanRepository()
	applicationRepo := testutil.NewMockLoanApplicationRepository()
	productRepo := testutil.NewMockLoanProductRepository()
	scheduleRepo := testutil.NewMockRepaymentScheduleRepository()
	txRepo := testutil.NewMockLoanTransactionRepository()

	seedProduct(productRepo)

	approved := decimal.NewFromInt(1200)
	approvedBy := int32(5)
	now := time.Now()
	application := &domain.LoanApplication{
		ApplicationNumber:  "APP-20260101-HNDL0001",
		CustomerID:         7,
		LoanProductID:      1,
		ServicingAccountID: 3,
		AppliedAmount:      approved,
		TenureMonths:       12,
		Status:             domain.ApplicationStatusApproved,
		ApprovedAmount:     &approved,
		ApprovedBy:         &approvedBy,
		ApprovedDate:       &now,
	}
	if _, err := applicationRepo.Create(application); err != nil {
		t.Fatalf("Failed to seed application: %v", err)
	}

	loanService := service.NewLoanService(pool, loanRepo, applicationRepo, productRepo, scheduleRepo, txRepo)
	repaymentService := service.NewRepaymentService(pool, loanRepo, productRepo, scheduleRepo, txRepo)

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	loan, err := loanService.Disburse(context.Background(), application.ID, service.DisbursementInput{StartDate: start, ActorID: 5})
	if err != nil {
		t.Fatalf("Failed to disburse fixture loan: %v", err)
	}

	return &loanFixture{
		loanService:      loanService,
		repaymentService: repaymentService,
		loan:             loan,
		applicationRepo:  applicationRepo,
	}
}
