package service

import (
	"testing"
	"time"

	"github.com/kredoapp/kredo-backend/internal/domain"
	"github.com/shopspring/decimal"
)

func TestGenerateSchedule_Flat(t *testing.T) {
	terms, err := CalculateLoanTerms(flatProduct(), decimal.NewFromInt(1200), 12)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	entries, err := GenerateSchedule(terms, start)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(entries) != 12 {
		t.Fatalf("Expected 12 entries, got %d", len(entries))
	}

	for i, entry := range entries {
		if entry.InstallmentNumber != int32(i+1) {
			t.Errorf("Entry %d: expected installment number %d, got %d", i, i+1, entry.InstallmentNumber)
		}
		expectedDue := start.AddDate(0, i+1, 0)
		if !entry.DueDate.Equal(expectedDue) {
			t.Errorf("Entry %d: expected due date %s, got %s", i, expectedDue, entry.DueDate)
		}
		if !entry.PrincipalDue.Equal(decimal.NewFromInt(100)) {
			t.Errorf("Entry %d: expected principal due 100, got %s", i, entry.PrincipalDue)
		}
		if !entry.InterestDue.Equal(decimal.NewFromInt(24)) {
			t.Errorf("Entry %d: expected interest due 24, got %s", i, entry.InterestDue)
		}
		if entry.Status != domain.EntryStatusPending {
			t.Errorf("Entry %d: expected pending status, got %s", i, entry.Status)
		}
	}
}

func TestGenerateSchedule_LastEntryAbsorbsResidual(t *testing.T) {
	// 1000 over 7 months: 1000/7 = 142.86 rounded, residual lands on entry 7
	terms, err := CalculateLoanTerms(flatProduct(), decimal.NewFromInt(1000), 7)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	entries, err := GenerateSchedule(terms, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	sumPrincipal := decimal.Zero
	sumInterest := decimal.Zero
	sumTotal := decimal.Zero
	for _, entry := range entries {
		sumPrincipal = sumPrincipal.Add(entry.PrincipalDue)
		sumInterest = sumInterest.Add(entry.InterestDue)
		sumTotal = sumTotal.Add(entry.TotalDue)
	}

	if !sumPrincipal.Equal(terms.Principal) {
		t.Errorf("Expected principal sum %s, got %s", terms.Principal, sumPrincipal)
	}
	if !sumInterest.Equal(terms.TotalInterest) {
		t.Errorf("Expected interest sum %s, got %s", terms.TotalInterest, sumInterest)
	}
	if !sumTotal.Equal(terms.TotalPayable) {
		t.Errorf("Expected total sum %s, got %s", terms.TotalPayable, sumTotal)
	}

	last := entries[len(entries)-1]
	if last.PrincipalDue.Equal(entries[0].PrincipalDue) {
		t.Error("Expected final entry principal to differ from even split")
	}
}

func TestGenerateSchedule_TinyPrincipalStaysNonNegative(t *testing.T) {
	// 0.04 over 7 months: the rounded per-month figure of 0.01 would hand
	// out more than the principal before the final installment
	terms := &LoanTerms{
		Principal:     decimal.NewFromFloat(0.04),
		TenureMonths:  7,
		AnnualRate:    decimal.Zero,
		InterestType:  domain.InterestTypeFlat,
		TotalInterest: decimal.Zero,
		TotalPayable:  decimal.NewFromFloat(0.04),
	}

	entries, err := GenerateSchedule(terms, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	sumPrincipal := decimal.Zero
	for _, entry := range entries {
		if entry.PrincipalDue.IsNegative() || entry.InterestDue.IsNegative() {
			t.Errorf("Entry %d: negative due (principal %s, interest %s)", entry.InstallmentNumber, entry.PrincipalDue, entry.InterestDue)
		}
		sumPrincipal = sumPrincipal.Add(entry.PrincipalDue)
	}
	if !sumPrincipal.Equal(terms.Principal) {
		t.Errorf("Expected principal sum %s, got %s", terms.Principal, sumPrincipal)
	}
}

func TestGenerateSchedule_Reducing(t *testing.T) {
	terms, err := CalculateLoanTerms(reducingProduct(), decimal.NewFromInt(10000), 12)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	entries, err := GenerateSchedule(terms, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	sumPrincipal := decimal.Zero
	sumTotal := decimal.Zero
	for _, entry := range entries {
		sumPrincipal = sumPrincipal.Add(entry.PrincipalDue)
		sumTotal = sumTotal.Add(entry.TotalDue)
	}
	if !sumPrincipal.Equal(terms.Principal) {
		t.Errorf("Expected principal sum %s, got %s", terms.Principal, sumPrincipal)
	}
	if !sumTotal.Equal(terms.TotalPayable) {
		t.Errorf("Expected total sum %s, got %s", terms.TotalPayable, sumTotal)
	}

	// First month interest is 1% of the full principal
	if !entries[0].InterestDue.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected first interest 100, got %s", entries[0].InterestDue)
	}
	// Interest declines with the balance
	for i := 1; i < len(entries); i++ {
		if entries[i].InterestDue.GreaterThan(entries[i-1].InterestDue) {
			t.Errorf("Entry %d: interest %s exceeds previous %s", i, entries[i].InterestDue, entries[i-1].InterestDue)
		}
	}
}

func TestGenerateSchedule_TenureInvalid(t *testing.T) {
	terms := &LoanTerms{TenureMonths: 0}
	if _, err := GenerateSchedule(terms, time.Now()); err != domain.ErrTenureInvalid {
		t.Errorf("Expected ErrTenureInvalid, got %v", err)
	}
}
