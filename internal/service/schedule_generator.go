package service

import (
	"time"

	"github.com/kredoapp/kredo-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// GenerateSchedule expands computed loan terms into the per-month
// amortization table. The first installment falls due one month after the
// start date, each subsequent one a month later. Per-entry splits are even
// for flat loans (declining-balance splits for reducing), with all rounding
// residuals assigned to the final installment so the schedule sums exactly
// to the loan's principal, interest, and total payable.
func GenerateSchedule(terms *LoanTerms, startDate time.Time) ([]*domain.RepaymentScheduleEntry, error) {
	if terms.TenureMonths < 1 {
		return nil, domain.ErrTenureInvalid
	}

	splits := scheduleSplits(terms)
	entries := make([]*domain.RepaymentScheduleEntry, terms.TenureMonths)
	for i := int32(0); i < terms.TenureMonths; i++ {
		entries[i] = &domain.RepaymentScheduleEntry{
			InstallmentNumber: i + 1,
			DueDate:           startDate.AddDate(0, int(i)+1, 0),
			PrincipalDue:      splits[i].principal,
			InterestDue:       splits[i].interest,
			TotalDue:          splits[i].principal.Add(splits[i].interest),
			PrincipalPaid:     decimal.Zero,
			InterestPaid:      decimal.Zero,
			PenaltyPaid:       decimal.Zero,
			Status:            domain.EntryStatusPending,
		}
	}

	if err := verifySchedule(entries, terms); err != nil {
		return nil, err
	}
	return entries, nil
}

// scheduleSplits divides principal and interest across the tenure
func scheduleSplits(terms *LoanTerms) []installmentSplit {
	if terms.InterestType == domain.InterestTypeReducing {
		return reducingSplits(terms.Principal, terms.AnnualRate, terms.TenureMonths)
	}

	months := decimal.NewFromInt(int64(terms.TenureMonths))
	perPrincipal := terms.Principal.Div(months).Round(2)
	perInterest := terms.TotalInterest.Div(months).Round(2)

	splits := make([]installmentSplit, terms.TenureMonths)
	remainingPrincipal := terms.Principal
	remainingInterest := terms.TotalInterest
	last := int(terms.TenureMonths) - 1
	for i := range splits {
		if i == last {
			// Final installment absorbs the rounding residual
			splits[i] = installmentSplit{principal: remainingPrincipal, interest: remainingInterest}
			break
		}
		// Capped at what is left so rounded-up per-month figures on tiny
		// principals cannot push the final installment negative
		principal := decimal.Min(perPrincipal, remainingPrincipal)
		interest := decimal.Min(perInterest, remainingInterest)
		splits[i] = installmentSplit{principal: principal, interest: interest}
		remainingPrincipal = remainingPrincipal.Sub(principal)
		remainingInterest = remainingInterest.Sub(interest)
	}
	return splits
}

// verifySchedule checks the exact-sum invariants. A violation means a bug
// in the calculator or the split logic, not bad input.
func verifySchedule(entries []*domain.RepaymentScheduleEntry, terms *LoanTerms) error {
	sumPrincipal := decimal.Zero
	sumTotal := decimal.Zero
	for _, entry := range entries {
		if entry.PrincipalDue.IsNegative() || entry.InterestDue.IsNegative() {
			return domain.ErrScheduleInvariant
		}
		sumPrincipal = sumPrincipal.Add(entry.PrincipalDue)
		sumTotal = sumTotal.Add(entry.TotalDue)
	}
	if !sumPrincipal.Equal(terms.Principal) || !sumTotal.Equal(terms.TotalPayable) {
		return domain.ErrScheduleInvariant
	}
	return nil
}
