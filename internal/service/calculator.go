package service

import (
	"github.com/kredoapp/kredo-backend/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	twelve  = decimal.NewFromInt(12)
	hundred = decimal.NewFromInt(100)
)

// LoanTerms is the frozen cost breakdown computed at disbursement time
type LoanTerms struct {
	Principal          decimal.Decimal
	TenureMonths       int32
	AnnualRate         decimal.Decimal
	InterestType       domain.InterestType
	TotalInterest      decimal.Decimal
	ProcessingFee      decimal.Decimal
	TotalPayable       decimal.Decimal
	MonthlyInstallment decimal.Decimal
}

// CalculateLoanTerms computes the cost terms for a principal and tenure
// under the given product. Flat products charge simple interest on the
// original principal for the full term; reducing products use the standard
// monthly annuity with interest recomputed on the declining balance.
// All money values are rounded half-up to 2 decimal places; the final
// installment of the schedule absorbs any rounding residual.
func CalculateLoanTerms(product *domain.LoanProduct, principal decimal.Decimal, tenureMonths int32) (*LoanTerms, error) {
	if principal.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrLoanAmountInvalid
	}
	if tenureMonths < 1 {
		return nil, domain.ErrTenureInvalid
	}
	if err := product.CheckBounds(principal, tenureMonths); err != nil {
		return nil, err
	}

	terms := &LoanTerms{
		Principal:     principal,
		TenureMonths:  tenureMonths,
		AnnualRate:    product.InterestRate,
		InterestType:  product.InterestType,
		ProcessingFee: principal.Mul(product.ProcessingFeeRate).Div(hundred).Round(2),
	}

	months := decimal.NewFromInt(int64(tenureMonths))
	switch product.InterestType {
	case domain.InterestTypeReducing:
		installment, totalInterest := reducingTerms(principal, product.InterestRate, tenureMonths)
		terms.MonthlyInstallment = installment
		terms.TotalInterest = totalInterest
	default:
		annualInterest := principal.Mul(product.InterestRate).Div(hundred)
		terms.TotalInterest = annualInterest.Mul(months).Div(twelve).Round(2)
		terms.MonthlyInstallment = principal.Add(terms.TotalInterest).Div(months).Round(2)
	}
	terms.TotalPayable = principal.Add(terms.TotalInterest)

	return terms, nil
}

// CalculatePenalty computes the penalty accrued on an overdue amount at
// the product's penalty rate
func CalculatePenalty(overdueAmount, penaltyRatePercent decimal.Decimal) decimal.Decimal {
	if overdueAmount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return overdueAmount.Mul(penaltyRatePercent).Div(hundred).Round(2)
}

// installmentSplit is one row of the per-period principal/interest division
type installmentSplit struct {
	principal decimal.Decimal
	interest  decimal.Decimal
}

// reducingTerms computes the annuity installment and the total interest a
// reducing-balance loan accrues over its term. The final period repays the
// exact remaining balance, so the walk here matches the schedule exactly.
func reducingTerms(principal, annualRate decimal.Decimal, tenureMonths int32) (decimal.Decimal, decimal.Decimal) {
	splits := reducingSplits(principal, annualRate, tenureMonths)
	totalInterest := decimal.Zero
	for _, s := range splits {
		totalInterest = totalInterest.Add(s.interest)
	}
	return annuityPayment(principal, annualRate, tenureMonths), totalInterest
}

// annuityPayment returns the level monthly payment
// P*r*(1+r)^n / ((1+r)^n - 1), rounded to 2 decimal places
func annuityPayment(principal, annualRate decimal.Decimal, tenureMonths int32) decimal.Decimal {
	months := decimal.NewFromInt(int64(tenureMonths))
	if annualRate.IsZero() {
		return principal.Div(months).Round(2)
	}
	monthlyRate := annualRate.Div(hundred).Div(twelve)
	compound := decimal.NewFromInt(1).Add(monthlyRate).Pow(months)
	return principal.Mul(monthlyRate).Mul(compound).Div(compound.Sub(decimal.NewFromInt(1))).Round(2)
}

// reducingSplits walks the declining balance month by month. Interest is
// recomputed on the outstanding balance each period; the last period
// clears whatever balance remains.
func reducingSplits(principal, annualRate decimal.Decimal, tenureMonths int32) []installmentSplit {
	payment := annuityPayment(principal, annualRate, tenureMonths)
	monthlyRate := annualRate.Div(hundred).Div(twelve)

	splits := make([]installmentSplit, tenureMonths)
	balance := principal
	for i := int32(0); i < tenureMonths; i++ {
		interest := balance.Mul(monthlyRate).Round(2)
		var principalPart decimal.Decimal
		if i == tenureMonths-1 {
			principalPart = balance
		} else {
			principalPart = payment.Sub(interest)
			if principalPart.GreaterThan(balance) {
				principalPart = balance
			}
		}
		splits[i] = installmentSplit{principal: principalPart, interest: interest}
		balance = balance.Sub(principalPart)
	}
	return splits
}
