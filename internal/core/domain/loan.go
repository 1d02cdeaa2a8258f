package domain

import "github.com/shopspring/decimal"

// divPrecision is the fractional precision used for P/N and rate conversion.
// Kept explicit so results do not depend on decimal.DivisionPrecision.
const divPrecision = 16

var hundred = decimal.NewFromInt(100)

// Installment is one period of a reducing-balance schedule
type Installment struct {
	Period    int             `json:"period"`
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Payment   decimal.Decimal `json:"payment"`
	Remaining decimal.Decimal `json:"remaining"`
}

// AmortizationSchedule simulates months periods of reducing-balance repayment.
// Interest for a period is charged on the balance before that period's
// principal portion is subtracted. Values are unrounded.
func AmortizationSchedule(principal, ratePercent decimal.Decimal, months int) []Installment {
	if months <= 0 {
		return nil
	}

	n := decimal.NewFromInt(int64(months))
	portion := principal.DivRound(n, divPrecision)
	monthlyRate := ratePercent.DivRound(hundred, divPrecision)

	remaining := principal
	schedule := make([]Installment, 0, months)
	for i := 1; i <= months; i++ {
		interest := remaining.Mul(monthlyRate)
		payment := portion.Add(interest)
		remaining = remaining.Sub(portion)

		schedule = append(schedule, Installment{
			Period:    i,
			Principal: portion,
			Interest:  interest,
			Payment:   payment,
			Remaining: remaining,
		})
	}
	return schedule
}

// CalculateDueAmount returns the total repayable on a loan, rounded to 2 places
func CalculateDueAmount(principal, ratePercent decimal.Decimal, months int) decimal.Decimal {
	total := decimal.Zero
	for _, inst := range AmortizationSchedule(principal, ratePercent, months) {
		total = total.Add(inst.Payment)
	}
	return total.Round(2)
}
