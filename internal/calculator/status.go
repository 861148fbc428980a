package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// TotalPaid sums the amounts of all payments.
func TotalPaid(payments []models.BillPayment) float64 {
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(decimal.NewFromFloat(p.Amount))
	}
	return sum.InexactFloat64()
}

// BillStatus derives a bill status from the live payment list:
// nothing paid is pending, less than amount is partially_paid,
// amount or more is completed.
func BillStatus(amount float64, payments []models.BillPayment) models.BillStatus {
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(decimal.NewFromFloat(p.Amount))
	}

	switch {
	case !paid.IsPositive():
		return models.BillPending
	case paid.LessThan(decimal.NewFromFloat(amount)):
		return models.BillPartiallyPaid
	default:
		return models.BillCompleted
	}
}

// Remaining returns amount minus the sum of settlements, never below zero.
func Remaining(amount float64, settlements []models.Settlement) float64 {
	remaining := decimal.NewFromFloat(amount)
	for _, s := range settlements {
		remaining = remaining.Sub(decimal.NewFromFloat(s.Amount))
	}
	if remaining.IsNegative() {
		return 0
	}
	return remaining.InexactFloat64()
}

// ApplySettlement returns the debt status and remaining balance after payment
// is applied to a debt with the given outstanding remaining amount. A payment
// that covers the outstanding balance settles the debt.
func ApplySettlement(remaining, payment float64) (models.DebtStatus, float64) {
	r := decimal.NewFromFloat(remaining)
	p := decimal.NewFromFloat(payment)
	if p.GreaterThanOrEqual(r) {
		return models.DebtSettled, 0
	}
	return models.DebtPartiallySettled, r.Sub(p).InexactFloat64()
}
