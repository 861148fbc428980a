package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/apperr"
	"github.com/mmynk/splitledger/internal/models"
)

var (
	hundred = decimal.NewFromInt(100)

	// Percentage shares must land in [100 - tolerance, 100 + tolerance].
	shareTolerance = decimal.RequireFromString("0.01")
)

// ComputeShares computes each participant's share percentage and owed amount.
//
// For equal splits every participant gets round(100/N, 2) percent and an
// expected amount of total/N. The rounded percentages may not sum to exactly
// 100; amounts are computed from total/N, not from the rounded percentage.
//
// For percentage splits the caller-supplied Share values must sum to 100
// within 0.01, and the expected amount is share/100 × total.
//
// AmountOwed = max(0, round(expected − Σ payments made by that participant)),
// rounded to places decimal places (0 means whole currency units).
//
// ComputeShares has no side effects and returns identical output for identical
// input, so bills can be recomputed on every update.
func ComputeShares(participants []models.Participant, method models.SplitMethod, total float64, payments []models.BillPayment, places int32) ([]models.Participant, error) {
	if len(participants) == 0 {
		return nil, apperr.NewValidationError("participants", "at least one participant is required")
	}

	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if p.UserID == "" {
			return nil, apperr.NewValidationError("participants", "participant user id is required")
		}
		if seen[p.UserID] {
			return nil, apperr.Validationf("participants", "participant %s listed more than once", p.UserID)
		}
		seen[p.UserID] = true
	}

	switch method {
	case models.SplitEqual:
	case models.SplitPercentage:
		if err := validatePercentages(participants); err != nil {
			return nil, err
		}
	default:
		return nil, apperr.Validationf("splitMethod", "unknown split method %q", method)
	}

	paid := paidByPayer(payments)
	totalAmount := decimal.NewFromFloat(total)
	count := decimal.NewFromInt(int64(len(participants)))

	shares := make([]models.Participant, len(participants))
	for i, p := range participants {
		var percent, expected decimal.Decimal
		if method == models.SplitEqual {
			percent = hundred.Div(count).Round(2)
			expected = totalAmount.Div(count)
		} else {
			percent = decimal.NewFromFloat(p.Share)
			expected = percent.Div(hundred).Mul(totalAmount)
		}

		owed := expected.Sub(paid[p.UserID]).Round(places)
		if owed.IsNegative() {
			owed = decimal.Zero
		}

		shares[i] = models.Participant{
			UserID:     p.UserID,
			Share:      percent.InexactFloat64(),
			AmountOwed: owed.InexactFloat64(),
		}
	}

	return shares, nil
}

func validatePercentages(participants []models.Participant) error {
	sum := decimal.Zero
	for _, p := range participants {
		if p.Share < 0 {
			return apperr.Validationf("participants", "share for %s cannot be negative", p.UserID)
		}
		sum = sum.Add(decimal.NewFromFloat(p.Share))
	}
	if sum.Sub(hundred).Abs().GreaterThan(shareTolerance) {
		return apperr.Validationf("participants", "percentage shares must sum to 100, got %s", sum.String())
	}
	return nil
}

// paidByPayer sums payments per payer. A payer appearing several times is summed.
func paidByPayer(payments []models.BillPayment) map[string]decimal.Decimal {
	paid := make(map[string]decimal.Decimal, len(payments))
	for _, p := range payments {
		paid[p.PayerID] = paid[p.PayerID].Add(decimal.NewFromFloat(p.Amount))
	}
	return paid
}
