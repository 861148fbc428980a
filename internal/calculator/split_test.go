package calculator

import (
	"math"
	"reflect"
	"testing"

	"github.com/mmynk/splitledger/internal/apperr"
	"github.com/mmynk/splitledger/internal/models"
)

func people(ids ...string) []models.Participant {
	ps := make([]models.Participant, len(ids))
	for i, id := range ids {
		ps[i] = models.Participant{UserID: id}
	}
	return ps
}

func withShares(ids []string, shares []float64) []models.Participant {
	ps := make([]models.Participant, len(ids))
	for i := range ids {
		ps[i] = models.Participant{UserID: ids[i], Share: shares[i]}
	}
	return ps
}

func TestComputeShares(t *testing.T) {
	tests := []struct {
		name         string
		participants []models.Participant
		method       models.SplitMethod
		total        float64
		payments     []models.BillPayment
		places       int32
		wantErr      bool
		validateFunc func(t *testing.T, shares []models.Participant)
	}{
		{
			name:         "equal split of 300 among three",
			participants: people("Alice", "Bob", "Charlie"),
			method:       models.SplitEqual,
			total:        300,
			validateFunc: func(t *testing.T, shares []models.Participant) {
				for _, s := range shares {
					if s.AmountOwed != 100 {
						t.Errorf("%s owed = %v, want 100", s.UserID, s.AmountOwed)
					}
					if s.Share != 33.33 {
						t.Errorf("%s share = %v, want 33.33", s.UserID, s.Share)
					}
				}
			},
		},
		{
			name:         "equal split rounds owed amounts to whole units",
			participants: people("Alice", "Bob", "Charlie"),
			method:       models.SplitEqual,
			total:        100,
			validateFunc: func(t *testing.T, shares []models.Participant) {
				// 100 / 3 = 33.33 -> 33 each; the missing unit is accepted
				for _, s := range shares {
					if s.AmountOwed != 33 {
						t.Errorf("%s owed = %v, want 33", s.UserID, s.AmountOwed)
					}
				}
			},
		},
		{
			name:         "equal split with cent precision",
			participants: people("Alice", "Bob", "Charlie"),
			method:       models.SplitEqual,
			total:        100,
			places:       2,
			validateFunc: func(t *testing.T, shares []models.Participant) {
				for _, s := range shares {
					if s.AmountOwed != 33.33 {
						t.Errorf("%s owed = %v, want 33.33", s.UserID, s.AmountOwed)
					}
				}
			},
		},
		{
			name:         "percentage split",
			participants: withShares([]string{"Alice", "Bob", "Charlie"}, []float64{50, 30, 20}),
			method:       models.SplitPercentage,
			total:        300,
			validateFunc: func(t *testing.T, shares []models.Participant) {
				want := map[string]float64{"Alice": 150, "Bob": 90, "Charlie": 60}
				for _, s := range shares {
					if s.AmountOwed != want[s.UserID] {
						t.Errorf("%s owed = %v, want %v", s.UserID, s.AmountOwed, want[s.UserID])
					}
				}
			},
		},
		{
			name:         "percentage shares within tolerance",
			participants: withShares([]string{"Alice", "Bob", "Charlie"}, []float64{33.33, 33.33, 33.33}),
			method:       models.SplitPercentage,
			total:        300,
		},
		{
			name:         "percentage shares summing to 101 are rejected",
			participants: withShares([]string{"Alice", "Bob", "Charlie"}, []float64{50, 30, 21}),
			method:       models.SplitPercentage,
			total:        300,
			wantErr:      true,
		},
		{
			name:         "negative share is rejected",
			participants: withShares([]string{"Alice", "Bob"}, []float64{120, -20}),
			method:       models.SplitPercentage,
			total:        100,
			wantErr:      true,
		},
		{
			name:         "prior payments reduce owed amount",
			participants: people("Alice", "Bob", "Charlie"),
			method:       models.SplitEqual,
			total:        300,
			payments: []models.BillPayment{
				{PayerID: "Bob", Amount: 40},
				{PayerID: "Bob", Amount: 60},
				{PayerID: "Charlie", Amount: 150},
			},
			validateFunc: func(t *testing.T, shares []models.Participant) {
				want := map[string]float64{"Alice": 100, "Bob": 0, "Charlie": 0}
				for _, s := range shares {
					if s.AmountOwed != want[s.UserID] {
						t.Errorf("%s owed = %v, want %v", s.UserID, s.AmountOwed, want[s.UserID])
					}
				}
			},
		},
		{
			name:    "no participants should error",
			method:  models.SplitEqual,
			total:   100,
			wantErr: true,
		},
		{
			name:         "duplicate participant should error",
			participants: people("Alice", "Alice"),
			method:       models.SplitEqual,
			total:        100,
			wantErr:      true,
		},
		{
			name:         "unknown method should error",
			participants: people("Alice"),
			method:       models.SplitMethod("itemized"),
			total:        100,
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := ComputeShares(tt.participants, tt.method, tt.total, tt.payments, tt.places)
			if (err != nil) != tt.wantErr {
				t.Errorf("ComputeShares() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				if !apperr.IsValidation(err) {
					t.Errorf("expected a validation error, got %v", err)
				}
				return
			}
			if len(shares) != len(tt.participants) {
				t.Fatalf("got %d shares, want %d", len(shares), len(tt.participants))
			}
			for i, s := range shares {
				if s.UserID != tt.participants[i].UserID {
					t.Errorf("share %d is for %s, want %s (order must be preserved)", i, s.UserID, tt.participants[i].UserID)
				}
			}
			if tt.validateFunc != nil {
				tt.validateFunc(t, shares)
			}
		})
	}
}

func TestComputeShares_EqualSplitSumsWithinTolerance(t *testing.T) {
	for n := 1; n <= 9; n++ {
		for _, amount := range []float64{1, 7, 100, 299, 1000, 12345} {
			ids := make([]string, n)
			for i := range ids {
				ids[i] = string(rune('A' + i))
			}
			shares, err := ComputeShares(people(ids...), models.SplitEqual, amount, nil, 0)
			if err != nil {
				t.Fatalf("n=%d amount=%v: %v", n, amount, err)
			}
			sum := 0.0
			for _, s := range shares {
				if s.AmountOwed < 0 {
					t.Errorf("n=%d amount=%v: negative owed %v", n, amount, s.AmountOwed)
				}
				sum += s.AmountOwed
			}
			// whole-unit rounding moves each share by at most half a unit
			if math.Abs(sum-amount) > float64(n)/2 {
				t.Errorf("n=%d amount=%v: sum of owed %v too far from amount", n, amount, sum)
			}
		}
	}
}

func TestComputeShares_Deterministic(t *testing.T) {
	participants := withShares([]string{"Alice", "Bob"}, []float64{62.5, 37.5})
	payments := []models.BillPayment{{PayerID: "Alice", Amount: 12.5}}

	first, err := ComputeShares(participants, models.SplitPercentage, 80, payments, 0)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ComputeShares(participants, models.SplitPercentage, 80, payments, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical inputs gave different outputs: %+v vs %+v", first, second)
	}
	if participants[0].AmountOwed != 0 {
		t.Error("input participants must not be mutated")
	}
}
