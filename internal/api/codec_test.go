package api

import (
	"strings"
	"testing"
	"time"
)

func TestCodec_PlainStructs(t *testing.T) {
	date := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	in := &AddPaymentRequest{BillID: "b1", Amount: 42.5, Date: NewTimestamp(date)}

	data, err := Codec{}.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"billId":"b1"`) {
		t.Errorf("expected camelCase field names, got %s", data)
	}
	if !strings.Contains(string(data), `"date":"2024-03-15T12:00:00Z"`) {
		t.Errorf("expected an RFC 3339 date, got %s", data)
	}
	if strings.Contains(string(data), "payerId") {
		t.Errorf("expected empty optional fields to be omitted, got %s", data)
	}

	var out AddPaymentRequest
	if err := (Codec{}).Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out.Amount != 42.5 || !out.Date.Time().Equal(date) {
		t.Errorf("unexpected round trip %+v", out)
	}
}

func TestCodec_EmptyBody(t *testing.T) {
	var out GetCurrentUserRequest
	if err := (Codec{}).Unmarshal(nil, &out); err != nil {
		t.Errorf("expected empty body to decode, got %v", err)
	}
}

func TestCodec_RejectsMalformed(t *testing.T) {
	var out CreateBillRequest
	err := Codec{}.Unmarshal([]byte(`{"amount":"lots"}`), &out)
	if err == nil {
		t.Fatal("expected an error for a string amount")
	}
	if !strings.Contains(err.Error(), "CreateBillRequest") {
		t.Errorf("expected error to name the message type, got %v", err)
	}
}

func TestTimestamp(t *testing.T) {
	t.Run("offsets are normalized to UTC", func(t *testing.T) {
		var out SettleDebtRequest
		if err := (Codec{}).Unmarshal([]byte(`{"debtId":"d1","date":"2024-03-15T14:30:00+02:00"}`), &out); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		want := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
		if got := out.Date.Time(); !got.Equal(want) || got.Location() != time.UTC {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("absent and null dates are unset", func(t *testing.T) {
		for _, body := range []string{`{"debtId":"d1"}`, `{"debtId":"d1","date":null}`} {
			var out SettleDebtRequest
			if err := (Codec{}).Unmarshal([]byte(body), &out); err != nil {
				t.Fatalf("Unmarshal(%s) failed: %v", body, err)
			}
			if !out.Date.Time().IsZero() || out.Date.TimePtr() != nil {
				t.Errorf("expected no date for %s, got %v", body, out.Date.Time())
			}
		}
	})

	t.Run("malformed dates are rejected", func(t *testing.T) {
		for _, body := range []string{
			`{"dueDate":"next tuesday"}`,
			`{"dueDate":"10000-01-01T00:00:00Z"}`,
			`{"dueDate":1710504000}`,
		} {
			var out CreateDebtRequest
			if err := (Codec{}).Unmarshal([]byte(body), &out); err == nil {
				t.Errorf("expected %s to be rejected", body)
			}
		}
	})
}

func TestProcedureNames(t *testing.T) {
	tests := []struct {
		procedure string
		want      string
	}{
		{BillServiceAddPaymentProcedure, "/splitledger.v1.BillService/AddPayment"},
		{DebtServiceSettleDebtProcedure, "/splitledger.v1.DebtService/SettleDebt"},
		{AuthServiceLoginProcedure, "/splitledger.v1.AuthService/Login"},
	}
	for _, tt := range tests {
		if tt.procedure != tt.want {
			t.Errorf("expected %s, got %s", tt.want, tt.procedure)
		}
	}

	if len(PublicProcedures) != 2 {
		t.Errorf("expected only Register and Login to be public, got %v", PublicProcedures)
	}
}
