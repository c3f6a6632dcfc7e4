package transform_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"pacsguard/dataloader/datalake/model"
	"pacsguard/dataloader/transform"
)

func ptr[T any](v T) *T {
	return &v
}

func TestTransform_Defaults(t *testing.T) {
	raw := []model.RawTransaction{
		{
			TransactionID:      ptr("TX-1"),
			Amount:             ptr(-250.5),
			Currency:           ptr("EUR"),
			CreationDate:       ptr("2024-01-15T09:30:00"),
			AcceptanceDateTime: ptr("2024-01-15T10:00:00+01:00"),
			DebtorName:         ptr("Amina"),
			CreditorName:       ptr("   "),
			DebtorAccount:      ptr(" ma64 0110\t0000 "),
		},
		{
			TransactionID: ptr("TX-2"),
			Amount:        ptr(100.0),
			Currency:      ptr(" "),
			CreationDate:  ptr("15/01/2024"),
		},
	}

	got, err := transform.Transform(context.Background(), raw)
	if err != nil {
		t.Fatalf("Transform() returned an unexpected error: %v", err)
	}
	if len(got) != len(raw) {
		t.Fatalf("Transform() returned %d rows, want %d", len(got), len(raw))
	}

	first := got[0]
	if *first.Amount != 250.5 {
		t.Errorf("Amount got %v, want 250.5", *first.Amount)
	}
	if want := math.Log1p(250.5); *first.AmountLog != want {
		t.Errorf("AmountLog got %v, want %v", *first.AmountLog, want)
	}
	if first.Currency != "EUR" {
		t.Errorf("Currency got %q, want EUR", first.Currency)
	}
	if want := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC); !first.CreationDate.Equal(want) {
		t.Errorf("CreationDate got %v, want %v", first.CreationDate, want)
	}
	if want := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC); !first.AcceptanceDateTime.Equal(want) {
		t.Errorf("AcceptanceDateTime got %v, want %v", first.AcceptanceDateTime, want)
	}
	if first.CreditorName != transform.UnknownName {
		t.Errorf("blank CreditorName got %q, want %q", first.CreditorName, transform.UnknownName)
	}
	if first.DebtorAccount != "MA6401100000" {
		t.Errorf("DebtorAccount got %q, want MA6401100000", first.DebtorAccount)
	}
	if first.CreditorAccount != "" {
		t.Errorf("absent CreditorAccount got %q, want empty string", first.CreditorAccount)
	}

	second := got[1]
	if second.Currency != transform.DefaultCurrency {
		t.Errorf("blank Currency got %q, want %q", second.Currency, transform.DefaultCurrency)
	}
	if second.DebtorName != transform.UnknownName || second.CreditorName != transform.UnknownName {
		t.Errorf("absent names got %q/%q, want %q", second.DebtorName, second.CreditorName, transform.UnknownName)
	}
	if !second.CreationDate.Equal(transform.SentinelDate) {
		t.Errorf("unparsable CreationDate got %v, want sentinel", second.CreationDate)
	}
	if !second.AcceptanceDateTime.Equal(transform.SentinelDate) {
		t.Errorf("absent AcceptanceDateTime got %v, want sentinel", second.AcceptanceDateTime)
	}
}

func TestTransform_NilAmountIsKept(t *testing.T) {
	got, err := transform.Transform(context.Background(), []model.RawTransaction{{TransactionID: ptr("TX")}})
	if err != nil {
		t.Fatalf("Transform() returned an unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Transform() dropped a row, got %d rows", len(got))
	}
	if got[0].Amount != nil || got[0].AmountLog != nil {
		t.Errorf("nil amount should stay nil, got %v/%v", got[0].Amount, got[0].AmountLog)
	}
}

func TestTransform_NonFiniteAmount(t *testing.T) {
	for _, amount := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		raw := []model.RawTransaction{{Amount: ptr(1.0)}, {Amount: ptr(amount)}}
		got, err := transform.Transform(context.Background(), raw)
		if !errors.Is(err, transform.ErrTransform) {
			t.Errorf("Transform(%v) error = %v, want ErrTransform", amount, err)
		}
		if got != nil {
			t.Errorf("Transform(%v) returned a partial dataset of %d rows", amount, len(got))
		}
	}
}

func TestTransform_AmountNonNegative(t *testing.T) {
	amounts := []float64{-1e9, -0.01, 0, 0.01, 42, 1e12}
	raw := make([]model.RawTransaction, len(amounts))
	for i := range amounts {
		raw[i].Amount = ptr(amounts[i])
	}

	got, err := transform.Transform(context.Background(), raw)
	if err != nil {
		t.Fatalf("Transform() returned an unexpected error: %v", err)
	}
	for i, row := range got {
		if *row.Amount < 0 {
			t.Errorf("row %d amount %v is negative", i, *row.Amount)
		}
		if *row.AmountLog != math.Log1p(*row.Amount) {
			t.Errorf("row %d amount_log %v does not match ln(1+amount)", i, *row.AmountLog)
		}
	}
}

func TestCleanAccount(t *testing.T) {
	tests := []struct {
		in   *string
		want string
	}{
		{nil, ""},
		{ptr(""), ""},
		{ptr("   \t\n"), ""},
		{ptr("fr76 3000 6000 0112"), "FR76300060000112"},
		{ptr("MA64011"), "MA64011"},
	}

	for _, tt := range tests {
		got := transform.CleanAccount(tt.in)
		if got != tt.want {
			t.Errorf("CleanAccount(%v) = %q, want %q", tt.in, got, tt.want)
		}
		if again := transform.CleanAccount(&got); again != got {
			t.Errorf("CleanAccount is not idempotent: %q became %q", got, again)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in     string
		want   time.Time
		wantOK bool
	}{
		{"2024-03-01T12:00:00Z", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), true},
		{"2024-03-01T12:00:00.123", time.Date(2024, 3, 1, 12, 0, 0, 123000000, time.UTC), true},
		{"2024-03-01 12:00:00", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), true},
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"2024-01-15T10:30:00+0100", time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC), true},
		{"2024-01-15T10:30:00.5-0530", time.Date(2024, 1, 15, 16, 0, 0, 500000000, time.UTC), true},
		{"20240115T103000", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), true},
		{"20240115", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"yesterday", transform.SentinelDate, false},
		{"", transform.SentinelDate, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := transform.ParseTimestamp(&tt.in)
			if ok != tt.wantOK || !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
