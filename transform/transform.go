// Package transform cleanses extracted transactions into canonical rows.
package transform

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"pacsguard/dataloader/appcontext"
	"pacsguard/dataloader/datalake/model"
)

const (
	// UnknownName replaces absent or blank party names.
	UnknownName = "UNKNOWN"
	// DefaultCurrency replaces absent or blank currency codes.
	DefaultCurrency = "MAD"
)

// SentinelDate replaces timestamps that are absent or unparsable.
var SentinelDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// ErrTransform is wrapped by every failure returned from Transform.
var ErrTransform = errors.New("transform error")

// NonFiniteAmountError reports a row whose amount cannot be used as a feature.
func NonFiniteAmountError(row int, amount float64) error {
	return fmt.Errorf("%w, row %d has non-finite amount %v", ErrTransform, row, amount)
}

// ISO 8601 shapes seen in GrpHdr/CreDtTm and AccptncDtTm.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"20060102T150405",
	"20060102",
}

// Transform applies the cleansing rules row by row. It never drops a row and
// fails on the first value it cannot coerce.
func Transform(ctx context.Context, raw []model.RawTransaction) ([]model.CanonicalTransaction, error) {
	logger := appcontext.LoggerFromContext(ctx)

	out := make([]model.CanonicalTransaction, 0, len(raw))
	defaulted := 0
	for i, r := range raw {
		amount, amountLog, err := normalizeAmount(i, r.Amount)
		if err != nil {
			return nil, err
		}

		creation, ok1 := ParseTimestamp(r.CreationDate)
		acceptance, ok2 := ParseTimestamp(r.AcceptanceDateTime)
		if !ok1 || !ok2 {
			defaulted++
		}

		out = append(out, model.CanonicalTransaction{
			MessageID:         r.MessageID,
			TransactionID:     r.TransactionID,
			InstructionID:     r.InstructionID,
			EndToEndID:        r.EndToEndID,
			ClearingSystemRef: r.ClearingSystemRef,

			Amount:    amount,
			AmountLog: amountLog,
			Currency:  withFallback(r.Currency, DefaultCurrency),

			CreationDate:       creation,
			AcceptanceDateTime: acceptance,

			DebtorName:         withFallback(r.DebtorName, UnknownName),
			DebtorBirthDate:    r.DebtorBirthDate,
			DebtorBirthCity:    r.DebtorBirthCity,
			DebtorBirthCountry: r.DebtorBirthCountry,
			DebtorAccount:      CleanAccount(r.DebtorAccount),

			CreditorName:    withFallback(r.CreditorName, UnknownName),
			CreditorAccount: CleanAccount(r.CreditorAccount),

			ServiceLevel:    r.ServiceLevel,
			LocalInstrument: r.LocalInstrument,
			CategoryPurpose: r.CategoryPurpose,
			ChargeBearer:    r.ChargeBearer,

			DebtorAgentBIC:        r.DebtorAgentBIC,
			DebtorAgentMemberID:   r.DebtorAgentMemberID,
			CreditorAgentBIC:      r.CreditorAgentBIC,
			CreditorAgentMemberID: r.CreditorAgentMemberID,
		})
	}

	if defaulted > 0 {
		logger.DebugContext(ctx, "Rows with a sentinel timestamp", "rows", defaulted, "sentinel", SentinelDate)
	}

	return out, nil
}

// normalizeAmount takes the absolute value and derives ln(1+amount). A nil
// amount stays nil and is rejected later by the detector.
func normalizeAmount(row int, amount *float64) (*float64, *float64, error) {
	if amount == nil {
		return nil, nil, nil
	}
	if math.IsNaN(*amount) || math.IsInf(*amount, 0) {
		return nil, nil, NonFiniteAmountError(row, *amount)
	}

	abs := math.Abs(*amount)
	amountLog := math.Log1p(abs)

	return &abs, &amountLog, nil
}

// ParseTimestamp parses an ISO 8601 value. Values without a zone are read as
// UTC. The second result is false when the sentinel was substituted.
func ParseTimestamp(value *string) (time.Time, bool) {
	if value == nil {
		return SentinelDate, false
	}

	s := strings.TrimSpace(*value)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	return SentinelDate, false
}

// CleanAccount strips all whitespace and upper-cases an account identifier.
// Applying it twice is the same as applying it once.
func CleanAccount(account *string) string {
	if account == nil {
		return ""
	}

	return strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, *account))
}

func withFallback(value *string, fallback string) string {
	if value == nil {
		return fallback
	}

	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return fallback
	}

	return trimmed
}
