package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Cents is an amount of money in South African cents. All arithmetic in the
// system happens on this type; rand values only appear at the edges.
type Cents int64

func (c Cents) Rand() string {
	return decimal.New(int64(c), -2).StringFixed(2)
}

// DisplayRand renders an amount the way it appears on invoices and in
// confirmation emails, e.g. "R 2950.00".
func (c Cents) DisplayRand() string {
	return "R " + c.Rand()
}

// ParseAmount converts a locale-formatted rand amount into cents. Accepted
// inputs look like "R 2 950,00", "2950.00" or "1,234.56": a leading currency
// marker, spaces or non-breaking spaces as thousand separators, and either
// comma or dot as the decimal separator. Amounts of zero or less are
// rejected.
func ParseAmount(raw string) (Cents, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R")
	s = strings.TrimPrefix(s, "r")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")

	if s == "" {
		return 0, NewInvalidAmountError(raw)
	}

	// "2.950,00" and "2,950.00" both occur in the wild. Whichever separator
	// comes last is the decimal one.
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	default:
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, NewInvalidAmountError(raw)
	}
	if d.Exponent() < -2 {
		return 0, NewInvalidAmountError(raw)
	}
	if !d.IsPositive() {
		return 0, &DomainError{
			Code:    ErrCodeInvalidAmount,
			Message: fmt.Sprintf("amount must be greater than zero, got %q", raw),
		}
	}

	return Cents(d.Shift(2).IntPart()), nil
}
