package security

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned by ParseAmount for input that is not a number.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a user-typed amount to a float.
//
// Comma is the decimal separator and dots group thousands ("1.234,56" is
// 1234.56). Without a comma, a single dot followed by one or two digits is read
// as a decimal point ("12.5"). Bounds are not checked here.
func ParseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}

	var normalized string
	switch {
	case strings.Contains(s, ","):
		normalized = strings.ReplaceAll(s, ".", "")
		if strings.Count(normalized, ",") > 1 {
			return 0, ErrInvalidAmount
		}
		normalized = strings.Replace(normalized, ",", ".", 1)
	case strings.Count(s, ".") == 1 && len(s)-strings.Index(s, ".") <= 3:
		normalized = s
	default:
		normalized = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidAmount, "parse %q", s)
	}

	f, _ := d.Float64()
	return f, nil
}
