package tx

import (
	"math/big"
	"regexp"
	"strings"
)

var decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// Amount is a positive decimal quantity expressed in whole units (e.g. "1.5" ETH).
type Amount struct {
	raw string
	rat *big.Rat
}

// ParseAmount accepts plain decimal notation only: no sign, exponent or fraction syntax.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if !decimalPattern.MatchString(s) {
		return Amount{}, New(CodeInvalidAmount, "amount %q is not a decimal number", s)
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Amount{}, New(CodeInvalidAmount, "amount %q is not a decimal number", s)
	}
	if r.Sign() <= 0 {
		return Amount{}, New(CodeInvalidAmount, "amount must be greater than zero")
	}
	return Amount{raw: s, rat: r}, nil
}

func (a Amount) String() string {
	return a.raw
}

// IsZero reports whether a is the zero value (never produced by ParseAmount).
func (a Amount) IsZero() bool {
	return a.rat == nil || a.rat.Sign() == 0
}

// Exceeds reports whether a is strictly greater than limit whole units.
func (a Amount) Exceeds(limit uint64) bool {
	if a.rat == nil {
		return false
	}
	return a.rat.Cmp(new(big.Rat).SetInt(new(big.Int).SetUint64(limit))) > 0
}

// BaseUnits scales a by 10^decimals. Amounts finer than the unit precision are rejected
// rather than truncated.
func (a Amount) BaseUnits(decimals uint8) (*big.Int, error) {
	if a.rat == nil {
		return nil, New(CodeInvalidAmount, "amount is empty")
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	scaled := new(big.Rat).Mul(a.rat, new(big.Rat).SetInt(scale))
	if !scaled.IsInt() {
		return nil, New(CodeInvalidAmount, "amount %s has more than %d decimal places", a.raw, decimals)
	}
	return new(big.Int).Set(scaled.Num()), nil
}

// FormatUnits renders a base-unit value as a decimal string, trimming trailing zeros.
func FormatUnits(v *big.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	out := new(big.Rat).SetFrac(v, scale).FloatString(int(decimals))
	if strings.Contains(out, ".") {
		out = strings.TrimRight(out, "0")
		out = strings.TrimSuffix(out, ".")
	}
	return out
}
