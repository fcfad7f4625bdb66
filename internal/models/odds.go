package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// AmericanToDecimalExact converts american odds to decimal odds without float rounding.
// Odds strictly between -100 and +100 are not quotable and return ErrInvalidOdds.
func AmericanToDecimalExact(american int) (decimal.Decimal, error) {
	switch {
	case american >= 100:
		return one.Add(decimal.NewFromInt(int64(american)).Div(hundred)), nil
	case american <= -100:
		return one.Add(hundred.Div(decimal.NewFromInt(int64(-american)))), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %d", ErrInvalidOdds, american)
	}
}

// AmericanToDecimal converts american odds to decimal odds
func AmericanToDecimal(american int) (float64, error) {
	d, err := AmericanToDecimalExact(american)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}

// ImpliedProbability returns 1/decimal odds for the given american odds
func ImpliedProbability(american int) (float64, error) {
	d, err := AmericanToDecimalExact(american)
	if err != nil {
		return 0, err
	}
	p, _ := one.DivRound(d, 12).Float64()
	return p, nil
}

// ParseAmericanOdds parses a quoted american price such as "-110", "+150" or "150".
// "OFF" and empty quotes mean the market is suspended.
func ParseAmericanOdds(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "off") {
		return 0, fmt.Errorf("%w: market off", ErrInvalidOdds)
	}
	v, err := strconv.Atoi(strings.TrimPrefix(s, "+"))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOdds, s)
	}
	if _, err := AmericanToDecimalExact(v); err != nil {
		return 0, err
	}
	return v, nil
}
