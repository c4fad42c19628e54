package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrArithmeticUnderflow means a subtraction would leave a non-negative quantity below zero.
	// The feed never reports an impossible sell, so hitting this is an upstream inconsistency.
	ErrArithmeticUnderflow = errors.New("arithmetic underflow")
	ErrInvalidAmount       = errors.New("invalid amount")
)

var (
	Zero = decimal.Zero
	One  = decimal.NewFromInt(1)
)

// Sub returns a-b and fails instead of going negative
func Sub(a, b decimal.Decimal) (decimal.Decimal, error) {
	res := a.Sub(b)
	if res.IsNegative() {
		return Zero, fmt.Errorf("%w: %s - %s", ErrArithmeticUnderflow, a.String(), b.String())
	}
	return res, nil
}

// Quo is truncating integer division, the way the EVM and the subgraph runtime divide
func Quo(a, b decimal.Decimal) decimal.Decimal {
	q, _ := a.QuoRem(b, 0)
	return q
}

// ParseAmount parses a base-10 non-negative integer ("1000000000000000000")
func ParseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return Zero, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w %q: %v", ErrInvalidAmount, s, err)
	}
	if !d.IsInteger() || d.IsNegative() {
		return Zero, fmt.Errorf("%w %q: must be a non-negative integer", ErrInvalidAmount, s)
	}

	return decimal.NewFromBigInt(d.BigInt(), 0), nil
}

// MustAmount is ParseAmount for constants and tests
func MustAmount(s string) decimal.Decimal {
	d, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return d
}
