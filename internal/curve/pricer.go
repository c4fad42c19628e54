// Package curve prices passes on the discrete quadratic bonding curve used by the passes contract.
package curve

import (
	"errors"

	"passindexer/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	DefaultDivisor = 16000
	etherDecimals  = 18
)

var (
	two = decimal.NewFromInt(2)
	six = decimal.NewFromInt(6)
)

// Pricer is stateless; the zero value is not usable, build it with New or Default
type Pricer struct {
	scale   decimal.Decimal // one unit of the settlement currency (1 ether = 10^18 wei)
	divisor decimal.Decimal // curve steepness
}

func New(scale, divisor decimal.Decimal) (Pricer, error) {
	if !scale.IsPositive() || !scale.IsInteger() {
		return Pricer{}, errors.New("curve scale must be a positive integer")
	}
	if !divisor.IsPositive() || !divisor.IsInteger() {
		return Pricer{}, errors.New("curve divisor must be a positive integer")
	}
	return Pricer{scale: scale, divisor: divisor}, nil
}

func Default() Pricer {
	return Pricer{
		scale:   decimal.New(1, etherDecimals),
		divisor: decimal.NewFromInt(DefaultDivisor),
	}
}

// Price is the cost of moving supply from `supply` to `supply+amount`:
//
//	(S(supply+amount) - S(supply)) * scale / divisor, S(n) = (n-1)*n*(2(n-1)+1)/6
//
// S(supply) is zero at supply 0, and the upper sum is zero for the first unit (supply 0,
// amount 1); both are special cases of the contract, not consequences of the formula.
// supply may be negative: the daily price change of a sell is evaluated below the post-trade
// supply. (n-1)*n*(2n-1) is always a multiple of 6, so no division here ever truncates.
func (p Pricer) Price(supply, amount decimal.Decimal) decimal.Decimal {
	sum1 := domain.Zero
	if !supply.IsZero() {
		sum1 = sumOfSquares(supply)
	}

	sum2 := domain.Zero
	if !(supply.IsZero() && amount.Equal(domain.One)) {
		sum2 = sumOfSquares(supply.Add(amount))
	}

	return domain.Quo(sum2.Sub(sum1).Mul(p.scale), p.divisor)
}

// (n-1) * n * (2*(n-1) + 1) / 6
func sumOfSquares(n decimal.Decimal) decimal.Decimal {
	m := n.Sub(domain.One)
	return domain.Quo(m.Mul(n).Mul(two.Mul(m).Add(domain.One)), six)
}
