package curve

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestPrice_ZeroAmountIsFree(t *testing.T) {
	p := Default()

	for _, s := range []int64{0, 1, 2, 10, 1000, 123456} {
		assert.True(t, p.Price(d(s), d(0)).IsZero(), "supply=%d", s)
	}
}

func TestPrice_FirstUnitSpecialCase(t *testing.T) {
	p := Default()

	// the first pass is free: the contract zeroes the upper sum for (0, 1)
	assert.Equal(t, "0", p.Price(d(0), d(1)).String())
	// second pass: S(2)-S(1) = 1 -> 1e18/16000
	assert.Equal(t, "62500000000000", p.Price(d(1), d(1)).String())
	// third pass: 2^2 -> 4e18/16000
	assert.Equal(t, "250000000000000", p.Price(d(2), d(1)).String())
}

func TestPrice_MatchesSumOfSquares(t *testing.T) {
	p := Default()
	unit := d(62500000000000) // 1e18 / 16000

	// buying supply 10 -> 15 costs sum(k^2, k=10..14)
	want := int64(0)
	for k := int64(10); k < 15; k++ {
		want += k * k
	}
	assert.Equal(t, unit.Mul(d(want)).String(), p.Price(d(10), d(5)).String())

	// from zero, buying 3 covers k=1..2 (k=0 term is zero)
	assert.Equal(t, unit.Mul(d(5)).String(), p.Price(d(0), d(3)).String())
}

func TestPrice_Additivity(t *testing.T) {
	p := Default()

	for s := int64(0); s < 40; s++ {
		for a := int64(0); a < 12; a++ {
			for b := int64(0); b < 12; b++ {
				left := p.Price(d(s), d(a)).Add(p.Price(d(s+a), d(b)))
				right := p.Price(d(s), d(a+b))
				require.True(t, left.Equal(right), "s=%d a=%d b=%d: %s != %s", s, a, b, left, right)
			}
		}
	}
}

func TestPrice_NegativeSupply(t *testing.T) {
	p := Default()

	// S(-4) - S(-5) = -30 - (-55) = 25
	assert.Equal(t, d(62500000000000).Mul(d(25)).String(), p.Price(d(-5), d(1)).String())
}

func TestPrice_LargeSupplyDoesNotOverflow(t *testing.T) {
	p := Default()

	// supply^3 * 1e18 is far beyond 64 bits
	supply := decimal.RequireFromString("10000000000")
	got := p.Price(supply, d(1))
	want := supply.Mul(supply).Mul(d(62500000000000))

	assert.Equal(t, want.String(), got.String())
}

func TestNew_Validates(t *testing.T) {
	_, err := New(d(0), d(16000))
	assert.Error(t, err)

	_, err = New(decimal.New(1, 18), d(-1))
	assert.Error(t, err)

	p, err := New(decimal.New(1, 18), d(16000))
	require.NoError(t, err)
	assert.Equal(t, Default().Price(d(7), d(3)).String(), p.Price(d(7), d(3)).String())
}
