package math

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/krazyTry/raydium-go/amm/shared"
)

func TestFibonacci(t *testing.T) {
	require.Equal(t, []uint64{1, 2, 3, 5, 8, 13, 21}, Fibonacci(7))
}

func TestFibonacciLadder(t *testing.T) {
	steps, err := FibonacciLadder(3, 2_000, 20)
	require.NoError(t, err)
	require.Len(t, steps, 3)

	require.Equal(t, []uint64{2004, 2008, 2012}, []uint64{steps[0].AskPrice, steps[1].AskPrice, steps[2].AskPrice})
	require.Equal(t, []uint64{1996, 1992, 1988}, []uint64{steps[0].BidPrice, steps[1].BidPrice, steps[2].BidPrice})
	require.Equal(t, []uint64{3, 2, 1}, []uint64{steps[0].Weight, steps[1].Weight, steps[2].Weight})
	require.Equal(t, uint64(6), LadderWeight(steps))
}

func TestFibonacciLadderMonotoneAndDeterministic(t *testing.T) {
	cases := []struct {
		depth int
		price uint64
		step  uint64
	}{
		{1, 2_000, 25},
		{3, 10, 1},
		{5, 1_000, 3},
		{10, 1_000_000, 1},
		{10, 50_000, 10},
	}
	for _, c := range cases {
		steps, err := FibonacciLadder(c.depth, c.price, c.step)
		require.NoError(t, err)
		require.Len(t, steps, c.depth)

		prevAsk, prevBid := c.price, c.price
		for _, s := range steps {
			require.Greater(t, s.AskPrice, prevAsk)
			require.Less(t, s.BidPrice, prevBid)
			prevAsk, prevBid = s.AskPrice, s.BidPrice
		}

		again, err := FibonacciLadder(c.depth, c.price, c.step)
		require.NoError(t, err)
		require.Equal(t, steps, again)
	}
}

func TestFibonacciLadderInvalid(t *testing.T) {
	_, err := FibonacciLadder(0, 2_000, 20)
	require.ErrorIs(t, err, shared.ErrInvalidConfig)

	_, err = FibonacciLadder(shared.MaxLadderDepth+1, 2_000, 20)
	require.ErrorIs(t, err, shared.ErrInvalidConfig)

	// F(5) = 8, 8 * 2000 bps reaches past 100%
	_, err = FibonacciLadder(5, 2_000, 2_000)
	require.ErrorIs(t, err, shared.ErrInvalidConfig)

	_, err = FibonacciLadder(3, 0, 20)
	require.ErrorIs(t, err, shared.ErrInsufficientLiquidity)

	// bids run out of ticks
	_, err = FibonacciLadder(3, 2, 1)
	require.ErrorIs(t, err, shared.ErrInsufficientLiquidity)
}

func TestMidPriceAndEscrow(t *testing.T) {
	mid, err := MidPrice(1_000_000, 2_000_000, 1_000, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(2_000), mid)

	q, err := QuoteEscrow(2_004, 7, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(14_028), q)

	b, err := BaseEscrow(7, 1_000)
	require.NoError(t, err)
	require.Equal(t, uint64(7_000), b)

	require.True(t, decimal.RequireFromString("2").Equal(UIPrice(1_000_000_000, 2_000_000_000, 6, 6)))
	require.True(t, decimal.RequireFromString("2.004").Equal(LotPriceToDecimal(2_004, 1_000, 1, 6, 6)))
}
