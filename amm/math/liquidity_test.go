package math

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/krazyTry/raydium-go/amm/shared"
)

func TestInitialLiquidity(t *testing.T) {
	lp, err := LiquidityMinted(1_000, 2_000, 0, 0, 0, 100)
	require.NoError(t, err)
	require.Equal(t, uint64(1414), lp)

	_, err = InitialLiquidity(0, 2_000)
	require.ErrorIs(t, err, shared.ErrInvalidInitialLiquidity)
}

func TestLiquidityMintedTolerance(t *testing.T) {
	// exact ratio
	lp, err := LiquidityMinted(100, 200, 1_000, 2_000, 1_414, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(141), lp)

	// 5% more quote than the ratio needs is outside a 1% tolerance
	_, err = LiquidityMinted(100, 210, 1_000, 2_000, 1_414, 100)
	require.ErrorIs(t, err, shared.ErrImbalancedDeposit)

	// and inside a 10% tolerance, minting the smaller side
	lp, err = LiquidityMinted(100, 210, 1_000, 2_000, 1_414, 1_000)
	require.NoError(t, err)
	require.Equal(t, uint64(141), lp)

	_, err = LiquidityMinted(0, 210, 1_000, 2_000, 1_414, 1_000)
	require.ErrorIs(t, err, shared.ErrZeroAmount)
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for i := 0; i < 300; i++ {
		reserveBase := uint64(r.Int63n(1<<40)) + 1<<30
		reserveQuote := uint64(r.Int63n(1<<40)) + 1<<30
		supply := SqrtProduct(reserveBase, reserveQuote)

		depositBase := uint64(r.Int63n(1<<30)) + 1
		depositQuote, err := DepositCounterpart(depositBase, reserveBase, reserveQuote)
		require.NoError(t, err)

		lp, err := LiquidityMinted(depositBase, depositQuote, reserveBase, reserveQuote, supply, 100)
		if errors.Is(err, shared.ErrZeroAmount) || errors.Is(err, shared.ErrImbalancedDeposit) {
			continue
		}
		require.NoError(t, err)

		base, quote, err := WithdrawalAmounts(lp, supply+lp, reserveBase+depositBase, reserveQuote+depositQuote)
		require.NoError(t, err)
		require.LessOrEqual(t, base, depositBase)
		require.LessOrEqual(t, quote, depositQuote)
	}
}

func TestWithdrawalAmounts(t *testing.T) {
	base, quote, err := WithdrawalAmounts(500, 1_000, 1_001, 2_001)
	require.NoError(t, err)
	require.Equal(t, uint64(500), base)
	require.Equal(t, uint64(1000), quote)

	_, _, err = WithdrawalAmounts(1_001, 1_000, 1_001, 2_001)
	require.ErrorIs(t, err, shared.ErrInsufficientLpBalance)

	_, _, err = WithdrawalAmounts(0, 1_000, 1_001, 2_001)
	require.ErrorIs(t, err, shared.ErrZeroAmount)
}
