package math

import (
	"github.com/holiman/uint256"

	"github.com/krazyTry/raydium-go/amm/shared"
)

// InitialLiquidity is the bootstrap LP amount for an empty pool.
func InitialLiquidity(base, quote uint64) (uint64, error) {
	if base == 0 || quote == 0 {
		return 0, shared.ErrInvalidInitialLiquidity
	}
	return SqrtProduct(base, quote), nil
}

// LiquidityMinted returns the LP amount minted for a deposit.
func LiquidityMinted(depositBase, depositQuote, reserveBase, reserveQuote, lpSupply, toleranceBps uint64) (uint64, error) {
	if depositBase == 0 || depositQuote == 0 {
		return 0, shared.ErrZeroAmount
	}
	if lpSupply == 0 {
		return InitialLiquidity(depositBase, depositQuote)
	}
	if reserveBase == 0 || reserveQuote == 0 {
		return 0, shared.ErrInsufficientLiquidity
	}

	byBase, err := MulDiv(depositBase, lpSupply, reserveBase, shared.RoundingDown)
	if err != nil {
		return 0, err
	}
	byQuote, err := MulDiv(depositQuote, lpSupply, reserveQuote, shared.RoundingDown)
	if err != nil {
		return 0, err
	}

	lo, hi := byBase, byQuote
	if lo > hi {
		lo, hi = hi, lo
	}
	// (hi - lo) * 10000 > tolerance * hi
	diff := mul2(hi-lo, shared.BasisPointMax)
	if diff.Gt(mul2(toleranceBps, hi)) {
		return 0, shared.ErrImbalancedDeposit
	}
	if lo == 0 {
		return 0, shared.ErrZeroAmount
	}
	return lo, nil
}

// DepositCounterpart returns the amount of the other token that keeps the
// pool ratio, rounded up against the depositor.
func DepositCounterpart(amount, reserveFrom, reserveTo uint64) (uint64, error) {
	if amount == 0 {
		return 0, shared.ErrZeroAmount
	}
	if reserveFrom == 0 || reserveTo == 0 {
		return 0, shared.ErrInsufficientLiquidity
	}
	return MulDiv(amount, reserveTo, reserveFrom, shared.RoundingUp)
}

// WithdrawalAmounts returns the floor-proportional share of both reserves.
func WithdrawalAmounts(lpAmount, lpSupply, reserveBase, reserveQuote uint64) (uint64, uint64, error) {
	if lpAmount == 0 {
		return 0, 0, shared.ErrZeroAmount
	}
	if lpAmount > lpSupply {
		return 0, 0, shared.ErrInsufficientLpBalance
	}
	base, err := MulDiv(reserveBase, lpAmount, lpSupply, shared.RoundingDown)
	if err != nil {
		return 0, 0, err
	}
	quote, err := MulDiv(reserveQuote, lpAmount, lpSupply, shared.RoundingDown)
	if err != nil {
		return 0, 0, err
	}
	return base, quote, nil
}

// Invariant returns reserveBase*reserveQuote.
func Invariant(reserveBase, reserveQuote uint64) *uint256.Int {
	return mul2(reserveBase, reserveQuote)
}
