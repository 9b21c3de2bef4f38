package shared

import "errors"

// Error is a program error with a stable numeric code.
type Error struct {
	Code uint32
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func newError(code uint32, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

var (
	ErrArithmeticOverflow         = newError(0, "arithmetic overflow")
	ErrInsufficientLiquidity      = newError(1, "insufficient liquidity")
	ErrZeroAmount                 = newError(2, "zero amount")
	ErrImbalancedDeposit          = newError(3, "imbalanced deposit")
	ErrSlippageExceeded           = newError(4, "slippage exceeded")
	ErrPoolNotActive              = newError(5, "pool not active")
	ErrMarketAlreadyInUse         = newError(6, "market already in use")
	ErrInvalidInitialLiquidity    = newError(7, "invalid initial liquidity")
	ErrInsufficientLpBalance      = newError(8, "insufficient lp balance")
	ErrWithdrawalExceedsAvailable = newError(9, "withdrawal exceeds available")
	ErrInvalidInstructionData     = newError(10, "invalid instruction data")
	ErrExternalCallFailed         = newError(11, "external call failed")
	ErrNotEnoughAccounts          = newError(12, "not enough accounts")
	ErrInvalidOwner               = newError(13, "invalid account owner")
	ErrInvalidAccountData         = newError(14, "invalid account data")
	ErrInvalidSigner              = newError(15, "missing required signature")
	ErrInvalidAccountKey          = newError(16, "invalid account key")
	ErrInvalidStatusTransition    = newError(17, "invalid status transition")
	ErrInvalidConfig              = newError(18, "invalid config")
	ErrInvalidMarket              = newError(19, "invalid market")
	ErrComputeBudgetExceeded      = newError(20, "compute budget exceeded")
)

var all = []*Error{
	ErrArithmeticOverflow,
	ErrInsufficientLiquidity,
	ErrZeroAmount,
	ErrImbalancedDeposit,
	ErrSlippageExceeded,
	ErrPoolNotActive,
	ErrMarketAlreadyInUse,
	ErrInvalidInitialLiquidity,
	ErrInsufficientLpBalance,
	ErrWithdrawalExceedsAvailable,
	ErrInvalidInstructionData,
	ErrExternalCallFailed,
	ErrNotEnoughAccounts,
	ErrInvalidOwner,
	ErrInvalidAccountData,
	ErrInvalidSigner,
	ErrInvalidAccountKey,
	ErrInvalidStatusTransition,
	ErrInvalidConfig,
	ErrInvalidMarket,
	ErrComputeBudgetExceeded,
}

// Code returns the program error code carried by err, if any.
func Code(err error) (uint32, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// FromCode maps a code back to its sentinel.
func FromCode(code uint32) (*Error, bool) {
	if int(code) >= len(all) {
		return nil, false
	}
	return all[code], true
}
