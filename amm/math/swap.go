package math

import (
	"github.com/krazyTry/raydium-go/amm/shared"
)

// SwapResult describes one constant-product trade.
type SwapResult struct {
	// AmountIn is the gross input paid by the trader.
	AmountIn uint64
	// AmountInAfterFee is the part of the input that moves the curve.
	AmountInAfterFee uint64
	AmountOut        uint64
	TradeFee         uint64
	// ProtocolFee is the share of TradeFee owed to the protocol.
	ProtocolFee uint64
}

// SwapOutput applies the constant-product formula with a fee in basis points.
func SwapOutput(reserveIn, reserveOut, amountIn, feeBps uint64) (uint64, error) {
	res, err := SwapExactIn(reserveIn, reserveOut, amountIn, shared.FeeFromBps(feeBps), shared.Fee{Numerator: 0, Denominator: 1})
	if err != nil {
		return 0, err
	}
	return res.AmountOut, nil
}

func validateFees(tradeFee, protocolFee shared.Fee) error {
	if !tradeFee.Valid() {
		return shared.ErrInvalidConfig
	}
	if protocolFee.Denominator == 0 || protocolFee.Numerator > protocolFee.Denominator {
		return shared.ErrInvalidConfig
	}
	return nil
}

// SwapExactIn prices a trade with a fixed input.
//
// amount_out = floor(reserve_out * after_fee / (reserve_in + after_fee)),
// which leaves the new out-reserve rounded up.
func SwapExactIn(reserveIn, reserveOut, amountIn uint64, tradeFee, protocolFee shared.Fee) (*SwapResult, error) {
	if amountIn == 0 {
		return nil, shared.ErrZeroAmount
	}
	if reserveIn == 0 || reserveOut == 0 {
		return nil, shared.ErrInsufficientLiquidity
	}
	if err := validateFees(tradeFee, protocolFee); err != nil {
		return nil, err
	}

	afterFee, err := MulDiv(amountIn, tradeFee.Denominator-tradeFee.Numerator, tradeFee.Denominator, shared.RoundingDown)
	if err != nil {
		return nil, err
	}
	fee := amountIn - afterFee
	protocol, err := MulDiv(fee, protocolFee.Numerator, protocolFee.Denominator, shared.RoundingDown)
	if err != nil {
		return nil, err
	}

	newReserveIn, err := CheckedAdd(reserveIn, afterFee)
	if err != nil {
		return nil, err
	}
	amountOut, err := MulDiv(reserveOut, afterFee, newReserveIn, shared.RoundingDown)
	if err != nil {
		return nil, err
	}
	if amountOut >= reserveOut {
		return nil, shared.ErrInsufficientLiquidity
	}

	return &SwapResult{
		AmountIn:         amountIn,
		AmountInAfterFee: afterFee,
		AmountOut:        amountOut,
		TradeFee:         fee,
		ProtocolFee:      protocol,
	}, nil
}

// SwapExactOut prices a trade with a fixed output. The required input is
// rounded up at both steps.
func SwapExactOut(reserveIn, reserveOut, amountOut uint64, tradeFee, protocolFee shared.Fee) (*SwapResult, error) {
	if amountOut == 0 {
		return nil, shared.ErrZeroAmount
	}
	if reserveIn == 0 || amountOut >= reserveOut {
		return nil, shared.ErrInsufficientLiquidity
	}
	if err := validateFees(tradeFee, protocolFee); err != nil {
		return nil, err
	}

	afterFee, err := MulDiv(reserveIn, amountOut, reserveOut-amountOut, shared.RoundingUp)
	if err != nil {
		return nil, err
	}
	amountIn, err := MulDiv(afterFee, tradeFee.Denominator, tradeFee.Denominator-tradeFee.Numerator, shared.RoundingUp)
	if err != nil {
		return nil, err
	}
	fee := amountIn - afterFee
	protocol, err := MulDiv(fee, protocolFee.Numerator, protocolFee.Denominator, shared.RoundingDown)
	if err != nil {
		return nil, err
	}
	if _, err = CheckedAdd(reserveIn, amountIn); err != nil {
		return nil, err
	}

	return &SwapResult{
		AmountIn:         amountIn,
		AmountInAfterFee: afterFee,
		AmountOut:        amountOut,
		TradeFee:         fee,
		ProtocolFee:      protocol,
	}, nil
}
