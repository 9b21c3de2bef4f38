package math

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/krazyTry/raydium-go/amm/shared"
)

// MidPrice is the constant-product price in quote lots per base lot.
func MidPrice(reserveBase, reserveQuote, baseLotSize, quoteLotSize uint64) (uint64, error) {
	if reserveBase == 0 || reserveQuote == 0 {
		return 0, shared.ErrInsufficientLiquidity
	}
	if baseLotSize == 0 || quoteLotSize == 0 {
		return 0, shared.ErrInvalidConfig
	}
	return mulDiv(u256(reserveQuote), u256(baseLotSize), mul2(reserveBase, quoteLotSize), shared.RoundingDown)
}

// BaseEscrow is the base amount locked by an ask of size lots.
func BaseEscrow(size, baseLotSize uint64) (uint64, error) {
	return CheckedMul(size, baseLotSize)
}

// QuoteEscrow is the quote amount locked by a bid of size lots at price.
func QuoteEscrow(price, size, quoteLotSize uint64) (uint64, error) {
	p := mul2(price, size)
	r, overflow := new(uint256.Int).MulOverflow(p, u256(quoteLotSize))
	if overflow || !r.IsUint64() {
		return 0, shared.ErrArithmeticOverflow
	}
	return r.Uint64(), nil
}

// UIPrice is the human readable price of one base token in quote tokens.
func UIPrice(reserveBase, reserveQuote uint64, baseDecimals, quoteDecimals uint8) decimal.Decimal {
	if reserveBase == 0 {
		return decimal.Zero
	}
	price := decimalFromU64(reserveQuote).Div(decimalFromU64(reserveBase))
	return price.Shift(int32(baseDecimals) - int32(quoteDecimals))
}

// LotPriceToDecimal converts a price in quote lots per base lot to quote
// tokens per base token.
func LotPriceToDecimal(price, baseLotSize, quoteLotSize uint64, baseDecimals, quoteDecimals uint8) decimal.Decimal {
	if baseLotSize == 0 {
		return decimal.Zero
	}
	atoms := decimalFromU64(price).Mul(decimalFromU64(quoteLotSize)).Div(decimalFromU64(baseLotSize))
	return atoms.Shift(int32(baseDecimals) - int32(quoteDecimals))
}

func decimalFromU64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
