package state

import (
	"context"
	"fmt"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/raydium-go/amm/math"
	"github.com/krazyTry/raydium-go/amm/shared"
)

const AmmConfigSize = headerSize + 13*8

// AmmConfig is fixed when the pool is initialized.
type AmmConfig struct {
	TradeFeeNumerator      uint64
	TradeFeeDenominator    uint64
	ProtocolFeeNumerator   uint64
	ProtocolFeeDenominator uint64
	// MinOrderSize is in base lots.
	MinOrderSize         uint64
	Depth                uint64
	SpreadStepBps        uint64
	MaxPriceDeviationBps uint64
	LadderShareBps       uint64
	RefreshToleranceBps  uint64
	DepositToleranceBps  uint64
	// MinimumLiquidity is the LP amount locked forever at bootstrap.
	MinimumLiquidity uint64
	MaxExternalCalls uint64
}

func (c *AmmConfig) TradeFee() shared.Fee {
	return shared.Fee{Numerator: c.TradeFeeNumerator, Denominator: c.TradeFeeDenominator}
}

func (c *AmmConfig) ProtocolFee() shared.Fee {
	return shared.Fee{Numerator: c.ProtocolFeeNumerator, Denominator: c.ProtocolFeeDenominator}
}

func (c *AmmConfig) Validate() error {
	if !c.TradeFee().Valid() {
		return fmt.Errorf("%w: trade fee %d/%d", shared.ErrInvalidConfig, c.TradeFeeNumerator, c.TradeFeeDenominator)
	}
	if c.ProtocolFeeDenominator == 0 || c.ProtocolFeeNumerator > c.ProtocolFeeDenominator {
		return fmt.Errorf("%w: protocol fee %d/%d", shared.ErrInvalidConfig, c.ProtocolFeeNumerator, c.ProtocolFeeDenominator)
	}
	if c.Depth == 0 || c.Depth > shared.MaxLadderDepth {
		return fmt.Errorf("%w: depth %d", shared.ErrInvalidConfig, c.Depth)
	}
	if c.MaxPriceDeviationBps >= shared.BasisPointMax {
		return fmt.Errorf("%w: max price deviation %d", shared.ErrInvalidConfig, c.MaxPriceDeviationBps)
	}
	fib := math.Fibonacci(int(c.Depth))
	outer, err := math.CheckedMul(c.SpreadStepBps, fib[len(fib)-1])
	if err != nil || c.SpreadStepBps == 0 || outer > c.MaxPriceDeviationBps {
		return fmt.Errorf("%w: spread step %d reaches past %d bps", shared.ErrInvalidConfig, c.SpreadStepBps, c.MaxPriceDeviationBps)
	}
	if c.LadderShareBps > shared.BasisPointMax || c.RefreshToleranceBps > shared.BasisPointMax || c.DepositToleranceBps > shared.BasisPointMax {
		return fmt.Errorf("%w: bps out of range", shared.ErrInvalidConfig)
	}
	if c.MinOrderSize == 0 || c.MaxExternalCalls == 0 {
		return fmt.Errorf("%w: min order size and call budget must be positive", shared.ErrInvalidConfig)
	}
	return nil
}

func (c *AmmConfig) MarshalWithEncoder(enc *binary.Encoder) error {
	w := &layoutWriter{enc: enc}
	w.header(AmmConfigDiscriminator)
	for _, v := range c.fields() {
		w.u64(*v)
	}
	return w.err
}

func (c *AmmConfig) UnmarshalWithDecoder(dec *binary.Decoder) error {
	r := &layoutReader{dec: dec}
	r.header(AmmConfigDiscriminator)
	for _, v := range c.fields() {
		*v = r.u64()
	}
	return r.err
}

// fields lists the wire order.
func (c *AmmConfig) fields() []*uint64 {
	return []*uint64{
		&c.TradeFeeNumerator,
		&c.TradeFeeDenominator,
		&c.ProtocolFeeNumerator,
		&c.ProtocolFeeDenominator,
		&c.MinOrderSize,
		&c.Depth,
		&c.SpreadStepBps,
		&c.MaxPriceDeviationBps,
		&c.LadderShareBps,
		&c.RefreshToleranceBps,
		&c.DepositToleranceBps,
		&c.MinimumLiquidity,
		&c.MaxExternalCalls,
	}
}

func (c *AmmConfig) ToAccount(key, programID solana.PublicKey) (*Account, error) {
	data, err := encode(c)
	if err != nil {
		return nil, err
	}
	return &Account{Key: key, Owner: programID, Data: data}, nil
}

func DecodeAmmConfig(data []byte) (*AmmConfig, error) {
	c := &AmmConfig{}
	if err := decode(data, AmmConfigSize, c); err != nil {
		return nil, err
	}
	return c, nil
}

func LoadAmmConfig(ctx context.Context, store Store, programID, key solana.PublicKey) (*AmmConfig, error) {
	acc, err := load(ctx, store, key)
	if err != nil {
		return nil, err
	}
	if err = checkOwner(acc, programID); err != nil {
		return nil, err
	}
	return DecodeAmmConfig(acc.Data)
}
