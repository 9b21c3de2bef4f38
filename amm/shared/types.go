package shared

// Enums and common types shared by amm, amm/math, amm/state and amm/scheduler.
type Rounding uint8

const (
	RoundingUp   Rounding = 0
	RoundingDown Rounding = 1
)

type PoolStatus uint8

const (
	PoolStatusUninitialized PoolStatus = 0
	PoolStatusInitialized   PoolStatus = 1
	PoolStatusDisabled      PoolStatus = 2
)

func (s PoolStatus) String() string {
	switch s {
	case PoolStatusUninitialized:
		return "uninitialized"
	case PoolStatusInitialized:
		return "initialized"
	case PoolStatusDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// SwapDirection is expressed from the trader's point of view.
type SwapDirection uint8

const (
	SwapDirectionBaseToQuote SwapDirection = 0
	SwapDirectionQuoteToBase SwapDirection = 1
)

func (d SwapDirection) Valid() bool {
	return d == SwapDirectionBaseToQuote || d == SwapDirectionQuoteToBase
}

type Side uint8

const (
	SideBid Side = 0
	SideAsk Side = 1
)

func (s Side) String() string {
	if s == SideAsk {
		return "ask"
	}
	return "bid"
}

const (
	BasisPointMax = 10_000

	// MaxLadderDepth bounds the number of levels per side.
	MaxLadderDepth = 10
)

// Fee is a ratio numerator/denominator applied to an input amount.
type Fee struct {
	Numerator   uint64
	Denominator uint64
}

func FeeFromBps(bps uint64) Fee {
	return Fee{Numerator: bps, Denominator: BasisPointMax}
}

func (f Fee) Valid() bool {
	return f.Denominator > 0 && f.Numerator < f.Denominator
}
