package math

import (
	"github.com/krazyTry/raydium-go/amm/shared"
)

// LadderStep is one Fibonacci level around a base price.
type LadderStep struct {
	// Index is 1 for the innermost level.
	Index     int
	OffsetBps uint64
	// Weight is the size weight, largest for the innermost level.
	Weight   uint64
	AskPrice uint64
	BidPrice uint64
}

// Fibonacci returns the first n terms of 1, 2, 3, 5, 8, ...
func Fibonacci(n int) []uint64 {
	out := make([]uint64, 0, n)
	a, b := uint64(1), uint64(2)
	for i := 0; i < n; i++ {
		out = append(out, a)
		a, b = b, a+b
	}
	return out
}

// FibonacciLadder spaces depth levels spreadStepBps*F(i) away from basePrice.
// Asks round up and bids round down; colliding ticks are pushed one tick
// further out so both sides stay strictly monotone.
func FibonacciLadder(depth int, basePrice, spreadStepBps uint64) ([]LadderStep, error) {
	if depth <= 0 || depth > shared.MaxLadderDepth || spreadStepBps == 0 {
		return nil, shared.ErrInvalidConfig
	}
	if basePrice == 0 {
		return nil, shared.ErrInsufficientLiquidity
	}

	fib := Fibonacci(depth)
	steps := make([]LadderStep, 0, depth)
	prevAsk, prevBid := basePrice, basePrice
	for i := 0; i < depth; i++ {
		offset, err := CheckedMul(spreadStepBps, fib[i])
		if err != nil {
			return nil, err
		}
		if offset >= shared.BasisPointMax {
			return nil, shared.ErrInvalidConfig
		}

		ask, err := MulDiv(basePrice, shared.BasisPointMax+offset, shared.BasisPointMax, shared.RoundingUp)
		if err != nil {
			return nil, err
		}
		if ask <= prevAsk {
			if ask, err = CheckedAdd(prevAsk, 1); err != nil {
				return nil, err
			}
		}

		bid, err := MulDiv(basePrice, shared.BasisPointMax-offset, shared.BasisPointMax, shared.RoundingDown)
		if err != nil {
			return nil, err
		}
		if bid >= prevBid {
			bid = prevBid - 1
		}
		if bid == 0 {
			return nil, shared.ErrInsufficientLiquidity
		}

		steps = append(steps, LadderStep{
			Index:     i + 1,
			OffsetBps: offset,
			Weight:    fib[depth-1-i],
			AskPrice:  ask,
			BidPrice:  bid,
		})
		prevAsk, prevBid = ask, bid
	}
	return steps, nil
}

// LadderWeight is the sum of all level weights.
func LadderWeight(steps []LadderStep) uint64 {
	var total uint64
	for _, s := range steps {
		total += s.Weight
	}
	return total
}
