package scheduler

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/zeebo/blake3"

	"github.com/krazyTry/raydium-go/amm/math"
	"github.com/krazyTry/raydium-go/amm/shared"
	"github.com/krazyTry/raydium-go/amm/state"
)

// Params are the ladder settings of one pool.
type Params struct {
	Depth               uint64
	SpreadStepBps       uint64
	LadderShareBps      uint64
	RefreshToleranceBps uint64
	MinOrderSize        uint64
	BaseLotSize         uint64
	QuoteLotSize        uint64
}

func ParamsFromState(cfg *state.AmmConfig, info *state.AmmInfo) Params {
	return Params{
		Depth:               cfg.Depth,
		SpreadStepBps:       cfg.SpreadStepBps,
		LadderShareBps:      cfg.LadderShareBps,
		RefreshToleranceBps: cfg.RefreshToleranceBps,
		MinOrderSize:        cfg.MinOrderSize,
		BaseLotSize:         info.BaseLotSize,
		QuoteLotSize:        info.QuoteLotSize,
	}
}

// Level is one target order. Price is in quote lots per base lot, Size in
// base lots.
type Level struct {
	Side     shared.Side
	Index    int
	Price    uint64
	Size     uint64
	ClientID uint64
}

// Ladder is the target book of the pool, innermost level first on each side.
type Ladder struct {
	MidPrice uint64
	Bids     []Level
	Asks     []Level
}

func (l *Ladder) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Bids) + len(l.Asks)
}

// Interleaved returns bid 1, ask 1, bid 2, ask 2, ...
func (l *Ladder) Interleaved() []Level {
	out := make([]Level, 0, l.Len())
	if l == nil {
		return out
	}
	for i := 0; i < len(l.Bids) || i < len(l.Asks); i++ {
		if i < len(l.Bids) {
			out = append(out, l.Bids[i])
		}
		if i < len(l.Asks) {
			out = append(out, l.Asks[i])
		}
	}
	return out
}

func (l *Ladder) ToTargetOrders(slot uint64) *state.TargetOrders {
	t := &state.TargetOrders{Slot: slot, Bids: []state.TargetOrder{}, Asks: []state.TargetOrder{}}
	if l == nil {
		return t
	}
	t.MidPrice = l.MidPrice
	for _, lv := range l.Bids {
		t.Bids = append(t.Bids, state.TargetOrder{Price: lv.Price, Size: lv.Size, ClientID: lv.ClientID})
	}
	for _, lv := range l.Asks {
		t.Asks = append(t.Asks, state.TargetOrder{Price: lv.Price, Size: lv.Size, ClientID: lv.ClientID})
	}
	return t
}

// ClientOrderID tags a level so resting orders can be traced to it.
func ClientOrderID(amm solana.PublicKey, side shared.Side, index int) uint64 {
	h := blake3.New()
	_, _ = h.Write(amm[:])
	_, _ = h.Write([]byte{byte(side), byte(index)})
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}

// BuildLadder derives the target ladder from total reserves. Ask sizes spend
// LadderShareBps of the base reserve and bid sizes the same share of the
// quote reserve, split by Fibonacci weight. Levels under MinOrderSize are
// left out.
func BuildLadder(amm solana.PublicKey, p Params, reserves Reserves) (*Ladder, error) {
	mid, err := math.MidPrice(reserves.Base, reserves.Quote, p.BaseLotSize, p.QuoteLotSize)
	if err != nil {
		return nil, err
	}
	steps, err := math.FibonacciLadder(int(p.Depth), mid, p.SpreadStepBps)
	if err != nil {
		return nil, err
	}
	weight := math.LadderWeight(steps)

	askBudget, err := math.MulDiv(reserves.Base, p.LadderShareBps, shared.BasisPointMax, shared.RoundingDown)
	if err != nil {
		return nil, err
	}
	bidBudget, err := math.MulDiv(reserves.Quote, p.LadderShareBps, shared.BasisPointMax, shared.RoundingDown)
	if err != nil {
		return nil, err
	}

	ladder := &Ladder{MidPrice: mid}
	for _, step := range steps {
		baseAtoms, err := math.MulDiv(askBudget, step.Weight, weight, shared.RoundingDown)
		if err != nil {
			return nil, err
		}
		if size := baseAtoms / p.BaseLotSize; size >= p.MinOrderSize {
			ladder.Asks = append(ladder.Asks, Level{
				Side:     shared.SideAsk,
				Index:    step.Index,
				Price:    step.AskPrice,
				Size:     size,
				ClientID: ClientOrderID(amm, shared.SideAsk, step.Index),
			})
		}

		quoteAtoms, err := math.MulDiv(bidBudget, step.Weight, weight, shared.RoundingDown)
		if err != nil {
			return nil, err
		}
		lotValue, err := math.CheckedMul(step.BidPrice, p.QuoteLotSize)
		if err != nil {
			return nil, err
		}
		if size := quoteAtoms / lotValue; size >= p.MinOrderSize {
			ladder.Bids = append(ladder.Bids, Level{
				Side:     shared.SideBid,
				Index:    step.Index,
				Price:    step.BidPrice,
				Size:     size,
				ClientID: ClientOrderID(amm, shared.SideBid, step.Index),
			})
		}
	}
	return ladder, nil
}

// Escrow is the amount a level locks: base atoms for asks, quote atoms for bids.
func Escrow(side shared.Side, price, size uint64, p Params) (uint64, error) {
	if side == shared.SideAsk {
		return math.BaseEscrow(size, p.BaseLotSize)
	}
	return math.QuoteEscrow(price, size, p.QuoteLotSize)
}
