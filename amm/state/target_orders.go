package state

import (
	"context"
	"fmt"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/raydium-go/amm/shared"
)

const TargetOrdersSize = headerSize + 4*8 + 2*shared.MaxLadderDepth*24

type TargetOrder struct {
	Price    uint64
	Size     uint64
	ClientID uint64
}

// TargetOrders is the last ladder computed by a monitor step. It is
// informational; every step rebuilds it from live reserves.
type TargetOrders struct {
	Slot     uint64
	MidPrice uint64
	Bids     []TargetOrder
	Asks     []TargetOrder
}

func (t *TargetOrders) MarshalWithEncoder(enc *binary.Encoder) error {
	if len(t.Bids) > shared.MaxLadderDepth || len(t.Asks) > shared.MaxLadderDepth {
		return fmt.Errorf("%w: ladder wider than %d", shared.ErrInvalidConfig, shared.MaxLadderDepth)
	}
	w := &layoutWriter{enc: enc}
	w.header(TargetOrdersDiscriminator)
	w.u64(t.Slot)
	w.u64(t.MidPrice)
	w.u64(uint64(len(t.Bids)))
	w.u64(uint64(len(t.Asks)))
	for _, side := range [][]TargetOrder{t.Bids, t.Asks} {
		for i := 0; i < shared.MaxLadderDepth; i++ {
			var o TargetOrder
			if i < len(side) {
				o = side[i]
			}
			w.u64(o.Price)
			w.u64(o.Size)
			w.u64(o.ClientID)
		}
	}
	return w.err
}

func (t *TargetOrders) UnmarshalWithDecoder(dec *binary.Decoder) error {
	r := &layoutReader{dec: dec}
	r.header(TargetOrdersDiscriminator)
	t.Slot = r.u64()
	t.MidPrice = r.u64()
	numBids, numAsks := r.u64(), r.u64()
	if r.err == nil && (numBids > shared.MaxLadderDepth || numAsks > shared.MaxLadderDepth) {
		return fmt.Errorf("%w: %d bids, %d asks", shared.ErrInvalidAccountData, numBids, numAsks)
	}
	read := func(n uint64) []TargetOrder {
		out := make([]TargetOrder, 0, n)
		for i := uint64(0); i < shared.MaxLadderDepth; i++ {
			o := TargetOrder{Price: r.u64(), Size: r.u64(), ClientID: r.u64()}
			if i < n {
				out = append(out, o)
			}
		}
		return out
	}
	t.Bids = read(numBids)
	t.Asks = read(numAsks)
	return r.err
}

func (t *TargetOrders) ToAccount(key, programID solana.PublicKey) (*Account, error) {
	data, err := encode(t)
	if err != nil {
		return nil, err
	}
	return &Account{Key: key, Owner: programID, Data: data}, nil
}

func DecodeTargetOrders(data []byte) (*TargetOrders, error) {
	t := &TargetOrders{}
	if err := decode(data, TargetOrdersSize, t); err != nil {
		return nil, err
	}
	return t, nil
}

func LoadTargetOrders(ctx context.Context, store Store, programID, key solana.PublicKey) (*TargetOrders, error) {
	acc, err := load(ctx, store, key)
	if err != nil {
		return nil, err
	}
	if err = checkOwner(acc, programID); err != nil {
		return nil, err
	}
	return DecodeTargetOrders(acc.Data)
}
