package scheduler

import (
	"context"
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/raydium-go/amm/math"
	"github.com/krazyTry/raydium-go/amm/shared"
	"github.com/krazyTry/raydium-go/venue"
)

// PoolAccounts are the accounts the scheduler touches for one pool.
type PoolAccounts struct {
	Amm        solana.PublicKey
	Authority  solana.PublicKey
	Market     solana.PublicKey
	OpenOrders solana.PublicKey
	BaseVault  solana.PublicKey
	QuoteVault solana.PublicKey
	// protocol fees held in the vaults that do not belong to LPs
	ProtocolFeesBase  uint64
	ProtocolFeesQuote uint64
}

func (p PoolAccounts) settleRequest() venue.SettleRequest {
	return venue.SettleRequest{
		Market:     p.Market,
		OpenOrders: p.OpenOrders,
		Authority:  p.Authority,
		BaseVault:  p.BaseVault,
		QuoteVault: p.QuoteVault,
	}
}

type Reserves struct {
	Base  uint64
	Quote uint64
}

// Snapshot is a fresh read of where the pool's value sits.
type Snapshot struct {
	VaultBase  uint64
	VaultQuote uint64
	Book       venue.OpenOrdersBalances
	// Total is vault + open orders - protocol fees owed.
	Total Reserves
}

// AvailableBase is what the vault can pay out without touching the book.
func (s Snapshot) AvailableBase(pool PoolAccounts) uint64 {
	if s.VaultBase < pool.ProtocolFeesBase {
		return 0
	}
	return s.VaultBase - pool.ProtocolFeesBase
}

func (s Snapshot) AvailableQuote(pool PoolAccounts) uint64 {
	if s.VaultQuote < pool.ProtocolFeesQuote {
		return 0
	}
	return s.VaultQuote - pool.ProtocolFeesQuote
}

func external(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", shared.ErrExternalCallFailed, op, err)
}

func readVaults(ctx context.Context, token venue.TokenProgram, pool PoolAccounts) (uint64, uint64, error) {
	base, err := token.Balance(ctx, pool.BaseVault)
	if err != nil {
		return 0, 0, external("base vault balance", err)
	}
	quote, err := token.Balance(ctx, pool.QuoteVault)
	if err != nil {
		return 0, 0, external("quote vault balance", err)
	}
	return base, quote, nil
}

// ReadReserves re-derives total reserves from the vaults and the open-orders
// balances on the venue.
func ReadReserves(ctx context.Context, token venue.TokenProgram, book venue.OrderBook, pool PoolAccounts) (Snapshot, error) {
	var s Snapshot
	var err error
	if s.VaultBase, s.VaultQuote, err = readVaults(ctx, token, pool); err != nil {
		return s, err
	}
	if s.Book, err = book.Balances(ctx, pool.Market, pool.OpenOrders); err != nil {
		return s, external("open orders balances", err)
	}

	base, err := math.CheckedAdd(s.VaultBase, s.Book.BaseTotal)
	if err != nil {
		return s, err
	}
	if s.Total.Base, err = math.CheckedSub(base, pool.ProtocolFeesBase); err != nil {
		return s, err
	}
	quote, err := math.CheckedAdd(s.VaultQuote, s.Book.QuoteTotal)
	if err != nil {
		return s, err
	}
	if s.Total.Quote, err = math.CheckedSub(quote, pool.ProtocolFeesQuote); err != nil {
		return s, err
	}
	return s, nil
}

// Release is a plan to move funds from the book back to the vaults.
type Release struct {
	Cancel []venue.Order
	Settle bool
}

func (r Release) Calls() uint64 {
	n := uint64(len(r.Cancel))
	if r.Settle {
		n++
	}
	return n
}

// PlanRelease picks the orders to cancel so the vaults can pay needBase and
// needQuote. Free open-orders funds are used first, then asks are cancelled
// from the highest price and bids from the lowest. It fails with
// ErrWithdrawalExceedsAvailable when the book cannot cover the shortfall or
// the plan needs more calls than remaining.
func PlanRelease(s Snapshot, pool PoolAccounts, resting []venue.Order, p Params, needBase, needQuote, remaining uint64) (Release, error) {
	var plan Release
	availBase, availQuote := s.AvailableBase(pool), s.AvailableQuote(pool)
	if needBase <= availBase && needQuote <= availQuote {
		return plan, nil
	}

	plan.Settle = true
	availBase += s.Book.BaseFree
	availQuote += s.Book.QuoteFree

	asks, bids := splitSides(resting)
	sort.SliceStable(asks, func(i, j int) bool { return asks[i].Price > asks[j].Price })
	sort.SliceStable(bids, func(i, j int) bool { return bids[i].Price < bids[j].Price })

	for _, o := range asks {
		if availBase >= needBase {
			break
		}
		locked, err := Escrow(o.Side, o.Price, o.RemainingSize, p)
		if err != nil {
			return plan, err
		}
		plan.Cancel = append(plan.Cancel, o)
		availBase += locked
	}
	for _, o := range bids {
		if availQuote >= needQuote {
			break
		}
		locked, err := Escrow(o.Side, o.Price, o.RemainingSize, p)
		if err != nil {
			return plan, err
		}
		plan.Cancel = append(plan.Cancel, o)
		availQuote += locked
	}

	if availBase < needBase || availQuote < needQuote {
		return plan, fmt.Errorf("%w: need %d/%d, can free %d/%d", shared.ErrWithdrawalExceedsAvailable, needBase, needQuote, availBase, availQuote)
	}
	if plan.Calls() > remaining {
		return plan, fmt.Errorf("%w: release needs %d calls, %d left", shared.ErrWithdrawalExceedsAvailable, plan.Calls(), remaining)
	}
	return plan, nil
}

func splitSides(orders []venue.Order) (asks, bids []venue.Order) {
	for _, o := range orders {
		if o.Side == shared.SideAsk {
			asks = append(asks, o)
		} else {
			bids = append(bids, o)
		}
	}
	return asks, bids
}
