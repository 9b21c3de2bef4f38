package sim

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/raydium-go/amm"
	"github.com/krazyTry/raydium-go/amm/instruction"
	"github.com/krazyTry/raydium-go/amm/shared"
	"github.com/krazyTry/raydium-go/amm/state"
	"github.com/krazyTry/raydium-go/venue"
)

type MarketSetup struct {
	BaseDecimals  uint8
	QuoteDecimals uint8
	BaseLotSize   uint64
	QuoteLotSize  uint64
}

// Pool is a market with the token accounts a pool needs, ready for an
// Initialize instruction.
type Pool struct {
	Keys          instruction.PoolKeys
	MintAuthority solana.PublicKey
}

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

// CreateMarket creates two mints, a market trading them, and the pool's
// vaults and LP mint at their derived addresses.
func (r *Runtime) CreateMarket(setup MarketSetup) (*Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := &Pool{MintAuthority: newKey()}
	baseMint, quoteMint, market := newKey(), newKey(), newKey()
	if err := r.Ledger.CreateMint(baseMint, setup.BaseDecimals, p.MintAuthority); err != nil {
		return nil, err
	}
	if err := r.Ledger.CreateMint(quoteMint, setup.QuoteDecimals, p.MintAuthority); err != nil {
		return nil, err
	}
	err := r.Book.CreateMarket(venue.Market{
		Key:          market,
		BaseMint:     baseMint,
		QuoteMint:    quoteMint,
		BaseLotSize:  setup.BaseLotSize,
		QuoteLotSize: setup.QuoteLotSize,
	})
	if err != nil {
		return nil, err
	}

	if p.Keys, err = amm.DerivePoolKeys(r.network.ProgramID, market, baseMint, quoteMint); err != nil {
		return nil, err
	}
	if err = r.Ledger.CreateMint(p.Keys.LpMint, setup.BaseDecimals, p.Keys.Authority); err != nil {
		return nil, err
	}
	if err = r.Ledger.CreateAccount(p.Keys.BaseVault, baseMint, p.Keys.Authority); err != nil {
		return nil, err
	}
	if err = r.Ledger.CreateAccount(p.Keys.QuoteVault, quoteMint, p.Keys.Authority); err != nil {
		return nil, err
	}
	return p, nil
}

// NewWallet creates an owner with base, quote and LP accounts for pool and
// funds the first two.
func (r *Runtime) NewWallet(p *Pool, base, quote uint64) (instruction.UserKeys, error) {
	return r.NewWalletFor(newKey(), p, base, quote)
}

func (r *Runtime) NewWalletFor(owner solana.PublicKey, p *Pool, base, quote uint64) (instruction.UserKeys, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := instruction.UserKeys{Owner: owner, Base: newKey(), Quote: newKey(), Lp: newKey()}
	for _, acc := range []struct {
		key, mint solana.PublicKey
		amount    uint64
	}{
		{u.Base, p.Keys.BaseMint, base},
		{u.Quote, p.Keys.QuoteMint, quote},
		{u.Lp, p.Keys.LpMint, 0},
	} {
		if err := r.Ledger.CreateAccount(acc.key, acc.mint, owner); err != nil {
			return u, err
		}
		if acc.amount == 0 {
			continue
		}
		if err := r.Ledger.Airdrop(acc.key, acc.amount); err != nil {
			return u, err
		}
	}
	return u, nil
}

// Initialize creates the pool with the user's initial liquidity.
func (r *Runtime) Initialize(ctx context.Context, p *Pool, user instruction.UserKeys, base, quote uint64) (*Result, error) {
	ix, err := instruction.NewInitializeInstruction(p.Keys, user, &instruction.Initialize{
		Nonce:           p.Keys.Nonce,
		InitBaseAmount:  base,
		InitQuoteAmount: quote,
	})
	if err != nil {
		return nil, err
	}
	return r.Execute(ctx, ix)
}

// Take crosses the pool's market with a taker order of size base lots.
func (r *Runtime) Take(ctx context.Context, p *Pool, side shared.Side, size uint64, taker instruction.UserKeys) (uint64, error) {
	var filled uint64
	err := r.Do(func() error {
		var err error
		filled, err = r.Book.Take(ctx, p.Keys.Market, side, size, taker.Base, taker.Quote, taker.Owner)
		return err
	})
	return filled, err
}

func (r *Runtime) Balance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	return r.Ledger.Balance(ctx, account)
}

// AmmInfo loads the pool record.
func (r *Runtime) AmmInfo(ctx context.Context, p *Pool) (*state.AmmInfo, error) {
	return state.LoadAmmInfo(ctx, r.Store, r.network.ProgramID, p.Keys.Amm)
}

func (r *Runtime) TargetOrders(ctx context.Context, p *Pool) (*state.TargetOrders, error) {
	return state.LoadTargetOrders(ctx, r.Store, r.network.ProgramID, p.Keys.TargetOrders)
}

// Orders lists the pool's resting orders.
func (r *Runtime) Orders(ctx context.Context, p *Pool) ([]venue.Order, error) {
	orders, err := r.Book.OpenOrders(ctx, p.Keys.Market, p.Keys.OpenOrders)
	if err != nil {
		return nil, fmt.Errorf("open orders: %w", err)
	}
	return orders, nil
}
