package amm

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/krazyTry/raydium-go/amm/event"
	"github.com/krazyTry/raydium-go/amm/instruction"
	"github.com/krazyTry/raydium-go/amm/math"
	"github.com/krazyTry/raydium-go/amm/shared"
	"github.com/krazyTry/raydium-go/amm/state"
	"github.com/krazyTry/raydium-go/venue"
)

func (p *Processor) initialize(ctx context.Context, log *zap.Logger, accounts []*solana.AccountMeta, ix *instruction.Initialize) error {
	if err := requireAccounts(accounts, instruction.InitializeAccounts); err != nil {
		return err
	}
	user := accounts[instruction.InitializeUser]
	if err := requireSigner(user); err != nil {
		return err
	}
	key := func(i int) solana.PublicKey { return accounts[i].PublicKey }
	programID := p.network.ProgramID
	marketKey := key(instruction.InitializeMarket)

	want, err := DerivePoolKeys(programID, marketKey, key(instruction.InitializeBaseMint), key(instruction.InitializeQuoteMint))
	if err != nil {
		return err
	}
	for _, c := range []struct {
		name string
		idx  int
		want solana.PublicKey
	}{
		{"amm", instruction.InitializeAmm, want.Amm},
		{"config", instruction.InitializeConfig, want.Config},
		{"target orders", instruction.InitializeTargetOrders, want.TargetOrders},
		{"authority", instruction.InitializeAuthority, want.Authority},
		{"open orders", instruction.InitializeOpenOrders, want.OpenOrders},
		{"lp mint", instruction.InitializeLpMint, want.LpMint},
		{"base vault", instruction.InitializeBaseVault, want.BaseVault},
		{"quote vault", instruction.InitializeQuoteVault, want.QuoteVault},
	} {
		if err = expectKey(c.name, key(c.idx), c.want); err != nil {
			return err
		}
	}
	if ix.Nonce != want.Nonce {
		return fmt.Errorf("%w: nonce %d, expected %d", shared.ErrInvalidAccountKey, ix.Nonce, want.Nonce)
	}

	info, err := state.LoadOrCreateAmmInfo(ctx, p.store, programID, want.Amm)
	if err != nil {
		return err
	}
	if info.Status != shared.PoolStatusUninitialized {
		return fmt.Errorf("%w: pool %s is %s", shared.ErrMarketAlreadyInUse, want.Amm, info.Status)
	}

	market, err := p.book.Market(ctx, marketKey)
	if errors.Is(err, venue.ErrMarketNotFound) {
		return fmt.Errorf("%w: %w", shared.ErrInvalidMarket, err)
	}
	if err != nil {
		return external("load market", err)
	}
	if !market.BaseMint.Equals(want.BaseMint) || !market.QuoteMint.Equals(want.QuoteMint) || want.BaseMint.Equals(want.QuoteMint) {
		return fmt.Errorf("%w: market %s trades %s/%s", shared.ErrInvalidMarket, marketKey, market.BaseMint, market.QuoteMint)
	}
	if err = p.requireUnusedOpenOrders(ctx, marketKey, want.OpenOrders); err != nil {
		return err
	}

	config := p.network.Config
	if err = config.Validate(); err != nil {
		return err
	}

	baseMint, err := p.token.Mint(ctx, want.BaseMint)
	if err != nil {
		return external("load base mint", err)
	}
	quoteMint, err := p.token.Mint(ctx, want.QuoteMint)
	if err != nil {
		return external("load quote mint", err)
	}
	lpMint, err := p.token.Mint(ctx, want.LpMint)
	if err != nil {
		return external("load lp mint", err)
	}
	if err = expectKey("lp mint authority", lpMint.MintAuthority, want.Authority); err != nil {
		return err
	}
	if lpMint.Supply != 0 {
		return fmt.Errorf("%w: lp mint supply %d", shared.ErrInvalidAccountData, lpMint.Supply)
	}

	liquidity, err := math.InitialLiquidity(ix.InitBaseAmount, ix.InitQuoteAmount)
	if err != nil {
		return err
	}
	if liquidity <= config.MinimumLiquidity {
		return fmt.Errorf("%w: %d lp does not exceed the locked %d", shared.ErrInvalidInitialLiquidity, liquidity, config.MinimumLiquidity)
	}
	if _, err = math.MidPrice(ix.InitBaseAmount, ix.InitQuoteAmount, market.BaseLotSize, market.QuoteLotSize); err != nil {
		return fmt.Errorf("%w: initial price rounds to zero lots", shared.ErrInvalidInitialLiquidity)
	}

	slot, now := p.clock.Now()
	openTime := ix.OpenTime
	if now > 0 && openTime < uint64(now) {
		openTime = uint64(now)
	}

	*info = state.AmmInfo{
		Status:           shared.PoolStatusUninitialized,
		Nonce:            want.Nonce,
		BaseDecimals:     baseMint.Decimals,
		QuoteDecimals:    quoteMint.Decimals,
		OpenTime:         openTime,
		BaseLotSize:      market.BaseLotSize,
		QuoteLotSize:     market.QuoteLotSize,
		LpAmount:         liquidity,
		BaseVault:        want.BaseVault,
		QuoteVault:       want.QuoteVault,
		BaseMint:         want.BaseMint,
		QuoteMint:        want.QuoteMint,
		LpMint:           want.LpMint,
		OpenOrders:       want.OpenOrders,
		Market:           marketKey,
		Config:           want.Config,
		TargetOrders:     want.TargetOrders,
		Owner:            p.network.Admin,
		ProtocolFeeOwner: p.network.ProtocolFeeOwner,
	}
	if err = info.Transition(shared.PoolStatusInitialized); err != nil {
		return err
	}
	info.Touch(slot, now)

	if err = p.transfer(ctx, key(instruction.InitializeUserBase), want.BaseVault, user.PublicKey, ix.InitBaseAmount); err != nil {
		return err
	}
	if err = p.transfer(ctx, key(instruction.InitializeUserQuote), want.QuoteVault, user.PublicKey, ix.InitQuoteAmount); err != nil {
		return err
	}
	if err = p.token.MintTo(ctx, want.LpMint, key(instruction.InitializeUserLp), want.Authority, liquidity-config.MinimumLiquidity); err != nil {
		return external("mint lp", err)
	}

	targets := &state.TargetOrders{Slot: slot}
	pl := &pool{key: want.Amm, info: info, config: &config, authority: want.Authority}
	err = p.commit(ctx,
		p.infoRecord(pl),
		func() (*state.Account, error) { return config.ToAccount(want.Config, programID) },
		func() (*state.Account, error) { return targets.ToAccount(want.TargetOrders, programID) },
	)
	if err != nil {
		return err
	}

	p.emit(log.With(zap.Stringer("amm", want.Amm)), event.InitLog{
		Time:          uint64(now),
		BaseDecimals:  info.BaseDecimals,
		QuoteDecimals: info.QuoteDecimals,
		BaseLotSize:   info.BaseLotSize,
		QuoteLotSize:  info.QuoteLotSize,
		BaseAmount:    ix.InitBaseAmount,
		QuoteAmount:   ix.InitQuoteAmount,
		Market:        marketKey,
	})
	return nil
}

// requireUnusedOpenOrders rejects an open-orders handle that already holds
// orders or funds on the market.
func (p *Processor) requireUnusedOpenOrders(ctx context.Context, market, openOrders solana.PublicKey) error {
	resting, err := p.book.OpenOrders(ctx, market, openOrders)
	if err != nil {
		return external("query open orders", err)
	}
	balances, err := p.book.Balances(ctx, market, openOrders)
	if err != nil {
		return external("open orders balances", err)
	}
	if len(resting) > 0 || balances.BaseTotal > 0 || balances.QuoteTotal > 0 {
		return fmt.Errorf("%w: open orders %s holds %d orders", shared.ErrMarketAlreadyInUse, openOrders, len(resting))
	}
	return nil
}
