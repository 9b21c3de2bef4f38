package amm

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/krazyTry/raydium-go/amm/event"
	"github.com/krazyTry/raydium-go/amm/instruction"
	"github.com/krazyTry/raydium-go/amm/math"
	"github.com/krazyTry/raydium-go/amm/shared"
)

func (p *Processor) withdraw(ctx context.Context, log *zap.Logger, accounts []*solana.AccountMeta, ix *instruction.Withdraw) error {
	if err := requireAccounts(accounts, instruction.WithdrawAccounts); err != nil {
		return err
	}
	user := accounts[instruction.WithdrawUser]
	if err := requireSigner(user); err != nil {
		return err
	}
	key := func(i int) solana.PublicKey { return accounts[i].PublicKey }

	pl, err := p.loadPool(ctx, key(instruction.WithdrawAmm), key(instruction.WithdrawConfig), key(instruction.WithdrawAuthority))
	if err != nil {
		return err
	}
	if err = pl.info.RequireWithdrawable(); err != nil {
		return err
	}
	if err = pl.checkVenueKeys(key(instruction.WithdrawMarket), key(instruction.WithdrawOpenOrders), key(instruction.WithdrawBaseVault), key(instruction.WithdrawQuoteVault)); err != nil {
		return err
	}
	if err = expectKey("lp mint", key(instruction.WithdrawLpMint), pl.info.LpMint); err != nil {
		return err
	}
	if ix.Amount == 0 {
		return shared.ErrZeroAmount
	}

	userLp := key(instruction.WithdrawUserLp)
	held, err := p.token.Balance(ctx, userLp)
	if err != nil {
		return external("lp balance", err)
	}
	if held < ix.Amount {
		return fmt.Errorf("%w: holds %d, withdrawing %d", shared.ErrInsufficientLpBalance, held, ix.Amount)
	}

	snap, err := p.scheduler.Reserves(ctx, pl.accounts())
	if err != nil {
		return err
	}
	base, quote, err := math.WithdrawalAmounts(ix.Amount, pl.info.LpAmount, snap.Total.Base, snap.Total.Quote)
	if err != nil {
		return err
	}
	if base == 0 && quote == 0 {
		return fmt.Errorf("%w: %d lp redeems nothing", shared.ErrZeroAmount, ix.Amount)
	}

	budget := pl.budget()
	plan, err := p.release(ctx, pl, snap, budget, base, quote)
	if err != nil {
		return err
	}
	poolLp := pl.info.LpAmount
	if pl.info.LpAmount, err = math.CheckedSub(pl.info.LpAmount, ix.Amount); err != nil {
		return err
	}

	filled, err := p.scheduler.ExecuteRelease(ctx, pl.accounts(), pl.params(), plan, budget)
	if err != nil {
		return err
	}
	if err = pl.accrueFills(filled); err != nil {
		return err
	}
	if err = p.token.Burn(ctx, userLp, pl.info.LpMint, user.PublicKey, ix.Amount); err != nil {
		return external("burn lp", err)
	}
	if err = p.transfer(ctx, pl.info.BaseVault, key(instruction.WithdrawUserBase), pl.authority, base); err != nil {
		return err
	}
	if err = p.transfer(ctx, pl.info.QuoteVault, key(instruction.WithdrawUserQuote), pl.authority, quote); err != nil {
		return err
	}
	if len(plan.Cancel) > 0 {
		pl.info.OrderNum = saturatingSub(pl.info.OrderNum, uint64(len(plan.Cancel)))
	}

	slot, now := p.clock.Now()
	pl.info.Touch(slot, now)
	if err = p.commit(ctx, p.infoRecord(pl)); err != nil {
		return err
	}

	p.emit(log.With(zap.Stringer("amm", pl.key)), event.WithdrawLog{
		WithdrawLp: ix.Amount,
		UserLp:     held,
		PoolBase:   snap.Total.Base,
		PoolQuote:  snap.Total.Quote,
		PoolLp:     poolLp,
		OutBase:    base,
		OutQuote:   quote,
	})
	return nil
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
