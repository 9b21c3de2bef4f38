package amm

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/krazyTry/raydium-go/amm/instruction"
	"github.com/krazyTry/raydium-go/amm/math"
	"github.com/krazyTry/raydium-go/amm/scheduler"
	"github.com/krazyTry/raydium-go/amm/shared"
	"github.com/krazyTry/raydium-go/amm/state"
)

func (p *Processor) setStatus(ctx context.Context, log *zap.Logger, accounts []*solana.AccountMeta, ix *instruction.SetStatus) error {
	if err := requireAccounts(accounts, instruction.SetStatusAccounts); err != nil {
		return err
	}
	owner := accounts[instruction.SetStatusOwner]
	if err := requireSigner(owner); err != nil {
		return err
	}
	ammKey := accounts[instruction.SetStatusAmm].PublicKey
	info, err := state.LoadAmmInfo(ctx, p.store, p.network.ProgramID, ammKey)
	if err != nil {
		return err
	}
	if err = expectKey("owner", owner.PublicKey, info.Owner); err != nil {
		return err
	}
	from := info.Status
	if err = info.Transition(ix.Status); err != nil {
		return err
	}
	slot, now := p.clock.Now()
	info.Touch(slot, now)
	if err = p.commit(ctx, p.infoRecord(&pool{key: ammKey, info: info})); err != nil {
		return err
	}
	log.Info("pool status changed", zap.Stringer("amm", ammKey), zap.Stringer("from", from), zap.Stringer("to", ix.Status))
	return nil
}

// collectProtocolFee pays the owed protocol fees to the fee owner.
func (p *Processor) collectProtocolFee(ctx context.Context, log *zap.Logger, accounts []*solana.AccountMeta) error {
	if err := requireAccounts(accounts, instruction.CollectAccounts); err != nil {
		return err
	}
	owner := accounts[instruction.CollectOwner]
	if err := requireSigner(owner); err != nil {
		return err
	}
	key := func(i int) solana.PublicKey { return accounts[i].PublicKey }

	pl, err := p.loadPool(ctx, key(instruction.CollectAmm), key(instruction.CollectConfig), key(instruction.CollectAuthority))
	if err != nil {
		return err
	}
	if err = pl.info.RequireWithdrawable(); err != nil {
		return err
	}
	if err = expectKey("protocol fee owner", owner.PublicKey, pl.info.ProtocolFeeOwner); err != nil {
		return err
	}
	if err = pl.checkVenueKeys(key(instruction.CollectMarket), key(instruction.CollectOpenOrders), key(instruction.CollectBaseVault), key(instruction.CollectQuoteVault)); err != nil {
		return err
	}

	base, quote := pl.info.ProtocolFeesBase, pl.info.ProtocolFeesQuote
	if base == 0 && quote == 0 {
		return fmt.Errorf("%w: no protocol fees owed", shared.ErrZeroAmount)
	}

	// owed fees are not part of the reserves, so the payout is measured
	// against the whole vault
	pa := pl.accounts()
	pa.ProtocolFeesBase, pa.ProtocolFeesQuote = 0, 0
	snap, err := p.scheduler.Reserves(ctx, pa)
	if err != nil {
		return err
	}
	budget := pl.budget()
	var plan scheduler.Release
	if base > snap.VaultBase || quote > snap.VaultQuote {
		resting, err := p.scheduler.Resting(ctx, pa)
		if err != nil {
			return err
		}
		if plan, err = scheduler.PlanRelease(snap, pa, resting, pl.params(), base, quote, budget.Remaining()); err != nil {
			return err
		}
	}

	if pl.info.CollectedProtocolFeesBase, err = math.CheckedAdd(pl.info.CollectedProtocolFeesBase, base); err != nil {
		return err
	}
	if pl.info.CollectedProtocolFeesQuote, err = math.CheckedAdd(pl.info.CollectedProtocolFeesQuote, quote); err != nil {
		return err
	}
	pl.info.ProtocolFeesBase, pl.info.ProtocolFeesQuote = 0, 0

	filled, err := p.scheduler.ExecuteRelease(ctx, pa, pl.params(), plan, budget)
	if err != nil {
		return err
	}
	if err = pl.accrueFills(filled); err != nil {
		return err
	}
	if err = p.transfer(ctx, pl.info.BaseVault, key(instruction.CollectDestinationBase), pl.authority, base); err != nil {
		return err
	}
	if err = p.transfer(ctx, pl.info.QuoteVault, key(instruction.CollectDestinationQuote), pl.authority, quote); err != nil {
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
	log.Info("protocol fees collected", zap.Stringer("amm", pl.key), zap.Uint64("base", base), zap.Uint64("quote", quote))
	return nil
}
