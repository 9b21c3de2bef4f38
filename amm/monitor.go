package amm

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/krazyTry/raydium-go/amm/event"
	"github.com/krazyTry/raydium-go/amm/instruction"
	"github.com/krazyTry/raydium-go/amm/shared"
	"github.com/krazyTry/raydium-go/amm/state"
)

// monitorStep reconciles the pool's ladder with the book. Anyone may call
// it. A disabled pool winds its ladder down to nothing.
func (p *Processor) monitorStep(ctx context.Context, log *zap.Logger, accounts []*solana.AccountMeta) error {
	if err := requireAccounts(accounts, instruction.MonitorAccounts); err != nil {
		return err
	}
	key := func(i int) solana.PublicKey { return accounts[i].PublicKey }

	pl, err := p.loadPool(ctx, key(instruction.MonitorAmm), key(instruction.MonitorConfig), key(instruction.MonitorAuthority))
	if err != nil {
		return err
	}
	if err = pl.info.RequireWithdrawable(); err != nil {
		return err
	}
	if err = pl.checkVenueKeys(key(instruction.MonitorMarket), key(instruction.MonitorOpenOrders), key(instruction.MonitorBaseVault), key(instruction.MonitorQuoteVault)); err != nil {
		return err
	}
	if err = expectKey("target orders", key(instruction.MonitorTargetOrders), pl.info.TargetOrders); err != nil {
		return err
	}

	windDown := pl.info.Status == shared.PoolStatusDisabled
	log = log.With(zap.Stringer("amm", pl.key))
	res, err := p.scheduler.Step(ctx, pl.accounts(), pl.params(), pl.budget(), windDown)
	if err != nil {
		return err
	}

	if err = pl.accrueFills(res.Filled); err != nil {
		return err
	}
	pl.info.OrderNum = uint64(res.Resting)
	slot, now := p.clock.Now()
	pl.info.Touch(slot, now)

	targets := res.Ladder.ToTargetOrders(slot)
	err = p.commit(ctx,
		p.infoRecord(pl),
		func() (*state.Account, error) { return targets.ToAccount(pl.info.TargetOrders, p.network.ProgramID) },
	)
	if err != nil {
		return err
	}

	p.emit(log, event.MonitorLog{
		Slot:           slot,
		MidPrice:       res.Ladder.MidPrice,
		PoolBase:       res.Reserves.Total.Base,
		PoolQuote:      res.Reserves.Total.Quote,
		FilledBaseIn:   res.Filled.BaseIn,
		FilledBaseOut:  res.Filled.BaseOut,
		FilledQuoteIn:  res.Filled.QuoteIn,
		FilledQuoteOut: res.Filled.QuoteOut,
		Placed:         uint16(res.Placed),
		Cancelled:      uint16(res.Cancelled),
		Failed:         uint16(res.Failed),
	})
	if res.Deferred > 0 {
		log.Info("monitor step deferred work", zap.Int("deferred", res.Deferred))
	}
	return nil
}
