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
	"github.com/krazyTry/raydium-go/amm/state"
)

func (p *Processor) deposit(ctx context.Context, log *zap.Logger, accounts []*solana.AccountMeta, ix *instruction.Deposit) error {
	if err := requireAccounts(accounts, instruction.DepositAccounts); err != nil {
		return err
	}
	user := accounts[instruction.DepositUser]
	if err := requireSigner(user); err != nil {
		return err
	}
	key := func(i int) solana.PublicKey { return accounts[i].PublicKey }

	pl, err := p.loadPool(ctx, key(instruction.DepositAmm), key(instruction.DepositConfig), key(instruction.DepositAuthority))
	if err != nil {
		return err
	}
	if err = pl.info.RequireInitialized(); err != nil {
		return err
	}
	if err = pl.checkVenueKeys(key(instruction.DepositMarket), key(instruction.DepositOpenOrders), key(instruction.DepositBaseVault), key(instruction.DepositQuoteVault)); err != nil {
		return err
	}
	if err = expectKey("lp mint", key(instruction.DepositLpMint), pl.info.LpMint); err != nil {
		return err
	}

	snap, err := p.scheduler.Reserves(ctx, pl.accounts())
	if err != nil {
		return err
	}
	reserves := snap.Total

	var base, quote uint64
	switch ix.FixedSide {
	case instruction.DepositSideBase:
		base = ix.MaxBaseAmount
		if quote, err = math.DepositCounterpart(base, reserves.Base, reserves.Quote); err != nil {
			return err
		}
		if quote > ix.MaxQuoteAmount {
			return fmt.Errorf("%w: deposit needs %d quote, max %d", shared.ErrSlippageExceeded, quote, ix.MaxQuoteAmount)
		}
	case instruction.DepositSideQuote:
		quote = ix.MaxQuoteAmount
		if base, err = math.DepositCounterpart(quote, reserves.Quote, reserves.Base); err != nil {
			return err
		}
		if base > ix.MaxBaseAmount {
			return fmt.Errorf("%w: deposit needs %d base, max %d", shared.ErrSlippageExceeded, base, ix.MaxBaseAmount)
		}
	default:
		return fmt.Errorf("%w: fixed side %d", shared.ErrInvalidInstructionData, ix.FixedSide)
	}

	minted, err := math.LiquidityMinted(base, quote, reserves.Base, reserves.Quote, pl.info.LpAmount, pl.config.DepositToleranceBps)
	if err != nil {
		return err
	}
	poolLp := pl.info.LpAmount
	if pl.info.LpAmount, err = math.CheckedAdd(pl.info.LpAmount, minted); err != nil {
		return err
	}

	if err = p.transfer(ctx, key(instruction.DepositUserBase), pl.info.BaseVault, user.PublicKey, base); err != nil {
		return err
	}
	if err = p.transfer(ctx, key(instruction.DepositUserQuote), pl.info.QuoteVault, user.PublicKey, quote); err != nil {
		return err
	}
	if err = p.token.MintTo(ctx, pl.info.LpMint, key(instruction.DepositUserLp), pl.authority, minted); err != nil {
		return external("mint lp", err)
	}

	log = log.With(zap.Stringer("amm", pl.key))
	slot, now := p.clock.Now()
	records := []func() (*state.Account, error){p.infoRecord(pl)}
	if movedMaterially(base, reserves.Base, pl.config.RefreshToleranceBps) {
		if targets := p.refresh(ctx, log, pl, slot); targets != nil {
			records = append(records, func() (*state.Account, error) {
				return targets.ToAccount(pl.info.TargetOrders, p.network.ProgramID)
			})
		}
	}

	pl.info.Touch(slot, now)
	if err = p.commit(ctx, records...); err != nil {
		return err
	}

	p.emit(log, event.DepositLog{
		MaxBase:     ix.MaxBaseAmount,
		MaxQuote:    ix.MaxQuoteAmount,
		FixedSide:   uint8(ix.FixedSide),
		PoolBase:    reserves.Base,
		PoolQuote:   reserves.Quote,
		PoolLp:      poolLp,
		DeductBase:  base,
		DeductQuote: quote,
		MintLp:      minted,
	})
	return nil
}

// movedMaterially reports whether delta exceeds toleranceBps of reserve.
func movedMaterially(delta, reserve, toleranceBps uint64) bool {
	lhs, err := math.CheckedMul(delta, shared.BasisPointMax)
	if err != nil {
		return true
	}
	rhs, err := math.CheckedMul(reserve, toleranceBps)
	if err != nil {
		return false
	}
	return lhs > rhs
}

// refresh runs the scheduler without failing the instruction and returns
// the ladder it placed, or nil when the step failed. Fills it settled are
// recorded on the pool either way.
func (p *Processor) refresh(ctx context.Context, log *zap.Logger, pl *pool, slot uint64) *state.TargetOrders {
	res, err := p.scheduler.Step(ctx, pl.accounts(), pl.params(), pl.budget(), false)
	if res != nil {
		if err := pl.accrueFills(res.Filled); err != nil {
			log.Warn("fill accumulators overflow", zap.Error(err))
		}
	}
	if err != nil {
		log.Warn("ladder refresh failed", zap.Error(err))
		return nil
	}
	pl.info.OrderNum = uint64(res.Resting)
	log.Debug("ladder refreshed", zap.Int("placed", res.Placed), zap.Int("cancelled", res.Cancelled))
	return res.Ladder.ToTargetOrders(slot)
}
