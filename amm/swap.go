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
	"github.com/krazyTry/raydium-go/amm/scheduler"
	"github.com/krazyTry/raydium-go/amm/shared"
)

// swapContext is a validated swap before any funds move.
type swapContext struct {
	pl          *pool
	user        solana.PublicKey
	source      solana.PublicKey
	destination solana.PublicKey
	direction   shared.SwapDirection
	snap        scheduler.Snapshot
	sourceHeld  uint64
}

func (s *swapContext) reserves() (in, out uint64) {
	if s.direction == shared.SwapDirectionBaseToQuote {
		return s.snap.Total.Base, s.snap.Total.Quote
	}
	return s.snap.Total.Quote, s.snap.Total.Base
}

func (s *swapContext) vaults() (in, out solana.PublicKey) {
	if s.direction == shared.SwapDirectionBaseToQuote {
		return s.pl.info.BaseVault, s.pl.info.QuoteVault
	}
	return s.pl.info.QuoteVault, s.pl.info.BaseVault
}

func (p *Processor) prepareSwap(ctx context.Context, accounts []*solana.AccountMeta, direction shared.SwapDirection) (*swapContext, error) {
	if err := requireAccounts(accounts, instruction.SwapAccounts); err != nil {
		return nil, err
	}
	user := accounts[instruction.SwapUser]
	if err := requireSigner(user); err != nil {
		return nil, err
	}
	if !direction.Valid() {
		return nil, fmt.Errorf("%w: direction %d", shared.ErrInvalidInstructionData, direction)
	}
	key := func(i int) solana.PublicKey { return accounts[i].PublicKey }

	pl, err := p.loadPool(ctx, key(instruction.SwapAmm), key(instruction.SwapConfig), key(instruction.SwapAuthority))
	if err != nil {
		return nil, err
	}
	_, now := p.clock.Now()
	if err = pl.info.RequireTradable(now); err != nil {
		return nil, err
	}
	if err = pl.checkVenueKeys(key(instruction.SwapMarket), key(instruction.SwapOpenOrders), key(instruction.SwapBaseVault), key(instruction.SwapQuoteVault)); err != nil {
		return nil, err
	}

	s := &swapContext{
		pl:          pl,
		user:        user.PublicKey,
		source:      key(instruction.SwapUserSource),
		destination: key(instruction.SwapUserDestination),
		direction:   direction,
	}
	if s.sourceHeld, err = p.token.Balance(ctx, s.source); err != nil {
		return nil, external("source balance", err)
	}
	if s.snap, err = p.scheduler.Reserves(ctx, pl.accounts()); err != nil {
		return nil, err
	}
	return s, nil
}

// execute frees the output from the book when needed, then moves funds and
// records the trade.
func (p *Processor) executeSwap(ctx context.Context, s *swapContext, res *math.SwapResult) error {
	var needBase, needQuote uint64
	if s.direction == shared.SwapDirectionBaseToQuote {
		needQuote = res.AmountOut
	} else {
		needBase = res.AmountOut
	}
	budget := s.pl.budget()
	plan, err := p.release(ctx, s.pl, s.snap, budget, needBase, needQuote)
	if errors.Is(err, shared.ErrWithdrawalExceedsAvailable) {
		return fmt.Errorf("%w: %w", shared.ErrInsufficientLiquidity, err)
	}
	if err != nil {
		return err
	}
	if err = s.pl.info.AccrueSwap(s.direction, res.AmountIn, res.AmountOut, res.TradeFee, res.ProtocolFee); err != nil {
		return err
	}

	vaultIn, vaultOut := s.vaults()
	filled, err := p.scheduler.ExecuteRelease(ctx, s.pl.accounts(), s.pl.params(), plan, budget)
	if err != nil {
		return err
	}
	if err = s.pl.accrueFills(filled); err != nil {
		return err
	}
	if err = p.transfer(ctx, s.source, vaultIn, s.user, res.AmountIn); err != nil {
		return err
	}
	if err = p.transfer(ctx, vaultOut, s.destination, s.pl.authority, res.AmountOut); err != nil {
		return err
	}
	if len(plan.Cancel) > 0 {
		s.pl.info.OrderNum = saturatingSub(s.pl.info.OrderNum, uint64(len(plan.Cancel)))
	}

	slot, now := p.clock.Now()
	s.pl.info.Touch(slot, now)
	return p.commit(ctx, p.infoRecord(s.pl))
}

func (p *Processor) swapBaseIn(ctx context.Context, log *zap.Logger, accounts []*solana.AccountMeta, ix *instruction.SwapBaseIn) error {
	s, err := p.prepareSwap(ctx, accounts, ix.Direction)
	if err != nil {
		return err
	}
	reserveIn, reserveOut := s.reserves()
	res, err := math.SwapExactIn(reserveIn, reserveOut, ix.AmountIn, s.pl.config.TradeFee(), s.pl.config.ProtocolFee())
	if err != nil {
		return err
	}
	if res.AmountOut < ix.MinimumAmountOut {
		return fmt.Errorf("%w: out %d, minimum %d", shared.ErrSlippageExceeded, res.AmountOut, ix.MinimumAmountOut)
	}
	if err = p.executeSwap(ctx, s, res); err != nil {
		return err
	}

	p.emit(log.With(zap.Stringer("amm", s.pl.key)), event.SwapBaseInLog{
		AmountIn:   ix.AmountIn,
		MinimumOut: ix.MinimumAmountOut,
		Direction:  uint8(ix.Direction),
		UserSource: s.sourceHeld,
		PoolBase:   s.snap.Total.Base,
		PoolQuote:  s.snap.Total.Quote,
		OutAmount:  res.AmountOut,
	})
	return nil
}

func (p *Processor) swapBaseOut(ctx context.Context, log *zap.Logger, accounts []*solana.AccountMeta, ix *instruction.SwapBaseOut) error {
	s, err := p.prepareSwap(ctx, accounts, ix.Direction)
	if err != nil {
		return err
	}
	reserveIn, reserveOut := s.reserves()
	res, err := math.SwapExactOut(reserveIn, reserveOut, ix.AmountOut, s.pl.config.TradeFee(), s.pl.config.ProtocolFee())
	if err != nil {
		return err
	}
	if res.AmountIn > ix.MaxAmountIn {
		return fmt.Errorf("%w: needs %d in, max %d", shared.ErrSlippageExceeded, res.AmountIn, ix.MaxAmountIn)
	}
	if err = p.executeSwap(ctx, s, res); err != nil {
		return err
	}

	p.emit(log.With(zap.Stringer("amm", s.pl.key)), event.SwapBaseOutLog{
		MaxIn:      ix.MaxAmountIn,
		AmountOut:  ix.AmountOut,
		Direction:  uint8(ix.Direction),
		UserSource: s.sourceHeld,
		PoolBase:   s.snap.Total.Base,
		PoolQuote:  s.snap.Total.Quote,
		DeductIn:   res.AmountIn,
	})
	return nil
}
