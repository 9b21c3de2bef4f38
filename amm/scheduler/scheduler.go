package scheduler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/krazyTry/raydium-go/amm/math"
	"github.com/krazyTry/raydium-go/amm/shared"
	"github.com/krazyTry/raydium-go/venue"
)

type Scheduler struct {
	book   venue.OrderBook
	token  venue.TokenProgram
	logger *zap.Logger
}

func New(book venue.OrderBook, token venue.TokenProgram, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{book: book, token: token, logger: logger.Named("scheduler")}
}

// FillTotals is value realized from fills since the last settlement.
type FillTotals struct {
	BaseIn   uint64
	BaseOut  uint64
	QuoteIn  uint64
	QuoteOut uint64
}

type StepResult struct {
	Fills     []venue.Fill
	Filled    FillTotals
	Reserves  Snapshot
	Ladder    *Ladder
	Placed    int
	Cancelled int
	Kept      int
	Failed    int
	Skipped   int
	Deferred  int
	// Resting is the pool's order count on the venue after the step.
	Resting int
}

func (r *StepResult) Calls() int {
	return r.Placed + r.Cancelled
}

func sumFills(fills []venue.Fill, p Params) (FillTotals, error) {
	var t FillTotals
	for _, f := range fills {
		base, err := math.BaseEscrow(f.FilledSize, p.BaseLotSize)
		if err != nil {
			return t, err
		}
		quote, err := math.QuoteEscrow(f.FilledPrice, f.FilledSize, p.QuoteLotSize)
		if err != nil {
			return t, err
		}
		if f.Side == shared.SideAsk {
			if t.BaseOut, err = math.CheckedAdd(t.BaseOut, base); err != nil {
				return t, err
			}
			if t.QuoteIn, err = math.CheckedAdd(t.QuoteIn, quote); err != nil {
				return t, err
			}
		} else {
			if t.BaseIn, err = math.CheckedAdd(t.BaseIn, base); err != nil {
				return t, err
			}
			if t.QuoteOut, err = math.CheckedAdd(t.QuoteOut, quote); err != nil {
				return t, err
			}
		}
	}
	return t, nil
}

// settle queries the pool's fills and settles free balances into the vaults.
// Unless always is set nothing is settled when there is nothing to collect.
// The returned fills are cleared from the venue by the settle.
func (s *Scheduler) settle(ctx context.Context, pool PoolAccounts, p Params, budget *Budget, always bool) ([]venue.Fill, FillTotals, error) {
	fills, err := s.book.Fills(ctx, pool.Market, pool.OpenOrders)
	if err != nil {
		return nil, FillTotals{}, external("query fills", err)
	}
	totals, err := sumFills(fills, p)
	if err != nil {
		return nil, FillTotals{}, err
	}
	if !always && len(fills) == 0 {
		balances, err := s.book.Balances(ctx, pool.Market, pool.OpenOrders)
		if err != nil {
			return nil, FillTotals{}, external("open orders balances", err)
		}
		if balances.BaseFree == 0 && balances.QuoteFree == 0 {
			return nil, FillTotals{}, nil
		}
	}
	if !budget.Take() {
		return nil, FillTotals{}, shared.ErrComputeBudgetExceeded
	}
	if err = s.book.SettleFunds(ctx, pool.settleRequest()); err != nil {
		return nil, FillTotals{}, external("settle funds", err)
	}
	return fills, totals, nil
}

// Step reconciles the pool's orders with a ladder built from fresh reserves.
// Reads are fatal; an individual cancel or place failure is logged and left
// for the next step. With windDown set the target ladder is empty.
// Once fills are settled a fatal error still comes with the result, so the
// caller can record Filled.
func (s *Scheduler) Step(ctx context.Context, pool PoolAccounts, p Params, budget *Budget, windDown bool) (*StepResult, error) {
	log := s.logger.With(zap.Stringer("amm", pool.Amm))
	res := &StepResult{}

	var err error
	if res.Fills, res.Filled, err = s.settle(ctx, pool, p, budget, false); err != nil {
		return nil, err
	}

	if res.Reserves, err = ReadReserves(ctx, s.token, s.book, pool); err != nil {
		return res, err
	}

	res.Ladder = &Ladder{}
	if !windDown {
		ladder, err := BuildLadder(pool.Amm, p, res.Reserves.Total)
		switch {
		case errors.Is(err, shared.ErrInsufficientLiquidity):
			log.Info("reserves too thin for a ladder", zap.Uint64("base", res.Reserves.Total.Base), zap.Uint64("quote", res.Reserves.Total.Quote))
		case err != nil:
			return res, fmt.Errorf("build ladder: %w", err)
		default:
			res.Ladder = ladder
		}
	}

	resting, err := s.book.OpenOrders(ctx, pool.Market, pool.OpenOrders)
	if err != nil {
		return res, external("query open orders", err)
	}
	plan := Diff(res.Ladder, resting, p.RefreshToleranceBps)
	res.Kept = len(plan.Keep)
	res.Resting = len(resting)
	if plan.Empty() {
		return res, nil
	}

	for _, o := range plan.Cancel {
		if !budget.Take() {
			res.Deferred++
			continue
		}
		if err := s.book.CancelOrder(ctx, pool.Market, pool.OpenOrders, pool.Authority, o.ID); err != nil {
			log.Warn("cancel order failed", zap.Uint64("order_id", o.ID), zap.Stringer("side", o.Side), zap.Uint64("price", o.Price), zap.Error(err))
			res.Failed++
			continue
		}
		res.Cancelled++
		res.Resting--
	}

	if res.Cancelled > 0 && budget.Take() {
		if err := s.book.SettleFunds(ctx, pool.settleRequest()); err != nil {
			log.Warn("settle after cancel failed", zap.Error(err))
		}
	}
	if len(plan.Place) == 0 {
		return res, nil
	}

	vaultBase, vaultQuote := res.Reserves.VaultBase, res.Reserves.VaultQuote
	if res.Cancelled > 0 {
		if vaultBase, vaultQuote, err = readVaults(ctx, s.token, pool); err != nil {
			log.Warn("vault read after cancel failed, placements deferred", zap.Error(err))
			res.Deferred += len(plan.Place)
			return res, nil
		}
	}

	fresh := Snapshot{VaultBase: vaultBase, VaultQuote: vaultQuote}
	uncommittedBase, uncommittedQuote := fresh.AvailableBase(pool), fresh.AvailableQuote(pool)
	for _, lv := range plan.Place {
		amount, err := Escrow(lv.Side, lv.Price, lv.Size, p)
		if err != nil {
			return res, err
		}
		uncommitted := &uncommittedQuote
		payer := pool.QuoteVault
		if lv.Side == shared.SideAsk {
			uncommitted = &uncommittedBase
			payer = pool.BaseVault
		}
		if amount > *uncommitted {
			log.Debug("level exceeds uncommitted reserves", zap.Stringer("side", lv.Side), zap.Int("level", lv.Index), zap.Uint64("escrow", amount), zap.Uint64("uncommitted", *uncommitted))
			res.Skipped++
			continue
		}
		if !budget.Take() {
			res.Deferred++
			continue
		}
		_, err = s.book.PlaceOrder(ctx, venue.PlaceOrderRequest{
			Market:     pool.Market,
			OpenOrders: pool.OpenOrders,
			Payer:      payer,
			Authority:  pool.Authority,
			Side:       lv.Side,
			Price:      lv.Price,
			Size:       lv.Size,
			ClientID:   lv.ClientID,
		})
		if err != nil {
			log.Warn("place order failed", zap.Stringer("side", lv.Side), zap.Int("level", lv.Index), zap.Uint64("price", lv.Price), zap.Uint64("size", lv.Size), zap.Error(err))
			res.Failed++
			continue
		}
		*uncommitted -= amount
		res.Placed++
		res.Resting++
	}

	if res.Deferred > 0 {
		log.Info("call budget spent, remaining work deferred", zap.Int("deferred", res.Deferred))
	}
	return res, nil
}

// ExecuteRelease runs a plan from PlanRelease and returns the fills its
// settle collected. Any failure is fatal to the calling instruction.
func (s *Scheduler) ExecuteRelease(ctx context.Context, pool PoolAccounts, p Params, plan Release, budget *Budget) (FillTotals, error) {
	for _, o := range plan.Cancel {
		if !budget.Take() {
			return FillTotals{}, shared.ErrComputeBudgetExceeded
		}
		if err := s.book.CancelOrder(ctx, pool.Market, pool.OpenOrders, pool.Authority, o.ID); err != nil {
			return FillTotals{}, external("cancel order", err)
		}
	}
	if !plan.Settle {
		return FillTotals{}, nil
	}
	_, filled, err := s.settle(ctx, pool, p, budget, true)
	return filled, err
}

// Resting lists the pool's orders on the venue.
func (s *Scheduler) Resting(ctx context.Context, pool PoolAccounts) ([]venue.Order, error) {
	orders, err := s.book.OpenOrders(ctx, pool.Market, pool.OpenOrders)
	if err != nil {
		return nil, external("query open orders", err)
	}
	return orders, nil
}

// Reserves reads fresh reserves for pool.
func (s *Scheduler) Reserves(ctx context.Context, pool PoolAccounts) (Snapshot, error) {
	return ReadReserves(ctx, s.token, s.book, pool)
}
