package sim

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/krazyTry/raydium-go/amm/instruction"
	"github.com/krazyTry/raydium-go/amm/math"
	"github.com/krazyTry/raydium-go/amm/shared"
	"github.com/krazyTry/raydium-go/amm/state"
	"github.com/krazyTry/raydium-go/venue"
)

// Scenario is a scripted pool lifetime: bootstrap, a few monitor steps, a
// taker lifting the ladder, a swap, a deposit and a withdrawal.
type Scenario struct {
	Market      MarketSetup
	BaseAmount  uint64
	QuoteAmount uint64
	SwapAmount  uint64
	// Steps is the number of monitor steps run after bootstrap.
	Steps int
	// TakeLots is the size a taker buys from the pool's asks.
	TakeLots uint64
}

func DefaultScenario() Scenario {
	return Scenario{
		Market: MarketSetup{
			BaseDecimals:  9,
			QuoteDecimals: 6,
			BaseLotSize:   1_000_000,
			QuoteLotSize:  1,
		},
		BaseAmount:  1_000_000_000_000,
		QuoteAmount: 2_000_000_000,
		SwapAmount:  10_000_000_000,
		Steps:       3,
		TakeLots:    1_000,
	}
}

// Step is one labelled transaction of a scenario.
type Step struct {
	Name   string
	Result *Result
}

type Report struct {
	Pool   *Pool
	Steps  []Step
	Info   *state.AmmInfo
	Orders []venue.Order
	// Price is quote tokens per base token at the end of the run.
	Price decimal.Decimal
}

// Run plays s against r.
func (s Scenario) Run(ctx context.Context, r *Runtime) (*Report, error) {
	if s.BaseAmount == 0 || s.QuoteAmount == 0 {
		return nil, shared.ErrInvalidInitialLiquidity
	}
	p, err := r.CreateMarket(s.Market)
	if err != nil {
		return nil, fmt.Errorf("create market: %w", err)
	}
	report := &Report{Pool: p}
	record := func(name string, res *Result, err error) error {
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		report.Steps = append(report.Steps, Step{Name: name, Result: res})
		return nil
	}

	creator, err := r.NewWallet(p, s.BaseAmount*2, s.QuoteAmount*2)
	if err != nil {
		return nil, err
	}
	res, err := r.Initialize(ctx, p, creator, s.BaseAmount, s.QuoteAmount)
	if err = record("initialize", res, err); err != nil {
		return nil, err
	}

	monitor := func(name string) error {
		ix, err := instruction.NewMonitorStepInstruction(p.Keys)
		if err != nil {
			return err
		}
		res, err := r.Execute(ctx, ix)
		return record(name, res, err)
	}
	for i := 0; i < s.Steps; i++ {
		if err = monitor(fmt.Sprintf("monitor %d", i+1)); err != nil {
			return nil, err
		}
	}

	if s.TakeLots > 0 {
		taker, err := r.NewWallet(p, 0, s.QuoteAmount)
		if err != nil {
			return nil, err
		}
		if _, err = r.Take(ctx, p, shared.SideBid, s.TakeLots, taker); err != nil {
			return nil, fmt.Errorf("take: %w", err)
		}
		if err = monitor("monitor after fill"); err != nil {
			return nil, err
		}
	}

	if s.SwapAmount > 0 {
		trader, err := r.NewWallet(p, s.SwapAmount, 0)
		if err != nil {
			return nil, err
		}
		ix, err := instruction.NewSwapBaseInInstruction(p.Keys, trader.Owner, trader.Base, trader.Quote, &instruction.SwapBaseIn{
			AmountIn:  s.SwapAmount,
			Direction: shared.SwapDirectionBaseToQuote,
		})
		if err != nil {
			return nil, err
		}
		res, err := r.Execute(ctx, ix)
		if err = record("swap base in", res, err); err != nil {
			return nil, err
		}
	}

	ix, err := instruction.NewDepositInstruction(p.Keys, creator, &instruction.Deposit{
		MaxBaseAmount:  s.BaseAmount / 10,
		MaxQuoteAmount: s.QuoteAmount,
		FixedSide:      instruction.DepositSideBase,
	})
	if err != nil {
		return nil, err
	}
	res, err = r.Execute(ctx, ix)
	if err = record("deposit", res, err); err != nil {
		return nil, err
	}

	lp, err := r.Balance(ctx, creator.Lp)
	if err != nil {
		return nil, err
	}
	if ix, err = instruction.NewWithdrawInstruction(p.Keys, creator, &instruction.Withdraw{Amount: lp / 2}); err != nil {
		return nil, err
	}
	res, err = r.Execute(ctx, ix)
	if err = record("withdraw", res, err); err != nil {
		return nil, err
	}

	if report.Info, err = r.AmmInfo(ctx, p); err != nil {
		return nil, err
	}
	if report.Orders, err = r.Orders(ctx, p); err != nil {
		return nil, err
	}
	base, quote, err := r.Reserves(ctx, p)
	if err != nil {
		return nil, err
	}
	report.Price = math.UIPrice(base, quote, report.Info.BaseDecimals, report.Info.QuoteDecimals)
	return report, nil
}

// Reserves is the pool's total reserves: vaults plus open orders, less
// protocol fees owed.
func (r *Runtime) Reserves(ctx context.Context, p *Pool) (base, quote uint64, err error) {
	info, err := r.AmmInfo(ctx, p)
	if err != nil {
		return 0, 0, err
	}
	vaultBase, err := r.Balance(ctx, p.Keys.BaseVault)
	if err != nil {
		return 0, 0, err
	}
	vaultQuote, err := r.Balance(ctx, p.Keys.QuoteVault)
	if err != nil {
		return 0, 0, err
	}
	book, err := r.Book.Balances(ctx, p.Keys.Market, p.Keys.OpenOrders)
	if err != nil {
		return 0, 0, err
	}
	return vaultBase + book.BaseTotal - info.ProtocolFeesBase, vaultQuote + book.QuoteTotal - info.ProtocolFeesQuote, nil
}
