package sim

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/krazyTry/raydium-go/amm/event"
	"github.com/krazyTry/raydium-go/amm/instruction"
	"github.com/krazyTry/raydium-go/amm/shared"
)

func TestClock(t *testing.T) {
	c := NewClock(time.Unix(100, 0))
	slot, now := c.Now()
	require.Equal(t, uint64(0), slot)
	require.Equal(t, int64(100), now)

	c.Advance(3, 1200*time.Millisecond)
	slot, now = c.Now()
	require.Equal(t, uint64(3), slot)
	require.Equal(t, int64(101), now)

	c.Advance(1, 800*time.Millisecond)
	_, now = c.Now()
	require.Equal(t, int64(102), now)
}

func TestScenarioRun(t *testing.T) {
	ctx := context.Background()
	r := New()

	report, err := DefaultScenario().Run(ctx, r)
	require.NoError(t, err)

	names := make([]string, 0, len(report.Steps))
	for _, s := range report.Steps {
		names = append(names, s.Name)
	}
	require.Equal(t, []string{
		"initialize",
		"monitor 1", "monitor 2", "monitor 3",
		"monitor after fill",
		"swap base in",
		"deposit",
		"withdraw",
	}, names)

	require.IsType(t, event.InitLog{}, report.Steps[0].Result.Events[0])
	first := report.Steps[1].Result.Events[0].(event.MonitorLog)
	require.Equal(t, uint16(6), first.Placed)
	second := report.Steps[2].Result.Events[0].(event.MonitorLog)
	require.Zero(t, second.Placed)
	require.Zero(t, second.Cancelled)

	filled := report.Steps[4].Result.Events[0].(event.MonitorLog)
	require.Equal(t, uint64(1_000*1_000_000), filled.FilledBaseOut)
	require.Zero(t, filled.FilledBaseIn)

	for _, s := range report.Steps {
		require.Len(t, s.Result.Logs, len(s.Result.Events))
		for _, line := range s.Result.Logs {
			_, err := event.Decode(line)
			require.NoError(t, err)
		}
	}

	require.Equal(t, shared.PoolStatusInitialized, report.Info.Status)
	require.NotEmpty(t, report.Orders)
	require.True(t, report.Price.GreaterThan(decimal.NewFromInt(1_900)), report.Price.String())
	require.True(t, report.Price.LessThan(decimal.NewFromInt(2_000)), report.Price.String())
}

func TestScenarioRejectsEmptyPool(t *testing.T) {
	s := DefaultScenario()
	s.QuoteAmount = 0
	_, err := s.Run(context.Background(), New())
	require.ErrorIs(t, err, shared.ErrInvalidInitialLiquidity)
}

func TestExecuteRollsBack(t *testing.T) {
	ctx := context.Background()
	r := New()
	p, err := r.CreateMarket(DefaultScenario().Market)
	require.NoError(t, err)
	user, err := r.NewWallet(p, 10_000_000_000, 20_000_000)
	require.NoError(t, err)

	initIx, err := instruction.NewInitializeInstruction(p.Keys, user, &instruction.Initialize{
		Nonce:           p.Keys.Nonce,
		InitBaseAmount:  1_000_000_000,
		InitQuoteAmount: 2_000_000,
	})
	require.NoError(t, err)
	foreign := solana.NewInstruction(solana.NewWallet().PublicKey(), solana.AccountMetaSlice{}, []byte{0})

	_, err = r.Execute(ctx, initIx, foreign)
	require.ErrorIs(t, err, shared.ErrInvalidAccountKey)

	balance, err := r.Balance(ctx, user.Base)
	require.NoError(t, err)
	require.Equal(t, uint64(10_000_000_000), balance)
	_, err = r.AmmInfo(ctx, p)
	require.Error(t, err)

	res, err := r.Execute(ctx, initIx)
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	require.True(t, res.Slot > 0)
}
