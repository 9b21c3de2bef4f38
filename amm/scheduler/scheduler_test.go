package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/krazyTry/raydium-go/amm/shared"
	"github.com/krazyTry/raydium-go/venue"
	"github.com/krazyTry/raydium-go/venue/memory"
)

type testPool struct {
	ledger *memory.Ledger
	book   *memory.Book
	pool   PoolAccounts
	params Params
	taker  solana.PublicKey
	takerB solana.PublicKey
	takerQ solana.PublicKey
}

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func newTestPool(t *testing.T, base, quote uint64) *testPool {
	t.Helper()
	ledger := memory.NewLedger()
	book := memory.NewBook(ledger)

	baseMint, quoteMint, mintAuthority := newKey(), newKey(), newKey()
	require.NoError(t, ledger.CreateMint(baseMint, 9, mintAuthority))
	require.NoError(t, ledger.CreateMint(quoteMint, 6, mintAuthority))

	p := &testPool{
		ledger: ledger,
		book:   book,
		pool: PoolAccounts{
			Amm:        newKey(),
			Authority:  newKey(),
			Market:     newKey(),
			OpenOrders: newKey(),
			BaseVault:  newKey(),
			QuoteVault: newKey(),
		},
		params: Params{
			Depth:               3,
			SpreadStepBps:       20,
			LadderShareBps:      2_000,
			RefreshToleranceBps: 5,
			MinOrderSize:        1,
			BaseLotSize:         1_000_000,
			QuoteLotSize:        1,
		},
		taker:  newKey(),
		takerB: newKey(),
		takerQ: newKey(),
	}
	require.NoError(t, book.CreateMarket(venue.Market{
		Key:          p.pool.Market,
		BaseMint:     baseMint,
		QuoteMint:    quoteMint,
		BaseLotSize:  p.params.BaseLotSize,
		QuoteLotSize: p.params.QuoteLotSize,
	}))
	require.NoError(t, ledger.CreateAccount(p.pool.BaseVault, baseMint, p.pool.Authority))
	require.NoError(t, ledger.CreateAccount(p.pool.QuoteVault, quoteMint, p.pool.Authority))
	require.NoError(t, ledger.Airdrop(p.pool.BaseVault, base))
	require.NoError(t, ledger.Airdrop(p.pool.QuoteVault, quote))

	require.NoError(t, ledger.CreateAccount(p.takerB, baseMint, p.taker))
	require.NoError(t, ledger.CreateAccount(p.takerQ, quoteMint, p.taker))
	require.NoError(t, ledger.Airdrop(p.takerB, 10_000_000_000))
	require.NoError(t, ledger.Airdrop(p.takerQ, 10_000_000_000))
	return p
}

func (p *testPool) scheduler() *Scheduler {
	return New(p.book, p.ledger, nil)
}

func TestBuildLadder(t *testing.T) {
	p := newTestPool(t, 0, 0)
	ladder, err := BuildLadder(p.pool.Amm, p.params, Reserves{Base: 1_000_000_000, Quote: 2_000_000_000})
	require.NoError(t, err)
	require.Equal(t, uint64(2_000_000), ladder.MidPrice)

	require.Len(t, ladder.Asks, 3)
	require.Len(t, ladder.Bids, 3)
	require.Equal(t, []uint64{100, 66, 33}, []uint64{ladder.Asks[0].Size, ladder.Asks[1].Size, ladder.Asks[2].Size})
	require.Equal(t, []uint64{100, 66, 33}, []uint64{ladder.Bids[0].Size, ladder.Bids[1].Size, ladder.Bids[2].Size})
	require.Equal(t, uint64(2_004_000), ladder.Asks[0].Price)
	require.Equal(t, uint64(1_996_000), ladder.Bids[0].Price)

	for i := 1; i < 3; i++ {
		require.Greater(t, ladder.Asks[i].Price, ladder.Asks[i-1].Price)
		require.Less(t, ladder.Bids[i].Price, ladder.Bids[i-1].Price)
	}
	require.NotEqual(t, ladder.Asks[0].ClientID, ladder.Bids[0].ClientID)
	require.Equal(t, ClientOrderID(p.pool.Amm, shared.SideAsk, 1), ladder.Asks[0].ClientID)

	again, err := BuildLadder(p.pool.Amm, p.params, Reserves{Base: 1_000_000_000, Quote: 2_000_000_000})
	require.NoError(t, err)
	require.Equal(t, ladder, again)

	// thin reserves drop levels under the minimum size
	thin, err := BuildLadder(p.pool.Amm, p.params, Reserves{Base: 20_000_000, Quote: 40_000_000})
	require.NoError(t, err)
	require.Len(t, thin.Asks, 2)
	require.Len(t, thin.Bids, 2)
}

func TestDiff(t *testing.T) {
	ladder := &Ladder{
		Bids: []Level{{Side: shared.SideBid, Index: 1, Price: 1_000, Size: 10}},
		Asks: []Level{{Side: shared.SideAsk, Index: 1, Price: 1_100, Size: 10}, {Side: shared.SideAsk, Index: 2, Price: 1_200, Size: 5}},
	}
	resting := []venue.Order{
		{ID: 1, Side: shared.SideBid, Price: 1_000, RemainingSize: 10}, // exact
		{ID: 2, Side: shared.SideAsk, Price: 1_100, RemainingSize: 7},  // partially filled
		{ID: 3, Side: shared.SideAsk, Price: 1_201, RemainingSize: 5},  // within 10 bps
		{ID: 4, Side: shared.SideAsk, Price: 1_500, RemainingSize: 5},  // stale
	}
	plan := Diff(ladder, resting, 10)
	require.Equal(t, []uint64{1, 3}, []uint64{plan.Keep[0].ID, plan.Keep[1].ID})
	require.Len(t, plan.Cancel, 2)
	require.Equal(t, uint64(2), plan.Cancel[0].ID)
	require.Equal(t, uint64(4), plan.Cancel[1].ID)
	require.Len(t, plan.Place, 1)
	require.Equal(t, uint64(1_100), plan.Place[0].Price)

	require.True(t, Diff(&Ladder{}, nil, 10).Empty())
}

func TestStepStableFixedPoint(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, 1_000_000_000, 2_000_000_000)
	s := p.scheduler()

	first, err := s.Step(ctx, p.pool, p.params, NewBudget(32), false)
	require.NoError(t, err)
	require.Equal(t, 6, first.Placed)
	require.Equal(t, 0, first.Failed)

	resting, err := p.book.OpenOrders(ctx, p.pool.Market, p.pool.OpenOrders)
	require.NoError(t, err)
	require.Len(t, resting, 6)

	budget := NewBudget(32)
	second, err := s.Step(ctx, p.pool, p.params, budget, false)
	require.NoError(t, err)
	require.Equal(t, 0, second.Calls())
	require.Equal(t, 6, second.Kept)
	require.Equal(t, uint64(0), budget.Used())
	require.Equal(t, first.Reserves.Total, second.Reserves.Total)
}

// recordingBook checks every placement against the vault balance at the
// moment of the call.
type recordingBook struct {
	*memory.Book
	t      *testing.T
	ledger *memory.Ledger
	params Params
	placed int
}

func (b *recordingBook) PlaceOrder(ctx context.Context, req venue.PlaceOrderRequest) (uint64, error) {
	amount, err := Escrow(req.Side, req.Price, req.Size, b.params)
	require.NoError(b.t, err)
	balance, err := b.ledger.Balance(ctx, req.Payer)
	require.NoError(b.t, err)
	require.LessOrEqual(b.t, amount, balance)
	b.placed++
	return b.Book.PlaceOrder(ctx, req)
}

func TestStepNeverOverCommits(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, 1_000_000_000, 2_000_000_000)
	_, err := p.scheduler().Step(ctx, p.pool, p.params, NewBudget(32), false)
	require.NoError(t, err)

	// the old orders cannot be cancelled, so the wider ladder only fits in part
	p.params.LadderShareBps = shared.BasisPointMax
	p.book.InjectFault("cancel", errors.New("venue busy"))

	rec := &recordingBook{Book: p.book, t: t, ledger: p.ledger, params: p.params}
	res, err := New(rec, p.ledger, nil).Step(ctx, p.pool, p.params, NewBudget(32), false)
	require.NoError(t, err)
	require.Equal(t, 6, res.Failed)
	require.Equal(t, 2, res.Skipped)
	require.Equal(t, 4, res.Placed)
	require.Equal(t, res.Placed, rec.placed)
}

func TestStepFoldsFillsBack(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, 1_000_000_000, 2_000_000_000)
	s := p.scheduler()

	_, err := s.Step(ctx, p.pool, p.params, NewBudget(32), false)
	require.NoError(t, err)

	// a taker lifts the whole first ask level
	filled, err := p.book.Take(ctx, p.pool.Market, shared.SideBid, 100, p.takerB, p.takerQ, p.taker)
	require.NoError(t, err)
	require.Equal(t, uint64(100), filled)

	res, err := s.Step(ctx, p.pool, p.params, NewBudget(32), false)
	require.NoError(t, err)
	require.Len(t, res.Fills, 1)
	require.Equal(t, uint64(100_000_000), res.Filled.BaseOut)
	require.Equal(t, uint64(200_400_000), res.Filled.QuoteIn)
	require.Equal(t, uint64(900_000_000), res.Reserves.Total.Base)
	require.Equal(t, uint64(2_200_400_000), res.Reserves.Total.Quote)
	require.Greater(t, res.Placed, 0)

	// proceeds were settled into the vault
	fills, err := p.book.Fills(ctx, p.pool.Market, p.pool.OpenOrders)
	require.NoError(t, err)
	require.Empty(t, fills)
	balances, err := p.book.Balances(ctx, p.pool.Market, p.pool.OpenOrders)
	require.NoError(t, err)
	require.Zero(t, balances.QuoteFree)
}

func TestExecuteReleaseReturnsSettledFills(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, 1_000_000_000, 2_000_000_000)
	s := p.scheduler()
	_, err := s.Step(ctx, p.pool, p.params, NewBudget(32), false)
	require.NoError(t, err)
	_, err = p.book.Take(ctx, p.pool.Market, shared.SideBid, 100, p.takerB, p.takerQ, p.taker)
	require.NoError(t, err)

	filled, err := s.ExecuteRelease(ctx, p.pool, p.params, Release{Settle: true}, NewBudget(32))
	require.NoError(t, err)
	require.Equal(t, FillTotals{BaseOut: 100_000_000, QuoteIn: 200_400_000}, filled)

	fills, err := p.book.Fills(ctx, p.pool.Market, p.pool.OpenOrders)
	require.NoError(t, err)
	require.Empty(t, fills)

	_, err = s.ExecuteRelease(ctx, p.pool, p.params, Release{Settle: true}, NewBudget(0))
	require.ErrorIs(t, err, shared.ErrComputeBudgetExceeded)
}

func TestStepKeepsSettledFillsOnFailure(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, 1_000_000_000, 2_000_000_000)
	s := p.scheduler()
	_, err := s.Step(ctx, p.pool, p.params, NewBudget(32), false)
	require.NoError(t, err)
	_, err = p.book.Take(ctx, p.pool.Market, shared.SideBid, 100, p.takerB, p.takerQ, p.taker)
	require.NoError(t, err)

	p.book.InjectFault("open_orders", errors.New("rpc timeout"))
	res, err := s.Step(ctx, p.pool, p.params, NewBudget(32), false)
	require.ErrorIs(t, err, shared.ErrExternalCallFailed)
	require.NotNil(t, res)
	require.Equal(t, uint64(100_000_000), res.Filled.BaseOut)
	require.Equal(t, uint64(200_400_000), res.Filled.QuoteIn)
}

func TestStepReadFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, 1_000_000_000, 2_000_000_000)
	p.book.InjectFault("open_orders", errors.New("rpc timeout"))

	_, err := p.scheduler().Step(ctx, p.pool, p.params, NewBudget(32), false)
	require.ErrorIs(t, err, shared.ErrExternalCallFailed)

	balances, err := p.book.Balances(ctx, p.pool.Market, p.pool.OpenOrders)
	require.NoError(t, err)
	require.Zero(t, balances.BaseTotal)
}

func TestStepPlaceFailureIsSkipped(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, 1_000_000_000, 2_000_000_000)
	p.book.InjectFault("place", errors.New("book full"))

	res, err := p.scheduler().Step(ctx, p.pool, p.params, NewBudget(32), false)
	require.NoError(t, err)
	require.Equal(t, 6, res.Failed)
	require.Equal(t, 0, res.Placed)

	p.book.ClearFaults()
	res, err = p.scheduler().Step(ctx, p.pool, p.params, NewBudget(32), false)
	require.NoError(t, err)
	require.Equal(t, 6, res.Placed)
}

func TestStepBudgetDefers(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, 1_000_000_000, 2_000_000_000)

	res, err := p.scheduler().Step(ctx, p.pool, p.params, NewBudget(4), false)
	require.NoError(t, err)
	require.Equal(t, 4, res.Placed)
	require.Equal(t, 2, res.Deferred)
}

func TestStepWindDownCancelsEverything(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, 1_000_000_000, 2_000_000_000)
	s := p.scheduler()

	_, err := s.Step(ctx, p.pool, p.params, NewBudget(32), false)
	require.NoError(t, err)

	res, err := s.Step(ctx, p.pool, p.params, NewBudget(32), true)
	require.NoError(t, err)
	require.Equal(t, 6, res.Cancelled)

	resting, err := p.book.OpenOrders(ctx, p.pool.Market, p.pool.OpenOrders)
	require.NoError(t, err)
	require.Empty(t, resting)
	base, err := p.ledger.Balance(ctx, p.pool.BaseVault)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000_000), base)
}

func TestPlanRelease(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, 1_000_000_000, 2_000_000_000)
	s := p.scheduler()
	_, err := s.Step(ctx, p.pool, p.params, NewBudget(32), false)
	require.NoError(t, err)

	snap, err := s.Reserves(ctx, p.pool)
	require.NoError(t, err)
	resting, err := s.Resting(ctx, p.pool)
	require.NoError(t, err)

	// vault holds 801M base; asking 850M needs the outermost asks
	plan, err := PlanRelease(snap, p.pool, resting, p.params, 850_000_000, 0, 32)
	require.NoError(t, err)
	require.True(t, plan.Settle)
	require.Len(t, plan.Cancel, 2)
	require.Equal(t, uint64(2_012_000), plan.Cancel[0].Price)

	_, err = PlanRelease(snap, p.pool, resting, p.params, 850_000_000, 0, 2)
	require.ErrorIs(t, err, shared.ErrWithdrawalExceedsAvailable)

	_, err = PlanRelease(snap, p.pool, resting, p.params, 1_000_000_001, 0, 32)
	require.ErrorIs(t, err, shared.ErrWithdrawalExceedsAvailable)

	filled, err := s.ExecuteRelease(ctx, p.pool, p.params, plan, NewBudget(32))
	require.NoError(t, err)
	require.Equal(t, FillTotals{}, filled)
	base, err := p.ledger.Balance(ctx, p.pool.BaseVault)
	require.NoError(t, err)
	require.Equal(t, uint64(900_000_000), base)
}
