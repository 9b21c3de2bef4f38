package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/krazyTry/raydium-go/amm/shared"
	"github.com/krazyTry/raydium-go/venue"
)

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func TestLedger(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	mint, other, authority := newKey(), newKey(), newKey()
	alice, bob := newKey(), newKey()
	aliceAcc, bobAcc, otherAcc := newKey(), newKey(), newKey()

	require.NoError(t, l.CreateMint(mint, 6, authority))
	require.Error(t, l.CreateMint(mint, 6, authority))
	require.NoError(t, l.CreateMint(other, 9, authority))
	require.NoError(t, l.CreateAccount(aliceAcc, mint, alice))
	require.NoError(t, l.CreateAccount(bobAcc, mint, bob))
	require.NoError(t, l.CreateAccount(otherAcc, other, bob))

	require.NoError(t, l.MintTo(ctx, mint, aliceAcc, authority, 1_000))
	require.Error(t, l.MintTo(ctx, mint, aliceAcc, alice, 1), "only the mint authority mints")

	require.NoError(t, l.Transfer(ctx, aliceAcc, bobAcc, alice, 400))
	require.Error(t, l.Transfer(ctx, aliceAcc, bobAcc, bob, 1), "bob does not own alice's account")
	require.Error(t, l.Transfer(ctx, aliceAcc, bobAcc, alice, 601))
	require.Error(t, l.Transfer(ctx, bobAcc, otherAcc, bob, 1), "mints differ")

	require.NoError(t, l.Burn(ctx, bobAcc, mint, bob, 100))

	balance, err := l.Balance(ctx, aliceAcc)
	require.NoError(t, err)
	require.Equal(t, uint64(600), balance)
	balance, err = l.Balance(ctx, bobAcc)
	require.NoError(t, err)
	require.Equal(t, uint64(300), balance)

	info, err := l.Mint(ctx, mint)
	require.NoError(t, err)
	require.Equal(t, uint64(900), info.Supply)
	require.Equal(t, uint8(6), info.Decimals)

	snap := l.Snapshot()
	require.NoError(t, l.Transfer(ctx, aliceAcc, bobAcc, alice, 600))
	l.Restore(snap)
	balance, err = l.Balance(ctx, aliceAcc)
	require.NoError(t, err)
	require.Equal(t, uint64(600), balance)

	boom := errors.New("boom")
	l.InjectFault("transfer", boom)
	require.ErrorIs(t, l.Transfer(ctx, aliceAcc, bobAcc, alice, 1), boom)
	l.ClearFaults()
	require.NoError(t, l.Transfer(ctx, aliceAcc, bobAcc, alice, 1))
}

type bookFixture struct {
	ledger     *Ledger
	book       *Book
	market     venue.Market
	openOrders solana.PublicKey
	owner      solana.PublicKey
	base       solana.PublicKey
	quote      solana.PublicKey
	taker      solana.PublicKey
	takerBase  solana.PublicKey
	takerQuote solana.PublicKey
}

func newBookFixture(t *testing.T) *bookFixture {
	t.Helper()
	f := &bookFixture{
		ledger:     NewLedger(),
		openOrders: newKey(),
		owner:      newKey(),
		base:       newKey(),
		quote:      newKey(),
		taker:      newKey(),
		takerBase:  newKey(),
		takerQuote: newKey(),
	}
	f.book = NewBook(f.ledger)
	f.market = venue.Market{Key: newKey(), BaseMint: newKey(), QuoteMint: newKey(), BaseLotSize: 100, QuoteLotSize: 10}

	authority := newKey()
	require.NoError(t, f.ledger.CreateMint(f.market.BaseMint, 9, authority))
	require.NoError(t, f.ledger.CreateMint(f.market.QuoteMint, 6, authority))
	require.NoError(t, f.book.CreateMarket(f.market))
	for _, acc := range []struct{ key, mint, owner solana.PublicKey }{
		{f.base, f.market.BaseMint, f.owner},
		{f.quote, f.market.QuoteMint, f.owner},
		{f.takerBase, f.market.BaseMint, f.taker},
		{f.takerQuote, f.market.QuoteMint, f.taker},
	} {
		require.NoError(t, f.ledger.CreateAccount(acc.key, acc.mint, acc.owner))
		require.NoError(t, f.ledger.Airdrop(acc.key, 1_000_000))
	}
	return f
}

func (f *bookFixture) place(t *testing.T, side shared.Side, price, size uint64) uint64 {
	t.Helper()
	payer := f.quote
	if side == shared.SideAsk {
		payer = f.base
	}
	id, err := f.book.PlaceOrder(context.Background(), venue.PlaceOrderRequest{
		Market:     f.market.Key,
		OpenOrders: f.openOrders,
		Payer:      payer,
		Authority:  f.owner,
		Side:       side,
		Price:      price,
		Size:       size,
	})
	require.NoError(t, err)
	return id
}

func (f *bookFixture) settle(t *testing.T) {
	t.Helper()
	require.NoError(t, f.book.SettleFunds(context.Background(), venue.SettleRequest{
		Market:     f.market.Key,
		OpenOrders: f.openOrders,
		Authority:  f.owner,
		BaseVault:  f.base,
		QuoteVault: f.quote,
	}))
}

func TestBookPlaceCancelSettle(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(t)

	ask := f.place(t, shared.SideAsk, 50, 10) // 10 lots * 100 base atoms
	bid := f.place(t, shared.SideBid, 40, 10) // 40 * 10 lots * 10 quote atoms

	bal, err := f.book.Balances(ctx, f.market.Key, f.openOrders)
	require.NoError(t, err)
	require.Equal(t, venue.OpenOrdersBalances{BaseTotal: 1_000, QuoteTotal: 4_000}, bal)

	base, err := f.ledger.Balance(ctx, f.base)
	require.NoError(t, err)
	require.Equal(t, uint64(999_000), base)

	orders, err := f.book.OpenOrders(ctx, f.market.Key, f.openOrders)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	require.NoError(t, f.book.CancelOrder(ctx, f.market.Key, f.openOrders, f.owner, ask))
	require.ErrorIs(t, f.book.CancelOrder(ctx, f.market.Key, f.openOrders, f.owner, ask), venue.ErrOrderNotFound)
	require.Error(t, f.book.CancelOrder(ctx, f.market.Key, f.openOrders, newKey(), bid))

	bal, err = f.book.Balances(ctx, f.market.Key, f.openOrders)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), bal.BaseFree)

	f.settle(t)
	base, err = f.ledger.Balance(ctx, f.base)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), base)

	bal, err = f.book.Balances(ctx, f.market.Key, f.openOrders)
	require.NoError(t, err)
	require.Equal(t, venue.OpenOrdersBalances{QuoteTotal: 4_000}, bal)

	_, err = f.book.Market(ctx, newKey())
	require.ErrorIs(t, err, venue.ErrMarketNotFound)
}

func TestBookTake(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(t)
	f.place(t, shared.SideAsk, 60, 5)
	f.place(t, shared.SideAsk, 50, 5)
	f.place(t, shared.SideBid, 40, 5)

	// buy 7 lots: 5 at 50 then 2 at 60
	filled, err := f.book.Take(ctx, f.market.Key, shared.SideBid, 7, f.takerBase, f.takerQuote, f.taker)
	require.NoError(t, err)
	require.Equal(t, uint64(7), filled)

	fills, err := f.book.Fills(ctx, f.market.Key, f.openOrders)
	require.NoError(t, err)
	require.Len(t, fills, 2)
	require.Equal(t, uint64(50), fills[0].FilledPrice)
	require.Equal(t, uint64(60), fills[1].FilledPrice)
	require.Equal(t, uint64(2), fills[1].FilledSize)

	takerBase, err := f.ledger.Balance(ctx, f.takerBase)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_700), takerBase)
	takerQuote, err := f.ledger.Balance(ctx, f.takerQuote)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000-(50*5+60*2)*10), takerQuote)

	bal, err := f.book.Balances(ctx, f.market.Key, f.openOrders)
	require.NoError(t, err)
	require.Equal(t, uint64(300), bal.BaseTotal)
	require.Equal(t, uint64(3_700), bal.QuoteFree)

	orders, err := f.book.OpenOrders(ctx, f.market.Key, f.openOrders)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	f.settle(t)
	fills, err = f.book.Fills(ctx, f.market.Key, f.openOrders)
	require.NoError(t, err)
	require.Empty(t, fills)
}

func TestBookSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(t)
	f.place(t, shared.SideAsk, 50, 5)

	ledgerSnap, bookSnap := f.ledger.Snapshot(), f.book.Snapshot()
	f.place(t, shared.SideAsk, 55, 5)
	f.ledger.Restore(ledgerSnap)
	f.book.Restore(bookSnap)

	orders, err := f.book.OpenOrders(ctx, f.market.Key, f.openOrders)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	base, err := f.ledger.Balance(ctx, f.base)
	require.NoError(t, err)
	require.Equal(t, uint64(999_500), base)
}

func TestBookFaults(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(t)
	boom := errors.New("boom")
	f.book.InjectFault("place", boom)

	_, err := f.book.PlaceOrder(ctx, venue.PlaceOrderRequest{
		Market: f.market.Key, OpenOrders: f.openOrders, Payer: f.base, Authority: f.owner,
		Side: shared.SideAsk, Price: 1, Size: 1,
	})
	require.ErrorIs(t, err, boom)
	base, err := f.ledger.Balance(ctx, f.base)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), base)
}
