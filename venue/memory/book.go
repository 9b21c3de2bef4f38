package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/raydium-go/amm/shared"
	"github.com/krazyTry/raydium-go/venue"
)

// BookProgramID owns the escrow accounts of every in-memory market.
var BookProgramID = solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")

type restingOrder struct {
	venue.Order
	owner solana.PublicKey
}

type market struct {
	info        venue.Market
	baseEscrow  solana.PublicKey
	quoteEscrow solana.PublicKey
	orders      []restingOrder
	balances    map[solana.PublicKey]venue.OpenOrdersBalances
	fills       map[solana.PublicKey][]venue.Fill
	authorities map[solana.PublicKey]solana.PublicKey
}

func (m *market) clone() *market {
	out := &market{
		info:        m.info,
		baseEscrow:  m.baseEscrow,
		quoteEscrow: m.quoteEscrow,
		orders:      append([]restingOrder(nil), m.orders...),
		balances:    make(map[solana.PublicKey]venue.OpenOrdersBalances, len(m.balances)),
		fills:       make(map[solana.PublicKey][]venue.Fill, len(m.fills)),
		authorities: make(map[solana.PublicKey]solana.PublicKey, len(m.authorities)),
	}
	for k, v := range m.balances {
		out.balances[k] = v
	}
	for k, v := range m.fills {
		out.fills[k] = append([]venue.Fill(nil), v...)
	}
	for k, v := range m.authorities {
		out.authorities[k] = v
	}
	return out
}

// Book is an in-memory order book. It escrows funds through a Ledger and
// only matches when a taker is driven explicitly with Take.
type Book struct {
	faults

	mu      sync.Mutex
	ledger  *Ledger
	markets map[solana.PublicKey]*market
	nextID  uint64
}

var _ venue.OrderBook = (*Book)(nil)

func NewBook(ledger *Ledger) *Book {
	return &Book{ledger: ledger, markets: make(map[solana.PublicKey]*market), nextID: 1}
}

func escrowAddress(marketKey solana.PublicKey, seed string) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{marketKey[:], []byte(seed)}, BookProgramID)
	return addr, err
}

func (b *Book) CreateMarket(info venue.Market) error {
	if info.BaseLotSize == 0 || info.QuoteLotSize == 0 {
		return fmt.Errorf("lot sizes must be positive")
	}
	baseEscrow, err := escrowAddress(info.Key, "base_vault")
	if err != nil {
		return err
	}
	quoteEscrow, err := escrowAddress(info.Key, "quote_vault")
	if err != nil {
		return err
	}
	if err = b.ledger.CreateAccount(baseEscrow, info.BaseMint, BookProgramID); err != nil {
		return err
	}
	if err = b.ledger.CreateAccount(quoteEscrow, info.QuoteMint, BookProgramID); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.markets[info.Key] = &market{
		info:        info,
		baseEscrow:  baseEscrow,
		quoteEscrow: quoteEscrow,
		balances:    make(map[solana.PublicKey]venue.OpenOrdersBalances),
		fills:       make(map[solana.PublicKey][]venue.Fill),
		authorities: make(map[solana.PublicKey]solana.PublicKey),
	}
	return nil
}

func (b *Book) market(key solana.PublicKey) (*market, error) {
	m, ok := b.markets[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", venue.ErrMarketNotFound, key)
	}
	return m, nil
}

func (b *Book) Market(_ context.Context, key solana.PublicKey) (venue.Market, error) {
	if err := b.fault("market"); err != nil {
		return venue.Market{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	m, err := b.market(key)
	if err != nil {
		return venue.Market{}, err
	}
	return m.info, nil
}

func (m *market) checkAuthority(openOrders, authority solana.PublicKey) error {
	if owner, ok := m.authorities[openOrders]; ok && !owner.Equals(authority) {
		return fmt.Errorf("%s is not the authority of open orders %s", authority, openOrders)
	}
	m.authorities[openOrders] = authority
	return nil
}

func escrow(info venue.Market, side shared.Side, price, size uint64) (uint64, error) {
	var amount uint64
	switch side {
	case shared.SideAsk:
		amount = size * info.BaseLotSize
		if amount/info.BaseLotSize != size {
			return 0, fmt.Errorf("escrow overflow")
		}
	case shared.SideBid:
		amount = price * size
		if size != 0 && amount/size != price {
			return 0, fmt.Errorf("escrow overflow")
		}
		lots := amount
		amount = lots * info.QuoteLotSize
		if amount/info.QuoteLotSize != lots {
			return 0, fmt.Errorf("escrow overflow")
		}
	default:
		return 0, fmt.Errorf("unknown side %d", side)
	}
	return amount, nil
}

func (b *Book) PlaceOrder(ctx context.Context, req venue.PlaceOrderRequest) (uint64, error) {
	if err := b.fault("place"); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	m, err := b.market(req.Market)
	if err != nil {
		return 0, err
	}
	if req.Price == 0 || req.Size == 0 {
		return 0, fmt.Errorf("price and size must be positive")
	}
	amount, err := escrow(m.info, req.Side, req.Price, req.Size)
	if err != nil {
		return 0, err
	}
	if err = m.checkAuthority(req.OpenOrders, req.Authority); err != nil {
		return 0, err
	}
	dst := m.quoteEscrow
	if req.Side == shared.SideAsk {
		dst = m.baseEscrow
	}
	if err = b.ledger.Transfer(ctx, req.Payer, dst, req.Authority, amount); err != nil {
		return 0, err
	}

	bal := m.balances[req.OpenOrders]
	if req.Side == shared.SideAsk {
		bal.BaseTotal += amount
	} else {
		bal.QuoteTotal += amount
	}
	m.balances[req.OpenOrders] = bal

	id := b.nextID
	b.nextID++
	m.orders = append(m.orders, restingOrder{
		Order: venue.Order{
			ID:            id,
			ClientID:      req.ClientID,
			Side:          req.Side,
			Price:         req.Price,
			RemainingSize: req.Size,
		},
		owner: req.OpenOrders,
	})
	return id, nil
}

func (b *Book) CancelOrder(_ context.Context, marketKey, openOrders, authority solana.PublicKey, orderID uint64) error {
	if err := b.fault("cancel"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	m, err := b.market(marketKey)
	if err != nil {
		return err
	}
	for i, o := range m.orders {
		if o.ID != orderID || !o.owner.Equals(openOrders) {
			continue
		}
		if err = m.checkAuthority(openOrders, authority); err != nil {
			return err
		}
		locked, err := escrow(m.info, o.Side, o.Price, o.RemainingSize)
		if err != nil {
			return err
		}
		bal := m.balances[openOrders]
		if o.Side == shared.SideAsk {
			bal.BaseFree += locked
		} else {
			bal.QuoteFree += locked
		}
		m.balances[openOrders] = bal
		m.orders = append(m.orders[:i], m.orders[i+1:]...)
		return nil
	}
	return fmt.Errorf("%w: %d", venue.ErrOrderNotFound, orderID)
}

func (b *Book) OpenOrders(_ context.Context, marketKey, openOrders solana.PublicKey) ([]venue.Order, error) {
	if err := b.fault("open_orders"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	m, err := b.market(marketKey)
	if err != nil {
		return nil, err
	}
	var out []venue.Order
	for _, o := range m.orders {
		if o.owner.Equals(openOrders) {
			out = append(out, o.Order)
		}
	}
	return out, nil
}

func (b *Book) Fills(_ context.Context, marketKey, openOrders solana.PublicKey) ([]venue.Fill, error) {
	if err := b.fault("fills"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	m, err := b.market(marketKey)
	if err != nil {
		return nil, err
	}
	return append([]venue.Fill(nil), m.fills[openOrders]...), nil
}

func (b *Book) Balances(_ context.Context, marketKey, openOrders solana.PublicKey) (venue.OpenOrdersBalances, error) {
	if err := b.fault("balances"); err != nil {
		return venue.OpenOrdersBalances{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	m, err := b.market(marketKey)
	if err != nil {
		return venue.OpenOrdersBalances{}, err
	}
	return m.balances[openOrders], nil
}

func (b *Book) SettleFunds(ctx context.Context, req venue.SettleRequest) error {
	if err := b.fault("settle"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	m, err := b.market(req.Market)
	if err != nil {
		return err
	}
	if err = m.checkAuthority(req.OpenOrders, req.Authority); err != nil {
		return err
	}
	bal := m.balances[req.OpenOrders]
	if bal.BaseFree > 0 {
		if err = b.ledger.Transfer(ctx, m.baseEscrow, req.BaseVault, BookProgramID, bal.BaseFree); err != nil {
			return err
		}
		bal.BaseTotal -= bal.BaseFree
		bal.BaseFree = 0
	}
	if bal.QuoteFree > 0 {
		if err = b.ledger.Transfer(ctx, m.quoteEscrow, req.QuoteVault, BookProgramID, bal.QuoteFree); err != nil {
			return err
		}
		bal.QuoteTotal -= bal.QuoteFree
		bal.QuoteFree = 0
	}
	m.balances[req.OpenOrders] = bal
	delete(m.fills, req.OpenOrders)
	return nil
}

// Take crosses resting orders with a taker of size base lots. A buying taker
// (SideBid) lifts asks from the lowest price, a selling taker hits bids from
// the highest price. It returns the filled size.
func (b *Book) Take(ctx context.Context, marketKey solana.PublicKey, side shared.Side, size uint64, takerBase, takerQuote, taker solana.PublicKey) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, err := b.market(marketKey)
	if err != nil {
		return 0, err
	}

	makerSide := shared.SideAsk
	if side == shared.SideAsk {
		makerSide = shared.SideBid
	}
	idx := make([]int, 0, len(m.orders))
	for i, o := range m.orders {
		if o.Side == makerSide {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(i, j int) bool {
		pi, pj := m.orders[idx[i]].Price, m.orders[idx[j]].Price
		if makerSide == shared.SideAsk {
			return pi < pj
		}
		return pi > pj
	})

	var filled uint64
	for _, i := range idx {
		if filled == size {
			break
		}
		o := &m.orders[i]
		qty := o.RemainingSize
		if size-filled < qty {
			qty = size - filled
		}
		base := qty * m.info.BaseLotSize
		quote := o.Price * qty * m.info.QuoteLotSize

		bal := m.balances[o.owner]
		if makerSide == shared.SideAsk {
			if err = b.ledger.Transfer(ctx, takerQuote, m.quoteEscrow, taker, quote); err != nil {
				return filled, err
			}
			if err = b.ledger.Transfer(ctx, m.baseEscrow, takerBase, BookProgramID, base); err != nil {
				return filled, err
			}
			bal.BaseTotal -= base
			bal.QuoteTotal += quote
			bal.QuoteFree += quote
		} else {
			if err = b.ledger.Transfer(ctx, takerBase, m.baseEscrow, taker, base); err != nil {
				return filled, err
			}
			if err = b.ledger.Transfer(ctx, m.quoteEscrow, takerQuote, BookProgramID, quote); err != nil {
				return filled, err
			}
			bal.QuoteTotal -= quote
			bal.BaseTotal += base
			bal.BaseFree += base
		}
		m.balances[o.owner] = bal
		m.fills[o.owner] = append(m.fills[o.owner], venue.Fill{
			OrderID:     o.ID,
			Side:        o.Side,
			FilledSize:  qty,
			FilledPrice: o.Price,
		})
		o.RemainingSize -= qty
		filled += qty
	}

	live := m.orders[:0]
	for _, o := range m.orders {
		if o.RemainingSize > 0 {
			live = append(live, o)
		}
	}
	m.orders = live
	return filled, nil
}

type BookSnapshot struct {
	markets map[solana.PublicKey]*market
	nextID  uint64
}

func (b *Book) Snapshot() BookSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := BookSnapshot{markets: make(map[solana.PublicKey]*market, len(b.markets)), nextID: b.nextID}
	for k, m := range b.markets {
		s.markets[k] = m.clone()
	}
	return s
}

func (b *Book) Restore(s BookSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.markets = make(map[solana.PublicKey]*market, len(s.markets))
	for k, m := range s.markets {
		b.markets[k] = m.clone()
	}
	b.nextID = s.nextID
}
