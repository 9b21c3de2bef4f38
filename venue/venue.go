// Package venue defines the collaborators the pool talks to: a token program
// moving balances and an order book holding the pool's resting orders.
package venue

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/raydium-go/amm/shared"
)

var (
	ErrMarketNotFound = errors.New("market not found")
	ErrOrderNotFound  = errors.New("order not found")
)

type TokenProgram interface {
	Transfer(ctx context.Context, from, to, authority solana.PublicKey, amount uint64) error
	MintTo(ctx context.Context, mint, to, authority solana.PublicKey, amount uint64) error
	Burn(ctx context.Context, account, mint, authority solana.PublicKey, amount uint64) error
	Balance(ctx context.Context, account solana.PublicKey) (uint64, error)
	Mint(ctx context.Context, mint solana.PublicKey) (MintInfo, error)
}

type MintInfo struct {
	Decimals      uint8
	Supply        uint64
	MintAuthority solana.PublicKey
}

type Market struct {
	Key          solana.PublicKey
	BaseMint     solana.PublicKey
	QuoteMint    solana.PublicKey
	BaseLotSize  uint64
	QuoteLotSize uint64
}

// Order is a resting order. Price is in quote lots per base lot and sizes
// are in base lots.
type Order struct {
	ID            uint64
	ClientID      uint64
	Side          shared.Side
	Price         uint64
	RemainingSize uint64
}

type Fill struct {
	OrderID     uint64
	Side        shared.Side
	FilledSize  uint64
	FilledPrice uint64
}

// OpenOrdersBalances mirrors an open-orders account: Total includes funds
// locked in orders and Free funds waiting to be settled.
type OpenOrdersBalances struct {
	BaseFree   uint64
	BaseTotal  uint64
	QuoteFree  uint64
	QuoteTotal uint64
}

type PlaceOrderRequest struct {
	Market     solana.PublicKey
	OpenOrders solana.PublicKey
	// Payer is the vault the escrow is pulled from.
	Payer     solana.PublicKey
	Authority solana.PublicKey
	Side      shared.Side
	Price     uint64
	Size      uint64
	ClientID  uint64
}

type SettleRequest struct {
	Market     solana.PublicKey
	OpenOrders solana.PublicKey
	Authority  solana.PublicKey
	BaseVault  solana.PublicKey
	QuoteVault solana.PublicKey
}

type OrderBook interface {
	Market(ctx context.Context, market solana.PublicKey) (Market, error)
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (uint64, error)
	CancelOrder(ctx context.Context, market, openOrders, authority solana.PublicKey, orderID uint64) error
	OpenOrders(ctx context.Context, market, openOrders solana.PublicKey) ([]Order, error)
	// Fills returns fills whose proceeds have not been settled yet.
	Fills(ctx context.Context, market, openOrders solana.PublicKey) ([]Fill, error)
	Balances(ctx context.Context, market, openOrders solana.PublicKey) (OpenOrdersBalances, error)
	SettleFunds(ctx context.Context, req SettleRequest) error
}
