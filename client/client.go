// Package client reads deployed pools over Solana RPC and builds swap
// transactions against them.
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/krazyTry/raydium-go/amm"
	"github.com/krazyTry/raydium-go/amm/instruction"
	"github.com/krazyTry/raydium-go/amm/math"
	"github.com/krazyTry/raydium-go/amm/shared"
	"github.com/krazyTry/raydium-go/amm/state"
)

type Client struct {
	rpcClient *rpc.Client
	wsClient  *ws.Client
	network   amm.Network
	logger    *zap.Logger
}

type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithWebsocket enables the transaction senders.
func WithWebsocket(wsClient *ws.Client) Option {
	return func(c *Client) { c.wsClient = wsClient }
}

func New(rpcClient *rpc.Client, network amm.Network, opts ...Option) *Client {
	c := &Client{rpcClient: rpcClient, network: network}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.logger = c.logger.Named("client")
	return c
}

func (c *Client) Network() amm.Network { return c.network }

// PoolState is a decoded pool with its vault balances.
type PoolState struct {
	Keys         instruction.PoolKeys
	Info         *state.AmmInfo
	Config       *state.AmmConfig
	TargetOrders *state.TargetOrders
	VaultBase    uint64
	VaultQuote   uint64
}

// Reserves estimates total reserves from the vaults and the escrow of the
// last published ladder. Fills since that ladder are not visible.
func (p *PoolState) Reserves() (base, quote uint64, err error) {
	base, quote = p.VaultBase, p.VaultQuote
	for _, o := range p.TargetOrders.Asks {
		escrow, err := math.BaseEscrow(o.Size, p.Info.BaseLotSize)
		if err != nil {
			return 0, 0, err
		}
		if base, err = math.CheckedAdd(base, escrow); err != nil {
			return 0, 0, err
		}
	}
	for _, o := range p.TargetOrders.Bids {
		escrow, err := math.QuoteEscrow(o.Price, o.Size, p.Info.QuoteLotSize)
		if err != nil {
			return 0, 0, err
		}
		if quote, err = math.CheckedAdd(quote, escrow); err != nil {
			return 0, 0, err
		}
	}
	if base < p.Info.ProtocolFeesBase || quote < p.Info.ProtocolFeesQuote {
		return 0, 0, fmt.Errorf("%w: protocol fees exceed reserves", shared.ErrInvalidAccountData)
	}
	return base - p.Info.ProtocolFeesBase, quote - p.Info.ProtocolFeesQuote, nil
}

// Price is the pool price in quote tokens per base token.
func (p *PoolState) Price() (decimal.Decimal, error) {
	base, quote, err := p.Reserves()
	if err != nil {
		return decimal.Zero, err
	}
	return math.UIPrice(base, quote, p.Info.BaseDecimals, p.Info.QuoteDecimals), nil
}

func (c *Client) loadRecord(ctx context.Context, key solana.PublicKey) ([]byte, error) {
	out, err := GetAccountInfo(ctx, c.rpcClient, key)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", key, state.ErrAccountNotFound)
		}
		return nil, err
	}
	if out == nil || out.Value == nil {
		return nil, fmt.Errorf("%s: %w", key, state.ErrAccountNotFound)
	}
	if !out.Value.Owner.Equals(c.network.ProgramID) {
		return nil, fmt.Errorf("%w: %s owned by %s", shared.ErrInvalidOwner, key, out.Value.Owner)
	}
	return out.Value.Data.GetBinary(), nil
}

func (c *Client) GetAmmInfo(ctx context.Context, key solana.PublicKey) (*state.AmmInfo, error) {
	data, err := c.loadRecord(ctx, key)
	if err != nil {
		return nil, err
	}
	return state.DecodeAmmInfo(data)
}

func (c *Client) GetAmmConfig(ctx context.Context, key solana.PublicKey) (*state.AmmConfig, error) {
	data, err := c.loadRecord(ctx, key)
	if err != nil {
		return nil, err
	}
	return state.DecodeAmmConfig(data)
}

func (c *Client) GetTargetOrders(ctx context.Context, key solana.PublicKey) (*state.TargetOrders, error) {
	data, err := c.loadRecord(ctx, key)
	if err != nil {
		return nil, err
	}
	return state.DecodeTargetOrders(data)
}

// Pools lists pool addresses, optionally restricted to one market.
func (c *Client) Pools(ctx context.Context, market solana.PublicKey) ([]solana.PublicKey, error) {
	out, err := c.rpcClient.GetProgramAccountsWithOpts(ctx, c.network.ProgramID,
		GenProgramAccountFilter(state.AmmInfoDiscriminator, market, state.AmmInfoMarketOffset))
	if err != nil {
		return nil, err
	}
	keys := make([]solana.PublicKey, 0, len(out))
	for _, v := range out {
		keys = append(keys, v.Pubkey)
	}
	return keys, nil
}

// PoolKeys rebuilds the instruction accounts of a pool from its record.
func (c *Client) PoolKeys(ammKey solana.PublicKey, info *state.AmmInfo) (instruction.PoolKeys, error) {
	authority, nonce, err := amm.DeriveAuthority(c.network.ProgramID)
	if err != nil {
		return instruction.PoolKeys{}, err
	}
	if nonce != info.Nonce {
		return instruction.PoolKeys{}, fmt.Errorf("%w: nonce %d, derived %d", shared.ErrInvalidAccountKey, info.Nonce, nonce)
	}
	return instruction.PoolKeys{
		ProgramID:    c.network.ProgramID,
		Amm:          ammKey,
		Config:       info.Config,
		TargetOrders: info.TargetOrders,
		Authority:    authority,
		Nonce:        nonce,
		OpenOrders:   info.OpenOrders,
		Market:       info.Market,
		BaseMint:     info.BaseMint,
		QuoteMint:    info.QuoteMint,
		LpMint:       info.LpMint,
		BaseVault:    info.BaseVault,
		QuoteVault:   info.QuoteVault,
	}, nil
}

// GetPool reads a pool record, its config, its ladder and its vaults.
func (c *Client) GetPool(ctx context.Context, ammKey solana.PublicKey) (*PoolState, error) {
	info, err := c.GetAmmInfo(ctx, ammKey)
	if err != nil {
		return nil, fmt.Errorf("amm info: %w", err)
	}
	keys, err := c.PoolKeys(ammKey, info)
	if err != nil {
		return nil, err
	}
	config, err := c.GetAmmConfig(ctx, info.Config)
	if err != nil {
		return nil, fmt.Errorf("amm config: %w", err)
	}
	targets, err := c.GetTargetOrders(ctx, info.TargetOrders)
	if err != nil {
		return nil, fmt.Errorf("target orders: %w", err)
	}
	balances, err := GetTokenBalances(ctx, c.rpcClient, info.BaseVault, info.QuoteVault)
	if err != nil {
		return nil, fmt.Errorf("vaults: %w", err)
	}

	c.logger.Debug("pool loaded",
		zap.String("amm", ammKey.String()),
		zap.String("status", info.Status.String()),
		zap.Uint64("vault_base", balances[0]),
		zap.Uint64("vault_quote", balances[1]),
	)
	return &PoolState{
		Keys:         keys,
		Info:         info,
		Config:       config,
		TargetOrders: targets,
		VaultBase:    balances[0],
		VaultQuote:   balances[1],
	}, nil
}
