package client

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/stretchr/testify/require"

	"github.com/krazyTry/raydium-go/amm"
	"github.com/krazyTry/raydium-go/amm/shared"
	"github.com/krazyTry/raydium-go/amm/state"
)

func TestDecodeTokenAccount(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()

	data := make([]byte, 165)
	copy(data[0:32], mint[:])
	copy(data[32:64], owner[:])
	binary.LittleEndian.PutUint64(data[64:72], 42_000)
	data[108] = uint8(AccountStateFrozen)

	acc, err := DecodeTokenAccount(data)
	require.NoError(t, err)
	require.Equal(t, mint, acc.Mint)
	require.Equal(t, owner, acc.Owner)
	require.Equal(t, uint64(42_000), acc.Amount)
	require.True(t, acc.IsInitialized)
	require.True(t, acc.IsFrozen)

	_, err = DecodeTokenAccount(data[:40])
	require.Error(t, err)
}

func TestParsedTokenAmount(t *testing.T) {
	raw := []byte(`{
		"parsed": {
			"info": {
				"isNative": false,
				"mint": "So11111111111111111111111111111111111111112",
				"owner": "5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1",
				"state": "initialized",
				"tokenAmount": {"amount": "18446744073709551615", "decimals": 9, "uiAmount": 0.0, "uiAmountString": "0"}
			},
			"type": "account"
		},
		"program": "spl-token",
		"space": 165
	}`)
	mint, amount, ok := ParsedTokenAmount(raw)
	require.True(t, ok)
	require.Equal(t, solana.WrappedSol.String(), mint)
	require.Equal(t, uint64(18446744073709551615), amount)

	_, _, ok = ParsedTokenAmount([]byte(`{"parsed":{"type":"mint"}}`))
	require.False(t, ok)
}

func TestGenProgramAccountFilter(t *testing.T) {
	opt := GenProgramAccountFilter(state.AmmInfoDiscriminator, solana.PublicKey{}, state.AmmInfoMarketOffset)
	require.Len(t, opt.Filters, 1)
	require.Equal(t, solana.Base58(state.AmmInfoDiscriminator[:]), opt.Filters[0].Memcmp.Bytes)

	market := solana.NewWallet().PublicKey()
	opt = GenProgramAccountFilter(state.AmmInfoDiscriminator, market, state.AmmInfoMarketOffset)
	require.Len(t, opt.Filters, 2)
	require.Equal(t, uint64(state.AmmInfoMarketOffset), opt.Filters[1].Memcmp.Offset)
	require.Equal(t, solana.Base58(market[:]), opt.Filters[1].Memcmp.Bytes)
}

func TestMergeInstructions(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	wsol, _, err := solana.FindAssociatedTokenAddress(owner, solana.WrappedSol)
	require.NoError(t, err)

	body := solana.NewInstruction(amm.DefaultNetwork().ProgramID, solana.AccountMetaSlice{}, []byte{9})
	merged := MergeInstructions([]solana.Instruction{
		associatedtokenaccount.NewCreateInstruction(payer, owner, mintA).Build(),
		UnwrapSOLInstruction(owner, wsol),
		body,
		associatedtokenaccount.NewCreateInstruction(payer, owner, mintA).Build(),
		associatedtokenaccount.NewCreateInstruction(payer, owner, mintB).Build(),
		UnwrapSOLInstruction(owner, wsol),
	})
	require.Len(t, merged, 4)
	require.Equal(t, solana.SPLAssociatedTokenAccountProgramID, merged[0].ProgramID())
	require.Equal(t, solana.SPLAssociatedTokenAccountProgramID, merged[1].ProgramID())
	require.Equal(t, body, merged[2])
	require.Equal(t, solana.TokenProgramID, merged[3].ProgramID())
}

func testPool(t *testing.T) (*Client, *PoolState) {
	network := amm.DefaultNetwork()
	c := New(nil, network)
	_, nonce, err := amm.DeriveAuthority(network.ProgramID)
	require.NoError(t, err)

	config := network.Config
	config.TradeFeeNumerator = 30
	info := &state.AmmInfo{
		Status:            shared.PoolStatusInitialized,
		Nonce:             nonce,
		BaseDecimals:      9,
		QuoteDecimals:     6,
		BaseLotSize:       1_000_000,
		QuoteLotSize:      1,
		ProtocolFeesQuote: 500,
		BaseMint:          solana.NewWallet().PublicKey(),
		QuoteMint:         solana.NewWallet().PublicKey(),
		Market:            solana.NewWallet().PublicKey(),
	}
	ammKey := solana.NewWallet().PublicKey()
	keys, err := c.PoolKeys(ammKey, info)
	require.NoError(t, err)

	return c, &PoolState{
		Keys:   keys,
		Info:   info,
		Config: &config,
		TargetOrders: &state.TargetOrders{
			Asks: []state.TargetOrder{{Price: 2_004_000, Size: 100}},
			Bids: []state.TargetOrder{{Price: 1_996_000, Size: 100}},
		},
		VaultBase:  900_000_000,
		VaultQuote: 1_800_400_500,
	}
}

func TestPoolKeys(t *testing.T) {
	c, pool := testPool(t)
	require.Equal(t, c.Network().ProgramID, pool.Keys.ProgramID)
	require.Equal(t, pool.Info.Market, pool.Keys.Market)

	bad := *pool.Info
	bad.Nonce++
	_, err := c.PoolKeys(pool.Keys.Amm, &bad)
	require.ErrorIs(t, err, shared.ErrInvalidAccountKey)
}

func TestPoolStateReserves(t *testing.T) {
	_, pool := testPool(t)

	base, quote, err := pool.Reserves()
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000_000), base)
	require.Equal(t, uint64(1_800_400_000+199_600_000), quote)

	price, err := pool.Price()
	require.NoError(t, err)
	require.Equal(t, "2000", price.String())

	res, err := pool.QuoteExactIn(shared.SwapDirectionBaseToQuote, 100)
	require.NoError(t, err)
	require.Equal(t, uint64(197), res.AmountOut)

	_, err = pool.QuoteExactIn(shared.SwapDirection(7), 100)
	require.ErrorIs(t, err, shared.ErrInvalidInstructionData)

	pool.Info.ProtocolFeesBase = 2_000_000_000
	_, _, err = pool.Reserves()
	require.ErrorIs(t, err, shared.ErrInvalidAccountData)
}
