package client

import (
	"context"
	"fmt"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/tidwall/gjson"
)

type AccountState uint8

const (
	AccountStateUninitialized AccountState = 0
	AccountStateInitialized   AccountState = 1
	AccountStateFrozen        AccountState = 2
)

// TokenAccount is a decoded SPL token account.
type TokenAccount struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
	// Owner of the tokens, not the program owning the account.
	Owner  solana.PublicKey
	Amount uint64

	IsInitialized bool
	IsFrozen      bool
}

// tokenAccountLayout is the SPL token account layout up to the state byte.
type tokenAccountLayout struct {
	Mint           solana.PublicKey
	Owner          solana.PublicKey
	Amount         uint64
	DelegateOption uint32
	Delegate       solana.PublicKey
	State          uint8
}

func DecodeTokenAccount(data []byte) (*TokenAccount, error) {
	raw := &tokenAccountLayout{}
	if err := binary.NewBinDecoder(data).Decode(raw); err != nil {
		return nil, err
	}
	return &TokenAccount{
		Mint:          raw.Mint,
		Owner:         raw.Owner,
		Amount:        raw.Amount,
		IsInitialized: AccountState(raw.State) != AccountStateUninitialized,
		IsFrozen:      AccountState(raw.State) == AccountStateFrozen,
	}, nil
}

// Token represents a mint together with the program that owns it.
type Token struct {
	token.Mint
	Owner solana.PublicKey
}

func DecodeMint(data []byte) (*Token, error) {
	mint := token.Mint{}
	if err := mint.Decode(data); err != nil {
		return nil, err
	}
	return &Token{Mint: mint}, nil
}

func GetMultipleToken(ctx context.Context, rpcClient *rpc.Client, mints ...solana.PublicKey) ([]*Token, error) {
	outs, err := GetMultipleAccountInfo(ctx, rpcClient, mints)
	if err != nil {
		return nil, err
	}
	list := make([]*Token, len(outs.Value))
	for i, out := range outs.Value {
		if out == nil {
			continue
		}
		t, err := DecodeMint(out.Data.GetBinary())
		if err != nil {
			return nil, fmt.Errorf("mint %s: %w", mints[i], err)
		}
		t.Owner = out.Owner
		list[i] = t
	}
	return list, nil
}

// ParsedTokenAmount reads a jsonParsed token account:
//
//	{"parsed":{"info":{"mint":"...","tokenAmount":{"amount":"0",...}},"type":"account"},...}
func ParsedTokenAmount(raw []byte) (mint string, amount uint64, ok bool) {
	if !gjson.GetBytes(raw, "parsed.info.tokenAmount.amount").Exists() {
		return "", 0, false
	}
	mint = gjson.GetBytes(raw, "parsed.info.mint").String()
	amount = gjson.GetBytes(raw, "parsed.info.tokenAmount.amount").Uint()
	return mint, amount, mint != ""
}

// GetTokenBalances reads token account balances, in input order. Missing
// accounts read as zero.
func GetTokenBalances(ctx context.Context, rpcClient *rpc.Client, accounts ...solana.PublicKey) ([]uint64, error) {
	out, err := rpcClient.GetMultipleAccountsWithOpts(ctx, accounts, &rpc.GetMultipleAccountsOpts{
		Commitment: rpc.CommitmentFinalized,
		Encoding:   solana.EncodingJSONParsed,
	})
	if err != nil {
		return nil, err
	}
	balances := make([]uint64, len(accounts))
	for i, v := range out.Value {
		if v == nil || v.Data == nil {
			continue
		}
		if _, amount, ok := ParsedTokenAmount(v.Data.GetRawJSON()); ok {
			balances[i] = amount
			continue
		}
		acc, err := DecodeTokenAccount(v.Data.GetBinary())
		if err != nil {
			return nil, fmt.Errorf("token account %s: %w", accounts[i], err)
		}
		balances[i] = acc.Amount
	}
	return balances, nil
}
