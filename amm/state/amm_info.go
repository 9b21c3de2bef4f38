package state

import (
	"context"
	"errors"
	"fmt"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/raydium-go/amm/shared"
	"github.com/krazyTry/raydium-go/u128"
)

const AmmInfoSize = headerSize + 8 + 13*8 + 8*16 + 11*32

// AmmInfoMarketOffset locates the market key, for program account filters.
const AmmInfoMarketOffset = headerSize + 8 + 13*8 + 8*16 + 6*32

// AmmInfo is the mutable pool record.
type AmmInfo struct {
	Status        shared.PoolStatus
	Nonce         uint8
	BaseDecimals  uint8
	QuoteDecimals uint8

	OpenTime        uint64
	LastUpdatedSlot uint64
	LastUpdatedTime uint64
	BaseLotSize     uint64
	QuoteLotSize    uint64
	LpAmount        uint64
	OrderNum        uint64

	// protocol fees owed, held in the vaults but excluded from reserves
	ProtocolFeesBase  uint64
	ProtocolFeesQuote uint64
	// lifetime protocol fees paid out
	CollectedProtocolFeesBase  uint64
	CollectedProtocolFeesQuote uint64

	SwapAccQuoteFee uint64
	SwapAccBaseFee  uint64

	SwapBaseInAmount   binary.Uint128
	SwapQuoteOutAmount binary.Uint128
	SwapQuoteInAmount  binary.Uint128
	SwapBaseOutAmount  binary.Uint128

	BookBaseInAmount   binary.Uint128
	BookBaseOutAmount  binary.Uint128
	BookQuoteInAmount  binary.Uint128
	BookQuoteOutAmount binary.Uint128

	BaseVault        solana.PublicKey
	QuoteVault       solana.PublicKey
	BaseMint         solana.PublicKey
	QuoteMint        solana.PublicKey
	LpMint           solana.PublicKey
	OpenOrders       solana.PublicKey
	Market           solana.PublicKey
	Config           solana.PublicKey
	TargetOrders     solana.PublicKey
	Owner            solana.PublicKey
	ProtocolFeeOwner solana.PublicKey
}

func (a *AmmInfo) counters() []*uint64 {
	return []*uint64{
		&a.OpenTime,
		&a.LastUpdatedSlot,
		&a.LastUpdatedTime,
		&a.BaseLotSize,
		&a.QuoteLotSize,
		&a.LpAmount,
		&a.OrderNum,
		&a.ProtocolFeesBase,
		&a.ProtocolFeesQuote,
		&a.CollectedProtocolFeesBase,
		&a.CollectedProtocolFeesQuote,
		&a.SwapAccQuoteFee,
		&a.SwapAccBaseFee,
	}
}

func (a *AmmInfo) accumulators() []*binary.Uint128 {
	return []*binary.Uint128{
		&a.SwapBaseInAmount,
		&a.SwapQuoteOutAmount,
		&a.SwapQuoteInAmount,
		&a.SwapBaseOutAmount,
		&a.BookBaseInAmount,
		&a.BookBaseOutAmount,
		&a.BookQuoteInAmount,
		&a.BookQuoteOutAmount,
	}
}

func (a *AmmInfo) keys() []*solana.PublicKey {
	return []*solana.PublicKey{
		&a.BaseVault,
		&a.QuoteVault,
		&a.BaseMint,
		&a.QuoteMint,
		&a.LpMint,
		&a.OpenOrders,
		&a.Market,
		&a.Config,
		&a.TargetOrders,
		&a.Owner,
		&a.ProtocolFeeOwner,
	}
}

func (a *AmmInfo) MarshalWithEncoder(enc *binary.Encoder) error {
	w := &layoutWriter{enc: enc}
	w.header(AmmInfoDiscriminator)
	w.u8(uint8(a.Status))
	w.u8(a.Nonce)
	w.u8(a.BaseDecimals)
	w.u8(a.QuoteDecimals)
	w.pad(4)
	for _, v := range a.counters() {
		w.u64(*v)
	}
	for _, v := range a.accumulators() {
		w.u128(*v)
	}
	for _, k := range a.keys() {
		w.key(*k)
	}
	return w.err
}

func (a *AmmInfo) UnmarshalWithDecoder(dec *binary.Decoder) error {
	r := &layoutReader{dec: dec}
	r.header(AmmInfoDiscriminator)
	a.Status = shared.PoolStatus(r.u8())
	a.Nonce = r.u8()
	a.BaseDecimals = r.u8()
	a.QuoteDecimals = r.u8()
	r.bytes(4)
	for _, v := range a.counters() {
		*v = r.u64()
	}
	for _, v := range a.accumulators() {
		*v = r.u128()
	}
	for _, k := range a.keys() {
		*k = r.key()
	}
	if r.err == nil && a.Status > shared.PoolStatusDisabled {
		r.err = fmt.Errorf("%w: status %d", shared.ErrInvalidAccountData, a.Status)
	}
	return r.err
}

// Transition moves the pool along Uninitialized -> Initialized -> Disabled.
func (a *AmmInfo) Transition(to shared.PoolStatus) error {
	legal := false
	switch a.Status {
	case shared.PoolStatusUninitialized:
		legal = to == shared.PoolStatusInitialized
	case shared.PoolStatusInitialized:
		legal = to == shared.PoolStatusDisabled
	case shared.PoolStatusDisabled:
	}
	if !legal {
		return fmt.Errorf("%w: %s -> %s", shared.ErrInvalidStatusTransition, a.Status, to)
	}
	a.Status = to
	return nil
}

// RequireInitialized fails unless the pool accepts deposits and maintenance.
func (a *AmmInfo) RequireInitialized() error {
	if a.Status != shared.PoolStatusInitialized {
		return fmt.Errorf("%w: status %s", shared.ErrPoolNotActive, a.Status)
	}
	return nil
}

// RequireTradable additionally enforces the open time.
func (a *AmmInfo) RequireTradable(now int64) error {
	if err := a.RequireInitialized(); err != nil {
		return err
	}
	if now < 0 || uint64(now) < a.OpenTime {
		return fmt.Errorf("%w: opens at %d", shared.ErrPoolNotActive, a.OpenTime)
	}
	return nil
}

// RequireWithdrawable allows LPs to exit a disabled pool.
func (a *AmmInfo) RequireWithdrawable() error {
	if a.Status == shared.PoolStatusUninitialized {
		return fmt.Errorf("%w: status %s", shared.ErrPoolNotActive, a.Status)
	}
	return nil
}

func (a *AmmInfo) Touch(slot uint64, unixTime int64) {
	a.LastUpdatedSlot = slot
	if unixTime > 0 {
		a.LastUpdatedTime = uint64(unixTime)
	}
}

// AccrueSwap records one swap in the accumulators of its direction.
func (a *AmmInfo) AccrueSwap(direction shared.SwapDirection, amountIn, amountOut, fee, protocolFee uint64) error {
	var err error
	switch direction {
	case shared.SwapDirectionBaseToQuote:
		if a.SwapBaseInAmount, err = u128.AddUint64(a.SwapBaseInAmount, amountIn); err != nil {
			break
		}
		if a.SwapQuoteOutAmount, err = u128.AddUint64(a.SwapQuoteOutAmount, amountOut); err != nil {
			break
		}
		if a.SwapAccBaseFee, err = checkedAdd(a.SwapAccBaseFee, fee); err != nil {
			break
		}
		a.ProtocolFeesBase, err = checkedAdd(a.ProtocolFeesBase, protocolFee)
	case shared.SwapDirectionQuoteToBase:
		if a.SwapQuoteInAmount, err = u128.AddUint64(a.SwapQuoteInAmount, amountIn); err != nil {
			break
		}
		if a.SwapBaseOutAmount, err = u128.AddUint64(a.SwapBaseOutAmount, amountOut); err != nil {
			break
		}
		if a.SwapAccQuoteFee, err = checkedAdd(a.SwapAccQuoteFee, fee); err != nil {
			break
		}
		a.ProtocolFeesQuote, err = checkedAdd(a.ProtocolFeesQuote, protocolFee)
	default:
		return shared.ErrInvalidInstructionData
	}
	return overflow(err)
}

// AccrueFills records value realized from book fills.
func (a *AmmInfo) AccrueFills(baseIn, baseOut, quoteIn, quoteOut uint64) error {
	var err error
	if a.BookBaseInAmount, err = u128.AddUint64(a.BookBaseInAmount, baseIn); err != nil {
		return overflow(err)
	}
	if a.BookBaseOutAmount, err = u128.AddUint64(a.BookBaseOutAmount, baseOut); err != nil {
		return overflow(err)
	}
	if a.BookQuoteInAmount, err = u128.AddUint64(a.BookQuoteInAmount, quoteIn); err != nil {
		return overflow(err)
	}
	a.BookQuoteOutAmount, err = u128.AddUint64(a.BookQuoteOutAmount, quoteOut)
	return overflow(err)
}

func checkedAdd(a, b uint64) (uint64, error) {
	if a+b < a {
		return a, u128.ErrOverflow
	}
	return a + b, nil
}

func overflow(err error) error {
	if errors.Is(err, u128.ErrOverflow) {
		return shared.ErrArithmeticOverflow
	}
	return err
}

func (a *AmmInfo) ToAccount(key, programID solana.PublicKey) (*Account, error) {
	data, err := encode(a)
	if err != nil {
		return nil, err
	}
	return &Account{Key: key, Owner: programID, Data: data}, nil
}

func DecodeAmmInfo(data []byte) (*AmmInfo, error) {
	a := &AmmInfo{}
	if err := decode(data, AmmInfoSize, a); err != nil {
		return nil, err
	}
	return a, nil
}

func LoadAmmInfo(ctx context.Context, store Store, programID, key solana.PublicKey) (*AmmInfo, error) {
	acc, err := load(ctx, store, key)
	if err != nil {
		return nil, err
	}
	if err = checkOwner(acc, programID); err != nil {
		return nil, err
	}
	return DecodeAmmInfo(acc.Data)
}

// LoadOrCreateAmmInfo returns a zero Uninitialized record when the account
// does not exist yet.
func LoadOrCreateAmmInfo(ctx context.Context, store Store, programID, key solana.PublicKey) (*AmmInfo, error) {
	_, err := store.Load(ctx, key)
	if errors.Is(err, ErrAccountNotFound) {
		return &AmmInfo{Status: shared.PoolStatusUninitialized}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return LoadAmmInfo(ctx, store, programID, key)
}
