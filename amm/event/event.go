// Package event encodes pool events as base64 binary log lines, in the
// ray_log format indexers already parse.
package event

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const Prefix = "ray_log: "

type LogType uint8

const (
	LogTypeInit LogType = iota
	LogTypeDeposit
	LogTypeWithdraw
	LogTypeSwapBaseIn
	LogTypeSwapBaseOut
	LogTypeMonitor
)

func (t LogType) String() string {
	switch t {
	case LogTypeInit:
		return "init"
	case LogTypeDeposit:
		return "deposit"
	case LogTypeWithdraw:
		return "withdraw"
	case LogTypeSwapBaseIn:
		return "swap_base_in"
	case LogTypeSwapBaseOut:
		return "swap_base_out"
	case LogTypeMonitor:
		return "monitor"
	default:
		return fmt.Sprintf("log_type(%d)", uint8(t))
	}
}

// Event is one of the *Log structs below. Fields are encoded in declaration
// order, little endian.
type Event interface {
	Type() LogType
}

type InitLog struct {
	Time          uint64
	BaseDecimals  uint8
	QuoteDecimals uint8
	BaseLotSize   uint64
	QuoteLotSize  uint64
	BaseAmount    uint64
	QuoteAmount   uint64
	Market        solana.PublicKey
}

type DepositLog struct {
	MaxBase     uint64
	MaxQuote    uint64
	FixedSide   uint8
	PoolBase    uint64
	PoolQuote   uint64
	PoolLp      uint64
	DeductBase  uint64
	DeductQuote uint64
	MintLp      uint64
}

type WithdrawLog struct {
	WithdrawLp uint64
	UserLp     uint64
	PoolBase   uint64
	PoolQuote  uint64
	PoolLp     uint64
	OutBase    uint64
	OutQuote   uint64
}

type SwapBaseInLog struct {
	AmountIn   uint64
	MinimumOut uint64
	Direction  uint8
	UserSource uint64
	PoolBase   uint64
	PoolQuote  uint64
	OutAmount  uint64
}

type SwapBaseOutLog struct {
	MaxIn      uint64
	AmountOut  uint64
	Direction  uint8
	UserSource uint64
	PoolBase   uint64
	PoolQuote  uint64
	DeductIn   uint64
}

type MonitorLog struct {
	Slot      uint64
	MidPrice  uint64
	PoolBase  uint64
	PoolQuote uint64
	// fills settled by the step, seen from the pool: filled asks pay base
	// out and quote in, filled bids the reverse
	FilledBaseIn   uint64
	FilledBaseOut  uint64
	FilledQuoteIn  uint64
	FilledQuoteOut uint64
	Placed         uint16
	Cancelled      uint16
	Failed         uint16
}

func (InitLog) Type() LogType        { return LogTypeInit }
func (DepositLog) Type() LogType     { return LogTypeDeposit }
func (WithdrawLog) Type() LogType    { return LogTypeWithdraw }
func (SwapBaseInLog) Type() LogType  { return LogTypeSwapBaseIn }
func (SwapBaseOutLog) Type() LogType { return LogTypeSwapBaseOut }
func (MonitorLog) Type() LogType     { return LogTypeMonitor }

// Encode returns the base64 payload, without Prefix.
func Encode(e Event) (string, error) {
	buf := new(bytes.Buffer)
	enc := binary.NewBinEncoder(buf)
	if err := enc.WriteUint8(uint8(e.Type())); err != nil {
		return "", err
	}
	if err := enc.Encode(e); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode parses a payload produced by Encode. A leading Prefix is accepted.
func Decode(s string) (Event, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), Prefix))
	if err != nil {
		return nil, fmt.Errorf("decode ray_log: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("decode ray_log: empty payload")
	}

	var e Event
	switch LogType(raw[0]) {
	case LogTypeInit:
		e = &InitLog{}
	case LogTypeDeposit:
		e = &DepositLog{}
	case LogTypeWithdraw:
		e = &WithdrawLog{}
	case LogTypeSwapBaseIn:
		e = &SwapBaseInLog{}
	case LogTypeSwapBaseOut:
		e = &SwapBaseOutLog{}
	case LogTypeMonitor:
		e = &MonitorLog{}
	default:
		return nil, fmt.Errorf("decode ray_log: unknown log type %d", raw[0])
	}
	if err = binary.NewBinDecoder(raw[1:]).Decode(e); err != nil {
		return nil, fmt.Errorf("decode ray_log %s: %w", LogType(raw[0]), err)
	}
	return e, nil
}
