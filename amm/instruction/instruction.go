package instruction

import (
	"bytes"
	"fmt"

	binary "github.com/gagliardetto/binary"

	"github.com/krazyTry/raydium-go/amm/shared"
)

type Tag uint8

const (
	TagInitialize Tag = iota
	TagDeposit
	TagWithdraw
	TagSwapBaseIn
	TagSwapBaseOut
	TagMonitorStep
	TagSetStatus
	TagCollectProtocolFee
)

func (t Tag) String() string {
	switch t {
	case TagInitialize:
		return "Initialize"
	case TagDeposit:
		return "Deposit"
	case TagWithdraw:
		return "Withdraw"
	case TagSwapBaseIn:
		return "SwapBaseIn"
	case TagSwapBaseOut:
		return "SwapBaseOut"
	case TagMonitorStep:
		return "MonitorStep"
	case TagSetStatus:
		return "SetStatus"
	case TagCollectProtocolFee:
		return "CollectProtocolFee"
	default:
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
}

// payload sizes, tag byte excluded
var payloadSize = map[Tag]int{
	TagInitialize:         25,
	TagDeposit:            17,
	TagWithdraw:           8,
	TagSwapBaseIn:         17,
	TagSwapBaseOut:        17,
	TagMonitorStep:        0,
	TagSetStatus:          1,
	TagCollectProtocolFee: 0,
}

// Instruction is one variant of the instruction union.
type Instruction interface {
	Tag() Tag
	encodeArgs(enc *binary.Encoder) error
	decodeArgs(dec *binary.Decoder) error
}

type DepositSide uint8

const (
	DepositSideBase  DepositSide = 0
	DepositSideQuote DepositSide = 1
)

type Initialize struct {
	Nonce           uint8
	OpenTime        uint64
	InitBaseAmount  uint64
	InitQuoteAmount uint64
}

// Deposit fixes the amount on FixedSide to its max and derives the other side.
type Deposit struct {
	MaxBaseAmount  uint64
	MaxQuoteAmount uint64
	FixedSide      DepositSide
}

type Withdraw struct {
	Amount uint64
}

type SwapBaseIn struct {
	AmountIn         uint64
	MinimumAmountOut uint64
	Direction        shared.SwapDirection
}

type SwapBaseOut struct {
	MaxAmountIn uint64
	AmountOut   uint64
	Direction   shared.SwapDirection
}

type MonitorStep struct{}

type SetStatus struct {
	Status shared.PoolStatus
}

type CollectProtocolFee struct{}

func (*Initialize) Tag() Tag         { return TagInitialize }
func (*Deposit) Tag() Tag            { return TagDeposit }
func (*Withdraw) Tag() Tag           { return TagWithdraw }
func (*SwapBaseIn) Tag() Tag         { return TagSwapBaseIn }
func (*SwapBaseOut) Tag() Tag        { return TagSwapBaseOut }
func (*MonitorStep) Tag() Tag        { return TagMonitorStep }
func (*SetStatus) Tag() Tag          { return TagSetStatus }
func (*CollectProtocolFee) Tag() Tag { return TagCollectProtocolFee }

func (ix *Initialize) encodeArgs(enc *binary.Encoder) error {
	return firstErr(
		enc.WriteUint8(ix.Nonce),
		enc.WriteUint64(ix.OpenTime, binary.LE),
		enc.WriteUint64(ix.InitBaseAmount, binary.LE),
		enc.WriteUint64(ix.InitQuoteAmount, binary.LE),
	)
}

func (ix *Initialize) decodeArgs(dec *binary.Decoder) (err error) {
	if ix.Nonce, err = dec.ReadUint8(); err != nil {
		return err
	}
	if ix.OpenTime, err = dec.ReadUint64(binary.LE); err != nil {
		return err
	}
	if ix.InitBaseAmount, err = dec.ReadUint64(binary.LE); err != nil {
		return err
	}
	ix.InitQuoteAmount, err = dec.ReadUint64(binary.LE)
	return err
}

func (ix *Deposit) encodeArgs(enc *binary.Encoder) error {
	return firstErr(
		enc.WriteUint64(ix.MaxBaseAmount, binary.LE),
		enc.WriteUint64(ix.MaxQuoteAmount, binary.LE),
		enc.WriteUint8(uint8(ix.FixedSide)),
	)
}

func (ix *Deposit) decodeArgs(dec *binary.Decoder) (err error) {
	if ix.MaxBaseAmount, err = dec.ReadUint64(binary.LE); err != nil {
		return err
	}
	if ix.MaxQuoteAmount, err = dec.ReadUint64(binary.LE); err != nil {
		return err
	}
	side, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	ix.FixedSide = DepositSide(side)
	if ix.FixedSide != DepositSideBase && ix.FixedSide != DepositSideQuote {
		return fmt.Errorf("deposit side %d", side)
	}
	return nil
}

func (ix *Withdraw) encodeArgs(enc *binary.Encoder) error {
	return enc.WriteUint64(ix.Amount, binary.LE)
}

func (ix *Withdraw) decodeArgs(dec *binary.Decoder) (err error) {
	ix.Amount, err = dec.ReadUint64(binary.LE)
	return err
}

func (ix *SwapBaseIn) encodeArgs(enc *binary.Encoder) error {
	return firstErr(
		enc.WriteUint64(ix.AmountIn, binary.LE),
		enc.WriteUint64(ix.MinimumAmountOut, binary.LE),
		enc.WriteUint8(uint8(ix.Direction)),
	)
}

func (ix *SwapBaseIn) decodeArgs(dec *binary.Decoder) (err error) {
	if ix.AmountIn, err = dec.ReadUint64(binary.LE); err != nil {
		return err
	}
	if ix.MinimumAmountOut, err = dec.ReadUint64(binary.LE); err != nil {
		return err
	}
	ix.Direction, err = readDirection(dec)
	return err
}

func (ix *SwapBaseOut) encodeArgs(enc *binary.Encoder) error {
	return firstErr(
		enc.WriteUint64(ix.MaxAmountIn, binary.LE),
		enc.WriteUint64(ix.AmountOut, binary.LE),
		enc.WriteUint8(uint8(ix.Direction)),
	)
}

func (ix *SwapBaseOut) decodeArgs(dec *binary.Decoder) (err error) {
	if ix.MaxAmountIn, err = dec.ReadUint64(binary.LE); err != nil {
		return err
	}
	if ix.AmountOut, err = dec.ReadUint64(binary.LE); err != nil {
		return err
	}
	ix.Direction, err = readDirection(dec)
	return err
}

func (*MonitorStep) encodeArgs(*binary.Encoder) error { return nil }
func (*MonitorStep) decodeArgs(*binary.Decoder) error { return nil }

func (ix *SetStatus) encodeArgs(enc *binary.Encoder) error {
	return enc.WriteUint8(uint8(ix.Status))
}

func (ix *SetStatus) decodeArgs(dec *binary.Decoder) error {
	s, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	ix.Status = shared.PoolStatus(s)
	if ix.Status > shared.PoolStatusDisabled {
		return fmt.Errorf("status %d", s)
	}
	return nil
}

func (*CollectProtocolFee) encodeArgs(*binary.Encoder) error { return nil }
func (*CollectProtocolFee) decodeArgs(*binary.Decoder) error { return nil }

func readDirection(dec *binary.Decoder) (shared.SwapDirection, error) {
	d, err := dec.ReadUint8()
	if err != nil {
		return 0, err
	}
	dir := shared.SwapDirection(d)
	if !dir.Valid() {
		return 0, fmt.Errorf("swap direction %d", d)
	}
	return dir, nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Encode serializes ix as its tag followed by the positional payload.
func Encode(ix Instruction) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := binary.NewBinEncoder(buf)
	if err := enc.WriteUint8(uint8(ix.Tag())); err != nil {
		return nil, err
	}
	if err := ix.encodeArgs(enc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses instruction data. Every failure is ErrInvalidInstructionData.
func Decode(data []byte) (Instruction, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty", shared.ErrInvalidInstructionData)
	}
	tag := Tag(data[0])
	size, ok := payloadSize[tag]
	if !ok {
		return nil, fmt.Errorf("%w: unknown tag %d", shared.ErrInvalidInstructionData, data[0])
	}
	if len(data)-1 != size {
		return nil, fmt.Errorf("%w: %s payload is %d bytes, want %d", shared.ErrInvalidInstructionData, tag, len(data)-1, size)
	}

	var ix Instruction
	switch tag {
	case TagInitialize:
		ix = &Initialize{}
	case TagDeposit:
		ix = &Deposit{}
	case TagWithdraw:
		ix = &Withdraw{}
	case TagSwapBaseIn:
		ix = &SwapBaseIn{}
	case TagSwapBaseOut:
		ix = &SwapBaseOut{}
	case TagMonitorStep:
		ix = &MonitorStep{}
	case TagSetStatus:
		ix = &SetStatus{}
	case TagCollectProtocolFee:
		ix = &CollectProtocolFee{}
	}
	if err := ix.decodeArgs(binary.NewBinDecoder(data[1:])); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", shared.ErrInvalidInstructionData, tag, err)
	}
	return ix, nil
}
