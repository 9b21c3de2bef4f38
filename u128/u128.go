package u128

import (
	"errors"
	"fmt"
	"math/big"
	"math/bits"

	binary "github.com/gagliardetto/binary"
)

var ErrOverflow = errors.New("value overflows Uint128")

type Uint128 binary.Uint128

func (u *Uint128) Scan(s fmt.ScanState, ch rune) error {
	i := new(big.Int)
	if err := i.Scan(s, ch); err != nil {
		return err
	}
	v, err := FromBig(i)
	if err != nil {
		return err
	}
	u.Lo, u.Hi = v.Lo, v.Hi
	return nil
}

func GenUint128FromString(num string) binary.Uint128 {
	u128 := binary.NewUint128LittleEndian()
	if _, err := fmt.Sscan(num, (*Uint128)(u128)); err != nil {
		panic(err)
	}
	return *u128
}

func FromUint64(v uint64) binary.Uint128 {
	return binary.Uint128{Lo: v, Endianness: binary.LE}
}

func FromBig(i *big.Int) (binary.Uint128, error) {
	if i.Sign() < 0 {
		return binary.Uint128{}, errors.New("value cannot be negative")
	}
	if i.BitLen() > 128 {
		return binary.Uint128{}, ErrOverflow
	}
	lo := new(big.Int).And(i, new(big.Int).SetUint64(^uint64(0))).Uint64()
	hi := new(big.Int).Rsh(i, 64).Uint64()
	return binary.Uint128{Lo: lo, Hi: hi, Endianness: binary.LE}, nil
}

// AddUint64 adds x to v, failing instead of wrapping.
func AddUint64(v binary.Uint128, x uint64) (binary.Uint128, error) {
	lo, carry := bits.Add64(v.Lo, x, 0)
	hi, carry := bits.Add64(v.Hi, 0, carry)
	if carry != 0 {
		return v, ErrOverflow
	}
	return binary.Uint128{Lo: lo, Hi: hi, Endianness: binary.LE}, nil
}

func String(v binary.Uint128) string {
	return v.BigInt().String()
}
