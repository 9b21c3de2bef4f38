package state

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/raydium-go/amm/shared"
)

// LayoutVersion is bumped whenever a record's field order or widths change.
const LayoutVersion uint8 = 1

const headerSize = 16

var (
	AmmConfigDiscriminator    = discriminator("AmmConfig")
	AmmInfoDiscriminator      = discriminator("AmmInfo")
	TargetOrdersDiscriminator = discriminator("TargetOrders")
)

func discriminator(name string) [8]byte {
	hash := sha256.Sum256([]byte("account:" + name))
	var out [8]byte
	copy(out[:], hash[:8])
	return out
}

type layoutWriter struct {
	enc *binary.Encoder
	err error
}

func (w *layoutWriter) header(disc [8]byte) {
	w.bytes(disc[:])
	w.u8(LayoutVersion)
	w.pad(7)
}

func (w *layoutWriter) u8(v uint8) {
	if w.err == nil {
		w.err = w.enc.WriteUint8(v)
	}
}

func (w *layoutWriter) u64(v uint64) {
	if w.err == nil {
		w.err = w.enc.WriteUint64(v, binary.LE)
	}
}

func (w *layoutWriter) u128(v binary.Uint128) {
	if w.err == nil {
		w.err = w.enc.WriteUint128(v, binary.LE)
	}
}

func (w *layoutWriter) key(k solana.PublicKey) {
	w.bytes(k[:])
}

func (w *layoutWriter) bytes(b []byte) {
	if w.err == nil {
		w.err = w.enc.WriteBytes(b, false)
	}
}

func (w *layoutWriter) pad(n int) {
	w.bytes(make([]byte, n))
}

type layoutReader struct {
	dec *binary.Decoder
	err error
}

func (r *layoutReader) header(disc [8]byte) {
	got := r.bytes(8)
	version := r.u8()
	r.bytes(7)
	if r.err != nil {
		return
	}
	if !bytes.Equal(got, disc[:]) {
		r.err = fmt.Errorf("%w: discriminator mismatch", shared.ErrInvalidAccountData)
		return
	}
	if version != LayoutVersion {
		r.err = fmt.Errorf("%w: layout version %d, want %d", shared.ErrInvalidAccountData, version, LayoutVersion)
	}
}

func (r *layoutReader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	var v uint8
	v, r.err = r.dec.ReadUint8()
	return v
}

func (r *layoutReader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	var v uint64
	v, r.err = r.dec.ReadUint64(binary.LE)
	return v
}

func (r *layoutReader) u128() binary.Uint128 {
	if r.err != nil {
		return binary.Uint128{}
	}
	var v binary.Uint128
	v, r.err = r.dec.ReadUint128(binary.LE)
	return v
}

func (r *layoutReader) key() solana.PublicKey {
	return solana.PublicKeyFromBytes(r.bytesOr(32))
}

func (r *layoutReader) bytesOr(n int) []byte {
	b := r.bytes(n)
	if b == nil {
		return make([]byte, n)
	}
	return b
}

func (r *layoutReader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	var b []byte
	b, r.err = r.dec.ReadNBytes(n)
	return b
}

func encode(v binary.BinaryMarshaler) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := v.MarshalWithEncoder(binary.NewBinEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte, size int, v binary.BinaryUnmarshaler) error {
	if len(data) != size {
		return fmt.Errorf("%w: size %d, want %d", shared.ErrInvalidAccountData, len(data), size)
	}
	if err := v.UnmarshalWithDecoder(binary.NewBinDecoder(data)); err != nil {
		if _, ok := shared.Code(err); ok {
			return err
		}
		return fmt.Errorf("%w: %w", shared.ErrInvalidAccountData, err)
	}
	return nil
}

func checkOwner(acc *Account, programID solana.PublicKey) error {
	if !acc.Owner.Equals(programID) {
		return fmt.Errorf("%w: %s owned by %s", shared.ErrInvalidOwner, acc.Key, acc.Owner)
	}
	return nil
}

func load(ctx context.Context, store Store, key solana.PublicKey) (*Account, error) {
	acc, err := store.Load(ctx, key)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, fmt.Errorf("%w: %s: %w", shared.ErrInvalidAccountData, key, err)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return acc, nil
}
