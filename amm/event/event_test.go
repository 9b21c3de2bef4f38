package event

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	market := solana.NewWallet().PublicKey()
	events := []Event{
		InitLog{Time: 1, BaseDecimals: 9, QuoteDecimals: 6, BaseLotSize: 1_000, QuoteLotSize: 1, BaseAmount: 1_000, QuoteAmount: 2_000, Market: market},
		DepositLog{MaxBase: 10, MaxQuote: 21, PoolBase: 1_000, PoolQuote: 2_000, PoolLp: 1_414, DeductBase: 10, DeductQuote: 20, MintLp: 14},
		WithdrawLog{WithdrawLp: 14, UserLp: 14, PoolBase: 1_010, PoolQuote: 2_020, PoolLp: 1_428, OutBase: 9, OutQuote: 19},
		SwapBaseInLog{AmountIn: 100, MinimumOut: 1, Direction: 0, UserSource: 500, PoolBase: 1_000, PoolQuote: 2_000, OutAmount: 180},
		SwapBaseOutLog{MaxIn: 200, AmountOut: 180, Direction: 0, UserSource: 500, PoolBase: 1_000, PoolQuote: 2_000, DeductIn: 100},
		MonitorLog{Slot: 9, MidPrice: 2_000, FilledBaseOut: 100, FilledQuoteIn: 200, Placed: 6},
	}
	for _, e := range events {
		s, err := Encode(e)
		require.NoError(t, err)

		got, err := Decode(Prefix + s)
		require.NoError(t, err)
		require.Equal(t, e.Type(), got.Type())
		switch v := got.(type) {
		case *InitLog:
			require.Equal(t, e, *v)
		case *DepositLog:
			require.Equal(t, e, *v)
		case *WithdrawLog:
			require.Equal(t, e, *v)
		case *SwapBaseInLog:
			require.Equal(t, e, *v)
		case *SwapBaseOutLog:
			require.Equal(t, e, *v)
		case *MonitorLog:
			require.Equal(t, e, *v)
		default:
			t.Fatalf("unexpected event %T", got)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode("not base64!")
	require.Error(t, err)

	_, err = Decode("")
	require.Error(t, err)

	_, err = Decode("/w==") // log type 255
	require.Error(t, err)

	_, err = Decode("AwE=") // truncated swap log
	require.Error(t, err)
}
