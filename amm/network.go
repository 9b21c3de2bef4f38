package amm

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/raydium-go/amm/shared"
	"github.com/krazyTry/raydium-go/amm/state"
	ammprogram "github.com/krazyTry/raydium-go/gen/amm"
)

// Network is the deployment a processor serves. Values are copied, never
// shared, so a running processor cannot see a change to another instance.
type Network struct {
	Name      string
	ProgramID solana.PublicKey
	// Admin may disable pools.
	Admin solana.PublicKey
	// ProtocolFeeOwner collects the protocol share of trade fees.
	ProtocolFeeOwner solana.PublicKey
	// Config is copied into every pool at Initialize.
	Config state.AmmConfig
}

func defaultConfig() state.AmmConfig {
	return state.AmmConfig{
		TradeFeeNumerator:      25,
		TradeFeeDenominator:    shared.BasisPointMax,
		ProtocolFeeNumerator:   12,
		ProtocolFeeDenominator: 100,
		MinOrderSize:           1,
		Depth:                  3,
		SpreadStepBps:          20,
		MaxPriceDeviationBps:   500,
		LadderShareBps:         2_000,
		RefreshToleranceBps:    10,
		DepositToleranceBps:    100,
		MinimumLiquidity:       1_000,
		MaxExternalCalls:       64,
	}
}

func Mainnet() Network {
	return Network{
		Name:             "mainnet",
		ProgramID:        ammprogram.MainnetProgramID,
		Admin:            solana.MustPublicKeyFromBase58("GThUX1Atko4tqhN2NaiTazWSeFWMuiUvfFnyJyUghFMJ"),
		ProtocolFeeOwner: solana.MustPublicKeyFromBase58("7YttLkHDoNj9wyDur5pM1ejNaAvT9X4eqaYcHQqtj2G5"),
		Config:           defaultConfig(),
	}
}

func Devnet() Network {
	owner := solana.MustPublicKeyFromBase58("3XMrhbv989VxAMi3DErLV9eJht1pHppW5LbKxe9fkEFR")
	return Network{
		Name:             "devnet",
		ProgramID:        ammprogram.DevnetProgramID,
		Admin:            owner,
		ProtocolFeeOwner: owner,
		Config:           defaultConfig(),
	}
}

// DefaultNetwork is the network selected by the devnet build tag.
func DefaultNetwork() Network {
	n, _ := NetworkByName(ammprogram.Network)
	return n
}

// NetworkByName resolves "mainnet" or "devnet". An empty name selects the
// build default.
func NetworkByName(name string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return DefaultNetwork(), nil
	case "mainnet", "mainnet-beta":
		return Mainnet(), nil
	case "devnet":
		return Devnet(), nil
	default:
		return Network{}, fmt.Errorf("%w: unknown network %q", shared.ErrInvalidConfig, name)
	}
}
