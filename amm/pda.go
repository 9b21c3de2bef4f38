package amm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/raydium-go/amm/instruction"
	"github.com/krazyTry/raydium-go/amm/shared"
)

const (
	AuthoritySeed = "amm authority"

	ammAssociatedSeed        = "amm_associated_seed"
	configAssociatedSeed     = "amm_config_associated_seed"
	targetAssociatedSeed     = "target_associated_seed"
	openOrderAssociatedSeed  = "open_order_associated_seed"
	baseVaultAssociatedSeed  = "base_vault_associated_seed"
	quoteVaultAssociatedSeed = "quote_vault_associated_seed"
	lpMintAssociatedSeed     = "lp_mint_associated_seed"
)

// DeriveAuthority returns the program authority that owns every vault and
// LP mint, with its bump.
func DeriveAuthority(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(AuthoritySeed)}, programID)
}

// authorityWithNonce rebuilds the authority from a stored bump.
func authorityWithNonce(programID solana.PublicKey, nonce uint8) (solana.PublicKey, error) {
	key, err := solana.CreateProgramAddress([][]byte{[]byte(AuthoritySeed), {nonce}}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: authority nonce %d: %w", shared.ErrInvalidAccountKey, nonce, err)
	}
	return key, nil
}

func deriveAssociated(programID, market solana.PublicKey, seed string) (solana.PublicKey, error) {
	key, _, err := solana.FindProgramAddress([][]byte{programID[:], market[:], []byte(seed)}, programID)
	return key, err
}

// DerivePoolKeys derives every pool account for a market. One pool exists
// per market.
func DerivePoolKeys(programID, market, baseMint, quoteMint solana.PublicKey) (instruction.PoolKeys, error) {
	keys := instruction.PoolKeys{
		ProgramID: programID,
		Market:    market,
		BaseMint:  baseMint,
		QuoteMint: quoteMint,
	}
	var err error
	if keys.Authority, keys.Nonce, err = DeriveAuthority(programID); err != nil {
		return keys, err
	}
	for _, d := range []struct {
		seed string
		dst  *solana.PublicKey
	}{
		{ammAssociatedSeed, &keys.Amm},
		{configAssociatedSeed, &keys.Config},
		{targetAssociatedSeed, &keys.TargetOrders},
		{openOrderAssociatedSeed, &keys.OpenOrders},
		{baseVaultAssociatedSeed, &keys.BaseVault},
		{quoteVaultAssociatedSeed, &keys.QuoteVault},
		{lpMintAssociatedSeed, &keys.LpMint},
	} {
		if *d.dst, err = deriveAssociated(programID, market, d.seed); err != nil {
			return keys, fmt.Errorf("derive %s: %w", d.seed, err)
		}
	}
	return keys, nil
}
