package amm

import (
	solanago "github.com/gagliardetto/solana-go"
)

var (
	MainnetProgramID = solanago.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	DevnetProgramID  = solanago.MustPublicKeyFromBase58("HWy1jotHpo6UqeQxx49dpYYdQB8wj9Qk9MdxwjLvDHB8")
)
