//go:build !devnet

package amm

const Network = "mainnet"

var ProgramID = MainnetProgramID
