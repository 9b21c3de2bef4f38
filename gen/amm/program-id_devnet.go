//go:build devnet

package amm

const Network = "devnet"

var ProgramID = DevnetProgramID
