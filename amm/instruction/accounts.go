package instruction

import (
	"github.com/gagliardetto/solana-go"
)

// PoolKeys are the program-derived accounts of one pool.
type PoolKeys struct {
	ProgramID    solana.PublicKey
	Amm          solana.PublicKey
	Config       solana.PublicKey
	TargetOrders solana.PublicKey
	Authority    solana.PublicKey
	Nonce        uint8
	OpenOrders   solana.PublicKey
	Market       solana.PublicKey
	BaseMint     solana.PublicKey
	QuoteMint    solana.PublicKey
	LpMint       solana.PublicKey
	BaseVault    solana.PublicKey
	QuoteVault   solana.PublicKey
}

// UserKeys are the caller's wallet and token accounts.
type UserKeys struct {
	Owner solana.PublicKey
	Base  solana.PublicKey
	Quote solana.PublicKey
	Lp    solana.PublicKey
}

// Account positions shared by the builders and the processor.
const (
	InitializeAmm = iota
	InitializeConfig
	InitializeTargetOrders
	InitializeAuthority
	InitializeMarket
	InitializeOpenOrders
	InitializeBaseMint
	InitializeQuoteMint
	InitializeLpMint
	InitializeBaseVault
	InitializeQuoteVault
	InitializeUserBase
	InitializeUserQuote
	InitializeUserLp
	InitializeUser
	InitializeAccounts
)

const (
	DepositAmm = iota
	DepositConfig
	DepositAuthority
	DepositOpenOrders
	DepositMarket
	DepositLpMint
	DepositBaseVault
	DepositQuoteVault
	DepositUserBase
	DepositUserQuote
	DepositUserLp
	DepositUser
	DepositAccounts
)

const (
	WithdrawAmm = iota
	WithdrawConfig
	WithdrawAuthority
	WithdrawOpenOrders
	WithdrawMarket
	WithdrawLpMint
	WithdrawBaseVault
	WithdrawQuoteVault
	WithdrawUserLp
	WithdrawUserBase
	WithdrawUserQuote
	WithdrawUser
	WithdrawAccounts
)

const (
	SwapAmm = iota
	SwapConfig
	SwapAuthority
	SwapOpenOrders
	SwapMarket
	SwapBaseVault
	SwapQuoteVault
	SwapUserSource
	SwapUserDestination
	SwapUser
	SwapAccounts
)

const (
	MonitorAmm = iota
	MonitorConfig
	MonitorTargetOrders
	MonitorAuthority
	MonitorOpenOrders
	MonitorMarket
	MonitorBaseVault
	MonitorQuoteVault
	MonitorAccounts
)

const (
	SetStatusAmm = iota
	SetStatusOwner
	SetStatusAccounts
)

const (
	CollectAmm = iota
	CollectConfig
	CollectAuthority
	CollectOpenOrders
	CollectMarket
	CollectBaseVault
	CollectQuoteVault
	CollectDestinationBase
	CollectDestinationQuote
	CollectOwner
	CollectAccounts
)

func ro(k solana.PublicKey) *solana.AccountMeta { return solana.NewAccountMeta(k, false, false) }
func rw(k solana.PublicKey) *solana.AccountMeta { return solana.NewAccountMeta(k, true, false) }
func signer(k solana.PublicKey) *solana.AccountMeta {
	return solana.NewAccountMeta(k, false, true)
}

func build(programID solana.PublicKey, accounts solana.AccountMetaSlice, ix Instruction) (*solana.GenericInstruction, error) {
	data, err := Encode(ix)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, accounts, data), nil
}

func NewInitializeInstruction(pool PoolKeys, user UserKeys, args *Initialize) (*solana.GenericInstruction, error) {
	return build(pool.ProgramID, solana.AccountMetaSlice{
		rw(pool.Amm),
		rw(pool.Config),
		rw(pool.TargetOrders),
		ro(pool.Authority),
		ro(pool.Market),
		rw(pool.OpenOrders),
		ro(pool.BaseMint),
		ro(pool.QuoteMint),
		rw(pool.LpMint),
		rw(pool.BaseVault),
		rw(pool.QuoteVault),
		rw(user.Base),
		rw(user.Quote),
		rw(user.Lp),
		signer(user.Owner),
	}, args)
}

func NewDepositInstruction(pool PoolKeys, user UserKeys, args *Deposit) (*solana.GenericInstruction, error) {
	return build(pool.ProgramID, solana.AccountMetaSlice{
		rw(pool.Amm),
		ro(pool.Config),
		ro(pool.Authority),
		rw(pool.OpenOrders),
		rw(pool.Market),
		rw(pool.LpMint),
		rw(pool.BaseVault),
		rw(pool.QuoteVault),
		rw(user.Base),
		rw(user.Quote),
		rw(user.Lp),
		signer(user.Owner),
	}, args)
}

func NewWithdrawInstruction(pool PoolKeys, user UserKeys, args *Withdraw) (*solana.GenericInstruction, error) {
	return build(pool.ProgramID, solana.AccountMetaSlice{
		rw(pool.Amm),
		ro(pool.Config),
		ro(pool.Authority),
		rw(pool.OpenOrders),
		rw(pool.Market),
		rw(pool.LpMint),
		rw(pool.BaseVault),
		rw(pool.QuoteVault),
		rw(user.Lp),
		rw(user.Base),
		rw(user.Quote),
		signer(user.Owner),
	}, args)
}

func swapAccounts(pool PoolKeys, owner, source, destination solana.PublicKey) solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		rw(pool.Amm),
		ro(pool.Config),
		ro(pool.Authority),
		rw(pool.OpenOrders),
		rw(pool.Market),
		rw(pool.BaseVault),
		rw(pool.QuoteVault),
		rw(source),
		rw(destination),
		signer(owner),
	}
}

func NewSwapBaseInInstruction(pool PoolKeys, owner, source, destination solana.PublicKey, args *SwapBaseIn) (*solana.GenericInstruction, error) {
	return build(pool.ProgramID, swapAccounts(pool, owner, source, destination), args)
}

func NewSwapBaseOutInstruction(pool PoolKeys, owner, source, destination solana.PublicKey, args *SwapBaseOut) (*solana.GenericInstruction, error) {
	return build(pool.ProgramID, swapAccounts(pool, owner, source, destination), args)
}

// NewMonitorStepInstruction needs no signer; anyone may crank the pool.
func NewMonitorStepInstruction(pool PoolKeys) (*solana.GenericInstruction, error) {
	return build(pool.ProgramID, solana.AccountMetaSlice{
		rw(pool.Amm),
		ro(pool.Config),
		rw(pool.TargetOrders),
		ro(pool.Authority),
		rw(pool.OpenOrders),
		rw(pool.Market),
		rw(pool.BaseVault),
		rw(pool.QuoteVault),
	}, &MonitorStep{})
}

func NewSetStatusInstruction(pool PoolKeys, owner solana.PublicKey, args *SetStatus) (*solana.GenericInstruction, error) {
	return build(pool.ProgramID, solana.AccountMetaSlice{
		rw(pool.Amm),
		signer(owner),
	}, args)
}

func NewCollectProtocolFeeInstruction(pool PoolKeys, owner, destinationBase, destinationQuote solana.PublicKey) (*solana.GenericInstruction, error) {
	return build(pool.ProgramID, solana.AccountMetaSlice{
		rw(pool.Amm),
		ro(pool.Config),
		ro(pool.Authority),
		rw(pool.OpenOrders),
		rw(pool.Market),
		rw(pool.BaseVault),
		rw(pool.QuoteVault),
		rw(destinationBase),
		rw(destinationQuote),
		signer(owner),
	}, &CollectProtocolFee{})
}
