package client

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/krazyTry/raydium-go/amm/instruction"
	"github.com/krazyTry/raydium-go/amm/math"
	"github.com/krazyTry/raydium-go/amm/shared"
)

func (p *PoolState) directed(direction shared.SwapDirection) (reserveIn, reserveOut uint64, inMint, outMint solana.PublicKey, err error) {
	if !direction.Valid() {
		return 0, 0, solana.PublicKey{}, solana.PublicKey{}, shared.ErrInvalidInstructionData
	}
	base, quote, err := p.Reserves()
	if err != nil {
		return 0, 0, solana.PublicKey{}, solana.PublicKey{}, err
	}
	if direction == shared.SwapDirectionBaseToQuote {
		return base, quote, p.Info.BaseMint, p.Info.QuoteMint, nil
	}
	return quote, base, p.Info.QuoteMint, p.Info.BaseMint, nil
}

// QuoteExactIn prices a fixed-input swap against the pool's estimated reserves.
func (p *PoolState) QuoteExactIn(direction shared.SwapDirection, amountIn uint64) (*math.SwapResult, error) {
	reserveIn, reserveOut, _, _, err := p.directed(direction)
	if err != nil {
		return nil, err
	}
	return math.SwapExactIn(reserveIn, reserveOut, amountIn, p.Config.TradeFee(), p.Config.ProtocolFee())
}

// QuoteExactOut prices a fixed-output swap against the pool's estimated reserves.
func (p *PoolState) QuoteExactOut(direction shared.SwapDirection, amountOut uint64) (*math.SwapResult, error) {
	reserveIn, reserveOut, _, _, err := p.directed(direction)
	if err != nil {
		return nil, err
	}
	return math.SwapExactOut(reserveIn, reserveOut, amountOut, p.Config.TradeFee(), p.Config.ProtocolFee())
}

// SwapInstruction builds the instructions of one swap for owner, creating
// missing token accounts and wrapping SOL on the way in. ix is the program
// instruction, built by the caller from the prepared source and destination.
func SwapInstruction(
	ctx context.Context,
	rpcClient *rpc.Client,
	payer solana.PublicKey,
	owner solana.PublicKey,
	pool *PoolState,
	direction shared.SwapDirection,
	wrapLamports uint64,
	ix func(source, destination solana.PublicKey) (solana.Instruction, error),
) ([]solana.Instruction, error) {
	_, _, inputMint, outputMint, err := pool.directed(direction)
	if err != nil {
		return nil, err
	}

	var instructions []solana.Instruction
	source, err := PrepareTokenATA(ctx, rpcClient, owner, inputMint, payer, &instructions)
	if err != nil {
		return nil, err
	}
	destination, err := PrepareTokenATA(ctx, rpcClient, owner, outputMint, payer, &instructions)
	if err != nil {
		return nil, err
	}

	if inputMint.Equals(solana.WrappedSol) && wrapLamports > 0 {
		instructions = append(instructions, WrapSOLInstructions(owner, source, wrapLamports)...)
	}

	swapIx, err := ix(source, destination)
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, swapIx)

	switch {
	case inputMint.Equals(solana.WrappedSol):
		instructions = append(instructions, UnwrapSOLInstruction(owner, source))
	case outputMint.Equals(solana.WrappedSol):
		instructions = append(instructions, UnwrapSOLInstruction(owner, destination))
	}
	return MergeInstructions(instructions), nil
}

func (c *Client) SwapBaseInInstruction(
	ctx context.Context,
	payer solana.PublicKey,
	owner solana.PublicKey,
	pool *PoolState,
	direction shared.SwapDirection,
	amountIn uint64,
	minimumAmountOut uint64,
) ([]solana.Instruction, error) {
	return SwapInstruction(ctx, c.rpcClient, payer, owner, pool, direction, amountIn,
		func(source, destination solana.PublicKey) (solana.Instruction, error) {
			return instruction.NewSwapBaseInInstruction(pool.Keys, owner, source, destination, &instruction.SwapBaseIn{
				AmountIn:         amountIn,
				MinimumAmountOut: minimumAmountOut,
				Direction:        direction,
			})
		})
}

func (c *Client) SwapBaseOutInstruction(
	ctx context.Context,
	payer solana.PublicKey,
	owner solana.PublicKey,
	pool *PoolState,
	direction shared.SwapDirection,
	maxAmountIn uint64,
	amountOut uint64,
) ([]solana.Instruction, error) {
	return SwapInstruction(ctx, c.rpcClient, payer, owner, pool, direction, maxAmountIn,
		func(source, destination solana.PublicKey) (solana.Instruction, error) {
			return instruction.NewSwapBaseOutInstruction(pool.Keys, owner, source, destination, &instruction.SwapBaseOut{
				MaxAmountIn: maxAmountIn,
				AmountOut:   amountOut,
				Direction:   direction,
			})
		})
}

// SwapBaseIn quotes, applies slippageBps to the quote and sends the swap.
func (c *Client) SwapBaseIn(
	ctx context.Context,
	payer *solana.Wallet,
	pool *PoolState,
	direction shared.SwapDirection,
	amountIn uint64,
	slippageBps uint64,
) (string, error) {
	quote, err := pool.QuoteExactIn(direction, amountIn)
	if err != nil {
		return "", err
	}
	minimumAmountOut, err := math.MulDiv(quote.AmountOut, shared.BasisPointMax-math.Min(slippageBps, shared.BasisPointMax), shared.BasisPointMax, shared.RoundingDown)
	if err != nil {
		return "", err
	}

	instructions, err := c.SwapBaseInInstruction(ctx, payer.PublicKey(), payer.PublicKey(), pool, direction, amountIn, minimumAmountOut)
	if err != nil {
		return "", err
	}
	return c.send(ctx, payer, instructions)
}

func (c *Client) send(ctx context.Context, payer *solana.Wallet, instructions []solana.Instruction) (string, error) {
	if c.wsClient == nil {
		return "", shared.ErrInvalidConfig
	}
	tx, err := solana.NewTransaction(instructions, solana.Hash{}, solana.TransactionPayer(payer.PublicKey()))
	if err != nil {
		return "", err
	}
	sig, err := SendTransaction(ctx, c.rpcClient, c.wsClient, tx, func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer.PublicKey()) {
			return &payer.PrivateKey
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return sig.String(), nil
}
