package client

import (
	"context"
	"errors"
	"fmt"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	sendandconfirmtransaction "github.com/gagliardetto/solana-go/rpc/sendAndConfirmTransaction"
	"github.com/gagliardetto/solana-go/rpc/ws"
)

// PrepareTokenATA returns the owner's associated token account for mint and
// appends a create instruction when it does not exist yet.
func PrepareTokenATA(
	ctx context.Context,
	rpcClient *rpc.Client,
	owner solana.PublicKey,
	tokenMint solana.PublicKey,
	payer solana.PublicKey,
	instructions *[]solana.Instruction,
) (solana.PublicKey, error) {
	tokenATA, _, err := solana.FindAssociatedTokenAddress(owner, tokenMint)
	if err != nil {
		return solana.PublicKey{}, err
	}

	exists, err := GetAccountInfo(ctx, rpcClient, tokenATA)
	if err != nil && !errors.Is(err, rpc.ErrNotFound) {
		return solana.PublicKey{}, err
	}

	if exists == nil || exists.Value == nil {
		ix := associatedtokenaccount.NewCreateInstruction(payer, owner, tokenMint).Build()
		*instructions = append(*instructions, ix)
	}
	return tokenATA, nil
}

// WrapSOLInstructions funds a WSOL account with lamports and syncs it.
func WrapSOLInstructions(owner, wsolAccount solana.PublicKey, lamports uint64) []solana.Instruction {
	return []solana.Instruction{
		system.NewTransferInstruction(lamports, owner, wsolAccount).Build(),
		token.NewSyncNativeInstruction(wsolAccount).Build(),
	}
}

// UnwrapSOLInstruction closes a WSOL account back to its owner.
func UnwrapSOLInstruction(owner, wsolAccount solana.PublicKey) solana.Instruction {
	return token.NewCloseAccountInstruction(wsolAccount, owner, owner, []solana.PublicKey{}).Build()
}

var closeAccountInstructionTypeID = binary.TypeIDFromUint8(token.Instruction_CloseAccount)

// SplitInstructions splits instructions into three phases: account creation,
// the body, and account closing. Creation and closing are deduplicated.
func SplitInstructions(instructions []solana.Instruction) (start, middle, end []solana.Instruction) {
	sameAccounts := func(a, b solana.Instruction, n int) bool {
		as, bs := a.Accounts(), b.Accounts()
		if len(as) < n || len(bs) < n {
			return false
		}
		for i := 0; i < n; i++ {
			if as[i].PublicKey != bs[i].PublicKey {
				return false
			}
		}
		return true
	}
	contains := func(list []solana.Instruction, v solana.Instruction, n int) bool {
		for _, vv := range list {
			if sameAccounts(v, vv, n) {
				return true
			}
		}
		return false
	}

	for _, v := range instructions {
		switch inst := v.(type) {
		case *associatedtokenaccount.Instruction:
			if inst.TypeID == binary.NoTypeIDDefaultID {
				// payer, ata, wallet, mint
				if !contains(start, v, 4) {
					start = append(start, v)
				}
				continue
			}
		case *token.Instruction:
			if inst.TypeID == closeAccountInstructionTypeID {
				// account, destination, owner
				if !contains(end, v, 3) {
					end = append(end, v)
				}
				continue
			}
		}
		middle = append(middle, v)
	}
	return start, middle, end
}

// MergeInstructions orders instructions as creation, body, closing and drops
// duplicate creations and closings.
func MergeInstructions(instructions []solana.Instruction) []solana.Instruction {
	start, middle, end := SplitInstructions(instructions)
	merged := make([]solana.Instruction, 0, len(start)+len(middle)+len(end))
	merged = append(merged, start...)
	merged = append(merged, middle...)
	return append(merged, end...)
}

// SendTransaction signs tx with a fresh blockhash, sends it and waits for
// confirmation over the websocket client.
func SendTransaction(
	ctx context.Context,
	rpcClient *rpc.Client,
	wsClient *ws.Client,
	tx *solana.Transaction,
	sign func(key solana.PublicKey) *solana.PrivateKey,
) (solana.Signature, error) {
	latestBlockhash, err := GetLatestBlockhash(ctx, rpcClient)
	if err != nil {
		return solana.Signature{}, err
	}
	tx.Message.RecentBlockhash = latestBlockhash

	if _, err = tx.Sign(sign); err != nil {
		return solana.Signature{}, err
	}

	sig, err := rpcClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentFinalized,
	})
	if err != nil {
		return solana.Signature{}, err
	}

	confirmed, err := sendandconfirmtransaction.WaitForConfirmation(ctx, wsClient, sig, nil)
	if confirmed {
		if err != nil {
			return solana.Signature{}, fmt.Errorf("transaction confirmed but failed: %w", err)
		}
		return sig, nil
	}

	statusResp, err := rpcClient.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("rpc GetSignatureStatuses error: %w", err)
	}
	status := statusResp.Value[0]
	if status == nil {
		return solana.Signature{}, fmt.Errorf("transaction not found (maybe dropped)")
	}
	if status.Err != nil {
		return solana.Signature{}, fmt.Errorf("transaction confirmed but failed: %v", status.Err)
	}
	return sig, nil
}
