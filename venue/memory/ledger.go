// Package memory implements the venue collaborators in process. It backs the
// simulator and the tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/raydium-go/venue"
)

type TokenAccount struct {
	Mint   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
}

type faults struct {
	mu  sync.Mutex
	ops map[string]error
}

// InjectFault makes every call of op fail with err until cleared.
func (f *faults) InjectFault(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ops == nil {
		f.ops = make(map[string]error)
	}
	f.ops[op] = err
}

func (f *faults) ClearFaults() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = nil
}

func (f *faults) fault(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ops[op]
}

// Ledger is an in-memory token program.
type Ledger struct {
	faults

	mu       sync.Mutex
	mints    map[solana.PublicKey]venue.MintInfo
	accounts map[solana.PublicKey]TokenAccount
}

var _ venue.TokenProgram = (*Ledger)(nil)

func NewLedger() *Ledger {
	return &Ledger{
		mints:    make(map[solana.PublicKey]venue.MintInfo),
		accounts: make(map[solana.PublicKey]TokenAccount),
	}
}

func (l *Ledger) CreateMint(mint solana.PublicKey, decimals uint8, authority solana.PublicKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.mints[mint]; ok {
		return fmt.Errorf("mint %s already exists", mint)
	}
	l.mints[mint] = venue.MintInfo{Decimals: decimals, MintAuthority: authority}
	return nil
}

func (l *Ledger) CreateAccount(account, mint, owner solana.PublicKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.mints[mint]; !ok {
		return fmt.Errorf("mint %s not found", mint)
	}
	if _, ok := l.accounts[account]; ok {
		return fmt.Errorf("token account %s already exists", account)
	}
	l.accounts[account] = TokenAccount{Mint: mint, Owner: owner}
	return nil
}

// Airdrop credits an account outside of any mint authority.
func (l *Ledger) Airdrop(account solana.PublicKey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[account]
	if !ok {
		return fmt.Errorf("token account %s not found", account)
	}
	m := l.mints[acc.Mint]
	if acc.Amount+amount < acc.Amount || m.Supply+amount < m.Supply {
		return fmt.Errorf("airdrop overflow")
	}
	acc.Amount += amount
	m.Supply += amount
	l.accounts[account] = acc
	l.mints[acc.Mint] = m
	return nil
}

func (l *Ledger) Transfer(_ context.Context, from, to, authority solana.PublicKey, amount uint64) error {
	if err := l.fault("transfer"); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	src, ok := l.accounts[from]
	if !ok {
		return fmt.Errorf("token account %s not found", from)
	}
	dst, ok := l.accounts[to]
	if !ok {
		return fmt.Errorf("token account %s not found", to)
	}
	if !src.Owner.Equals(authority) {
		return fmt.Errorf("%s is not the owner of %s", authority, from)
	}
	if !src.Mint.Equals(dst.Mint) {
		return fmt.Errorf("mint mismatch %s -> %s", src.Mint, dst.Mint)
	}
	if src.Amount < amount {
		return fmt.Errorf("insufficient funds in %s: %d < %d", from, src.Amount, amount)
	}
	if from.Equals(to) {
		return nil
	}
	src.Amount -= amount
	dst.Amount += amount
	l.accounts[from] = src
	l.accounts[to] = dst
	return nil
}

func (l *Ledger) MintTo(_ context.Context, mint, to, authority solana.PublicKey, amount uint64) error {
	if err := l.fault("mint_to"); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.mints[mint]
	if !ok {
		return fmt.Errorf("mint %s not found", mint)
	}
	if !m.MintAuthority.Equals(authority) {
		return fmt.Errorf("%s is not the mint authority of %s", authority, mint)
	}
	dst, ok := l.accounts[to]
	if !ok || !dst.Mint.Equals(mint) {
		return fmt.Errorf("token account %s is not a %s account", to, mint)
	}
	if m.Supply+amount < m.Supply {
		return fmt.Errorf("supply overflow")
	}
	m.Supply += amount
	dst.Amount += amount
	l.mints[mint] = m
	l.accounts[to] = dst
	return nil
}

func (l *Ledger) Burn(_ context.Context, account, mint, authority solana.PublicKey, amount uint64) error {
	if err := l.fault("burn"); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	src, ok := l.accounts[account]
	if !ok || !src.Mint.Equals(mint) {
		return fmt.Errorf("token account %s is not a %s account", account, mint)
	}
	if !src.Owner.Equals(authority) {
		return fmt.Errorf("%s is not the owner of %s", authority, account)
	}
	if src.Amount < amount {
		return fmt.Errorf("insufficient funds in %s: %d < %d", account, src.Amount, amount)
	}
	m := l.mints[mint]
	src.Amount -= amount
	m.Supply -= amount
	l.accounts[account] = src
	l.mints[mint] = m
	return nil
}

func (l *Ledger) Balance(_ context.Context, account solana.PublicKey) (uint64, error) {
	if err := l.fault("balance"); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[account]
	if !ok {
		return 0, fmt.Errorf("token account %s not found", account)
	}
	return acc.Amount, nil
}

func (l *Ledger) Mint(_ context.Context, mint solana.PublicKey) (venue.MintInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.mints[mint]
	if !ok {
		return venue.MintInfo{}, fmt.Errorf("mint %s not found", mint)
	}
	return m, nil
}

func (l *Ledger) Account(account solana.PublicKey) (TokenAccount, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[account]
	return acc, ok
}

type LedgerSnapshot struct {
	mints    map[solana.PublicKey]venue.MintInfo
	accounts map[solana.PublicKey]TokenAccount
}

func (l *Ledger) Snapshot() LedgerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := LedgerSnapshot{
		mints:    make(map[solana.PublicKey]venue.MintInfo, len(l.mints)),
		accounts: make(map[solana.PublicKey]TokenAccount, len(l.accounts)),
	}
	for k, v := range l.mints {
		s.mints[k] = v
	}
	for k, v := range l.accounts {
		s.accounts[k] = v
	}
	return s
}

func (l *Ledger) Restore(s LedgerSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mints = make(map[solana.PublicKey]venue.MintInfo, len(s.mints))
	l.accounts = make(map[solana.PublicKey]TokenAccount, len(s.accounts))
	for k, v := range s.mints {
		l.mints[k] = v
	}
	for k, v := range s.accounts {
		l.accounts[k] = v
	}
}
