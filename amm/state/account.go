package state

import (
	"context"
	"errors"
	"sync"

	"github.com/gagliardetto/solana-go"
)

var ErrAccountNotFound = errors.New("account not found")

// Account is a raw program-owned account.
type Account struct {
	Key   solana.PublicKey
	Owner solana.PublicKey
	Data  []byte
}

func (a *Account) Clone() *Account {
	out := &Account{Key: a.Key, Owner: a.Owner, Data: make([]byte, len(a.Data))}
	copy(out.Data, a.Data)
	return out
}

// Store persists accounts. Commit writes every account or none.
type Store interface {
	Load(ctx context.Context, key solana.PublicKey) (*Account, error)
	Commit(ctx context.Context, accounts ...*Account) error
}

type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[solana.PublicKey]*Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[solana.PublicKey]*Account)}
}

func (s *MemoryStore) Load(_ context.Context, key solana.PublicKey) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[key]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return acc.Clone(), nil
}

func (s *MemoryStore) Commit(_ context.Context, accounts ...*Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range accounts {
		s.accounts[acc.Key] = acc.Clone()
	}
	return nil
}

// Snapshot returns a deep copy of all accounts.
func (s *MemoryStore) Snapshot() map[solana.PublicKey]*Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[solana.PublicKey]*Account, len(s.accounts))
	for k, v := range s.accounts {
		out[k] = v.Clone()
	}
	return out
}

func (s *MemoryStore) Restore(snapshot map[solana.PublicKey]*Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = make(map[solana.PublicKey]*Account, len(snapshot))
	for k, v := range snapshot {
		s.accounts[k] = v.Clone()
	}
}
