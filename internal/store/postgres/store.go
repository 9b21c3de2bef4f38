package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/krazyTry/raydium-go/amm/state"
)

// Schema creates the account table used by Store.
const Schema = `
CREATE TABLE IF NOT EXISTS program_accounts (
	pubkey     TEXT PRIMARY KEY,
	owner      TEXT NOT NULL,
	data       BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Store keeps program accounts in Postgres. It satisfies state.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ state.Store = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

func (s *Store) Load(ctx context.Context, key solana.PublicKey) (*state.Account, error) {
	var (
		owner string
		data  []byte
	)
	row := s.pool.QueryRow(ctx, `SELECT owner, data FROM program_accounts WHERE pubkey=$1`, key.String())
	if err := row.Scan(&owner, &data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, state.ErrAccountNotFound
		}
		return nil, err
	}
	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return nil, fmt.Errorf("account %s: owner: %w", key, err)
	}
	return &state.Account{Key: key, Owner: ownerKey, Data: data}, nil
}

// Commit upserts accounts in one transaction.
func (s *Store) Commit(ctx context.Context, accounts ...*state.Account) error {
	if len(accounts) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, acc := range accounts {
			batch.Queue(`
				INSERT INTO program_accounts (pubkey, owner, data, updated_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (pubkey) DO UPDATE SET
					owner = EXCLUDED.owner,
					data = EXCLUDED.data,
					updated_at = now()
			`,
				acc.Key.String(),
				acc.Owner.String(),
				acc.Data,
			)
		}

		br := tx.SendBatch(ctx, batch)
		for range accounts {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return err
			}
		}
		return br.Close()
	})
}
