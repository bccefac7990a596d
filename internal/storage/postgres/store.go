package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityBuilder/internal/model"
)

// Schema creates the token catalog tables.
const Schema = `
CREATE TABLE IF NOT EXISTS tokens (
	chain_id   BIGINT   NOT NULL,
	address    TEXT     NOT NULL,
	symbol     TEXT     NOT NULL DEFAULT '',
	name       TEXT     NOT NULL DEFAULT '',
	decimals   SMALLINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, address)
);
CREATE INDEX IF NOT EXISTS tokens_symbol_idx ON tokens (chain_id, symbol);
CREATE TABLE IF NOT EXISTS sync_state (
	name           TEXT PRIMARY KEY,
	last_synced_at TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store is the Postgres token catalog for one chain.
type Store struct {
	pool    *pgxpool.Pool
	chainID int64
}

func NewStore(ctx context.Context, dsn string, chainID int64) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, chainID: chainID}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// PutTokenBatch inserts or updates token records. Addresses are stored lowercase.
func (s *Store) PutTokenBatch(ctx context.Context, tokens []model.Token) error {
	if len(tokens) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, token := range tokens {
		batch.Queue(`
			INSERT INTO tokens (chain_id, address, symbol, name, decimals, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (chain_id, address)
			DO UPDATE SET
				symbol = EXCLUDED.symbol,
				name = EXCLUDED.name,
				decimals = EXCLUDED.decimals,
				updated_at = now()
		`,
			s.chainID,
			strings.ToLower(token.Address.Hex()),
			token.Symbol,
			token.Name,
			int16(token.Decimals),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range tokens {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// TokenByAddress returns nil, nil when the address is unknown.
func (s *Store) TokenByAddress(ctx context.Context, address common.Address) (*model.Token, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT address, symbol, name, decimals FROM tokens
		WHERE chain_id = $1 AND address = $2
	`, s.chainID, strings.ToLower(address.Hex()))
	return scanToken(row)
}

// TokenBySymbolOrName prefers an exact symbol match over an exact name match.
func (s *Store) TokenBySymbolOrName(ctx context.Context, identifier string) (*model.Token, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT address, symbol, name, decimals FROM tokens
		WHERE chain_id = $1 AND (symbol = $2 OR name = $2)
		ORDER BY (symbol = $2) DESC, address
		LIMIT 1
	`, s.chainID, identifier)
	return scanToken(row)
}

func scanToken(row pgx.Row) (*model.Token, error) {
	var (
		address  string
		token    model.Token
		decimals int16
	)
	if err := row.Scan(&address, &token.Symbol, &token.Name, &decimals); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid stored address: %s", address)
	}
	token.Address = common.HexToAddress(address)
	token.Decimals = uint8(decimals)
	return &token, nil
}

// LoadSyncState returns when the named sync last completed.
func (s *Store) LoadSyncState(ctx context.Context, name string) (time.Time, bool, error) {
	if name == "" {
		return time.Time{}, false, fmt.Errorf("state name required")
	}
	var ts time.Time
	row := s.pool.QueryRow(ctx, `SELECT last_synced_at FROM sync_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return ts, true, nil
}

// SaveSyncState records the completion time of the named sync.
func (s *Store) SaveSyncState(ctx context.Context, name string, ts time.Time) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_state (name, last_synced_at, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_synced_at = EXCLUDED.last_synced_at, updated_at = now()
	`, name, ts)
	return err
}
