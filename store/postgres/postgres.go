// Package postgres implements store.Store backed by PostgreSQL.
//
// The records table uses a composite primary key (collection,
// record_id) mirroring the key space of the BBolt and in-memory
// backends. Insert maps the primary key onto the approval ledger's
// unique-vote constraint via ON CONFLICT DO NOTHING, and PutCAS runs a
// SELECT ... FOR UPDATE version check inside one transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/narthex/vouch/store"
)

// Store implements store.Store backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New returns a Store backed by the given pgx connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// NewFromDSN creates a connection pool from a DSN string, ensures the
// schema exists, and returns a new Store.
func NewFromDSN(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return New(pool), nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Put(collection, id string, rec *store.Record) error {
	_, err := s.pool.Exec(context.Background(),
		`INSERT INTO records (collection, record_id, data, version)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (collection, record_id)
		 DO UPDATE SET data = $3, version = $4`,
		collection, id, rec.Data, rec.Version)
	return err
}

func (s *Store) Get(collection, id string) (*store.Record, error) {
	var rec store.Record
	err := s.pool.QueryRow(context.Background(),
		`SELECT data, version FROM records WHERE collection = $1 AND record_id = $2`,
		collection, id).Scan(&rec.Data, &rec.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) List(collection string) ([]string, error) {
	rows, err := s.pool.Query(context.Background(),
		`SELECT record_id FROM records WHERE collection = $1`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) Delete(collection, id string) error {
	tag, err := s.pool.Exec(context.Background(),
		`DELETE FROM records WHERE collection = $1 AND record_id = $2`,
		collection, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) PutCAS(collection, id string, expectedVersion uint64, rec *store.Record) error {
	ctx := context.Background()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var currentVersion uint64
	err = tx.QueryRow(ctx,
		`SELECT version FROM records
		 WHERE collection = $1 AND record_id = $2
		 FOR UPDATE`,
		collection, id).Scan(&currentVersion)

	if errors.Is(err, pgx.ErrNoRows) {
		if expectedVersion != 0 {
			return store.ErrCASFailed
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO records (collection, record_id, data, version)
			 VALUES ($1, $2, $3, $4)`,
			collection, id, rec.Data, rec.Version); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}
	if err != nil {
		return err
	}

	if expectedVersion == 0 || currentVersion != expectedVersion {
		return store.ErrCASFailed
	}

	if _, err := tx.Exec(ctx,
		`UPDATE records SET data = $3, version = $4
		 WHERE collection = $1 AND record_id = $2`,
		collection, id, rec.Data, rec.Version); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Insert(collection, id string, rec *store.Record) error {
	tag, err := s.pool.Exec(context.Background(),
		`INSERT INTO records (collection, record_id, data, version)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (collection, record_id) DO NOTHING`,
		collection, id, rec.Data, rec.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrExists
	}
	return nil
}
