// Package sqlitestore is a taxlots.Repository persisted in a SQLite database
// (pure Go driver, no cgo).
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/etnz/taxlots"
	"github.com/patrickmn/go-cache"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

var schema = `
CREATE TABLE IF NOT EXISTS securities (
    id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL UNIQUE,
    cusip TEXT NOT NULL DEFAULT '',
    isin TEXT NOT NULL DEFAULT '',
    currency TEXT NOT NULL,
    price TEXT NOT NULL DEFAULT '0'
);

CREATE UNIQUE INDEX IF NOT EXISTS securities_cusip ON securities(cusip) WHERE cusip <> '';

CREATE TABLE IF NOT EXISTS positions (
    id TEXT PRIMARY KEY,
    account_id TEXT NOT NULL,
    security_id TEXT NOT NULL,
    entity_id TEXT NOT NULL DEFAULT '',
    quantity TEXT NOT NULL,
    cost_basis TEXT NOT NULL,
    market_value TEXT NOT NULL,
    currency TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    FOREIGN KEY(security_id) REFERENCES securities(id),
    UNIQUE (account_id, security_id)
);

CREATE INDEX IF NOT EXISTS positions_entity ON positions(entity_id);

CREATE TABLE IF NOT EXISTS lots (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    position_id TEXT NOT NULL,
    acquisition_date TEXT NOT NULL,
    original_quantity TEXT NOT NULL,
    remaining_quantity TEXT NOT NULL,
    is_open BOOLEAN NOT NULL,
    total_cost TEXT NOT NULL,
    currency TEXT NOT NULL,
    acquisition_type TEXT NOT NULL,
    disposition_date TEXT NOT NULL DEFAULT '',
    is_covered BOOLEAN NOT NULL DEFAULT 0,
    wash_sale_disallowed BOOLEAN NOT NULL DEFAULT 0,
    wash_sale_adjustment TEXT NOT NULL DEFAULT '0',
    reference TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    FOREIGN KEY(position_id) REFERENCES positions(id)
);

CREATE INDEX IF NOT EXISTS lots_position_date ON lots(position_id, acquisition_date);
`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository stores lots, positions and securities in SQLite. Security lookups
// outside of Atomic units go through an expiring cache.
type Repository struct {
	db    *sql.DB
	cache *cache.Cache
	mu    sync.Mutex // serializes Atomic units
}

var _ taxlots.Repository = (*Repository)(nil)

// Open opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for a private in-memory database. cacheTTL is the lifetime of
// cached security lookups.
func Open(path string, cacheTTL time.Duration) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", path, err)
	}
	// SQLite has a single writer; an in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %q: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Repository{
		db:    db,
		cache: cache.New(cacheTTL, 2*cacheTTL),
	}, nil
}

// Close closes the database.
func (r *Repository) Close() error { return r.db.Close() }

func (r *Repository) Lots() taxlots.LotStore           { return lotStore{q: r.db} }
func (r *Repository) Positions() taxlots.PositionStore { return positionStore{q: r.db} }
func (r *Repository) Securities() taxlots.SecurityDirectory {
	return securityStore{q: r.db, cache: r.cache}
}

// Atomic runs fn in a database transaction, committed only if fn returns nil.
func (r *Repository) Atomic(ctx context.Context, fn func(taxlots.Store) error) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cannot begin transaction: %w", err)
	}
	s := &txStore{tx: tx}
	if err := fn(s); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cannot commit transaction: %w", err)
	}
	if s.securitiesChanged {
		r.cache.Flush()
	}
	return nil
}

// txStore is the Store of one transaction. Security reads bypass the cache so
// that they see the transaction's own writes.
type txStore struct {
	tx                *sql.Tx
	securitiesChanged bool
}

func (s *txStore) Lots() taxlots.LotStore           { return lotStore{q: s.tx} }
func (s *txStore) Positions() taxlots.PositionStore { return positionStore{q: s.tx} }
func (s *txStore) Securities() taxlots.SecurityDirectory {
	return securityStore{q: s.tx, changed: &s.securitiesChanged}
}

// isUnique reports whether err is a unique constraint violation.
func isUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// mustAffect turns an update of zero rows into a not found error.
func mustAffect(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, taxlots.ErrNotFound)
	}
	return nil
}
