package keychain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBPool abstracts *pgxpool.Pool so the store can be tested with pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	sqlCreateTable = `
        CREATE TABLE IF NOT EXISTS keychain_items (
            key        TEXT PRIMARY KEY,
            url        TEXT NOT NULL DEFAULT '',
            username   TEXT NOT NULL,
            password   TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        );`

	sqlSelectItem = `
        SELECT key, url, username, password, created_at, updated_at
        FROM keychain_items WHERE key = $1;`

	sqlUpsertItem = `
        INSERT INTO keychain_items (key, url, username, password, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (key) DO UPDATE SET
            url = EXCLUDED.url,
            username = EXCLUDED.username,
            password = EXCLUDED.password,
            updated_at = EXCLUDED.updated_at;`

	sqlDeleteItem = `DELETE FROM keychain_items WHERE key = $1;`

	sqlListItems = `
        SELECT key, url, username, created_at, updated_at
        FROM keychain_items ORDER BY key;`
)

// PostgresStore keeps items in the keychain_items table.
type PostgresStore struct {
	pool DBPool
	now  func() time.Time
}

// NewPostgresStore verifies the connection and returns a store.
func NewPostgresStore(ctx context.Context, pool DBPool) (*PostgresStore, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

// EnsureSchema creates the keychain table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, sqlCreateTable); err != nil {
		return fmt.Errorf("failed to create keychain table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, key string) (Item, error) {
	var it Item
	err := s.pool.QueryRow(ctx, sqlSelectItem, key).
		Scan(&it.Key, &it.URL, &it.Username, &it.Password, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("failed to load keychain item: %w", err)
	}
	return it, nil
}

func (s *PostgresStore) Save(ctx context.Context, item Item) error {
	now := s.now().UTC()
	_, err := s.pool.Exec(ctx, sqlUpsertItem,
		item.Key, item.URL, item.Username, item.Password, now, now)
	if err != nil {
		return fmt.Errorf("failed to save keychain item: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	tag, err := s.pool.Exec(ctx, sqlDeleteItem, key)
	if err != nil {
		return fmt.Errorf("failed to delete keychain item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all items sorted by key. The password column is not read.
func (s *PostgresStore) List(ctx context.Context) ([]Item, error) {
	rows, err := s.pool.Query(ctx, sqlListItems)
	if err != nil {
		return nil, fmt.Errorf("failed to list keychain items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Key, &it.URL, &it.Username, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan keychain item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate keychain items: %w", err)
	}
	return items, nil
}
