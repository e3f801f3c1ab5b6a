package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/use-agent/autologin/autologin"
	"github.com/use-agent/autologin/config"
	"github.com/use-agent/autologin/keychain"
)

func newAutoLogin(fc config.FetchConfig) *autologin.AutoLogin {
	return autologin.New(autologin.NewClient(
		autologin.WithTimeout(fc.Timeout),
		autologin.WithMaxBodyBytes(fc.MaxBodyBytes),
	))
}

// openKeychain builds the configured credential store. The returned close
// function releases the database pool, if any.
func openKeychain(ctx context.Context, kc config.KeychainConfig) (*keychain.Keychain, func(), error) {
	switch kc.Backend {
	case "", "memory":
		return keychain.New(keychain.NewMemoryStore()), func() {}, nil

	case "postgres":
		if kc.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("AUTOLOGIN_DATABASE_URL is required for the postgres keychain")
		}
		pool, err := pgxpool.New(ctx, kc.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create database pool: %w", err)
		}
		store, err := keychain.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		slog.Info("postgres keychain ready")
		return keychain.New(store), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown keychain backend %q", kc.Backend)
	}
}
