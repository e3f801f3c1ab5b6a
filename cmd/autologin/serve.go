package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/autologin/api"
	"github.com/use-agent/autologin/cleaner"
	"github.com/use-agent/autologin/session"
	"github.com/use-agent/autologin/webhook"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	cmd.Flags().String("host", "", "override AUTOLOGIN_HOST")
	cmd.Flags().Int("port", 0, "override AUTOLOGIN_PORT")
	return cmd
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("autologin starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"keychain", cfg.Keychain.Backend,
	)
	if cfg.Auth.Enabled && len(cfg.Auth.APIKeys) == 0 {
		slog.Warn("auth enabled but no API keys configured, API is open")
	}

	// ── 1. Collaborators ────────────────────────────────────────────
	kc, closeKeychain, err := openKeychain(ctx, cfg.Keychain)
	if err != nil {
		return err
	}
	defer closeKeychain()

	sessions := session.New(cfg.Session.MaxEntries, cfg.Session.TTL, cfg.Session.CleanupInterval)
	defer sessions.Close()

	var whOpts []webhook.Option
	if cfg.Webhook.AllowPrivate {
		whOpts = append(whOpts, webhook.AllowPrivateTargets())
	}
	webhooks := webhook.NewSender(whOpts...)

	svc := api.Services{
		AutoLogin: newAutoLogin(cfg.Fetch),
		Sessions:  sessions,
		Keychain:  kc,
		Previewer: cleaner.NewPreviewer(cfg.Preview.MaxChars),
		Webhooks:  webhooks,
	}

	// ── 2. HTTP server ──────────────────────────────────────────────
	router := api.NewRouter(ctx, svc, cfg, time.Now())
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// ── 3. Graceful shutdown ────────────────────────────────────────
	select {
	case err := <-errc:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	webhooks.Wait()
	slog.Info("autologin stopped")
	return nil
}
