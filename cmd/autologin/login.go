package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/use-agent/autologin/autologin"
)

// errMemoryKeychain rejects keychain use from a one-shot process, where a
// memory store starts empty and is discarded on exit.
var errMemoryKeychain = errors.New("--keychain-key and --save need a persistent keychain: set AUTOLOGIN_KEYCHAIN_BACKEND=postgres")

type loginOutput struct {
	*autologin.Result
	Cookies    []autologin.Cookie `json:"cookies"`
	DurationMs int64              `json:"duration_ms"`
}

func newLoginCmd() *cobra.Command {
	var (
		target, username, password, key string
		save                             bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Run one login attempt and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if password == "" {
				password = os.Getenv("AUTOLOGIN_PASSWORD")
			}
			if password == "" && key == "" {
				return errors.New("a password (--password or AUTOLOGIN_PASSWORD) or --keychain-key is required")
			}
			if save && (key == "" || password == "") {
				return errors.New("--save needs both --keychain-key and a password")
			}
			if key != "" && cfg.Keychain.Backend != "postgres" {
				return errMemoryKeychain
			}

			kc, closeKeychain, err := openKeychain(ctx, cfg.Keychain)
			if err != nil {
				return err
			}
			defer closeKeychain()

			al := newAutoLogin(cfg.Fetch)
			var res *autologin.Result
			creds := autologin.Credentials{Username: username, Password: password}
			if password == "" {
				res, err = al.LoginWithSaved(ctx, kc, key, target, nil)
			} else {
				res, err = al.Login(ctx, autologin.LoginRequest{URL: target, Credentials: creds})
			}
			if err != nil {
				return err
			}
			if save {
				if err := kc.SaveCredentials(ctx, key, res.URL, creds); err != nil {
					return err
				}
			}
			return writeJSON(cmd.OutOrStdout(), loginOutput{
				Result:     res,
				Cookies:    res.Cookies.Active(),
				DurationMs: res.Duration.Milliseconds(),
			})
		},
	}
	cmd.Flags().StringVar(&target, "url", "", "page holding the login form")
	cmd.Flags().StringVar(&username, "username", "", "username or email")
	cmd.Flags().StringVar(&password, "password", "", "password (prefer AUTOLOGIN_PASSWORD)")
	cmd.Flags().StringVar(&key, "keychain-key", "", "load credentials from, or save them to, this keychain item")
	cmd.Flags().BoolVar(&save, "save", false, "save the credentials under --keychain-key")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newLinksCmd() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "links",
		Short: "List links on a page that look like they lead to a login form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			links, page, err := newAutoLogin(cfg.Fetch).FindLoginLinks(cmd.Context(), target, nil)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"url":         page.URL,
				"status_code": page.StatusCode,
				"links":       links,
			})
		},
	}
	cmd.Flags().StringVar(&target, "url", "", "page to search")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
