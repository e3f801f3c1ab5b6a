// Command autologin logs into web sites through their own login forms.
//
//	autologin serve                        run the HTTP API
//	autologin login --url U --username N   one login attempt, printed as JSON
//	autologin links --url U                login links found on a page
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/use-agent/autologin/api/handler"
	"github.com/use-agent/autologin/config"
)

var cfg *config.Config

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "autologin",
		Short:         "Find a page's login form, submit credentials and collect the session cookies.",
		Version:       handler.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = config.Load()
			flags := cmd.Flags()
			if lvl, _ := flags.GetString("log-level"); lvl != "" {
				cfg.Log.Level = lvl
			}
			if flags.Changed("timeout") {
				cfg.Fetch.Timeout, _ = flags.GetDuration("timeout")
			}
			if flags.Changed("host") {
				cfg.Server.Host, _ = flags.GetString("host")
			}
			if flags.Changed("port") {
				cfg.Server.Port, _ = flags.GetInt("port")
			}
			initLogger(cfg.Log)
			return nil
		},
	}
	root.PersistentFlags().String("log-level", "", "override AUTOLOGIN_LOG_LEVEL (debug, info, warn, error)")
	root.PersistentFlags().Duration("timeout", 0, "override AUTOLOGIN_FETCH_TIMEOUT for each request")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	root.AddCommand(newServeCmd(), newLoginCmd(), newLinksCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// initLogger configures slog based on the LogConfig. Logs go to stderr so
// command output on stdout stays machine readable.
func initLogger(lc config.LogConfig) {
	var level slog.Level
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if lc.Format == "text" {
		h = slog.NewTextHandler(os.Stderr, opts)
	} else {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(h))
}
