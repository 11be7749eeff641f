package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rowsync/rowsync/internal/config"
	"github.com/rowsync/rowsync/internal/engine"
	"github.com/rowsync/rowsync/internal/httpapi"
	"github.com/rowsync/rowsync/internal/oplog"
	"github.com/rowsync/rowsync/internal/resolver"
	"github.com/rowsync/rowsync/internal/store"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Start the rowsync HTTP server over a fresh engine.

Configuration comes from .env and environment variables: APP_PORT,
SYNC_TAX_MODE, SYNC_MAX_DEPTH, CORS_ALLOWED_ORIGINS.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts)
		},
	}
}

func runServe(opts *RootOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	if opts.Verbose {
		cfg.App.Debug = true
	}

	log, err := oplog.Open()
	if err != nil {
		return WrapExitError(ExitCommandError, "open changelog", err)
	}
	defer log.Close()

	eng := engine.New(store.New(), log, resolver.UUIDGenerator{},
		engine.WithTaxMode(cfg.Sync.TaxMode),
		engine.WithMaxDepth(cfg.Sync.MaxDepth),
	)

	router := httpapi.New(eng, cfg).Router()
	slog.Info("starting server", "addr", cfg.App.Addr(), "tax_mode", cfg.Sync.TaxMode)
	if err := router.Run(cfg.App.Addr()); err != nil {
		return WrapExitError(ExitCommandError, "server stopped", err)
	}
	return nil
}
