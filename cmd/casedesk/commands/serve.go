package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yshengliao/casedesk/app"
	"github.com/yshengliao/casedesk/config"
)

func newServeCmd(configPath *string) *cobra.Command {
	var (
		loader  string
		address string
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the CaseDesk server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(loader, *configPath)
			if err != nil {
				return err
			}
			if address != "" {
				cfg.Server.Address = address
			}

			logger, err := config.NewLogger(cfg.Logger)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, cfg, logger, *configPath, loader, watch || cfg.Server.WatchConfig)
		},
	}

	cmd.Flags().StringVar(&loader, "loader", "bofry", "config loader: simple or bofry")
	cmd.Flags().StringVarP(&address, "address", "a", "", "listen address, overrides server.address")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload users when the config file changes")

	return cmd
}

// runServer serves until ctx is done, then shuts down gracefully.
func runServer(ctx context.Context, cfg *config.Config, logger *zap.Logger, configPath, loader string, watch bool) error {
	a, err := app.NewApp(
		app.WithConfig(cfg),
		app.WithLogger(logger),
		app.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	)
	if err != nil {
		return err
	}

	if watch {
		load, err := loaderFor(loader)
		if err != nil {
			return err
		}
		watcher := config.NewWatcher(configPath, load, logger.Named("config"))
		go func() {
			if err := watcher.Run(ctx, a.ApplyConfig); err != nil {
				logger.Error("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.Run() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}
