package main

import (
	"context"
	"fmt"
	"os"

	"floodrescue/backend/internal/config"
	"floodrescue/backend/internal/logging"
	"floodrescue/backend/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// App holds what the commands share.
type App struct {
	cfg    *config.Config
	store  *storage.Service
	logger *zap.Logger
	ctx    context.Context
}

var (
	configPath string
	app        *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "admin",
		Short: "Flood rescue admin CLI",
		Long:  `Maintenance commands for the flood rescue backend: seed demo data, inspect requests and issue tokens.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil && app.logger != nil {
				_ = app.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_FILE"), "Path to the YAML config file")

	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(trackCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// initApp loads config, logger and the store.
func initApp(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	// Console output only; the CLI must not litter the service log dir.
	logger, err := logging.InitLogger(cfg.Env, "")
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	db, err := storage.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	store := storage.NewStorageService(db)
	if err := store.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	app = &App{cfg: cfg, store: store, logger: logger, ctx: ctx}
	return nil
}
