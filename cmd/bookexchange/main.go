package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AlibekovAA/book-exchange/backend/internal/common/bootstrap"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/config"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/constants"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/db"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/server"
	"github.com/AlibekovAA/book-exchange/backend/migrations"
)

var configPath string

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "bookexchange",
	Short:        "Book exchange service",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		log, err := logger.New(cfg.LogDir, constants.ServiceName, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ctx := cmd.Context()
		app, err := bootstrap.New(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}

		serverCfg := server.DefaultServerConfig(cfg.HTTPPort)
		srv := server.NewServer(serverCfg, app.Handler)
		return server.Run(ctx, srv, serverCfg, log, constants.ServiceName, app.Close)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the Postgres schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), func(ctx context.Context, m *db.Migrator) error {
			return m.Up(ctx)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [version]",
	Short: "Roll back to the given version (default: one step)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := int64(-1)
		if len(args) == 1 {
			v, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			target = v
		}
		return withMigrator(cmd.Context(), func(ctx context.Context, m *db.Migrator) error {
			return m.Down(ctx, target)
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), func(ctx context.Context, m *db.Migrator) error {
			return m.Status(ctx)
		})
	},
}

func withMigrator(ctx context.Context, fn func(context.Context, *db.Migrator) error) error {
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("%w: %s", config.ErrMissingRequiredEnv, "DATABASE_URL")
	}

	log, err := logger.New(cfg.LogDir, constants.ServiceName, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	m, err := db.NewMigrator(cfg.DatabaseURL, migrations.FS, log)
	if err != nil {
		return err
	}
	return fn(ctx, m)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("BOOKEXCHANGE_CONFIG"), "path to a TOML config file")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd)
}
