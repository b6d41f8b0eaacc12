package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"churchinventory/internal/core/config"
	"churchinventory/internal/core/logger"
	"churchinventory/internal/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var envFile string

// MigrateCmd applies pending migrations without starting the server.
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run migrations manually.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		migrationDir, _ := cmd.Flags().GetString("dir")
		if migrationDir == "" {
			migrationDir = cfg.MigrationsDir
		}

		if err := database.RunMigrations(cfg.DatabaseURL, migrationDir, log); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}

		return nil
	},
}

var MigrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration. Development only.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		migrationDir, _ := cmd.Flags().GetString("dir")
		if migrationDir == "" {
			migrationDir = cfg.MigrationsDir
		}

		return database.RollbackMigrations(cfg.DatabaseURL, migrationDir, log)
	},
}

func Execute(ctx context.Context) {
	rootCmd := &cobra.Command{
		Use:           "churchinventory",
		Short:         "Church inventory management service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file to seed the environment from")

	MigrateCmd.PersistentFlags().String("dir", "", "Directory containing the migration files (defaults to MIGRATIONS_DIR)")
	MigrateCmd.AddCommand(MigrateDownCmd)

	CreateAdminCmd.Flags().String("username", "", "Admin username (defaults to ADMIN_USERNAME)")
	CreateAdminCmd.Flags().String("password", "", "Admin password (defaults to ADMIN_PASSWORD)")
	ResetLoginAttemptsCmd.Flags().String("username", "", "Only lift the lockout for this username")

	rootCmd.AddCommand(ServeCmd, MigrateCmd, CreateAdminCmd, ResetLoginAttemptsCmd, ExportSheetsCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cfg.AppEnv, cfg.LogLevel), nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return database.NewPostgresConnection(ctx, cfg.DatabaseURL, database.PoolOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLife,
	})
}
