package database

import (
	"fmt"
	"path/filepath"

	"churchinventory/internal/database/migration"

	"go.uber.org/zap"
)

func migrationsSource(migrationsDir string) (string, error) {
	absPath, err := filepath.Abs(migrationsDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	return "file://" + absPath, nil
}

// RunMigrations applies every pending migration found in migrationsDir.
func RunMigrations(dbURL, migrationsDir string, logger *zap.Logger) error {
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}

	source, err := migrationsSource(migrationsDir)
	if err != nil {
		return err
	}

	return migration.Migrate(dbURL, source, true, logger)
}

func RollbackMigrations(dbURL, migrationsDir string, logger *zap.Logger) error {
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}

	source, err := migrationsSource(migrationsDir)
	if err != nil {
		return err
	}

	return migration.Rollback(dbURL, source, logger)
}
