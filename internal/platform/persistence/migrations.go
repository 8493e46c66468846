package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/reseller-settlement/internal/config"
)

const fileSourceScheme = "file://"

// RunMigrations brings the settlement schema up to the newest version under cfg.MigrationsPath.
func RunMigrations(logger *slog.Logger, cfg *config.PostgresConfig) error {
	if cfg.MigrationsPath == "" {
		return errors.New("migrations path cannot be empty")
	}
	if cfg.URL == "" {
		return errors.New("database URL cannot be empty")
	}

	m, err := migrate.New(migrationSource(cfg.MigrationsPath), cfg.URL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			logger.Warn("Failed to release migration resources",
				"source_error", sourceErr,
				"database_error", dbErr,
			)
		}
	}()

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("Settlement schema already up to date")
	case err != nil:
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty", version)
	}

	logger.Info("Settlement schema migrated", "version", version)
	return nil
}

// migrationSource accepts both bare directories and file:// URLs.
func migrationSource(path string) string {
	if strings.HasPrefix(path, fileSourceScheme) {
		return path
	}
	return fileSourceScheme + path
}
