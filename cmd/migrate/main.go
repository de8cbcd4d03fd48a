package main

import (
	"errors"
	"flag"
	"fmt"
	"strconv"

	"github.com/caarlos0/env/v11"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/liamcoop/prereq/internal/logger"
)

// Config is read from the environment; flags override it.
type Config struct {
	DatabaseURL    string `env:"DATABASE_URL"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"migrations"`
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		logger.Fatal("failed to parse config", "error", err)
	}

	flag.StringVar(&cfg.DatabaseURL, "database", cfg.DatabaseURL, "Database URL")
	flag.StringVar(&cfg.MigrationsPath, "path", cfg.MigrationsPath, "Path to migrations directory")
	command := flag.String("command", "up", "Migration command: up, down, version, force")
	flag.Parse()

	if cfg.DatabaseURL == "" {
		logger.Fatal("database URL is required, set DATABASE_URL or pass -database")
	}

	if err := run(cfg, *command, flag.Args()); err != nil {
		logger.Fatal("migration failed", "command", *command, "error", err)
	}
}

func run(cfg Config, command string, args []string) error {
	m, err := migrate.New("file://"+cfg.MigrationsPath, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open migrations at %s: %w", cfg.MigrationsPath, err)
	}
	defer m.Close()

	switch command {
	case "up":
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("no migrations to run, database is up to date")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		logger.Info("migrations applied")

	case "down":
		err := m.Down()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to roll back migrations: %w", err)
		}
		logger.Info("migrations rolled back")

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		logger.Info("schema version", "version", version, "dirty", dirty)

	case "force":
		if len(args) < 1 {
			return fmt.Errorf("force requires a version number argument")
		}
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version number %q: %w", args[0], err)
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("failed to force schema version %d: %w", version, err)
		}
		logger.Info("schema version forced", "version", version)

	default:
		return fmt.Errorf("unknown command %q (use: up, down, version, force)", command)
	}

	return nil
}
