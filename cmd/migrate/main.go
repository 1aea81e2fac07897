package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "migrations directory for create and validate")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	if done, err := offline(opts); done {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := run(context.Background(), opts); err != nil {
		logger.New(logger.Options{ServiceName: "migrate"}).Error(context.Background(), "migrate.failed", err)
		os.Exit(1)
	}
}

// offline handles the commands that only touch the filesystem.
func offline(opts options) (bool, error) {
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return true, errors.New("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name, time.Now())
		if err != nil {
			return true, err
		}
		fmt.Println("created", path)
		return true, nil
	case "validate":
		if err := migrate.Validate(os.DirFS(opts.dir)); err != nil {
			return true, fmt.Errorf("migration validation failed: %w", err)
		}
		fmt.Println("migrations valid")
		return true, nil
	}
	return false, nil
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	l := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = l.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": opts.cmd})
	if cfg.DB.Driver == config.DriverSQLite {
		l.Warn(ctx, "migrate.skipped_sqlite")
		return nil
	}

	dbClient, err := db.New(ctx, cfg.DB, l)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer dbClient.Close()
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	runner, err := migrate.NewRunner(sqlDB, migrate.Migrations())
	if err != nil {
		return err
	}

	switch opts.cmd {
	case "up":
		applied, err := runner.Up(ctx)
		if err != nil {
			return err
		}
		l.Info(l.WithField(ctx, "applied", applied), "migrate.up.complete")
	case "down":
		if err := runner.Down(ctx); err != nil {
			return err
		}
		l.Info(ctx, "migrate.down.complete")
	case "status":
		rows, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		for _, row := range rows {
			applied := "pending"
			if row.Applied {
				applied = row.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Printf("%-16d %-28s %s\n", row.Version, applied, row.Path)
		}
	case "version":
		target, err := strconv.ParseInt(opts.version, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid -version %q: %w", opts.version, err)
		}
		if err := runner.MigrateTo(ctx, target); err != nil {
			return err
		}
		l.Info(l.WithField(ctx, "version", target), "migrate.version.complete")
	default:
		return fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}
	return nil
}
