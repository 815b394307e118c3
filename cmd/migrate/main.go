package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

type options struct {
	cmd, dir, name, version string
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|up-by-one|down|redo|reset|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "directory holding the SQL migrations")
	flag.StringVar(&opts.name, "name", "", "migration name, for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target YYYYMMDDHHMMSS, for -cmd=version")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", opts.cmd, err)
		os.Exit(1)
	}
}

func run(opts options) error {
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return errors.New("-name is required")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return err
		}
		fmt.Println("migrations ok")
		return nil
	}
	if !migrate.IsCommand(opts.cmd) {
		return fmt.Errorf("unknown command, want one of %v or create|validate", migrate.Commands)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": opts.cmd, "dir": opts.dir})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer client.Close()
	sqlDB, err := client.DB().DB()
	if err != nil {
		return err
	}
	migrator, err := migrate.NewMigrator(sqlDB, migrate.DialectFor(cfg.DB.Driver), opts.dir)
	if err != nil {
		return err
	}

	var results []*goose.MigrationResult
	switch opts.cmd {
	case "status":
		return printStatus(ctx, migrator)
	case "version":
		if opts.version == "" {
			return errors.New("-version is required")
		}
		results, err = migrator.MigrateTo(ctx, opts.version)
	default:
		results, err = migrator.Exec(ctx, opts.cmd)
	}
	for _, res := range results {
		fmt.Printf("%-4s %d %s (%s)\n", res.Direction, res.Source.Version, res.Source.Path, res.Duration.Round(time.Millisecond))
	}
	if errors.Is(err, goose.ErrNoNextVersion) {
		logg.Info(ctx, "nothing to migrate")
		return nil
	}
	return err
}

func printStatus(ctx context.Context, migrator *migrate.Migrator) error {
	statuses, err := migrator.Status(ctx)
	if err != nil {
		return err
	}
	for _, st := range statuses {
		applied := "-"
		if !st.AppliedAt.IsZero() {
			applied = st.AppliedAt.Format(time.RFC3339)
		}
		fmt.Printf("%-8s %-25s %s\n", st.State, applied, st.Source.Path)
	}
	return nil
}
