// Package migrate wraps goose for the storefront schema: authoring and
// linting migration files, and applying them through a goose Provider.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/storefront-backend/pkg/db"
)

const DefaultDir = "pkg/migrate/migrations"

// Commands are the verbs Exec understands.
var Commands = []string{"up", "up-by-one", "down", "redo", "reset", "status", "version"}

func IsCommand(cmd string) bool {
	return slices.Contains(Commands, cmd)
}

// DialectFor maps a configured database driver onto goose's dialect.
func DialectFor(driver string) goose.Dialect {
	if strings.EqualFold(driver, db.DriverSQLite) {
		return goose.DialectSQLite3
	}
	return goose.DialectPostgres
}

// Migrator applies the SQL files of one directory to one database.
type Migrator struct {
	provider *goose.Provider
}

func NewMigrator(conn *sql.DB, dialect goose.Dialect, dir string) (*Migrator, error) {
	if dir == "" {
		return nil, errors.New("migrations dir is required")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("migrations dir: %w", err)
	}
	provider, err := goose.NewProvider(dialect, conn, os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Migrator{provider: provider}, nil
}

// Exec runs one of Commands. "version" needs a target and goes through
// MigrateTo instead; "status" reports through Status.
func (m *Migrator) Exec(ctx context.Context, command string) ([]*goose.MigrationResult, error) {
	switch command {
	case "up":
		return m.provider.Up(ctx)
	case "up-by-one":
		res, err := m.provider.UpByOne(ctx)
		return single(res), err
	case "down":
		res, err := m.provider.Down(ctx)
		return single(res), err
	case "redo":
		return m.redo(ctx)
	case "reset":
		return m.provider.DownTo(ctx, 0)
	case "status", "version":
		return nil, fmt.Errorf("%s is not a migration step", command)
	}
	return nil, fmt.Errorf("unsupported migrate command %q", command)
}

// redo rolls back the newest applied migration and applies it again.
func (m *Migrator) redo(ctx context.Context) ([]*goose.MigrationResult, error) {
	down, err := m.provider.Down(ctx)
	if err != nil {
		return single(down), err
	}
	up, err := m.provider.ApplyVersion(ctx, down.Source.Version, true)
	return []*goose.MigrationResult{down, up}, err
}

func single(res *goose.MigrationResult) []*goose.MigrationResult {
	if res == nil {
		return nil
	}
	return []*goose.MigrationResult{res}
}

func (m *Migrator) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	return m.provider.Status(ctx)
}

// MigrateTo moves the schema up or down until target is the newest applied
// version. target is a migration timestamp such as 20260301120300.
func (m *Migrator) MigrateTo(ctx context.Context, target string) ([]*goose.MigrationResult, error) {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil || version < 0 {
		return nil, fmt.Errorf("invalid version %q, want YYYYMMDDHHMMSS", target)
	}
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	switch {
	case version > current:
		return m.provider.UpTo(ctx, version)
	case version < current:
		return m.provider.DownTo(ctx, version)
	}
	return nil, nil
}
