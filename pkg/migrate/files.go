package migrate

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var (
	slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)
	fileName   = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
)

// now is swapped in tests.
var now = time.Now

const scaffold = `-- +goose Up
-- +goose StatementBegin
-- %[1]s: write the forward change here
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- %[1]s: undo the forward change here
-- +goose StatementEnd
`

// Slug lowercases name and collapses every run of other characters into a
// single underscore.
func Slug(name string) (string, error) {
	slug := strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	return slug, nil
}

// CreateSQLMigration writes an empty goose migration named
// <UTC timestamp>_<slug>.sql under dir and returns its path.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", errors.New("migrations dir is required")
	}
	slug, err := Slug(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	path := filepath.Join(dir, now().UTC().Format(versionLayout)+"_"+slug+".sql")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration: %w", err)
	}
	if _, err := fmt.Fprintf(f, scaffold, slug); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, f.Close()
}

// ValidateDir checks every .sql file in dir: the name must carry a unique
// 14-digit version, and the body must hold an Up section before a Down
// section with balanced StatementBegin/StatementEnd markers.
func ValidateDir(dir string) error {
	if dir == "" {
		return errors.New("migrations dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}

	versions := make(map[string]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".sql" {
			continue
		}
		m := fileName.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("%s: want <YYYYMMDDHHMMSS>_<name>.sql", name)
		}
		if _, err := time.Parse(versionLayout, m[1]); err != nil {
			return fmt.Errorf("%s: version is not a timestamp: %w", name, err)
		}
		if other, dup := versions[m[1]]; dup {
			return fmt.Errorf("%s: version %s already used by %s", name, m[1], other)
		}
		versions[m[1]] = name

		body, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if err := checkAnnotations(body); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func checkAnnotations(body []byte) error {
	var (
		sawUp, sawDown bool
		open           int
	)
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for line := 1; scanner.Scan(); line++ {
		switch strings.TrimSpace(scanner.Text()) {
		case "-- +goose Up":
			if sawUp || sawDown {
				return fmt.Errorf("line %d: unexpected Up section", line)
			}
			sawUp = true
		case "-- +goose Down":
			if !sawUp || sawDown || open != 0 {
				return fmt.Errorf("line %d: Down must follow a closed Up section", line)
			}
			sawDown = true
		case "-- +goose StatementBegin":
			if open != 0 {
				return fmt.Errorf("line %d: nested StatementBegin", line)
			}
			open++
		case "-- +goose StatementEnd":
			if open == 0 {
				return fmt.Errorf("line %d: StatementEnd without StatementBegin", line)
			}
			open--
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	switch {
	case !sawUp:
		return errors.New(`missing "-- +goose Up"`)
	case !sawDown:
		return errors.New(`missing "-- +goose Down"`)
	case open != 0:
		return errors.New("unterminated StatementBegin")
	}
	return nil
}
