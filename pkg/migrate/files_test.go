package migrate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Add Order Notes!":        "add_order_notes",
		"  order_items--line_no ": "order_items_line_no",
		"Ünïcode carts":           "n_code_carts",
	}
	for in, want := range tests {
		got, err := Slug(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := Slug("!!!")
	assert.Error(t, err)
}

func TestCreateSQLMigrationRefusesSameVersionTwice(t *testing.T) {
	fixed := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	dir := filepath.Join(t.TempDir(), "nested")
	path, err := CreateSQLMigration(dir, "add order notes")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20261019083000_add_order_notes.sql"), path)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NoError(t, checkAnnotations(body))

	_, err = CreateSQLMigration(dir, "add order notes")
	assert.ErrorIs(t, err, os.ErrExist)
}

func TestCheckAnnotations(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"bare sections", "-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n", ""},
		{"no up", "-- +goose Down\n", "Down must follow"},
		{"no down", "-- +goose Up\n", "missing \"-- +goose Down\""},
		{"down first", "-- +goose Down\n-- +goose Up\n", "Down must follow"},
		{"unclosed block", "-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n", "closed Up section"},
		{"stray end", "-- +goose Up\n-- +goose StatementEnd\n-- +goose Down\n", "without StatementBegin"},
		{"open at eof", "-- +goose Up\n-- +goose Down\n-- +goose StatementBegin\n", "unterminated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkAnnotations([]byte(tt.body))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateDirRejectsDuplicateVersion(t *testing.T) {
	dir := t.TempDir()
	body := []byte("-- +goose Up\n-- +goose Down\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_a.sql"), body, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_b.sql"), body, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("notes"), 0o644))

	assert.ErrorContains(t, ValidateDir(dir), "already used by 20260101000000_a.sql")
}

func TestValidateDirRejectsImpossibleTimestamp(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20261399000000_a.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.ErrorContains(t, ValidateDir(dir), "not a timestamp")
}
