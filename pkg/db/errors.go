package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation. When
// constraintName is provided the violation must reference that constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return false
		}
		return constraintName == "" || pgErr.ConstraintName == constraintName
	}

	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, sqliteUniquePrefix) {
		return false
	}
	if constraintName == "" || strings.Contains(msg, constraintName) {
		return true
	}
	return sqliteConstraintName(msg) == constraintName
}

const sqliteUniquePrefix = "UNIQUE constraint failed: "

// sqliteConstraintName maps "UNIQUE constraint failed: orders.order_number" to
// the <table>_<column>_key name Postgres uses for single-column constraints.
func sqliteConstraintName(msg string) string {
	idx := strings.Index(msg, sqliteUniquePrefix)
	if idx < 0 {
		return ""
	}
	target := strings.TrimSpace(msg[idx+len(sqliteUniquePrefix):])
	if strings.Contains(target, ",") {
		return ""
	}
	table, column, ok := strings.Cut(target, ".")
	if !ok {
		return ""
	}
	return table + "_" + column + "_key"
}
