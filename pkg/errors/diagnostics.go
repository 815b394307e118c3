package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// LogFields flattens err for structured logging: the message, the typed code
// when present, every wrapped layer, and Postgres diagnostics from either the
// pgx or the lib/pq driver.
func LogFields(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	fields := map[string]any{
		"error_message": err.Error(),
		"error_chain":   unwrapChain(err),
	}
	if typed := As(err); typed != nil {
		fields["error_code"] = typed.code
	}
	for key, value := range postgresDiagnostics(err) {
		if value != "" {
			fields["pg_"+key] = value
		}
	}
	return fields
}

func unwrapChain(err error) []string {
	var layers []string
	for ; err != nil; err = stdErrors.Unwrap(err) {
		layers = append(layers, fmt.Sprintf("%T: %v", err, err))
	}
	return layers
}

func postgresDiagnostics(err error) map[string]string {
	var pgxErr *pgconn.PgError
	if stdErrors.As(err, &pgxErr) {
		return map[string]string{
			"code":       pgxErr.Code,
			"constraint": pgxErr.ConstraintName,
			"table":      pgxErr.TableName,
			"column":     pgxErr.ColumnName,
			"detail":     pgxErr.Detail,
			"message":    pgxErr.Message,
		}
	}
	var pqErr *pq.Error
	if stdErrors.As(err, &pqErr) {
		return map[string]string{
			"code":       string(pqErr.Code),
			"constraint": pqErr.Constraint,
			"table":      pqErr.Table,
			"column":     pqErr.Column,
			"detail":     pqErr.Detail,
			"message":    pqErr.Message,
		}
	}
	return nil
}
