package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// queryLog sends gorm's output through the service logger. Failed statements
// log at error and slow ones at warn; everything else only at gorm's Info
// level, as debug lines. Bind values are never rendered into the SQL.
type queryLog struct {
	logg  *logger.Logger
	slow  time.Duration
	level gormlogger.LogLevel
}

func newQueryLog(logg *logger.Logger, slow time.Duration) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	return queryLog{logg: logg, slow: slow, level: gormlogger.Warn}
}

func (q queryLog) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	q.level = level
	return q
}

func (q queryLog) Info(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Info {
		q.logg.Info(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q queryLog) Warn(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Warn {
		q.logg.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q queryLog) Error(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Error {
		q.logg.Error(ctx, "gorm error", errors.New(fmt.Sprintf(msg, args...)))
	}
}

func (q queryLog) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := q.slow > 0 && elapsed > q.slow

	var emit func(context.Context)
	switch {
	case failed && q.level >= gormlogger.Error:
		emit = func(ctx context.Context) { q.logg.Error(ctx, "query failed", err) }
	case slow && q.level >= gormlogger.Warn:
		emit = func(ctx context.Context) { q.logg.Warn(ctx, "slow query") }
	case q.level >= gormlogger.Info:
		emit = func(ctx context.Context) { q.logg.Debug(ctx, "query") }
	default:
		return
	}
	sql, rows := fc()
	emit(q.logg.WithFields(ctx, map[string]any{
		"sql":         sql,
		"rows":        rows,
		"duration_ms": float64(elapsed.Microseconds()) / 1000,
	}))
}

// ParamsFilter keeps gorm from interpolating bind values, which include
// password hashes and emails, into logged SQL.
func (q queryLog) ParamsFilter(_ context.Context, sql string, _ ...any) (string, []any) {
	return sql, nil
}
