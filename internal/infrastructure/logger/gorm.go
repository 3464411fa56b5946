package logger

import (
	"context"
	"errors"
	"time"

	"github.com/erp/posledger/internal/infrastructure/config"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes GORM's statement log through zap. Statements are logged
// at debug, slow statements at warn and failures at error; the request and
// trace IDs of the calling context are attached to every line.
type GormLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	fullSQL       bool
}

// NewGormLogger builds a GormLogger from the database configuration.
// Without fullSQL long statements are cut to their first 512 bytes.
func NewGormLogger(l *zap.Logger, cfg *config.DatabaseConfig, fullSQL bool) *GormLogger {
	return &GormLogger{
		logger:        l.Named("gorm"),
		level:         MapGormLogLevel(cfg.LogLevel),
		slowThreshold: cfg.SlowThreshold,
		fullSQL:       fullSQL,
	}
}

// LogMode implements gormlogger.Interface
func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

// Info implements gormlogger.Interface
func (g *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if g.level >= gormlogger.Info {
		g.logger.Sugar().Infof(msg, data...)
	}
}

// Warn implements gormlogger.Interface
func (g *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if g.level >= gormlogger.Warn {
		g.logger.Sugar().Warnf(msg, data...)
	}
}

// Error implements gormlogger.Interface
func (g *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if g.level >= gormlogger.Error {
		g.logger.Sugar().Errorf(msg, data...)
	}
}

// Trace implements gormlogger.Interface
func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	slow := g.slowThreshold > 0 && elapsed > g.slowThreshold

	// record-not-found is a normal lookup miss and the repositories map it to NOT_FOUND
	failed := err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound)
	switch {
	case failed && g.level >= gormlogger.Error:
	case slow && g.level >= gormlogger.Warn:
	case g.level >= gormlogger.Info:
	default:
		return
	}

	sql, rows := fc()
	if !g.fullSQL {
		sql = truncate(sql, 512)
	}
	fields := append([]zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}, TraceFields(ctx)...)
	if id := RequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}

	switch {
	case failed:
		g.logger.Error("SQL error", append(fields, zap.Error(err))...)
	case slow:
		g.logger.Warn("Slow SQL", append(fields, zap.Duration("threshold", g.slowThreshold))...)
	default:
		g.logger.Debug("SQL", fields...)
	}
}

// MapGormLogLevel maps a configured level name to GORM's log level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
