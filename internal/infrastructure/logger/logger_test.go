package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/erp/posledger/internal/infrastructure/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"nonsense", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pos.log")
	l, err := New(
		config.LogConfig{Level: "debug", Format: "console", Output: path},
		config.AppConfig{Name: "posledger", Env: "production"},
	)
	require.NoError(t, err)

	l.Info("Sale created", zap.String("sale_number", "S-1"))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Sale created"`, "production forces JSON")
	assert.Contains(t, string(data), `"service":"posledger"`)
	assert.Contains(t, string(data), `"sale_number":"S-1"`)
}

func TestTee(t *testing.T) {
	primary, primaryLogs := observer.New(zapcore.DebugLevel)
	extra, extraLogs := observer.New(zapcore.WarnLevel)

	l := Tee(zap.New(primary), extra)
	l.Info("Sale created")
	l.With(zap.String("sale_number", "S-9")).Warn("Stock went negative")

	assert.Equal(t, 2, primaryLogs.Len())
	require.Equal(t, 1, extraLogs.Len())
	entry := extraLogs.All()[0]
	assert.Equal(t, "Stock went negative", entry.Message)
	assert.Equal(t, "S-9", entry.ContextMap()["sale_number"])
}

func TestNew_UnwritableOutput(t *testing.T) {
	_, err := New(config.LogConfig{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")}, config.AppConfig{})
	assert.Error(t, err)
}

func TestContextValues(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := WithContext(context.Background(), zap.New(core))
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithActorID(ctx, "cashier-7")
	ctx = WithIdempotencyKey(ctx, "key-9")

	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "cashier-7", ActorID(ctx))
	assert.Equal(t, "key-9", IdempotencyKey(ctx))

	FromContext(ctx).Info("hello")
	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "cashier-7", fields["actor_id"])
	assert.Equal(t, "key-9", fields["idempotency_key"])
}

func TestFromContext_Missing(t *testing.T) {
	ctx := context.Background()
	assert.NotNil(t, FromContext(ctx))
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, ActorID(ctx))
	assert.Nil(t, TraceFields(ctx))
}

func TestL_AddsTraceFields(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	ctx := trace.ContextWithSpanContext(WithContext(context.Background(), zap.New(core)), sc)
	L(ctx).Info("posted")

	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, traceID.String(), fields["trace_id"])
	assert.Equal(t, spanID.String(), fields["span_id"])
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		status int
		level  zapcore.Level
	}{
		{"success logs info", http.StatusOK, zapcore.InfoLevel},
		{"client error logs warn", http.StatusConflict, zapcore.WarnLevel},
		{"server error logs error", http.StatusInternalServerError, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.InfoLevel)
			router := gin.New()
			router.Use(func(c *gin.Context) {
				c.Set("request_id", "req-42")
				c.Next()
			})
			router.Use(GinMiddleware(zap.New(core)))
			var seen string
			router.POST("/sales", func(c *gin.Context) {
				seen = RequestID(c.Request.Context())
				c.Status(tt.status)
			})

			req := httptest.NewRequest(http.MethodPost, "/sales?x=1", nil)
			req.Header.Set("Idempotency-Key", "abc")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, "req-42", seen)
			logs := recorded.FilterMessage("HTTP Request").All()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.level, logs[0].Level)
			fields := logs[0].ContextMap()
			assert.Equal(t, "req-42", fields["request_id"])
			assert.Equal(t, "abc", fields["idempotency_key"])
			assert.Equal(t, "x=1", fields["query"])
			assert.EqualValues(t, tt.status, fields["status"])
		})
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.ErrorLevel)
	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/boom", func(c *gin.Context) {
		panic("kaboom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, recorded.FilterMessage("Panic recovered").Len())
}

func TestFromGin_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotNil(t, FromGin(c))
}

func TestGormLogger_Trace(t *testing.T) {
	sql := func() (string, int64) { return `SELECT * FROM "products"`, 3 }

	t.Run("failures log at error", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		g := NewGormLogger(zap.New(core), &config.DatabaseConfig{LogLevel: "warn", SlowThreshold: time.Second}, true)
		g.Trace(WithRequestID(context.Background(), "req-1"), time.Now(), sql, errors.New("connection reset"))

		logs := recorded.FilterMessage("SQL error").All()
		require.Len(t, logs, 1)
		assert.Equal(t, "req-1", logs[0].ContextMap()["request_id"])
	})

	t.Run("record not found is not an error", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		g := NewGormLogger(zap.New(core), &config.DatabaseConfig{LogLevel: "warn"}, true)
		g.Trace(context.Background(), time.Now(), sql, gormlogger.ErrRecordNotFound)
		assert.Zero(t, recorded.Len())
	})

	t.Run("slow statements log at warn", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		g := NewGormLogger(zap.New(core), &config.DatabaseConfig{LogLevel: "warn", SlowThreshold: time.Millisecond}, true)
		g.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
		assert.Equal(t, 1, recorded.FilterMessage("Slow SQL").Len())
	})

	t.Run("fast statements are quiet below info", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		g := NewGormLogger(zap.New(core), &config.DatabaseConfig{LogLevel: "warn", SlowThreshold: time.Second}, true)
		g.Trace(context.Background(), time.Now(), sql, nil)
		assert.Zero(t, recorded.Len())

		g.LogMode(gormlogger.Info).Trace(context.Background(), time.Now(), sql, nil)
		assert.Equal(t, 1, recorded.FilterMessage("SQL").Len())
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		g := NewGormLogger(zap.New(core), &config.DatabaseConfig{LogLevel: "silent"}, true)
		g.Trace(context.Background(), time.Now(), sql, errors.New("x"))
		assert.Zero(t, recorded.Len())
	})
}

func TestGormLogger_TruncatesWithoutFullSQL(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	g := NewGormLogger(zap.New(core), &config.DatabaseConfig{LogLevel: "info"}, false)
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	g.Trace(context.Background(), time.Now(), func() (string, int64) { return string(long), 0 }, nil)

	require.Equal(t, 1, recorded.Len())
	logged, _ := recorded.All()[0].ContextMap()["sql"].(string)
	assert.Len(t, logged, 515)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(""))
}
