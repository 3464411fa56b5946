package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/erp/posledger/internal/infrastructure/config"
	"github.com/erp/posledger/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type recordingExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *recordingExporter) Shutdown(context.Context) error   { return nil }
func (e *recordingExporter) ForceFlush(context.Context) error { return nil }

func (e *recordingExporter) bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.records))
	for _, r := range e.records {
		out = append(out, r.Body().AsString())
	}
	return out
}

func TestLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cfg  config.TelemetryConfig
	}{
		{"telemetry off", config.TelemetryConfig{Enabled: false, LogsEnabled: true, ServiceName: "posledger"}},
		{"logs off", config.TelemetryConfig{Enabled: true, LogsEnabled: false, ServiceName: "posledger"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lp, err := NewLoggerProvider(ctx, tt.cfg, zaptest.NewLogger(t))
			require.NoError(t, err)
			assert.False(t, lp.IsEnabled())
			assert.False(t, lp.Core(zapcore.DebugLevel).Enabled(zapcore.ErrorLevel))
			assert.NoError(t, lp.ForceFlush(ctx))
			assert.NoError(t, lp.Shutdown(ctx))
		})
	}
}

func TestLoggerProvider_TeedLogger(t *testing.T) {
	ctx := context.Background()
	exporter := &recordingExporter{}
	lp, err := newLoggerProvider("posledger", sdklog.NewSimpleProcessor(exporter), zap.NewNop())
	require.NoError(t, err)
	require.True(t, lp.IsEnabled())

	local, localLogs := observer.New(zapcore.DebugLevel)
	log := logger.Tee(zap.New(local), lp.Core(zapcore.InfoLevel))

	log.Debug("lock acquired")
	log.Info("Sale completed", zap.String("sale_number", "S-1"))
	log.Error("Posting rejected")
	require.NoError(t, lp.ForceFlush(ctx))

	assert.Equal(t, 3, localLogs.Len(), "local output keeps every level")
	assert.Equal(t, []string{"Sale completed", "Posting rejected"}, exporter.bodies())

	exporter.mu.Lock()
	assert.Equal(t, otellog.SeverityError, exporter.records[1].Severity())
	exporter.mu.Unlock()

	assert.NoError(t, lp.Shutdown(ctx))
}
