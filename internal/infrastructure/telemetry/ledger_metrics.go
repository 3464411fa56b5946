package telemetry

import (
	"context"
	"fmt"

	appledger "github.com/erp/posledger/internal/application/ledger"
	"github.com/erp/posledger/internal/domain/ledger"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LedgerMeterName is the instrumentation scope of the ledger instruments
const LedgerMeterName = "posledger/ledger"

// LedgerMetrics records posting outcomes as OpenTelemetry counters:
//
//	ledger_entries_posted_total{kind}         entries appended
//	ledger_quantity_posted{kind}              signed quantity moved
//	ledger_postings_rejected_total{kind,code} postings refused by the ledger
type LedgerMetrics struct {
	entriesPosted    metric.Int64Counter
	quantityPosted   metric.Float64UpDownCounter
	postingsRejected metric.Int64Counter
}

// NewLedgerMetrics creates the instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	entries, err := meter.Int64Counter("ledger_entries_posted_total",
		metric.WithDescription("Ledger entries appended, by entry kind"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create entries counter: %w", err)
	}
	quantity, err := meter.Float64UpDownCounter("ledger_quantity_posted",
		metric.WithDescription("Signed stock quantity moved through the ledger, by entry kind"),
		metric.WithUnit("{unit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create quantity counter: %w", err)
	}
	rejected, err := meter.Int64Counter("ledger_postings_rejected_total",
		metric.WithDescription("Postings refused by the ledger, by entry kind and error code"),
		metric.WithUnit("{posting}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rejection counter: %w", err)
	}
	return &LedgerMetrics{entriesPosted: entries, quantityPosted: quantity, postingsRejected: rejected}, nil
}

// EntryPosted implements appledger.MetricsRecorder
func (m *LedgerMetrics) EntryPosted(ctx context.Context, kind ledger.EntryKind, qty decimal.Decimal) {
	attrs := metric.WithAttributes(attribute.String("kind", string(kind)))
	m.entriesPosted.Add(ctx, 1, attrs)
	m.quantityPosted.Add(ctx, qty.InexactFloat64(), attrs)
}

// PostingRejected implements appledger.MetricsRecorder
func (m *LedgerMetrics) PostingRejected(ctx context.Context, kind ledger.EntryKind, code string) {
	m.postingsRejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("code", code),
	))
}

var _ appledger.MetricsRecorder = (*LedgerMetrics)(nil)
